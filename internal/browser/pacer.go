package browser

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer ограничивает число навигаций в минуту на хост.
type Pacer struct {
	limit rate.Limit
	hosts map[string]*rate.Limiter
	mu    sync.Mutex
}

// NewPacer создаёт ограничитель на perMinute навигаций в минуту. perMinute <= 0 отключает ограничение.
func NewPacer(perMinute int) *Pacer {
	if perMinute <= 0 {
		return &Pacer{limit: rate.Inf}
	}
	return &Pacer{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		hosts: make(map[string]*rate.Limiter),
	}
}

// Wait блокируется, пока навигация на rawURL не уложится в бюджет.
func (p *Pacer) Wait(ctx context.Context, rawURL string) error {
	if p == nil || p.limit == rate.Inf {
		return nil
	}
	return p.limiter(rawURL).Wait(ctx)
}

func (p *Pacer) limiter(rawURL string) *rate.Limiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.hosts[host]
	if !ok {
		// Одна навигация сразу, дальше не чаще limit
		l = rate.NewLimiter(p.limit, 1)
		p.hosts[host] = l
	}
	return l
}
