package browser

import (
	"context"
	"fmt"
	"time"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
)

type navigateFunc func(ctx context.Context, url string, timeout time.Duration) error

// navigator оборачивает однократную навигацию драйвера ограничением темпа и повторами.
type navigator struct {
	cfg    *config.Config
	logger *observability.Logger
	pacer  *Pacer
	once   navigateFunc
	sleep  Sleeper
}

func newNavigator(cfg *config.Config, logger *observability.Logger, once navigateFunc) *navigator {
	return &navigator{
		cfg:    cfg,
		logger: logger,
		pacer:  NewPacer(cfg.Pacing.NavigationsPerMin),
		once:   once,
		sleep:  Sleep,
	}
}

func (n *navigator) Navigate(ctx context.Context, url string) error {
	if err := n.pacer.Wait(ctx, url); err != nil {
		return fmt.Errorf("pacing error: %w", err)
	}

	// Navigate with retries
	var lastErr error
	for attempt := 0; attempt <= n.cfg.Browser.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := Backoff(n.cfg.Backoff, attempt)
			n.logger.Warn("navigation failed, retrying", "url", url, "attempt", attempt, "backoff", backoff, "error", lastErr)
			if err := n.sleep(ctx, backoff); err != nil {
				return err
			}
		}

		err := n.once(ctx, url, n.cfg.GetNavigateTimeout())
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}

	return fmt.Errorf("navigate failed after %d retries: %w", n.cfg.Browser.MaxRetries, lastErr)
}
