package browser

import (
	"context"
	"math/rand"
	"time"

	"connections-exporter/internal/config"
)

// Sleeper приостанавливает выполнение на d или до отмены ctx.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep ждёт d на реальном таймере.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Between возвращает случайную длительность из [span.Min, span.Max].
func Between(span config.Span) time.Duration {
	if span.Max <= span.Min {
		return span.Min
	}
	return span.Min + time.Duration(rand.Int63n(int64(span.Max-span.Min)+1))
}
