package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
)

func TestBackoffCalculation(t *testing.T) {
	cfg := config.BackoffConfig{MinMS: 250, MaxMS: 2000, JitterPct: 20}
	minD := 250 * time.Millisecond
	maxD := 2000 * time.Millisecond

	for attempt := 1; attempt <= 8; attempt++ {
		backoff := Backoff(cfg, attempt)
		if backoff < minD || backoff > maxD*12/10 {
			t.Errorf("Backoff out of expected range: attempt=%d %v", attempt, backoff)
		}
	}
}

func TestBetween(t *testing.T) {
	span := config.Span{Min: 800 * time.Millisecond, Max: 1200 * time.Millisecond}
	for i := 0; i < 100; i++ {
		d := Between(span)
		assert.GreaterOrEqual(t, d, span.Min)
		assert.LessOrEqual(t, d, span.Max)
	}
	assert.Equal(t, time.Second, Between(config.Span{Min: time.Second, Max: time.Second}))
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}

func TestPacerBudget(t *testing.T) {
	p := NewPacer(1)

	require.NoError(t, p.Wait(context.Background(), "https://www.linkedin.com/in/a"))

	// Вторая навигация на тот же хост ждёт минуту и не укладывается в дедлайн
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, p.Wait(ctx, "https://www.linkedin.com/in/b"))

	// Другой хост считается отдельно
	assert.NoError(t, p.Wait(ctx, "https://example.com/"))
}

func TestPacerSpacing(t *testing.T) {
	p := NewPacer(600)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Wait(ctx, "https://www.linkedin.com/in/a"))
	require.NoError(t, p.Wait(ctx, "https://www.linkedin.com/in/b"))
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestPacerDisabled(t *testing.T) {
	p := NewPacer(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Wait(context.Background(), "https://www.linkedin.com/in/a"))
	}
}

func TestNavigatorRetries(t *testing.T) {
	cfg := config.Default()
	cfg.Browser.MaxRetries = 2

	var attempts int
	n := newNavigator(cfg, observability.NewNop(), func(ctx context.Context, url string, timeout time.Duration) error {
		attempts++
		if attempts < 3 {
			return errors.New("net::ERR_CONNECTION_RESET")
		}
		return nil
	})
	n.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	require.NoError(t, n.Navigate(context.Background(), "https://www.linkedin.com/in/jane"))
	assert.Equal(t, 3, attempts)
}

func TestNavigatorGivesUp(t *testing.T) {
	cfg := config.Default()
	cfg.Browser.MaxRetries = 1

	n := newNavigator(cfg, observability.NewNop(), func(ctx context.Context, url string, timeout time.Duration) error {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	})
	n.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	err := n.Navigate(context.Background(), "https://www.linkedin.com/in/jane")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ERR_NAME_NOT_RESOLVED")
}

func TestCallExpression(t *testing.T) {
	expr, err := callExpression("(a, b) => a", `a"b`, 5)
	require.NoError(t, err)
	assert.Equal(t, `((a, b) => a)("a\"b", 5)`, expr)

}
