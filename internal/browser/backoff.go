package browser

import (
	"math"
	"math/rand"
	"time"

	"connections-exporter/internal/config"
)

// Backoff считает задержку перед повторной попыткой навигации.
func Backoff(cfg config.BackoffConfig, attempt int) time.Duration {
	minMS := cfg.MinMS
	maxMS := cfg.MaxMS

	if attempt < 1 {
		attempt = 1
	}

	// Exponential backoff: min * 2^(attempt-1)
	exponential := maxMS
	if attempt-1 < 30 {
		exponential = minMS * (1 << uint(attempt-1))
	}
	if exponential > maxMS || exponential <= 0 {
		exponential = maxMS
	}

	// Apply jitter: ±jitterPct%
	jitterRange := float64(exponential) * float64(cfg.JitterPct) / 100
	jitter := (rand.Float64() - 0.5) * 2 * jitterRange
	finalMS := float64(exponential) + jitter

	if finalMS < float64(minMS) {
		finalMS = float64(minMS)
	}

	return time.Duration(math.Max(finalMS, 0)) * time.Millisecond
}
