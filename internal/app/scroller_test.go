package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
)

func TestEase(t *testing.T) {
	assert.Equal(t, 0.0, Ease(0))
	assert.Equal(t, 1.0, Ease(1))
	assert.InDelta(t, 0.5, Ease(0.5), 1e-9)
	assert.Less(t, Ease(0.1), 0.1)
	assert.Greater(t, Ease(0.9), 0.9)

	// Вне [0, 1] зажимается
	assert.Equal(t, 0.0, Ease(-1))
	assert.Equal(t, 1.0, Ease(2))
}

func TestProgressiveScroll(t *testing.T) {
	cfg := config.Default()
	fp := newFakePage()
	fp.pages[listing1] = listingHTML(1, 2, false, "a", "b")
	fp.current = listing1

	s := NewScroller(cfg, scraper.NewScraper(testSelectors(cfg)), observability.NewNop(), noSleep)
	require.NoError(t, s.ProgressiveScroll(context.Background(), fp))

	frames := cfg.Scroll.AnimationMS / cfg.Scroll.FrameMS
	// наверх, steps ступеней, финальная прокрутка
	require.Len(t, fp.scrolls, frames*(cfg.Scroll.Steps+2))

	for _, y := range fp.scrolls[:frames] {
		assert.Equal(t, 0.0, y)
	}
	assert.Equal(t, 600.0, fp.scrolls[2*frames-1])
	assert.Equal(t, 3000.0, fp.scrolls[len(fp.scrolls)-1])

	for i := 1; i < len(fp.scrolls); i++ {
		assert.GreaterOrEqual(t, fp.scrolls[i], fp.scrolls[i-1])
	}
	assert.Equal(t, cfg.Scroll.Steps, fp.waits[".search-results-container"])
}

func TestProgressiveScrollWithoutContainer(t *testing.T) {
	cfg := config.Default()
	fp := newFakePage()
	fp.current = "https://www.linkedin.com/search/results/people/?page=9"

	s := NewScroller(cfg, scraper.NewScraper(testSelectors(cfg)), observability.NewNop(), noSleep)
	assert.NoError(t, s.ProgressiveScroll(context.Background(), fp))
	assert.NotEmpty(t, fp.scrolls)
}

func TestProgressiveScrollCancelled(t *testing.T) {
	cfg := config.Default()
	fp := newFakePage()
	fp.pages[listing1] = listingHTML(1, 2, false, "a")
	fp.current = listing1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScroller(cfg, scraper.NewScraper(testSelectors(cfg)), observability.NewNop(), noSleep)
	assert.ErrorIs(t, s.ProgressiveScroll(ctx, fp), context.Canceled)
}
