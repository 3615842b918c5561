package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
)

func newTestNavigator(cfg *config.Config) *Navigator {
	return NewNavigator(cfg, scraper.NewScraper(testSelectors(cfg)), observability.NewNop(), noSleep)
}

func TestDetect(t *testing.T) {
	n := newTestNavigator(config.Default())
	fp := newFakePage()

	tests := []struct {
		url      string
		expected scraper.PageKind
	}{
		{profileURL, scraper.PageProfile},
		{loginURL, scraper.PageLogin},
		{listing2, scraper.PageListing},
		{"https://www.linkedin.com/feed/", scraper.PageUnknown},
	}
	for _, tt := range tests {
		fp.current = tt.url
		kind, got, err := n.Detect(context.Background(), fp)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, kind, tt.url)
		assert.Equal(t, tt.url, got)
	}
}

func TestCheckAuth(t *testing.T) {
	n := newTestNavigator(config.Default())
	fp := newFakePage()

	fp.current = listing1
	assert.NoError(t, n.CheckAuth(context.Background(), fp))

	fp.current = loginURL
	assert.ErrorIs(t, n.CheckAuth(context.Background(), fp), ErrAuthRequired)
}

func TestEnterListingFallsBackToClick(t *testing.T) {
	n := newTestNavigator(config.Default())
	fp := newFakePage()
	fp.current = profileURL
	fp.pages[listing1] = listingHTML(1, 1, true, "a")
	// Прямой переход уводит в ленту, клик по ссылке доходит до листинга
	fp.redirects[listing1] = "https://www.linkedin.com/feed/"
	fp.next[profileURL] = listing1

	got, err := n.EnterListing(context.Background(), fp)
	require.NoError(t, err)
	assert.Equal(t, listing1, got)
	assert.Equal(t, []string{listing1, profileURL}, fp.navigations)
	assert.Equal(t, 1, fp.clicks)
}

func TestEnterListingRedirectedToLogin(t *testing.T) {
	n := newTestNavigator(config.Default())
	fp := newFakePage()
	fp.current = profileURL
	fp.redirects[listing1] = loginURL

	_, err := n.EnterListing(context.Background(), fp)
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		moved  bool
		clicks int
	}{
		{"middle page", listingHTML(1, 3, false, "a"), true, 1},
		{"disabled next", listingHTML(3, 3, true, "a"), false, 0},
		{"last page with enabled next", listingHTML(3, 3, false, "a"), false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newTestNavigator(config.Default())
			fp := newFakePage()
			fp.pages[listing1] = tt.html
			fp.current = listing1
			fp.next[listing1] = listing2

			adv, err := n.Advance(context.Background(), fp)
			require.NoError(t, err)
			assert.Equal(t, tt.moved, adv.Moved)
			assert.Equal(t, tt.clicks, fp.clicks)
			if tt.moved {
				assert.Equal(t, listing2, adv.NextURL)
				assert.Empty(t, adv.Reason)
			} else {
				assert.Equal(t, ReasonNoMorePages, adv.Reason)
			}
		})
	}
}

func TestAdvanceNavigationTimeout(t *testing.T) {
	n := newTestNavigator(config.Default())
	fp := newFakePage()
	fp.pages[listing1] = listingHTML(1, 2, false, "a")
	fp.current = listing1

	_, err := n.Advance(context.Background(), fp)
	assert.ErrorIs(t, err, browser.ErrNavigationTimeout)
}
