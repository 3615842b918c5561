package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/scraper"
)

const (
	profileURL = "https://www.linkedin.com/in/jane"
	listing1   = "https://www.linkedin.com/search/results/people/?connectionOf=%5B%22abc%22%5D&network=%5B%22F%22%5D"
	listing2   = listing1 + "&page=2"
	listing3   = listing1 + "&page=3"
	loginURL   = "https://www.linkedin.com/login?session_redirect=%2Fin%2Fjane"
)

const profileHTML = `<html><body><main>
	<h1>Jane Doe</h1>
	<a href="/in/someone/">Someone</a>
	<a href="/search/results/people/?connectionOf=%5B%22abc%22%5D&network=%5B%22F%22%5D">500+ connections</a>
</main></body></html>`

const loginHTML = `<html><body><form class="sign-in-form"><input type="password" name="session_password"></form></body></html>`

// fakePage: сценарий вкладки: URL → HTML, переходы по кнопке next, редиректы.
type fakePage struct {
	mu          sync.Mutex
	pages       map[string]string
	redirects   map[string]string
	next        map[string]string
	current     string
	navigations []string
	clicks      int
	waits       map[string]int
	scrolls     []float64
	closed      bool
	navErr      error
}

func newFakePage() *fakePage {
	return &fakePage{
		pages:     map[string]string{profileURL: profileHTML, loginURL: loginHTML},
		redirects: map[string]string{},
		next:      map[string]string{},
		waits:     map[string]int{},
	}
}

func (f *fakePage) html() string {
	if html, ok := f.pages[f.current]; ok {
		return html
	}
	return "<html><body></body></html>"
}

func (f *fakePage) has(selector string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.html()))
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

func (f *fakePage) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakePage) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html(), nil
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
	if f.navErr != nil {
		return f.navErr
	}
	if to, ok := f.redirects[url]; ok {
		url = to
	}
	f.current = url
	return nil
}

func (f *fakePage) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waits[selector]++
	if f.has(selector) {
		return nil
	}
	return fmt.Errorf("%w: %s", browser.ErrElementTimeout, selector)
}

func (f *fakePage) ClickAndWaitURLChange(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.has(selector) {
		return "", fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	f.clicks++
	to, ok := f.next[f.current]
	if !ok {
		return "", browser.ErrNavigationTimeout
	}
	f.current = to
	return to, nil
}

func (f *fakePage) ScrollMetrics(ctx context.Context) (browser.ScrollMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := browser.ScrollMetrics{ScrollHeight: 3000, ViewportHeight: 800}
	if n := len(f.scrolls); n > 0 {
		m.ScrollY = f.scrolls[n-1]
	}
	return m, nil
}

func (f *fakePage) ScrollTo(ctx context.Context, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, y)
	return nil
}

func (f *fakePage) ScrollIntoView(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.has(selector) {
		return fmt.Errorf("%w: %s", browser.ErrElementNotFound, selector)
	}
	return nil
}

func (f *fakePage) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// listingHTML строит страницу листинга. При total == 0 виджета пагинации нет.
func listingHTML(current, total int, nextDisabled bool, people ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="search-results-container"><ul>`)
	for _, p := range people {
		fmt.Fprintf(&b, `<li class="result-card">
			<span dir="ltr"><span aria-hidden="true">%s</span></span>
			<div class="entity-primary-subtitle">Engineer at %s</div>
			<div class="entity-secondary-subtitle">Berlin</div>
			<a href="https://www.linkedin.com/in/%s/?miniProfileUrn=urn">profile</a>
		</li>`, p, p, p)
	}
	b.WriteString(`</ul></div>`)
	if total > 0 {
		disabled := ""
		if nextDisabled {
			disabled = " disabled"
		}
		fmt.Fprintf(&b, `<div class="artdeco-pagination">
			<div class="artdeco-pagination__page-state">Page %d of %d</div>
			<button class="artdeco-pagination__button--next"%s>Next</button>
		</div>`, current, total, disabled)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}

func testSelectors(cfg *config.Config) *scraper.Selectors {
	s := &scraper.Selectors{
		ListContainer:        ".search-results-container",
		CardSelectors:        "li.result-card",
		NameSelectors:        []string{`span[dir="ltr"] > span[aria-hidden="true"]`},
		TitleSelectors:       []string{".entity-primary-subtitle"},
		LocationSelectors:    []string{".entity-secondary-subtitle"},
		ProfileLinkSelectors: []string{`a[href*="/in/"]`},
		EntryPointSelectors:  []string{`a[href*="/search/results/people/?connectionOf"]`, `a[href*="connectionOf"]`},
		SiteLinks:            "a[href]",
		Pagination:           ".artdeco-pagination",
		PageState:            ".artdeco-pagination__page-state",
		NextButton:           "button.artdeco-pagination__button--next",
		LoginIndicators:      []string{`input[type="password"]`, ".sign-in-form"},
		LoadingIndicators:    []string{".artdeco-loader"},
	}
	cfg.ApplySite(s)
	return s
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}
