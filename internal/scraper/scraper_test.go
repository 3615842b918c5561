package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSelectors() *Selectors {
	return &Selectors{
		ListContainer:        ".search-results-container",
		CardSelectors:        "li.result-card",
		NameSelectors:        []string{`span[dir="ltr"] > span[aria-hidden="true"]`, ".entity-name"},
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
		ProfilePath:          "/in/",
		ListingPath:          "/search/results/people/",
		LoginPath:            "/login",
		EntryPointHref:       "/search/results/people/?connectionOf",
	}
}

const listingURL = "https://www.linkedin.com/search/results/people/?connectionOf=%5B%22abc%22%5D&page=2"

const listingHTML = `
<div class="search-results-container">
  <ul>
    <li class="result-card">
      <span dir="ltr"><span aria-hidden="true">Jane   Doe</span></span>
      <div class="entity-primary-subtitle">Staff Engineer</div>
      <div class="entity-secondary-subtitle">Berlin</div>
      <a href="/in/jane-doe/?miniProfileUrn=1">profile</a>
    </li>
    <li class="result-card">
      <span dir="ltr"><span aria-hidden="true">John Roe</span></span>
      <a href="https://www.linkedin.com/in/john-roe/">profile</a>
    </li>
    <li class="result-card">
      <div class="entity-primary-subtitle">Anonymous member</div>
    </li>
    <li class="result-card">
      <span dir="ltr"><span aria-hidden="true">No Link</span></span>
    </li>
  </ul>
</div>`

func TestParseCards(t *testing.T) {
	s := NewScraper(testSelectors())

	cards, err := s.ParseCards(listingHTML, listingURL)
	require.NoError(t, err)
	require.Len(t, cards, 2)

	assert.Equal(t, "Jane Doe", cards[0].Name)
	assert.Equal(t, "Staff Engineer", cards[0].Title)
	assert.Equal(t, "Berlin", cards[0].Location)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe/?miniProfileUrn=1", cards[0].ProfileURL)
	assert.Equal(t, 0, cards[0].SequenceNum)

	// Необязательные поля пустые, карточка не отбрасывается
	assert.Equal(t, "John Roe", cards[1].Name)
	assert.Equal(t, "", cards[1].Title)
	assert.Equal(t, "", cards[1].Location)
	assert.Equal(t, 1, cards[1].SequenceNum)

	assert.Equal(t, 4, s.CountCards(listingHTML))
}

func TestParseCardsEmptyPage(t *testing.T) {
	s := NewScraper(testSelectors())

	cards, err := s.ParseCards(`<div class="search-results-container"></div>`, listingURL)
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestClassify(t *testing.T) {
	s := NewScraper(testSelectors())

	tests := []struct {
		url      string
		password bool
		expected PageKind
	}{
		{"https://www.linkedin.com/in/jane-doe/", false, PageProfile},
		{listingURL, false, PageListing},
		{"https://www.linkedin.com/search/results/people", false, PageListing},
		{"https://www.linkedin.com/login", false, PageLogin},
		{"https://www.linkedin.com/in/jane-doe/", true, PageLogin},
		{"https://www.linkedin.com/feed/", false, PageUnknown},
	}

	for _, tt := range tests {
		if got := s.Classify(tt.url, tt.password); got != tt.expected {
			t.Errorf("Classify(%q, %v) = %v, want %v", tt.url, tt.password, got, tt.expected)
		}
	}
}

func TestClassifyPageLoginForm(t *testing.T) {
	s := NewScraper(testSelectors())

	kind, err := s.ClassifyPage("https://www.linkedin.com/checkpoint", `<form class="sign-in-form"><input type="password"></form>`)
	require.NoError(t, err)
	assert.Equal(t, PageLogin, kind)

	kind, err = s.ClassifyPage("https://www.linkedin.com/in/jane-doe/", `<main>profile</main>`)
	require.NoError(t, err)
	assert.Equal(t, PageProfile, kind)
}

func TestFindEntryPoint(t *testing.T) {
	s := NewScraper(testSelectors())
	profileURL := "https://www.linkedin.com/in/jane-doe/"

	html := `<main>
		<a href="/in/someone-else/">other</a>
		<a href="/search/results/people/?connectionOf=%5B%22abc%22%5D&network=%5B%22F%22%5D">500+ connections</a>
	</main>`
	href, ok, err := s.FindEntryPoint(html, profileURL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/search/results/people/?connectionOf=%5B%22abc%22%5D&network=%5B%22F%22%5D", href)

	_, ok, err = s.FindEntryPoint(`<main><a href="/in/x/">x</a></main>`, profileURL)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindEntryPointSkipsFallbackMismatch(t *testing.T) {
	s := NewScraper(testSelectors())

	// connectionOf без пути поиска не подходит
	html := `<a href="/mynetwork/?connectionOf=1">network</a>
		<a class="x" href="https://www.linkedin.com/search/results/people/?connectionOf=2">conn</a>`
	href, ok, err := s.FindEntryPoint(html, "https://www.linkedin.com/in/jane/")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/search/results/people/?connectionOf=2", href)
}

func TestParsePagination(t *testing.T) {
	s := NewScraper(testSelectors())

	tests := []struct {
		name     string
		html     string
		expected PaginationState
	}{
		{
			name:     "no widget",
			html:     `<div class="search-results-container"></div>`,
			expected: PaginationState{CurrentPage: 1, TotalPages: 1},
		},
		{
			name: "middle page",
			html: `<div class="artdeco-pagination">
				<div class="artdeco-pagination__page-state">Page 2 of 7</div>
				<button class="artdeco-pagination__button--next">Next</button></div>`,
			expected: PaginationState{Found: true, CurrentPage: 2, TotalPages: 7, HasNext: true},
		},
		{
			name: "last page disabled next",
			html: `<div class="artdeco-pagination">
				<div class="artdeco-pagination__page-state">Page 3 of 3</div>
				<button class="artdeco-pagination__button--next" disabled>Next</button></div>`,
			expected: PaginationState{Found: true, CurrentPage: 3, TotalPages: 3, NextDisabled: true},
		},
		{
			name: "aria disabled",
			html: `<div class="artdeco-pagination">
				<div class="artdeco-pagination__page-state">Page 1 of 4</div>
				<button class="artdeco-pagination__button--next" aria-disabled="true">Next</button></div>`,
			expected: PaginationState{Found: true, CurrentPage: 1, TotalPages: 4, NextDisabled: true},
		},
		{
			name: "x equals y with enabled next",
			html: `<div class="artdeco-pagination">
				<div class="artdeco-pagination__page-state">Page 5 of 5</div>
				<button class="artdeco-pagination__button--next">Next</button></div>`,
			expected: PaginationState{Found: true, CurrentPage: 5, TotalPages: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ParsePagination(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParsePageState(t *testing.T) {
	tests := []struct {
		input   string
		current int
		total   int
		wantErr bool
	}{
		{"Page 3 of 3", 3, 3, false},
		{"  page 10 of 42 ", 10, 42, false},
		{"", 0, 0, true},
		{"Showing results", 0, 0, true},
		{"Page 0 of 3", 0, 0, true},
	}

	for _, tt := range tests {
		current, total, err := ParsePageState(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePageState(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if err == nil && (current != tt.current || total != tt.total) {
			t.Errorf("ParsePageState(%q) = %d of %d, want %d of %d", tt.input, current, total, tt.current, tt.total)
		}
	}
}

func TestHasLoadingIndicator(t *testing.T) {
	s := NewScraper(testSelectors())

	assert.True(t, s.HasLoadingIndicator(`<div class="artdeco-loader"></div>`))
	assert.False(t, s.HasLoadingIndicator(`<div></div>`))
}
