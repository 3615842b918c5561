package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"connections-exporter/internal/normalize"
)

type Scraper struct {
	selectors *Selectors
}

func NewScraper(selectors *Selectors) *Scraper {
	return &Scraper{
		selectors: selectors,
	}
}

func (s *Scraper) Selectors() *Selectors {
	return s.selectors
}

// Classify определяет тип страницы по URL и наличию поля пароля.
// Чистая функция, без побочных эффектов.
func (s *Scraper) Classify(pageURL string, hasPasswordInput bool) PageKind {
	if hasPasswordInput {
		return PageLogin
	}
	path := urlPath(pageURL)
	switch {
	case s.selectors.LoginPath != "" && strings.Contains(path, s.selectors.LoginPath):
		return PageLogin
	case s.selectors.ProfilePath != "" && strings.Contains(path, s.selectors.ProfilePath):
		return PageProfile
	case s.selectors.ListingPath != "" && strings.Contains(path+"/", s.selectors.ListingPath):
		return PageListing
	default:
		return PageUnknown
	}
}

// ClassifyPage классифицирует страницу по снимку HTML.
func (s *Scraper) ClassifyPage(pageURL, html string) (PageKind, error) {
	doc, err := parse(html)
	if err != nil {
		return PageUnknown, err
	}
	return s.Classify(pageURL, s.hasLoginForm(doc)), nil
}

// ParseCards парсит листинг и возвращает карточки в порядке документа.
// Карточки без имени или ссылки на профиль пропускаются.
func (s *Scraper) ParseCards(html, pageURL string) ([]*Card, error) {
	doc, err := parse(html)
	if err != nil {
		return nil, err
	}

	var cards []*Card
	sequenceNum := 0

	doc.Find(s.selectors.CardSelectors).Each(func(i int, sel *goquery.Selection) {
		card := &Card{
			SequenceNum: sequenceNum,
		}

		card.Name = normalize.CleanText(tryText(sel, s.selectors.NameSelectors))
		if card.Name == "" {
			return // Пропуск если нет имени
		}

		href := tryAttr(sel, s.selectors.ProfileLinkSelectors, "href")
		if href == "" {
			return
		}
		card.ProfileURL = resolveURL(pageURL, href)

		// Необязательные поля: пусто, если не нашли
		card.Title = normalize.CleanText(tryText(sel, s.selectors.TitleSelectors))
		card.Location = normalize.CleanText(tryText(sel, s.selectors.LocationSelectors))

		cards = append(cards, card)
		sequenceNum++
	})

	return cards, nil
}

// CountCards возвращает число узлов-карточек (включая невалидные).
func (s *Scraper) CountCards(html string) int {
	doc, err := parse(html)
	if err != nil {
		return 0
	}
	return doc.Find(s.selectors.CardSelectors).Length()
}

// FindEntryPoint ищет ссылку на листинг контактов на странице профиля.
// Сначала основные селекторы, затем полный перебор ссылок сайта.
func (s *Scraper) FindEntryPoint(html, pageURL string) (string, bool, error) {
	doc, err := parse(html)
	if err != nil {
		return "", false, err
	}

	match := func(sel *goquery.Selection) string {
		var found string
		sel.EachWithBreak(func(i int, a *goquery.Selection) bool {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return true
			}
			abs := resolveURL(pageURL, href)
			if strings.Contains(abs, s.selectors.EntryPointHref) {
				found = abs
				return false
			}
			return true
		})
		return found
	}

	for _, selector := range s.selectors.EntryPointSelectors {
		if href := match(doc.Find(selector)); href != "" {
			return href, true, nil
		}
	}

	links := s.selectors.SiteLinks
	if links == "" {
		links = "a[href]"
	}
	if href := match(doc.Find(links)); href != "" {
		return href, true, nil
	}

	return "", false, nil
}

// ParsePagination читает виджет пагинации: "Page X of Y" и состояние кнопки next.
func (s *Scraper) ParsePagination(html string) (PaginationState, error) {
	doc, err := parse(html)
	if err != nil {
		return PaginationState{}, err
	}

	state := PaginationState{CurrentPage: 1, TotalPages: 1}
	if doc.Find(s.selectors.Pagination).Length() == 0 {
		return state, nil
	}
	state.Found = true

	if text := strings.TrimSpace(doc.Find(s.selectors.PageState).First().Text()); text != "" {
		if current, total, err := ParsePageState(text); err == nil {
			state.CurrentPage = current
			state.TotalPages = total
		}
	}

	next := doc.Find(s.selectors.NextButton).First()
	if next.Length() == 0 {
		state.NextDisabled = true
	} else {
		_, disabled := next.Attr("disabled")
		aria, _ := next.Attr("aria-disabled")
		state.NextDisabled = disabled || aria == "true"
	}

	state.HasNext = !state.NextDisabled && state.CurrentPage < state.TotalPages
	return state, nil
}

// HasLoadingIndicator сообщает, виден ли на странице индикатор загрузки.
func (s *Scraper) HasLoadingIndicator(html string) bool {
	doc, err := parse(html)
	if err != nil {
		return false
	}
	for _, selector := range s.selectors.LoadingIndicators {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}

func (s *Scraper) hasLoginForm(doc *goquery.Document) bool {
	for _, selector := range s.selectors.LoginIndicators {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func tryText(s *goquery.Selection, selectors []string) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(s.Find(selector).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

func tryAttr(s *goquery.Selection, selectors []string, attr string) string {
	for _, selector := range selectors {
		val, exists := s.Find(selector).First().Attr(attr)
		if exists && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func resolveURL(base, ref string) string {
	ref = normalize.NormalizeURL(ref)
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	baseURL, err := url.Parse(base)
	if err != nil || base == "" {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func urlPath(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}
	return u.Path
}
