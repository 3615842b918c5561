package app

import (
	"context"
	"fmt"
	"time"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/normalize"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
	"connections-exporter/internal/storage"
)

// Extractor читает карточки текущей страницы листинга.
type Extractor struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	logger  *observability.Logger
	sleep   browser.Sleeper
}

func NewExtractor(cfg *config.Config, s *scraper.Scraper, logger *observability.Logger, sleep browser.Sleeper) *Extractor {
	return &Extractor{cfg: cfg, scraper: s, logger: logger, sleep: sleep}
}

// WaitForContainer ждёт появления контейнера результатов. По таймауту возвращает browser.ErrElementTimeout.
func (e *Extractor) WaitForContainer(ctx context.Context, page browser.Page, timeout time.Duration) error {
	return page.WaitForSelector(ctx, e.scraper.Selectors().ListContainer, timeout)
}

// Extract возвращает валидные записи в порядке документа и число пропущенных карточек.
func (e *Extractor) Extract(ctx context.Context, page browser.Page) ([]storage.ConnectionRecord, int, error) {
	if err := e.WaitForContainer(ctx, page, e.cfg.GetElementWaitTimeout()); err != nil {
		return nil, 0, err
	}
	if err := e.sleep(ctx, e.cfg.GetContainerSettle()); err != nil {
		return nil, 0, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read page: %w", err)
	}
	pageURL, err := page.URL(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read page url: %w", err)
	}

	cards, err := e.scraper.ParseCards(html, pageURL)
	if err != nil {
		return nil, 0, err
	}

	records := make([]storage.ConnectionRecord, 0, len(cards))
	for _, card := range cards {
		profileURL, err := normalize.CanonicalProfileURL(card.ProfileURL)
		if err != nil {
			e.logger.Debug("Skipping card with invalid profile link", "name", card.Name, "href", card.ProfileURL)
			continue
		}
		records = append(records, storage.ConnectionRecord{
			Name:       card.Name,
			Title:      card.Title,
			Location:   card.Location,
			ProfileURL: profileURL,
		})
	}

	skipped := max(0, e.scraper.CountCards(html)-len(records))
	return records, skipped, nil
}
