package app

import (
	"context"
	"errors"
	"fmt"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
)

// Navigator определяет тип страницы, заходит в листинг и листает его.
type Navigator struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	logger  *observability.Logger
	sleep   browser.Sleeper
}

func NewNavigator(cfg *config.Config, s *scraper.Scraper, logger *observability.Logger, sleep browser.Sleeper) *Navigator {
	return &Navigator{cfg: cfg, scraper: s, logger: logger, sleep: sleep}
}

// Advance: итог попытки перейти на следующую страницу.
type Advance struct {
	Moved   bool
	NextURL string
	State   scraper.PaginationState
	Reason  string // почему листание закончено, если !Moved
}

// Detect классифицирует текущую страницу.
func (n *Navigator) Detect(ctx context.Context, page browser.Page) (scraper.PageKind, string, error) {
	pageURL, err := page.URL(ctx)
	if err != nil {
		return scraper.PageUnknown, "", fmt.Errorf("failed to read page url: %w", err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return scraper.PageUnknown, pageURL, fmt.Errorf("failed to read page: %w", err)
	}
	kind, err := n.scraper.ClassifyPage(pageURL, html)
	return kind, pageURL, err
}

// CheckAuth возвращает ErrAuthRequired, если открыта страница входа.
func (n *Navigator) CheckAuth(ctx context.Context, page browser.Page) error {
	kind, pageURL, err := n.Detect(ctx, page)
	if err != nil {
		return err
	}
	if kind == scraper.PageLogin {
		return fmt.Errorf("%w: %s", ErrAuthRequired, pageURL)
	}
	return nil
}

// EnterListing находит на странице профиля ссылку на контакты и переходит по ней.
// Сначала прямая навигация, затем клик по ссылке.
func (n *Navigator) EnterListing(ctx context.Context, page browser.Page) (string, error) {
	if err := n.sleep(ctx, n.cfg.GetProfileSettle()); err != nil {
		return "", err
	}

	profileURL, err := page.URL(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page url: %w", err)
	}
	html, err := page.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}

	href, ok, err := n.scraper.FindEntryPoint(html, profileURL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrEntryPointNotFound
	}
	n.logger.Info("Found connections link", "href", href)

	if err := page.Navigate(ctx, href); err != nil {
		return "", fmt.Errorf("navigate to listing: %w", err)
	}
	if err := n.sleep(ctx, browser.Between(n.cfg.GetPostNavigationSettle())); err != nil {
		return "", err
	}

	listingURL, onListing, err := n.onListing(ctx, page)
	if err != nil || onListing {
		return listingURL, err
	}

	n.logger.Warn("Direct navigation did not reach the listing, trying click", "url", listingURL)
	if err := page.Navigate(ctx, profileURL); err != nil {
		return "", fmt.Errorf("navigate back to profile: %w", err)
	}
	for _, selector := range n.scraper.Selectors().EntryPointSelectors {
		_, err := page.ClickAndWaitURLChange(ctx, selector, n.cfg.GetNavigationTimeout())
		if errors.Is(err, browser.ErrElementNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if err := n.sleep(ctx, browser.Between(n.cfg.GetPostNavigationSettle())); err != nil {
			return "", err
		}
		listingURL, onListing, err = n.onListing(ctx, page)
		if err != nil || onListing {
			return listingURL, err
		}
		break
	}

	return "", fmt.Errorf("%w: navigation to listing failed, current url %s", ErrUnknownPage, listingURL)
}

func (n *Navigator) onListing(ctx context.Context, page browser.Page) (string, bool, error) {
	kind, pageURL, err := n.Detect(ctx, page)
	if err != nil {
		return pageURL, false, err
	}
	switch kind {
	case scraper.PageLogin:
		return pageURL, false, fmt.Errorf("%w: %s", ErrAuthRequired, pageURL)
	case scraper.PageListing:
		return pageURL, true, nil
	default:
		return pageURL, false, nil
	}
}

// Advance ищет виджет пагинации и переходит на следующую страницу.
// Отсутствие виджета после повторов, выключенная кнопка или X >= Y означают конец листинга.
func (n *Navigator) Advance(ctx context.Context, page browser.Page) (Advance, error) {
	sel := n.scraper.Selectors()

	if err := n.sleep(ctx, browser.Between(n.cfg.GetPrePaginationPause())); err != nil {
		return Advance{}, err
	}

	found, err := n.findPagination(ctx, page)
	if err != nil {
		return Advance{}, err
	}
	if !found {
		n.logger.Info("No pagination found after retries, extraction complete")
		return Advance{Reason: ReasonNoMorePages}, nil
	}

	// Кнопка может дорисоваться позже виджета
	if err := page.WaitForSelector(ctx, sel.NextButton, n.cfg.GetScrollCheckTimeout()); err != nil && !errors.Is(err, browser.ErrElementTimeout) {
		return Advance{}, err
	}

	html, err := page.HTML(ctx)
	if err != nil {
		return Advance{}, fmt.Errorf("failed to read page: %w", err)
	}
	state, err := n.scraper.ParsePagination(html)
	if err != nil {
		return Advance{}, err
	}

	if !state.HasNext {
		n.logger.Info("Reached last page", "page", state.CurrentPage, "total", state.TotalPages, "next_disabled", state.NextDisabled)
		return Advance{State: state, Reason: ReasonNoMorePages}, nil
	}

	if err := page.ScrollIntoView(ctx, sel.NextButton); err != nil {
		if ctx.Err() != nil {
			return Advance{}, ctx.Err()
		}
		n.logger.Debug("Failed to scroll next button into view", "error", err)
	} else if err := n.sleep(ctx, browser.Between(n.cfg.GetPostScrollPause())); err != nil {
		return Advance{}, err
	}

	if err := n.sleep(ctx, browser.Between(n.cfg.GetPreClickPause())); err != nil {
		return Advance{}, err
	}

	n.logger.Info("Navigating to next page", "page", state.CurrentPage+1)
	nextURL, err := page.ClickAndWaitURLChange(ctx, sel.NextButton, n.cfg.GetNavigationTimeout())
	if err != nil {
		return Advance{}, err
	}

	if err := n.sleep(ctx, browser.Between(n.cfg.GetPostNavigationSettle())); err != nil {
		return Advance{}, err
	}

	return Advance{Moved: true, NextURL: nextURL, State: state}, nil
}

// findPagination ждёт виджет пагинации с повторами. Попытка, во время которой виден
// индикатор загрузки, не расходует повтор (не более loading_extra_waits раз).
func (n *Navigator) findPagination(ctx context.Context, page browser.Page) (bool, error) {
	sel := n.scraper.Selectors()
	retries := n.cfg.Pagination.Retries
	extraLeft := n.cfg.Pagination.LoadingExtraWait

	for attempt := 0; attempt < retries; {
		err := page.WaitForSelector(ctx, sel.Pagination, n.cfg.GetPaginationRetryWait())
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, browser.ErrElementTimeout) {
			return false, err
		}

		if extraLeft > 0 && n.loading(ctx, page) {
			extraLeft--
			n.logger.Info("Pagination not found, page still loading", "extra_waits_left", extraLeft)
		} else {
			attempt++
			n.logger.Info("Pagination not found", "retry", attempt, "of", retries)
		}

		if err := n.sleep(ctx, n.cfg.GetPaginationRetryPause()); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (n *Navigator) loading(ctx context.Context, page browser.Page) bool {
	html, err := page.HTML(ctx)
	if err != nil {
		return false
	}
	return n.scraper.HasLoadingIndicator(html)
}
