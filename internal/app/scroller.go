package app

import (
	"context"
	"math"
	"time"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
)

// Scroller прокручивает листинг ступенями, чтобы подгрузились ленивые карточки.
type Scroller struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	logger  *observability.Logger
	sleep   browser.Sleeper
}

func NewScroller(cfg *config.Config, s *scraper.Scraper, logger *observability.Logger, sleep browser.Sleeper) *Scroller {
	return &Scroller{cfg: cfg, scraper: s, logger: logger, sleep: sleep}
}

// Ease: косинусное сглаживание: 0 → 0, 1 → 1, медленно на краях.
func Ease(p float64) float64 {
	p = math.Max(0, math.Min(1, p))
	return 0.5 * (1 - math.Cos(math.Pi*p))
}

// ProgressiveScroll делит высоту документа на steps равных целей и плавно доходит до каждой.
// Проверка карточек после шага не прерывает прокрутку. Ошибку возвращает только отмена ctx.
func (s *Scroller) ProgressiveScroll(ctx context.Context, page browser.Page) error {
	steps := s.cfg.Scroll.Steps
	delay := browser.Between(s.cfg.GetScrollStepDelay())

	metrics, err := page.ScrollMetrics(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Failed to read scroll metrics", "error", err)
		return nil
	}
	total := metrics.ScrollHeight

	// Сначала наверх
	if err := s.smoothScroll(ctx, page, 0); err != nil {
		return err
	}
	if err := s.sleep(ctx, delay); err != nil {
		return err
	}

	for i := 1; i <= steps; i++ {
		target := total / float64(steps) * float64(i)
		s.logger.Debug("Scrolling", "progress_pct", int(math.Round(float64(i)/float64(steps)*100)))

		if err := s.smoothScroll(ctx, page, target); err != nil {
			return err
		}
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
		if err := s.checkCards(ctx, page, i); err != nil {
			return err
		}
	}

	// Финальная прокрутка до конца и более долгая пауза
	if err := s.smoothScroll(ctx, page, total); err != nil {
		return err
	}
	return s.sleep(ctx, time.Duration(float64(delay)*s.cfg.Scroll.FinalSettleMult))
}

func (s *Scroller) checkCards(ctx context.Context, page browser.Page, step int) error {
	if err := page.WaitForSelector(ctx, s.scraper.Selectors().ListContainer, s.cfg.GetScrollCheckTimeout()); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("Results container not found during scroll", "step", step)
		return nil
	}

	html, err := page.HTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}

	count := s.scraper.CountCards(html)
	s.logger.Debug("Connection cards visible", "step", step, "cards", count)
	if count > 0 {
		return s.sleep(ctx, s.cfg.GetCardsSettle())
	}
	return nil
}

// smoothScroll анимирует прокрутку от текущей позиции до target.
func (s *Scroller) smoothScroll(ctx context.Context, page browser.Page, target float64) error {
	metrics, err := page.ScrollMetrics(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Debug("Failed to read scroll position", "error", err)
		return nil
	}
	start := metrics.ScrollY
	distance := target - start

	frame := s.cfg.GetScrollFrame()
	frames := max(1, int(s.cfg.GetScrollAnimation()/frame))

	for i := 1; i <= frames; i++ {
		y := start + distance*Ease(float64(i)/float64(frames))
		if err := page.ScrollTo(ctx, y); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Debug("Scroll failed", "error", err)
			return nil
		}
		if err := s.sleep(ctx, frame); err != nil {
			return err
		}
	}
	return s.sleep(ctx, 100*time.Millisecond)
}
