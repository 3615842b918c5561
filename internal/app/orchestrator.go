package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
	"connections-exporter/internal/storage"
)

type Orchestrator struct {
	cfg       *config.Config
	logger    *observability.Logger
	store     storage.Store
	navigator *Navigator
	scroller  *Scroller
	extractor *Extractor
	stop      *atomic.Bool
}

func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	store storage.Store,
	nav *Navigator,
	scroller *Scroller,
	extractor *Extractor,
	stop *atomic.Bool,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		navigator: nav,
		scroller:  scroller,
		extractor: extractor,
		stop:      stop,
	}
}

// RunStats: итог прогона сессии.
type RunStats struct {
	Pages   int
	Records int
	Status  storage.Status
	Reason  string
}

// Run ведёт сессию из хранилища по открытой вкладке до завершения.
// Ошибки сессии превращаются в статус Failed; возвращается ошибка только
// при отказе хранилища или отмене ctx вызывающим.
func (o *Orchestrator) Run(ctx context.Context, page browser.Page, sink Sink) (*RunStats, error) {
	runCtx := ctx
	if hard := o.cfg.GetSessionHardTimeout(); hard > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, hard)
		defer cancel()
	}

	err := o.run(runCtx, page, sink)
	if err == nil {
		return o.stats(ctx)
	}

	// Отмена вызывающим: сессия остаётся Running для resume
	if ctx.Err() != nil {
		o.logger.Warn("Extraction interrupted", "error", ctx.Err())
		return o.stats(context.WithoutCancel(ctx))
	}

	var storeErr *storeError
	if errors.As(err, &storeErr) {
		return nil, storeErr.err
	}

	reason := FailureReason(err)
	if runCtx.Err() != nil {
		reason = ReasonSessionTimeout
	}
	if reason == ReasonAuthRequired {
		o.log(sink, "error", "Authentication required, please log in and try again")
		sink.emit(AuthRequired{Message: "Authentication required. Please log in and try again."})
	}
	o.log(sink, "error", fmt.Sprintf("Extraction failed: %v", err), "reason", reason)

	if err := o.finish(ctx, sink, storage.StatusFailed, reason); err != nil {
		return nil, err
	}
	return o.stats(ctx)
}

func (o *Orchestrator) run(ctx context.Context, page browser.Page, sink Sink) error {
	kind, pageURL, err := o.navigator.Detect(ctx, page)
	if err != nil {
		return err
	}
	o.log(sink, "info", fmt.Sprintf("Detected %s page", kind), "url", pageURL)

	switch kind {
	case scraper.PageLogin:
		return fmt.Errorf("%w: %s", ErrAuthRequired, pageURL)
	case scraper.PageProfile:
		listingURL, err := o.navigator.EnterListing(ctx, page)
		if err != nil {
			return err
		}
		o.log(sink, "success", "Reached connections listing", "url", listingURL)
	case scraper.PageListing:
		// Возобновление: ListingURL указывает на уже учтённую страницу, её не обрабатываем повторно
		session, err := o.store.Load(ctx)
		if err != nil {
			return &storeError{err}
		}
		if session.ListingURL != "" && session.CurrentPageIndex > 0 {
			o.log(sink, "info", "Resuming after last processed page", "page", session.CurrentPageIndex)
			adv, err := o.navigator.Advance(ctx, page)
			if err != nil {
				return err
			}
			if !adv.Moved {
				return o.complete(ctx, sink, adv.Reason)
			}
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPage, pageURL)
	}

	for {
		// Состояние сессии восстанавливается из хранилища на каждой странице
		session, err := o.store.Load(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNoSession) {
				o.logger.Warn("Session removed while running, stopping")
				return nil
			}
			return &storeError{err}
		}
		if session.Status.Terminal() {
			o.logger.Info("Session no longer running, stopping", "status", session.Status)
			return nil
		}
		if o.stop.Load() {
			return o.complete(ctx, sink, ReasonStopped)
		}

		if err := o.navigator.CheckAuth(ctx, page); err != nil {
			return err
		}

		pageNum := session.CurrentPageIndex + 1
		log := o.logger.With("session", session.ID, "page", pageNum)

		if err := o.scroller.ProgressiveScroll(ctx, page); err != nil {
			return err
		}

		records, skipped, err := o.extractor.Extract(ctx, page)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			o.log(sink, "warning", "No connection cards found on page", "page", pageNum)
		}

		result, err := o.store.MergeRecords(ctx, records)
		if err != nil {
			return &storeError{err}
		}
		currentURL, err := page.URL(ctx)
		if err != nil {
			return err
		}
		pages, err := o.store.AdvancePage(ctx, currentURL)
		if err != nil {
			return &storeError{err}
		}
		total := len(session.Records) + result.Added

		log.Info("Page extracted", "cards", len(records), "added", result.Added, "duplicates", result.Duplicates, "skipped", skipped)
		o.log(sink, "info", fmt.Sprintf("Added %d new connections (filtered out %d duplicates)", result.Added, result.Duplicates))
		sink.emit(ExtractedData{Page: pages, Records: records, Added: result.Added, Duplicates: result.Duplicates, Skipped: skipped})
		sink.emit(Progress{Percent: ProgressPercent(pages, total, false), PagesProcessed: pages, ConnectionsFound: total})

		if limit := o.cfg.Pagination.MaxPages; limit > 0 && pages >= limit {
			return o.complete(ctx, sink, ReasonMaxPages)
		}
		if o.stop.Load() {
			return o.complete(ctx, sink, ReasonStopped)
		}

		adv, err := o.navigator.Advance(ctx, page)
		if err != nil {
			return err
		}
		if !adv.Moved {
			return o.complete(ctx, sink, adv.Reason)
		}
		log.Debug("Moved to next page", "url", adv.NextURL)
	}
}

func (o *Orchestrator) complete(ctx context.Context, sink Sink, reason string) error {
	o.log(sink, "success", "Extraction complete", "reason", reason)
	if err := o.finish(ctx, sink, storage.StatusComplete, reason); err != nil {
		return &storeError{err}
	}
	return nil
}

// finish сохраняет терминальный статус и сообщает наблюдателю. Пишет даже после
// истечения жёсткого таймаута сессии.
func (o *Orchestrator) finish(ctx context.Context, sink Sink, status storage.Status, reason string) error {
	ctx = context.WithoutCancel(ctx)

	if err := o.store.SetStatus(ctx, status, reason); err != nil {
		return fmt.Errorf("failed to save session status: %w", err)
	}
	if err := o.store.SetAutoStart(ctx, false); err != nil {
		return fmt.Errorf("failed to clear auto start: %w", err)
	}

	session, err := o.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if status == storage.StatusComplete {
		sink.emit(Progress{Percent: 100, PagesProcessed: session.CurrentPageIndex, ConnectionsFound: len(session.Records)})
	}
	sink.emit(Complete{
		Status:       status,
		Reason:       reason,
		TotalRecords: len(session.Records),
		Pages:        session.CurrentPageIndex,
	})
	return nil
}

func (o *Orchestrator) stats(ctx context.Context) (*RunStats, error) {
	session, err := o.store.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSession) {
			return &RunStats{Status: storage.StatusIdle}, nil
		}
		return nil, err
	}
	return &RunStats{
		Pages:   session.CurrentPageIndex,
		Records: len(session.Records),
		Status:  session.Status,
		Reason:  session.Reason,
	}, nil
}

// log пишет в журнал и дублирует строку наблюдателю событием Log.
func (o *Orchestrator) log(sink Sink, level, msg string, fields ...any) {
	o.logger.Log(level, msg, fields...)
	sink.emit(Log{Level: level, Message: msg})
}

// storeError помечает отказ хранилища: такие ошибки не превращаются в статус сессии.
type storeError struct {
	err error
}

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }
