package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"connections-exporter/internal/browser"
	"connections-exporter/internal/checksum"
	"connections-exporter/internal/config"
	"connections-exporter/internal/export"
	"connections-exporter/internal/normalize"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/scraper"
	"connections-exporter/internal/storage"
)

// PageOpener открывает браузер с одной вкладкой.
type PageOpener func(ctx context.Context) (browser.Page, error)

// Coordinator запускает и возобновляет сессии, принимает запрос остановки и выгружает результат.
type Coordinator struct {
	cfg          *config.Config
	logger       *observability.Logger
	store        storage.Store
	open         PageOpener
	sink         Sink
	orchestrator *Orchestrator
	checksum     *checksum.Generator

	running atomic.Bool
	stop    atomic.Bool
	now     func() time.Time
}

type Options struct {
	Config    *config.Config
	Logger    *observability.Logger
	Store     storage.Store
	Selectors *scraper.Selectors
	Open      PageOpener
	Sink      Sink
	Sleep     browser.Sleeper
}

func NewCoordinator(opts Options) *Coordinator {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = browser.Sleep
	}
	s := scraper.NewScraper(opts.Selectors)

	c := &Coordinator{
		cfg:      opts.Config,
		logger:   opts.Logger,
		store:    opts.Store,
		open:     opts.Open,
		sink:     opts.Sink,
		checksum: checksum.NewGenerator(),
		now:      time.Now,
	}
	c.orchestrator = NewOrchestrator(
		opts.Config,
		opts.Logger,
		opts.Store,
		NewNavigator(opts.Config, s, opts.Logger, sleep),
		NewScroller(opts.Config, s, opts.Logger, sleep),
		NewExtractor(opts.Config, s, opts.Logger, sleep),
		&c.stop,
	)
	return c
}

// Start создаёт новую сессию для профиля targetURL и ведёт её до завершения.
func (c *Coordinator) Start(ctx context.Context, targetURL string) (*RunStats, error) {
	target, err := normalize.ValidateProfileURL(targetURL, c.cfg.Site.Domain, c.cfg.Site.ProfilePathPattern)
	if err != nil {
		return nil, err
	}

	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer c.running.Store(false)

	existing, err := c.store.Load(ctx)
	switch {
	case err == nil && existing.Status == storage.StatusRunning:
		return nil, fmt.Errorf("%w: session for %s, use resume or reset", ErrAlreadyRunning, existing.TargetURL)
	case err != nil && !errors.Is(err, storage.ErrNoSession):
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session := &storage.Session{
		ID:        c.checksum.SessionID(target),
		TargetURL: target,
		Status:    storage.StatusRunning,
		AutoStart: true,
		StartedAt: c.now().UTC(),
	}
	if err := c.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return c.drive(ctx, session, target, false)
}

// Resume продолжает сессию Running с последнего сохранённого URL листинга.
func (c *Coordinator) Resume(ctx context.Context) (*RunStats, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer c.running.Store(false)

	session, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoSession) {
			return nil, ErrNotResumable
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.Status.Terminal() || !session.AutoStart {
		return nil, fmt.Errorf("%w: session is %s", ErrNotResumable, session.Status)
	}

	startURL := session.ListingURL
	if startURL == "" {
		startURL = session.TargetURL
	}
	return c.drive(ctx, session, startURL, true)
}

func (c *Coordinator) drive(ctx context.Context, session *storage.Session, startURL string, resumed bool) (*RunStats, error) {
	c.stop.Store(false)

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID, "session", session.ID)
	logger.Info("Starting extraction", "target", session.TargetURL, "start_url", startURL, "resumed", resumed)

	c.sink.emit(Started{RunID: runID, SessionID: session.ID, TargetURL: session.TargetURL, Resumed: resumed})

	page, err := c.open(ctx)
	if err != nil {
		return c.abort(ctx, fmt.Errorf("failed to open browser: %w", err))
	}
	// Вкладка закрывается при любом завершении сессии
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("Failed to close browser", "error", err)
		}
	}()

	if err := page.Navigate(ctx, startURL); err != nil {
		return c.abort(ctx, fmt.Errorf("failed to open %s: %w", startURL, err))
	}

	stats, err := c.orchestrator.Run(ctx, page, c.sink)
	if err != nil {
		return nil, err
	}
	logger.Info("Extraction finished", "status", stats.Status, "reason", stats.Reason, "pages", stats.Pages, "records", stats.Records)
	return stats, nil
}

// abort завершает сессию с ошибкой браузера до начала обхода.
func (c *Coordinator) abort(ctx context.Context, cause error) (*RunStats, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.orchestrator.log(c.sink, "error", cause.Error())
	if err := c.orchestrator.finish(ctx, c.sink, storage.StatusFailed, ReasonBrowserError); err != nil {
		return nil, err
	}
	return c.orchestrator.stats(ctx)
}

// RequestStop просит остановиться после текущей страницы.
func (c *Coordinator) RequestStop() {
	if c.stop.CompareAndSwap(false, true) {
		c.logger.Info("Stop requested, finishing current page")
	}
}

// Running сообщает, идёт ли сессия в этом процессе.
func (c *Coordinator) Running() bool {
	return c.running.Load()
}

// Status возвращает последнюю сохранённую сессию.
func (c *Coordinator) Status(ctx context.Context) (*storage.Session, error) {
	return c.store.Load(ctx)
}

// Export пишет записи сессии в w как CSV и возвращает их число.
func (c *Coordinator) Export(ctx context.Context, w io.Writer) (int, error) {
	session, err := c.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := export.WriteCSV(w, session.Records); err != nil {
		return 0, fmt.Errorf("failed to write csv: %w", err)
	}
	return len(session.Records), nil
}

// ExportFile пишет CSV в path.
func (c *Coordinator) ExportFile(ctx context.Context, path string) (int, error) {
	session, err := c.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	if err := export.WriteFile(path, session.Records); err != nil {
		return 0, err
	}
	return len(session.Records), nil
}

// Reset удаляет сессию и записи.
func (c *Coordinator) Reset(ctx context.Context) error {
	if c.running.Load() {
		return ErrAlreadyRunning
	}
	return c.store.Reset(ctx)
}
