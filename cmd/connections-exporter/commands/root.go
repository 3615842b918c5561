package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"connections-exporter/internal/app"
	"connections-exporter/internal/browser"
	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "connections-exporter",
	Short:         "connections-exporter collects a profile's connections listing into CSV.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the config file.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env: всё, что нужно командам: конфиг, журнал, хранилище и координатор.
type env struct {
	cfg         *config.Config
	logger      *observability.Logger
	store       storage.Store
	coordinator *app.Coordinator
}

func setup(sink app.Sink) (*env, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	selectors, err := cfg.LoadSiteSelectors(filepath.Dir(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load selectors: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := app.OpenStore(cfg, logger)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	coordinator := app.NewCoordinator(app.Options{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Selectors: selectors,
		Open: func(ctx context.Context) (browser.Page, error) {
			return browser.Open(ctx, cfg, logger)
		},
		Sink: sink,
	})

	return &env{cfg: cfg, logger: logger, store: store, coordinator: coordinator}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("Failed to close storage", "error", err)
	}
	_ = e.logger.Close()
}
