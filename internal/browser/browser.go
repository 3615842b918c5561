package browser

import (
	"context"
	"fmt"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
)

// Open запускает браузер выбранным драйвером и открывает одну вкладку.
func Open(ctx context.Context, cfg *config.Config, logger *observability.Logger) (Page, error) {
	switch cfg.Browser.Driver {
	case "rod":
		page, err := openRod(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return page, nil
	case "chromedp":
		page, err := openChromedp(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return page, nil
	default:
		return nil, fmt.Errorf("unknown browser driver: %q", cfg.Browser.Driver)
	}
}
