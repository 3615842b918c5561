package app

import (
	"fmt"

	"connections-exporter/internal/config"
	"connections-exporter/internal/observability"
	"connections-exporter/internal/storage"
	"connections-exporter/internal/storage/mssql"
	"connections-exporter/internal/storage/sqlite"
)

// OpenStore открывает хранилище сессии по storage.driver.
func OpenStore(cfg *config.Config, logger *observability.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.Storage.DSN, cfg.Storage.CommandTimeoutMS, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "mssql":
		repo, err := mssql.NewRepository(cfg.Storage.DSN, cfg.Storage.CommandTimeoutMS, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
	}
}
