package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"connections-exporter/internal/observability"
)

// GracefulShutdown следит за сигналами ОС: первый сигнал просит остановиться
// после текущей страницы, второй отменяет context.
func GracefulShutdown(logger *observability.Logger, requestStop func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	// Канал для сигналов ОС
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received, stopping after current page", "signal", sig.String())
			requestStop()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigChan:
			logger.Warn("Second signal received, aborting", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
