package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application. Components stop in reverse
// dependency order: no new entries, then the monitor, then the outer surfaces.
func (a *App) Shutdown() error {
	a.logger.Info("engine-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all loops
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if a.httpServer != nil {
		err := a.httpServer.Shutdown(shutdownCtx)
		if err != nil {
			a.logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	a.entryHandler.Close()
	a.monitor.Close()

	if a.quoteFeed != nil {
		err := a.quoteFeed.Close()
		if err != nil {
			a.logger.Error("quote-stream-close-error", zap.Error(err))
		}
	}

	err := a.ledger.Close()
	if err != nil {
		a.logger.Error("ledger-close-error", zap.Error(err))
	}

	a.cache.Close()

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("engine-shutdown-complete")

	return nil
}
