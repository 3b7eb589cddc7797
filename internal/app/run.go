package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("engine-starting",
		zap.Bool("armed", a.cfg.Armed),
		zap.String("broker-mode", a.cfg.BrokerMode),
		zap.Duration("poll-interval", a.cfg.PollInterval),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)

	a.logger.Info("engine-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.String("exchange-timezone", a.cfg.ExchangeTimezone))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	if a.httpServer != nil {
		a.wg.Add(1)
		go a.runHTTPServer()

		// Give HTTP server a moment to start
		time.Sleep(100 * time.Millisecond)
	}

	if a.quoteFeed != nil {
		err := a.quoteFeed.Start(a.ctx)
		if err != nil {
			return fmt.Errorf("start quote stream: %w", err)
		}
	}

	a.entryHandler.Start(a.ctx)
	a.monitor.Start(a.ctx)

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
