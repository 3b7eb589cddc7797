package app

import (
	"context"
	"fmt"
	"time"

	"github.com/quantary/optionsentry/internal/broker"
	"github.com/quantary/optionsentry/internal/entry"
	"github.com/quantary/optionsentry/internal/exits"
	"github.com/quantary/optionsentry/internal/monitor"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/internal/quotestream"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/internal/storage"
	"github.com/quantary/optionsentry/pkg/config"
	"github.com/quantary/optionsentry/pkg/healthprobe"
	"github.com/quantary/optionsentry/pkg/httpserver"
	"github.com/quantary/optionsentry/pkg/quotecache"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := healthprobe.New()

	cache, err := setupQuoteCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup quote cache: %w", err)
	}

	brk, err := setupBroker(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup broker: %w", err)
	}

	ledger, err := setupStorage(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup storage: %w", err)
	}

	book := position.NewBook(logger)
	governor := setupGovernor(cfg, logger)

	exitEngine, err := setupExitEngine(cfg)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup exit engine: %w", err)
	}

	mon, err := monitor.New(monitor.Config{
		PollInterval:  cfg.PollInterval,
		BrokerTimeout: cfg.BrokerTimeout,
		Logger:        logger,
	}, book, exitEngine, governor, brk, cache, ledger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup monitor: %w", err)
	}

	entryHandler := entry.New(entry.Config{
		QueueSize:     16,
		BrokerTimeout: cfg.BrokerTimeout,
		Logger:        logger,
	}, book, governor, brk, ledger)

	var quoteFeed *quotestream.Feed
	if cfg.QuoteStreamEnabled && cfg.BrokerMode == "alpaca" {
		quoteFeed = quotestream.New(quotestream.Config{
			URL:       cfg.AlpacaStreamURL,
			APIKey:    cfg.AlpacaAPIKey,
			APISecret: cfg.AlpacaAPISecret,
			Reconnect: quotestream.ReconnectConfig{
				InitialDelay:      time.Second,
				MaxDelay:          time.Minute,
				BackoffMultiplier: 2.0,
				JitterPercent:     0.2,
			},
			Logger: logger,
		}, book, cache)
	}

	var httpServer *httpserver.Server
	if !opts.DisableHTTP {
		httpServer = httpserver.New(&httpserver.Config{
			Port:          cfg.HTTPPort,
			Logger:        logger,
			HealthChecker: healthChecker,
			Book:          book,
			Governor:      governor,
			EntryHandler:  entryHandler,
		})
	}

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		book:          book,
		governor:      governor,
		exitEngine:    exitEngine,
		broker:        brk,
		cache:         cache,
		ledger:        ledger,
		monitor:       mon,
		entryHandler:  entryHandler,
		quoteFeed:     quoteFeed,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupQuoteCache(cfg *config.Config, logger *zap.Logger) (*quotecache.Cache, error) {
	return quotecache.New(&quotecache.Config{
		MaxEntries: 1024,
		TTL:        cfg.QuoteCacheTTL,
		Logger:     logger,
	})
}

// setupBroker selects the execution path. The paper broker is used whenever
// the system is disarmed, regardless of the configured mode: BROKER_MODE says
// which adapter to build, ARMED says whether real orders may leave the
// process.
func setupBroker(cfg *config.Config, logger *zap.Logger) (broker.Broker, error) {
	if !cfg.Armed || cfg.BrokerMode == "paper" {
		if cfg.BrokerMode == "alpaca" && !cfg.Armed {
			logger.Warn("disarmed-forcing-paper-broker",
				zap.String("configured-mode", cfg.BrokerMode))
		}

		return broker.NewPaperBroker(cfg.PaperStartingCash, logger), nil
	}

	return broker.NewAlpacaBroker(&broker.AlpacaConfig{
		TradingURL: cfg.AlpacaTradingURL,
		DataURL:    cfg.AlpacaDataURL,
		APIKey:     cfg.AlpacaAPIKey,
		APISecret:  cfg.AlpacaAPISecret,
		Timeout:    cfg.BrokerTimeout,
		Logger:     logger,
	})
}

func setupStorage(cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	if cfg.StorageMode == "postgres" {
		pgStorage, err := storage.NewPostgresStorage(&storage.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres storage: %w", err)
		}
		return pgStorage, nil
	}

	return storage.NewConsoleStorage(logger), nil
}

func setupGovernor(cfg *config.Config, logger *zap.Logger) *risk.Governor {
	return risk.NewGovernor(risk.Limits{
		MaxRiskPerTrade:        cfg.MaxRiskPerTrade,
		MaxTradesPerDay:        cfg.MaxTradesPerDay,
		DailyLossLimit:         cfg.DailyLossLimit,
		MaxConcurrentPositions: cfg.MaxConcurrentPositions,
		MaxContracts:           cfg.MaxContracts,
	}, cfg.Armed, logger)
}

func setupExitEngine(cfg *config.Config) (*exits.Engine, error) {
	return exits.New(exits.Config{
		HardStopPct:           cfg.HardStopPct,
		Trim1ActivationPct:    cfg.Trim1ActivationPct,
		Trim2ActivationPct:    cfg.Trim2ActivationPct,
		TrailingStopPct:       cfg.TrailingStopPct,
		ATRTrailingMultiplier: cfg.ATRTrailingMultiplier,
		CloseAtDTE:            cfg.CloseAtDTE,
		ForceClose0DTETime:    cfg.ForceClose0DTETime,
		Location:              cfg.ExchangeLocation(),
	})
}
