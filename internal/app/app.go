// Package app wires the engine components together and owns their lifecycle.
package app

import (
	"context"
	"sync"

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

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	book         *position.Book
	governor     *risk.Governor
	exitEngine   *exits.Engine
	broker       broker.Broker
	cache        *quotecache.Cache
	ledger       storage.Storage
	monitor      *monitor.Monitor
	entryHandler *entry.Handler
	quoteFeed    *quotestream.Feed // nil unless streaming is enabled

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// DisableHTTP skips the HTTP surface; used by one-shot CLI commands.
	DisableHTTP bool
}
