// Package monitor runs the position monitoring loop: every poll interval it
// refreshes prices for the active book, evaluates the exit rule chain, and
// executes at most one exit per position per cycle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/quantary/optionsentry/internal/broker"
	"github.com/quantary/optionsentry/internal/exits"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/internal/storage"
	"github.com/quantary/optionsentry/pkg/quotecache"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// Config holds monitor configuration.
type Config struct {
	PollInterval  time.Duration
	BrokerTimeout time.Duration
	Logger        *zap.Logger
}

// Monitor drives the poll-evaluate-execute cycle over the position book.
type Monitor struct {
	cfg      Config
	book     *position.Book
	engine   *exits.Engine
	governor *risk.Governor
	broker   broker.Broker
	cache    *quotecache.Cache
	ledger   storage.Storage
	logger   *zap.Logger

	// injectable clock for deterministic tests
	now func() time.Time

	wg sync.WaitGroup
}

// New creates a monitor over the given book and collaborators.
func New(cfg Config, book *position.Book, engine *exits.Engine, governor *risk.Governor, brk broker.Broker, cache *quotecache.Cache, ledger storage.Storage) (*Monitor, error) {
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", cfg.PollInterval)
	}

	if cfg.BrokerTimeout <= 0 {
		cfg.BrokerTimeout = 10 * time.Second
	}

	return &Monitor{
		cfg:      cfg,
		book:     book,
		engine:   engine,
		governor: governor,
		broker:   brk,
		cache:    cache,
		ledger:   ledger,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// Start launches the polling loop.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("monitor-started",
		zap.Duration("poll-interval", m.cfg.PollInterval))
}

// Close waits for the loop to exit.
func (m *Monitor) Close() {
	m.wg.Wait()
	m.logger.Info("monitor-stopped")
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RunCycle(ctx)
		}
	}
}

// RunCycle executes one monitoring pass over the active book. Each position
// is independent: a failure on one never blocks the others.
func (m *Monitor) RunCycle(ctx context.Context) {
	start := m.now()

	for _, pos := range m.book.Active() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.checkPosition(ctx, pos)
	}

	PollCyclesTotal.Inc()
	PollCycleDurationSeconds.Observe(time.Since(start).Seconds())
}

// checkPosition runs the observe-evaluate-execute sequence for one position.
func (m *Monitor) checkPosition(ctx context.Context, pos *position.Position) {
	if pos.Closed() {
		// Closed positions must never linger in the active set.
		m.evictViolation(pos, errors.New("closed position in active set"))
		return
	}

	quote, err := m.fetchQuote(ctx, pos.Contract)
	if err != nil {
		QuoteErrorsTotal.Inc()
		m.logger.Warn("quote-fetch-failed",
			zap.String("position-id", pos.ID),
			zap.String("symbol", pos.Contract.Symbol()),
			zap.Error(err))

		return
	}

	now := m.now()

	err = pos.Observe(quote.Mark, now)
	if err != nil {
		if errors.Is(err, position.ErrPositionClosed) {
			m.evictViolation(pos, err)
		}

		return
	}

	decision := m.engine.Evaluate(pos.Snapshot(), now)
	if !decision.IsExit() {
		return
	}

	m.executeExit(ctx, pos, decision, quote)
}

// fetchQuote consults the cache before hitting the broker.
func (m *Monitor) fetchQuote(ctx context.Context, contract types.OptionContract) (*types.Quote, error) {
	symbol := contract.Symbol()

	if quote, ok := m.cache.Get(symbol); ok {
		return quote, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.BrokerTimeout)
	defer cancel()

	quote, err := m.broker.GetQuote(callCtx, contract)
	if err != nil {
		return nil, err
	}

	m.cache.Set(symbol, quote)

	return quote, nil
}

// executeExit submits the sell-to-close order and, only on a confirmed fill,
// commits the state transition. A failed submission leaves the position
// untouched; the idempotent rule chain re-triggers on the next cycle.
func (m *Monitor) executeExit(ctx context.Context, pos *position.Position, decision types.ExitDecision, quote *types.Quote) {
	m.logger.Info("exit-triggered",
		zap.String("position-id", pos.ID),
		zap.String("symbol", pos.Contract.Symbol()),
		zap.String("action", string(decision.Action)),
		zap.Int("contracts", decision.ContractsToClose),
		zap.String("reason", decision.Reason))

	callCtx, cancel := context.WithTimeout(ctx, m.cfg.BrokerTimeout)
	defer cancel()

	result, err := m.broker.SubmitSell(callCtx, pos.Contract, decision.ContractsToClose, quote.Bid)
	if err != nil {
		ExitOrderFailuresTotal.WithLabelValues(string(decision.Action)).Inc()
		m.logger.Error("exit-order-failed",
			zap.String("position-id", pos.ID),
			zap.String("action", string(decision.Action)),
			zap.Bool("rejection", broker.IsRejection(err)),
			zap.Error(err))

		return
	}

	now := m.now()
	realizedBefore := pos.RealizedPnL

	err = pos.ApplyFill(decision, result.FilledPrice, now)
	if err != nil {
		if errors.Is(err, position.ErrPositionClosed) {
			m.evictViolation(pos, err)
			return
		}

		m.logger.Error("fill-apply-failed",
			zap.String("position-id", pos.ID),
			zap.Error(err))

		return
	}

	ExitsExecutedTotal.WithLabelValues(string(decision.Action)).Inc()

	// Each fill's realized slice reaches the daily total immediately, so a
	// trim can trip the daily lockout before the position fully closes.
	m.governor.RecordClose(pos.RealizedPnL - realizedBefore)

	m.appendLedger(ctx, pos, decision, result, now)

	if pos.Closed() {
		m.book.Remove(pos.ID)

		m.logger.Info("position-closed",
			zap.String("position-id", pos.ID),
			zap.String("close-action", string(decision.Action)),
			zap.Float64("realized-pnl", pos.RealizedPnL))
	}
}

// appendLedger records the confirmed fill. Ledger failures are logged, never
// retried into a duplicate append.
func (m *Monitor) appendLedger(ctx context.Context, pos *position.Position, decision types.ExitDecision, result *types.OrderResult, now time.Time) {
	rec := &storage.ActionRecord{
		PositionID:  pos.ID,
		Ticker:      pos.Contract.Ticker,
		OptionType:  pos.Contract.Type,
		Strike:      pos.Contract.Strike,
		Expiration:  pos.Contract.Expiration,
		Action:      string(decision.Action),
		Contracts:   result.FilledQty,
		Price:       result.FilledPrice,
		RealizedPnL: pos.RealizedPnL,
		Reason:      decision.Reason,
		OccurredAt:  now,
	}

	err := m.ledger.AppendAction(ctx, rec)
	if err != nil {
		m.logger.Error("ledger-append-failed",
			zap.String("position-id", pos.ID),
			zap.Error(err))
	}
}

// evictViolation removes a position whose state violated an invariant.
// Detection never crashes the loop.
func (m *Monitor) evictViolation(pos *position.Position, err error) {
	InvariantViolationsTotal.Inc()

	m.logger.Error("position-invariant-violation",
		zap.String("position-id", pos.ID),
		zap.Error(err))

	m.book.Remove(pos.ID)
}
