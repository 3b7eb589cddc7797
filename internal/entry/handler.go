// Package entry consumes graded trade candidates and turns approved ones into
// open positions. Every candidate passes through the risk governor; nothing
// reaches the broker without an approval.
package entry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/quantary/optionsentry/internal/broker"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/internal/storage"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// Rejection stages, used for metrics and the candidate response.
const (
	StageGrade    = "grade"
	StageGovernor = "governor"
	StageQuote    = "quote"
	StageSizing   = "sizing"
)

// Config holds entry handler configuration.
type Config struct {
	QueueSize     int
	BrokerTimeout time.Duration
	Logger        *zap.Logger
}

// Handler consumes trade candidates from a bounded queue and executes the
// approved ones.
type Handler struct {
	cfg      Config
	book     *position.Book
	governor *risk.Governor
	broker   broker.Broker
	ledger   storage.Storage
	logger   *zap.Logger

	candidates chan *types.TradeCandidate
	wg         sync.WaitGroup
}

// New creates an entry handler.
func New(cfg Config, book *position.Book, governor *risk.Governor, brk broker.Broker, ledger storage.Storage) *Handler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}

	if cfg.BrokerTimeout <= 0 {
		cfg.BrokerTimeout = 10 * time.Second
	}

	return &Handler{
		cfg:        cfg,
		book:       book,
		governor:   governor,
		broker:     brk,
		ledger:     ledger,
		logger:     cfg.Logger,
		candidates: make(chan *types.TradeCandidate, cfg.QueueSize),
	}
}

// Submit queues a candidate for processing. Returns an error when the queue
// is full; the caller decides whether to retry.
func (h *Handler) Submit(candidate *types.TradeCandidate) error {
	select {
	case h.candidates <- candidate:
		return nil
	default:
		return fmt.Errorf("candidate queue full (%d)", cap(h.candidates))
	}
}

// Start launches the candidate consumer loop.
func (h *Handler) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.run(ctx)

	h.logger.Info("entry-handler-started", zap.Int("queue-size", cap(h.candidates)))
}

// Close waits for the consumer loop to exit.
func (h *Handler) Close() {
	h.wg.Wait()
	h.logger.Info("entry-handler-stopped")
}

func (h *Handler) run(ctx context.Context) {
	defer h.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case candidate := <-h.candidates:
			CandidatesReceivedTotal.Inc()

			err := h.Process(ctx, candidate)
			if err != nil {
				h.logger.Warn("candidate-not-executed",
					zap.String("ticker", candidate.Ticker),
					zap.String("grade", string(candidate.Grade)),
					zap.Error(err))
			}
		}
	}
}

// Process runs one candidate through grading, governor approval, sizing and
// execution. Returns an error describing the first stage that rejected it.
func (h *Handler) Process(ctx context.Context, candidate *types.TradeCandidate) error {
	if candidate.Grade != types.GradeA && candidate.Grade != types.GradeB {
		CandidatesRejectedTotal.WithLabelValues(StageGrade).Inc()
		return fmt.Errorf("grade %q is not tradeable", candidate.Grade)
	}

	decision := h.governor.ApproveEntry(candidate.MaxRisk, h.book.Len())
	if !decision.Allowed {
		CandidatesRejectedTotal.WithLabelValues(StageGovernor).Inc()
		return fmt.Errorf("governor denied entry: %s (%s)", decision.Reason, decision.Detail)
	}

	contract := candidate.Contract()

	quoteCtx, cancel := context.WithTimeout(ctx, h.cfg.BrokerTimeout)
	quote, err := h.broker.GetQuote(quoteCtx, contract)
	cancel()
	if err != nil {
		CandidatesRejectedTotal.WithLabelValues(StageQuote).Inc()
		return fmt.Errorf("quote %s: %w", contract.Symbol(), err)
	}

	contracts := h.governor.ContractsFor(candidate.Grade, quote.Ask)
	if contracts < 1 {
		CandidatesRejectedTotal.WithLabelValues(StageSizing).Inc()
		return fmt.Errorf("sized to zero contracts at ask %.2f", quote.Ask)
	}

	h.logger.Info("entry-submitting",
		zap.String("symbol", contract.Symbol()),
		zap.String("grade", string(candidate.Grade)),
		zap.Int("contracts", contracts),
		zap.Float64("limit-price", quote.Ask))

	orderCtx, cancel := context.WithTimeout(ctx, h.cfg.BrokerTimeout)
	result, err := h.broker.SubmitBuy(orderCtx, contract, contracts, quote.Ask)
	cancel()
	if err != nil {
		EntryOrderFailuresTotal.Inc()
		return fmt.Errorf("submit buy %s: %w", contract.Symbol(), err)
	}

	pos, err := position.New(contract, result.FilledQty, result.FilledPrice, result.FilledAt)
	if err != nil {
		return fmt.Errorf("create position from fill: %w", err)
	}

	pos.Grade = candidate.Grade
	pos.Thesis = candidate.Thesis
	pos.Catalyst = candidate.Catalyst

	err = h.book.Add(pos)
	if err != nil {
		return fmt.Errorf("track position: %w", err)
	}

	h.governor.RecordOpen()
	EntriesFilledTotal.Inc()

	h.appendLedger(ctx, pos, result)

	h.logger.Info("entry-filled",
		zap.String("position-id", pos.ID),
		zap.String("symbol", contract.Symbol()),
		zap.Int("contracts", result.FilledQty),
		zap.Float64("fill-price", result.FilledPrice))

	return nil
}

func (h *Handler) appendLedger(ctx context.Context, pos *position.Position, result *types.OrderResult) {
	rec := &storage.ActionRecord{
		PositionID: pos.ID,
		Ticker:     pos.Contract.Ticker,
		OptionType: pos.Contract.Type,
		Strike:     pos.Contract.Strike,
		Expiration: pos.Contract.Expiration,
		Action:     "entry",
		Contracts:  result.FilledQty,
		Price:      result.FilledPrice,
		Reason:     pos.Thesis,
		OccurredAt: result.FilledAt,
	}

	err := h.ledger.AppendAction(ctx, rec)
	if err != nil {
		h.logger.Error("ledger-append-failed",
			zap.String("position-id", pos.ID),
			zap.Error(err))
	}
}
