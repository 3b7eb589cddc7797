package broker

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// PaperBroker simulates order execution without touching a real brokerage.
// It is the execution path whenever the system is disarmed. Fills happen at
// the limit price; cash accounting mirrors a real account so that paper
// sessions produce realistic governor state.
type PaperBroker struct {
	mu        sync.Mutex
	logger    *zap.Logger
	cash      float64
	holdings  map[string]int     // symbol -> contracts held
	marks     map[string]float64 // symbol -> last simulated mark
	orderslog []PaperOrder
}

// PaperOrder is one simulated order, kept for session inspection.
type PaperOrder struct {
	OrderID  string
	Symbol   string
	Side     string // "buy" or "sell"
	Quantity int
	Price    float64
	At       time.Time
}

// NewPaperBroker creates a paper broker with the given starting cash.
func NewPaperBroker(startingCash float64, logger *zap.Logger) *PaperBroker {
	logger.Info("paper-broker-initialized", zap.Float64("starting-cash", startingCash))

	return &PaperBroker{
		logger:   logger,
		cash:     startingCash,
		holdings: make(map[string]int),
		marks:    make(map[string]float64),
	}
}

// SetMark overrides the simulated mark for a contract. Tests and replay
// drivers use this to script price paths.
func (b *PaperBroker) SetMark(contract types.OptionContract, mark float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.marks[contract.Symbol()] = mark
}

// GetQuote returns a simulated quote around the current mark.
func (b *PaperBroker) GetQuote(_ context.Context, contract types.OptionContract) (*types.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbol := contract.Symbol()

	mark, ok := b.marks[symbol]
	if !ok {
		// First sight of this contract: seed a mark near $1 with a little
		// noise so paper sessions are not perfectly flat.
		mark = 1.00 + rand.Float64()*0.10
		b.marks[symbol] = mark
	}

	QuoteFetchesTotal.WithLabelValues("paper").Inc()

	return &types.Quote{
		Symbol:    symbol,
		Bid:       mark * 0.98,
		Ask:       mark * 1.02,
		Mark:      mark,
		Last:      mark,
		FetchedAt: time.Now(),
	}, nil
}

// SubmitBuy fills a simulated buy at the limit price.
func (b *PaperBroker) SubmitBuy(_ context.Context, contract types.OptionContract, quantity int, limitPrice float64) (*types.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbol := contract.Symbol()
	cost := limitPrice * float64(quantity) * 100

	if cost > b.cash {
		OrdersTotal.WithLabelValues("paper", "buy", "rejected").Inc()
		return nil, &types.RejectionError{
			Code:    types.ErrInsufficientFunds,
			Message: fmt.Sprintf("need $%.2f, have $%.2f", cost, b.cash),
		}
	}

	b.cash -= cost
	b.holdings[symbol] += quantity
	b.marks[symbol] = limitPrice

	order := PaperOrder{
		OrderID:  uuid.New().String(),
		Symbol:   symbol,
		Side:     "buy",
		Quantity: quantity,
		Price:    limitPrice,
		At:       time.Now(),
	}
	b.orderslog = append(b.orderslog, order)

	OrdersTotal.WithLabelValues("paper", "buy", "filled").Inc()

	b.logger.Info("paper-buy-filled",
		zap.String("symbol", symbol),
		zap.Int("quantity", quantity),
		zap.Float64("price", limitPrice),
		zap.Float64("cash-remaining", b.cash))

	return &types.OrderResult{
		OrderID:     order.OrderID,
		FilledQty:   quantity,
		FilledPrice: limitPrice,
		FilledAt:    order.At,
	}, nil
}

// SubmitSell fills a simulated sell at the limit price.
func (b *PaperBroker) SubmitSell(_ context.Context, contract types.OptionContract, quantity int, limitPrice float64) (*types.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbol := contract.Symbol()

	held := b.holdings[symbol]
	if held < quantity {
		OrdersTotal.WithLabelValues("paper", "sell", "rejected").Inc()
		return nil, &types.RejectionError{
			Code:    types.ErrInsufficientSize,
			Message: fmt.Sprintf("sell %d exceeds held %d", quantity, held),
		}
	}

	proceeds := limitPrice * float64(quantity) * 100
	b.cash += proceeds
	b.holdings[symbol] = held - quantity

	order := PaperOrder{
		OrderID:  uuid.New().String(),
		Symbol:   symbol,
		Side:     "sell",
		Quantity: quantity,
		Price:    limitPrice,
		At:       time.Now(),
	}
	b.orderslog = append(b.orderslog, order)

	OrdersTotal.WithLabelValues("paper", "sell", "filled").Inc()

	b.logger.Info("paper-sell-filled",
		zap.String("symbol", symbol),
		zap.Int("quantity", quantity),
		zap.Float64("price", limitPrice),
		zap.Float64("cash", b.cash))

	return &types.OrderResult{
		OrderID:     order.OrderID,
		FilledQty:   quantity,
		FilledPrice: limitPrice,
		FilledAt:    order.At,
	}, nil
}

// Cash returns the simulated cash balance.
func (b *PaperBroker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.cash
}

// Orders returns a copy of the simulated order history.
func (b *PaperBroker) Orders() []PaperOrder {
	b.mu.Lock()
	defer b.mu.Unlock()

	orders := make([]PaperOrder, len(b.orderslog))
	copy(orders, b.orderslog)

	return orders
}
