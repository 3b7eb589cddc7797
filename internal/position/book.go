package position

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Book is the active-position set. The monitor loop iterates it every tick;
// the entry handler adds to it; closed positions are removed immediately.
type Book struct {
	mu        sync.RWMutex
	positions map[string]*Position
	logger    *zap.Logger
}

// NewBook creates an empty position book.
func NewBook(logger *zap.Logger) *Book {
	return &Book{
		positions: make(map[string]*Position),
		logger:    logger,
	}
}

// Add registers a newly opened position.
func (b *Book) Add(p *Position) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.positions[p.ID]; exists {
		return fmt.Errorf("position %s already tracked", p.ID)
	}

	b.positions[p.ID] = p
	OpenPositionsGauge.Set(float64(len(b.positions)))

	b.logger.Info("position-tracked",
		zap.String("position-id", p.ID),
		zap.String("ticker", p.Contract.Ticker),
		zap.String("option-type", string(p.Contract.Type)),
		zap.Float64("strike", p.Contract.Strike),
		zap.String("expiration", p.Contract.Expiration),
		zap.Int("contracts", p.ContractsHeld),
		zap.Float64("entry-price", p.EntryPrice))

	return nil
}

// Remove drops a position from the active set.
func (b *Book) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.positions[id]; !exists {
		return
	}

	delete(b.positions, id)
	OpenPositionsGauge.Set(float64(len(b.positions)))

	b.logger.Info("position-untracked", zap.String("position-id", id))
}

// Get returns the position with the given ID.
func (b *Book) Get(id string) (*Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	p, exists := b.positions[id]

	return p, exists
}

// Active returns the open positions. The returned slice is a copy; the
// positions themselves are live and must only be mutated by the monitor loop.
func (b *Book) Active() []*Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	active := make([]*Position, 0, len(b.positions))
	for _, p := range b.positions {
		active = append(active, p)
	}

	return active
}

// Len returns the number of open positions.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.positions)
}

// Snapshots returns point-in-time copies of every open position.
func (b *Book) Snapshots() []Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(b.positions))
	for _, p := range b.positions {
		snaps = append(snaps, p.Snapshot())
	}

	return snaps
}

// Symbols returns the contract symbols of every open position, for quote
// subscription management.
func (b *Book) Symbols() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	symbols := make([]string, 0, len(b.positions))
	for _, p := range b.positions {
		symbols = append(symbols, p.Contract.Symbol())
	}

	return symbols
}
