package position

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quantary/optionsentry/pkg/types"
)

// ContractMultiplier is the share count one option contract controls.
const ContractMultiplier = 100

var (
	// ErrPositionClosed indicates a mutation was attempted on a terminal
	// position. This is an invariant violation, not a market condition:
	// closed positions must be removed from the active set immediately.
	ErrPositionClosed = errors.New("position is closed")

	// ErrHighWaterDecreased indicates state corruption in the high-water
	// mark, which is monotone by construction.
	ErrHighWaterDecreased = errors.New("high-water mark decreased")
)

// Position is one open options position: entry terms, live high-water mark,
// trim history and remaining size. All mutation goes through Observe and
// ApplyFill; everything else reads a Snapshot.
type Position struct {
	ID       string
	Contract types.OptionContract

	ContractsHeld   int
	ContractsAtOpen int

	EntryPrice float64
	EntryTime  time.Time

	CurrentPrice  float64
	HighWaterMark float64
	HighWaterTime time.Time

	Trim1Done bool
	Trim2Done bool

	RealizedPnL float64

	Grade    types.TradeGrade
	Thesis   string
	Catalyst string

	closed     bool
	closedAt   time.Time
	closeLabel types.ExitAction
}

// New creates a position at entry fill. The high-water mark is seeded at the
// entry price so drawdown-from-high starts at zero.
func New(contract types.OptionContract, contracts int, entryPrice float64, entryTime time.Time) (*Position, error) {
	if contracts < 1 {
		return nil, fmt.Errorf("contracts must be >= 1, got %d", contracts)
	}

	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price must be positive, got %f", entryPrice)
	}

	_, err := time.Parse("2006-01-02", contract.Expiration)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration %q: %w", contract.Expiration, err)
	}

	return &Position{
		ID:              uuid.New().String(),
		Contract:        contract,
		ContractsHeld:   contracts,
		ContractsAtOpen: contracts,
		EntryPrice:      entryPrice,
		EntryTime:       entryTime,
		CurrentPrice:    entryPrice,
		HighWaterMark:   entryPrice,
		HighWaterTime:   entryTime,
	}, nil
}

// IsSingleContract reports whether the position opened with exactly one
// contract. The classification is fixed at creation and selects the exit
// family (ATR-style trail vs trim-based trail) for the position's life.
func (p *Position) IsSingleContract() bool {
	return p.ContractsAtOpen == 1
}

// Closed reports whether the position is terminal.
func (p *Position) Closed() bool {
	return p.closed
}

// CloseLabel returns the action that terminated the position.
func (p *Position) CloseLabel() types.ExitAction {
	return p.closeLabel
}

// EntryCost is the total premium paid at open.
func (p *Position) EntryCost() float64 {
	return p.EntryPrice * float64(p.ContractsAtOpen) * ContractMultiplier
}

// Observe records a freshly fetched price, ratcheting the high-water mark.
// Called once per poll tick before rule evaluation.
func (p *Position) Observe(price float64, now time.Time) error {
	if p.closed {
		return fmt.Errorf("observe %s: %w", p.ID, ErrPositionClosed)
	}

	p.CurrentPrice = price

	if price > p.HighWaterMark {
		p.HighWaterMark = price
		p.HighWaterTime = now
	}

	PriceObservationsTotal.Inc()

	return nil
}

// ApplyFill commits a confirmed exit fill against the position: size is
// reduced, trim flags are latched, and realized P&L is captured. When the
// last contract is sold the position transitions to its terminal state.
// Must only be called after the broker confirms the fill.
func (p *Position) ApplyFill(d types.ExitDecision, fillPrice float64, now time.Time) error {
	if p.closed {
		return fmt.Errorf("apply %s on %s: %w", d.Action, p.ID, ErrPositionClosed)
	}

	if !d.IsExit() {
		return fmt.Errorf("apply on %s: decision %q closes no contracts", p.ID, d.Action)
	}

	if d.ContractsToClose > p.ContractsHeld {
		return fmt.Errorf("apply on %s: close %d exceeds held %d", p.ID, d.ContractsToClose, p.ContractsHeld)
	}

	switch d.Action {
	case types.ActionTrim1:
		p.Trim1Done = true
	case types.ActionTrim2:
		p.Trim2Done = true
	}

	p.ContractsHeld -= d.ContractsToClose
	p.RealizedPnL += (fillPrice - p.EntryPrice) * float64(d.ContractsToClose) * ContractMultiplier

	if p.ContractsHeld == 0 {
		p.closed = true
		p.closedAt = now
		p.closeLabel = d.Action
	}

	FillsAppliedTotal.WithLabelValues(string(d.Action)).Inc()

	return nil
}

// Snapshot returns an immutable copy of the position state for rule
// evaluation and status reporting.
func (p *Position) Snapshot() Snapshot {
	return Snapshot{
		ID:              p.ID,
		Contract:        p.Contract,
		ContractsHeld:   p.ContractsHeld,
		ContractsAtOpen: p.ContractsAtOpen,
		EntryPrice:      p.EntryPrice,
		EntryTime:       p.EntryTime,
		CurrentPrice:    p.CurrentPrice,
		HighWaterMark:   p.HighWaterMark,
		Trim1Done:       p.Trim1Done,
		Trim2Done:       p.Trim2Done,
		RealizedPnL:     p.RealizedPnL,
		Closed:          p.closed,
	}
}

// Snapshot is a point-in-time copy of position state. Rule evaluation is a
// pure function over snapshots, which keeps polling idempotent.
type Snapshot struct {
	ID              string
	Contract        types.OptionContract
	ContractsHeld   int
	ContractsAtOpen int
	EntryPrice      float64
	EntryTime       time.Time
	CurrentPrice    float64
	HighWaterMark   float64
	Trim1Done       bool
	Trim2Done       bool
	RealizedPnL     float64
	Closed          bool
}

// IsSingleContract mirrors Position.IsSingleContract.
func (s Snapshot) IsSingleContract() bool {
	return s.ContractsAtOpen == 1
}

// UnrealizedPnLPct is (current / entry) - 1.
func (s Snapshot) UnrealizedPnLPct() float64 {
	if s.EntryPrice == 0 {
		return 0
	}

	return s.CurrentPrice/s.EntryPrice - 1
}

// DrawdownFromHighPct is (high - current) / high.
func (s Snapshot) DrawdownFromHighPct() float64 {
	if s.HighWaterMark == 0 {
		return 0
	}

	return (s.HighWaterMark - s.CurrentPrice) / s.HighWaterMark
}

// DaysToExpiration returns whole days until the contract expires.
func (s Snapshot) DaysToExpiration(now time.Time, loc *time.Location) (int, error) {
	return s.Contract.DaysToExpiration(now, loc)
}
