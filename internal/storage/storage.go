package storage

import (
	"context"
	"time"

	"github.com/quantary/optionsentry/pkg/types"
)

// ActionRecord is one confirmed engine action, appended to the immutable
// ledger keyed by position identity.
type ActionRecord struct {
	PositionID  string
	Ticker      string
	OptionType  types.OptionType
	Strike      float64
	Expiration  string
	Action      string // "entry" or an exit action label
	Contracts   int
	Price       float64
	RealizedPnL float64
	Reason      string
	OccurredAt  time.Time
}

// Storage is the interface to the trade/action ledger. The engine holds no
// durable state beyond process memory; every confirmed fill goes here.
type Storage interface {
	// AppendAction appends one confirmed action to the ledger.
	AppendAction(ctx context.Context, rec *ActionRecord) error

	// Close closes the ledger connection.
	Close() error
}
