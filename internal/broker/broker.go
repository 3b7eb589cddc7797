// Package broker defines the capability boundary to the brokerage: quotes in,
// orders out. Concrete adapters are selected via explicit configuration.
package broker

import (
	"context"
	"errors"

	"github.com/quantary/optionsentry/pkg/types"
)

// ErrTimeout indicates the broker did not respond within the bounded window.
// Treated as a transient failure: the caller retries on the next poll tick.
var ErrTimeout = errors.New("broker call timed out")

// Broker is the capability interface to the brokerage. All calls are
// synchronous-with-timeout; a call that does not respond in time fails, it
// is never assumed to have succeeded.
type Broker interface {
	// GetQuote returns the current quote for a contract.
	GetQuote(ctx context.Context, contract types.OptionContract) (*types.Quote, error)

	// SubmitBuy places a buy-to-open limit order and blocks until the fill
	// is confirmed or the context expires.
	SubmitBuy(ctx context.Context, contract types.OptionContract, quantity int, limitPrice float64) (*types.OrderResult, error)

	// SubmitSell places a sell-to-close limit order and blocks until the
	// fill is confirmed or the context expires.
	SubmitSell(ctx context.Context, contract types.OptionContract, quantity int, limitPrice float64) (*types.OrderResult, error)
}

// IsRejection reports whether err is a permanent broker rejection as opposed
// to a transient failure.
func IsRejection(err error) bool {
	var rej *types.RejectionError
	return errors.As(err, &rej)
}
