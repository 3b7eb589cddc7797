package types

import "fmt"

// RejectionError represents an order the broker refused. Rejections are
// permanent for the submitted order; the caller re-evaluates on the next
// poll tick rather than retrying the same order blindly.
type RejectionError struct {
	Code    string // broker error code or internal code
	Message string // human-readable error message
	OrderID string // order ID if one was assigned
}

func (e *RejectionError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("order rejected (ID: %s): %s (%s)", e.OrderID, e.Message, e.Code)
	}

	return fmt.Sprintf("order rejected: %s (%s)", e.Message, e.Code)
}

// Known broker rejection codes.
const (
	ErrInsufficientFunds = "INSUFFICIENT_FUNDS"
	ErrInsufficientSize  = "INSUFFICIENT_POSITION_SIZE"
	ErrPositionNotFound  = "POSITION_NOT_FOUND"
	ErrMarketClosed      = "MARKET_CLOSED"
	ErrUnknownStatus     = "UNKNOWN_STATUS"
)
