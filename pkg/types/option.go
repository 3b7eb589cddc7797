package types

import (
	"fmt"
	"strings"
	"time"
)

// OptionType is the direction of an option contract.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// OptionContract identifies a single listed option contract.
type OptionContract struct {
	Ticker     string
	Type       OptionType
	Strike     float64
	Expiration string // YYYY-MM-DD
}

// Symbol returns the OCC-style symbol for the contract,
// e.g. AAPL260116C00195000.
func (c OptionContract) Symbol() string {
	exp := strings.ReplaceAll(c.Expiration, "-", "")
	if len(exp) == 8 {
		exp = exp[2:] // YYMMDD
	}

	typeCode := "C"
	if c.Type == Put {
		typeCode = "P"
	}

	// Strike is encoded as dollars*1000, zero-padded to 8 digits.
	strikeMillis := int64(c.Strike*1000 + 0.5)

	return fmt.Sprintf("%s%s%s%08d", strings.ToUpper(c.Ticker), exp, typeCode, strikeMillis)
}

// ExpirationDate parses the contract expiration in the given location.
func (c OptionContract) ExpirationDate(loc *time.Location) (time.Time, error) {
	exp, err := time.ParseInLocation("2006-01-02", c.Expiration, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse expiration %q: %w", c.Expiration, err)
	}

	return exp, nil
}

// DaysToExpiration returns whole calendar days until expiration, using dates
// only. 0 means the contract expires today, negative means it has expired.
func (c OptionContract) DaysToExpiration(now time.Time, loc *time.Location) (int, error) {
	exp, err := c.ExpirationDate(loc)
	if err != nil {
		return 0, err
	}

	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)

	return int(exp.Sub(today).Hours() / 24), nil
}

// Quote is a snapshot of an option contract's market prices.
type Quote struct {
	Symbol          string
	Bid             float64
	Ask             float64
	Mark            float64 // mid price, the price used for position valuation
	Last            float64
	UnderlyingPrice float64
	FetchedAt       time.Time
}

// OrderResult is a confirmed fill from the broker.
type OrderResult struct {
	OrderID     string
	FilledQty   int
	FilledPrice float64
	FilledAt    time.Time
}
