package types

// TradeGrade is the quality grade assigned by the external evaluator.
type TradeGrade string

const (
	GradeA       TradeGrade = "A"
	GradeB       TradeGrade = "B"
	GradeNoTrade TradeGrade = "no_trade"
)

// TradeCandidate is a graded trade proposal from the external evaluator.
// The engine never generates these; it only validates, sizes and executes
// them.
type TradeCandidate struct {
	Ticker     string     `json:"ticker"`
	Direction  OptionType `json:"direction"`
	Strike     float64    `json:"strike"`
	Expiration string     `json:"expiration"`
	Grade      TradeGrade `json:"grade"`
	Contracts  int        `json:"contracts"`
	MaxRisk    float64    `json:"max_risk"`
	Thesis     string     `json:"thesis,omitempty"`
	Catalyst   string     `json:"catalyst,omitempty"`
}

// Contract returns the option contract the candidate proposes to buy.
func (tc *TradeCandidate) Contract() OptionContract {
	return OptionContract{
		Ticker:     tc.Ticker,
		Type:       tc.Direction,
		Strike:     tc.Strike,
		Expiration: tc.Expiration,
	}
}
