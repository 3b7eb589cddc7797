package types

// ExitAction is the fixed taxonomy of actions the exit engine can emit.
type ExitAction string

const (
	ActionNone         ExitAction = "none"
	ActionTrim1        ExitAction = "trim_1"
	ActionTrim2        ExitAction = "trim_2"
	ActionTrailingStop ExitAction = "trailing_stop"
	ActionHardStop     ExitAction = "hard_stop"
	ActionDTEClose     ExitAction = "dte_close"
	ActionZeroDTEClose ExitAction = "0dte_close"
)

// ExitDecision is the outcome of one rule-chain evaluation for one position.
// At most one is emitted per poll tick; it is a value, never persisted as-is.
type ExitDecision struct {
	Action           ExitAction
	ContractsToClose int
	Reason           string // human-readable context alongside the action label
}

// IsExit reports whether the decision requires liquidation.
func (d ExitDecision) IsExit() bool {
	return d.Action != ActionNone && d.ContractsToClose > 0
}
