// Package exits implements the exit-decision engine: a strict-priority rule
// chain evaluated once per poll tick for each open position. The first rule
// whose trigger condition holds wins; all lower-priority rules are skipped.
// Evaluation is a pure function of (position snapshot, wall-clock time,
// thresholds) and performs no I/O, so re-running it is always safe.
package exits

import (
	"fmt"
	"time"

	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/pkg/types"
)

// thresholdEpsilon absorbs float64 rounding in the derived percentages. A
// drawdown like (1.40-1.05)/1.40 computes a hair under 0.25 and must still
// read as a 25% drawdown.
const thresholdEpsilon = 1e-9

// Config holds the exit thresholds. Percentages are fractions (0.25 = 25%).
type Config struct {
	HardStopPct           float64
	Trim1ActivationPct    float64
	Trim2ActivationPct    float64
	TrailingStopPct       float64
	ATRTrailingMultiplier float64
	CloseAtDTE            int
	ForceClose0DTETime    string // "HH:MM", exchange-local
	Location              *time.Location
}

// atrTrailingPct derives the single-contract trail distance. The original
// strategy maps multiplier 2.5 to a 25% trail; this is a configured
// percentage, not a computed Average True Range.
func (c Config) atrTrailingPct() float64 {
	return c.ATRTrailingMultiplier * 0.10
}

// Engine evaluates the ordered rule chain.
type Engine struct {
	cfg            Config
	forceCloseHour int
	forceCloseMin  int
	rules          []rule
}

// rule pairs a priority-ordered trigger with its decision. Keeping the chain
// as an explicit slice makes the ordering itself the contract, instead of
// scattering it across nested conditionals.
type rule struct {
	name    string
	applies func(s position.Snapshot, now time.Time) (types.ExitDecision, bool)
}

// New creates an exit engine from validated configuration.
func New(cfg Config) (*Engine, error) {
	if cfg.Location == nil {
		return nil, fmt.Errorf("location cannot be nil")
	}

	if cfg.HardStopPct <= 0 || cfg.HardStopPct >= 1 {
		return nil, fmt.Errorf("hard stop pct must be in (0, 1), got %f", cfg.HardStopPct)
	}

	if cfg.TrailingStopPct <= 0 || cfg.TrailingStopPct >= 1 {
		return nil, fmt.Errorf("trailing stop pct must be in (0, 1), got %f", cfg.TrailingStopPct)
	}

	if cfg.ATRTrailingMultiplier <= 0 {
		return nil, fmt.Errorf("atr trailing multiplier must be positive, got %f", cfg.ATRTrailingMultiplier)
	}

	hour, min, err := parseClock(cfg.ForceClose0DTETime)
	if err != nil {
		return nil, fmt.Errorf("force close time: %w", err)
	}

	e := &Engine{
		cfg:            cfg,
		forceCloseHour: hour,
		forceCloseMin:  min,
	}

	// Priority order is the correctness contract: hard stop outranks
	// expiration handling, expiration outranks trails, trails outrank trims.
	e.rules = []rule{
		{name: "hard_stop", applies: e.hardStop},
		{name: "0dte_force_close", applies: e.zeroDTEForceClose},
		{name: "dte_force_close", applies: e.dteForceClose},
		{name: "atr_trailing_stop", applies: e.atrTrailingStop},
		{name: "pct_trailing_stop", applies: e.pctTrailingStop},
		{name: "trim_2", applies: e.trim2},
		{name: "trim_1", applies: e.trim1},
	}

	return e, nil
}

// Evaluate runs the rule chain for one position snapshot. The snapshot's
// current price must already reflect this tick's observation. At most one
// non-NONE decision is returned.
func (e *Engine) Evaluate(s position.Snapshot, now time.Time) types.ExitDecision {
	start := time.Now()
	defer func() {
		EvaluationDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	if s.Closed || s.ContractsHeld <= 0 {
		return types.ExitDecision{Action: types.ActionNone}
	}

	for _, r := range e.rules {
		d, triggered := r.applies(s, now)
		if triggered {
			DecisionsTotal.WithLabelValues(string(d.Action)).Inc()
			return d
		}
	}

	return types.ExitDecision{Action: types.ActionNone}
}

// hardStop closes everything at the catastrophic-loss threshold.
// Non-negotiable; evaluated before every other rule.
func (e *Engine) hardStop(s position.Snapshot, _ time.Time) (types.ExitDecision, bool) {
	pnl := s.UnrealizedPnLPct()
	if pnl > -e.cfg.HardStopPct+thresholdEpsilon {
		return types.ExitDecision{}, false
	}

	return types.ExitDecision{
		Action:           types.ActionHardStop,
		ContractsToClose: s.ContractsHeld,
		Reason:           fmt.Sprintf("unrealized P&L %.1f%% breached hard stop -%.0f%%", pnl*100, e.cfg.HardStopPct*100),
	}, true
}

// zeroDTEForceClose liquidates expiring contracts past the configured
// exchange-local cutoff, avoiding auto-exercise and end-of-day spreads.
func (e *Engine) zeroDTEForceClose(s position.Snapshot, now time.Time) (types.ExitDecision, bool) {
	dte, err := s.DaysToExpiration(now, e.cfg.Location)
	if err != nil || dte != 0 {
		return types.ExitDecision{}, false
	}

	local := now.In(e.cfg.Location)
	cutoff := time.Date(local.Year(), local.Month(), local.Day(), e.forceCloseHour, e.forceCloseMin, 0, 0, e.cfg.Location)

	if local.Before(cutoff) {
		return types.ExitDecision{}, false
	}

	return types.ExitDecision{
		Action:           types.ActionZeroDTEClose,
		ContractsToClose: s.ContractsHeld,
		Reason:           fmt.Sprintf("0 DTE past %s force-close cutoff", e.cfg.ForceClose0DTETime),
	}, true
}

// dteForceClose liquidates when expiration is at or under the configured
// day threshold.
func (e *Engine) dteForceClose(s position.Snapshot, now time.Time) (types.ExitDecision, bool) {
	dte, err := s.DaysToExpiration(now, e.cfg.Location)
	if err != nil || dte > e.cfg.CloseAtDTE {
		return types.ExitDecision{}, false
	}

	return types.ExitDecision{
		Action:           types.ActionDTEClose,
		ContractsToClose: s.ContractsHeld,
		Reason:           fmt.Sprintf("%d DTE at or under close threshold %d", dte, e.cfg.CloseAtDTE),
	}, true
}

// atrTrailingStop is the single-contract trail, armed from entry with no
// activation threshold. A lone contract cannot be partially sold, so it
// protects gains continuously instead of in trim steps.
func (e *Engine) atrTrailingStop(s position.Snapshot, _ time.Time) (types.ExitDecision, bool) {
	if !s.IsSingleContract() {
		return types.ExitDecision{}, false
	}

	drawdown := s.DrawdownFromHighPct()
	trail := e.cfg.atrTrailingPct()
	if drawdown < trail-thresholdEpsilon {
		return types.ExitDecision{}, false
	}

	return types.ExitDecision{
		Action:           types.ActionTrailingStop,
		ContractsToClose: s.ContractsHeld,
		Reason:           fmt.Sprintf("drawdown %.1f%% from high %.2f hit %.0f%% trail", drawdown*100, s.HighWaterMark, trail*100),
	}, true
}

// pctTrailingStop is the multi-contract trail. It only arms after trim 1 has
// locked in partial profit.
func (e *Engine) pctTrailingStop(s position.Snapshot, _ time.Time) (types.ExitDecision, bool) {
	if s.IsSingleContract() || !s.Trim1Done {
		return types.ExitDecision{}, false
	}

	drawdown := s.DrawdownFromHighPct()
	if drawdown < e.cfg.TrailingStopPct-thresholdEpsilon {
		return types.ExitDecision{}, false
	}

	return types.ExitDecision{
		Action:           types.ActionTrailingStop,
		ContractsToClose: s.ContractsHeld,
		Reason:           fmt.Sprintf("drawdown %.1f%% from high %.2f hit %.0f%% trail", drawdown*100, s.HighWaterMark, e.cfg.TrailingStopPct*100),
	}, true
}

// trim2 closes everything left after the first trim once the second profit
// milestone is reached.
func (e *Engine) trim2(s position.Snapshot, _ time.Time) (types.ExitDecision, bool) {
	if s.IsSingleContract() || !s.Trim1Done || s.Trim2Done {
		return types.ExitDecision{}, false
	}

	pnl := s.UnrealizedPnLPct()
	if pnl < e.cfg.Trim2ActivationPct-thresholdEpsilon {
		return types.ExitDecision{}, false
	}

	return types.ExitDecision{
		Action:           types.ActionTrim2,
		ContractsToClose: s.ContractsHeld,
		Reason:           fmt.Sprintf("unrealized P&L %.1f%% hit trim 2 target +%.0f%%", pnl*100, e.cfg.Trim2ActivationPct*100),
	}, true
}

// trim1 sells half of the original size at the first profit milestone and
// arms the percentage trail. Single-contract positions never reach this
// rule: the always-armed ATR trail subsumes it, and one contract cannot be
// split.
func (e *Engine) trim1(s position.Snapshot, _ time.Time) (types.ExitDecision, bool) {
	if s.IsSingleContract() || s.Trim1Done {
		return types.ExitDecision{}, false
	}

	pnl := s.UnrealizedPnLPct()
	if pnl < e.cfg.Trim1ActivationPct-thresholdEpsilon {
		return types.ExitDecision{}, false
	}

	toClose := s.ContractsAtOpen / 2
	if toClose < 1 {
		toClose = 1
	}
	if toClose > s.ContractsHeld {
		toClose = s.ContractsHeld
	}

	return types.ExitDecision{
		Action:           types.ActionTrim1,
		ContractsToClose: toClose,
		Reason:           fmt.Sprintf("unrealized P&L %.1f%% hit trim 1 target +%.0f%%", pnl*100, e.cfg.Trim1ActivationPct*100),
	}, true
}

// parseClock parses an "HH:MM" wall-clock string.
func parseClock(s string) (hour int, min int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}

	return t.Hour(), t.Minute(), nil
}
