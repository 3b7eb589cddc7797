package exits

import (
	"testing"
	"time"

	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/pkg/types"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(Config{
		HardStopPct:           0.50,
		Trim1ActivationPct:    0.25,
		Trim2ActivationPct:    0.50,
		TrailingStopPct:       0.25,
		ATRTrailingMultiplier: 2.5, // 25% trail
		CloseAtDTE:            1,
		ForceClose0DTETime:    "15:30",
		Location:              time.UTC,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return e
}

// snap builds a snapshot with a far expiration so DTE rules stay quiet unless
// the test overrides it.
func snap(held, atOpen int, entry, current, high float64) position.Snapshot {
	return position.Snapshot{
		ID: "test-position",
		Contract: types.OptionContract{
			Ticker:     "SPY",
			Type:       types.Call,
			Strike:     500,
			Expiration: "2026-11-20",
		},
		ContractsHeld:   held,
		ContractsAtOpen: atOpen,
		EntryPrice:      entry,
		CurrentPrice:    current,
		HighWaterMark:   high,
	}
}

// midSession is a weekday well before any expiration in snap().
var midSession = time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)

func TestEvaluateRulePriority(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name       string
		snapshot   position.Snapshot
		now        time.Time
		wantAction types.ExitAction
		wantClose  int
	}{
		{
			name:       "no_rule_fires_flat_position",
			snapshot:   snap(2, 2, 1.00, 1.00, 1.00),
			now:        midSession,
			wantAction: types.ActionNone,
		},
		{
			name:       "hard_stop_at_half_loss",
			snapshot:   snap(2, 2, 1.00, 0.50, 1.00),
			now:        midSession,
			wantAction: types.ActionHardStop,
			wantClose:  2,
		},
		{
			name:       "hard_stop_below_threshold",
			snapshot:   snap(1, 1, 1.00, 0.30, 1.00),
			now:        midSession,
			wantAction: types.ActionHardStop,
			wantClose:  1,
		},
		{
			name:       "loss_above_hard_stop_falls_through_to_trail",
			snapshot:   snap(1, 1, 1.00, 0.51, 1.20),
			now:        midSession,
			wantAction: types.ActionTrailingStop, // 57% drawdown from 1.20
			wantClose:  1,
		},
		{
			name:       "trim_1_at_first_milestone",
			snapshot:   snap(2, 2, 1.00, 1.26, 1.26),
			now:        midSession,
			wantAction: types.ActionTrim1,
			wantClose:  1,
		},
		{
			name:       "trim_1_exact_threshold",
			snapshot:   snap(4, 4, 1.00, 1.25, 1.25),
			now:        midSession,
			wantAction: types.ActionTrim1,
			wantClose:  2,
		},
		{
			name:       "trim_1_below_threshold_holds",
			snapshot:   snap(2, 2, 1.00, 1.24, 1.24),
			now:        midSession,
			wantAction: types.ActionNone,
		},
		{
			name: "trim_2_after_trim_1",
			snapshot: func() position.Snapshot {
				s := snap(1, 2, 1.00, 1.55, 1.55)
				s.Trim1Done = true
				return s
			}(),
			now:        midSession,
			wantAction: types.ActionTrim2,
			wantClose:  1,
		},
		{
			name:       "trim_2_skipped_without_trim_1",
			snapshot:   snap(2, 2, 1.00, 1.55, 1.55),
			now:        midSession,
			wantAction: types.ActionTrim1, // trim 1 still pending, fires first
			wantClose:  1,
		},
		{
			name: "pct_trail_after_trim_1",
			snapshot: func() position.Snapshot {
				s := snap(1, 2, 1.00, 1.05, 1.40)
				s.Trim1Done = true
				return s
			}(),
			now:        midSession,
			wantAction: types.ActionTrailingStop,
			wantClose:  1,
		},
		{
			name:       "pct_trail_not_armed_before_trim_1",
			snapshot:   snap(2, 2, 1.00, 1.05, 1.40),
			now:        midSession,
			wantAction: types.ActionNone, // 25% drawdown but trail unarmed, pnl +5% below trim
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Evaluate(tt.snapshot, tt.now)

			if d.Action != tt.wantAction {
				t.Fatalf("Evaluate() action = %s, want %s (reason: %s)", d.Action, tt.wantAction, d.Reason)
			}
			if d.ContractsToClose != tt.wantClose {
				t.Errorf("ContractsToClose = %d, want %d", d.ContractsToClose, tt.wantClose)
			}
		})
	}
}

func TestSingleContractTrailArmedFromEntry(t *testing.T) {
	e := testEngine(t)

	// Runner peaks at +40% then gives back 25% of the high: the trail closes
	// the lone contract even though no trim ever ran.
	s := snap(1, 1, 1.00, 1.05, 1.40)

	d := e.Evaluate(s, midSession)

	if d.Action != types.ActionTrailingStop {
		t.Fatalf("Evaluate() action = %s, want %s", d.Action, types.ActionTrailingStop)
	}
	if d.ContractsToClose != 1 {
		t.Errorf("ContractsToClose = %d, want 1", d.ContractsToClose)
	}
}

func TestThresholdTriggersDespiteFloatRounding(t *testing.T) {
	e := testEngine(t)

	// These boundaries are exactly at their configured threshold on paper,
	// but the float64 division lands a hair under it: (1.40-1.05)/1.40 and
	// (1.75-1.40)/1.40 both compute just below 0.25. The rules must still
	// fire.
	tests := []struct {
		name       string
		snapshot   position.Snapshot
		wantAction types.ExitAction
		wantClose  int
	}{
		{
			name:       "atr_trail_at_exact_25pct_drawdown",
			snapshot:   snap(1, 1, 1.00, 1.05, 1.40),
			wantAction: types.ActionTrailingStop,
			wantClose:  1,
		},
		{
			name: "pct_trail_at_exact_25pct_drawdown",
			snapshot: func() position.Snapshot {
				s := snap(1, 2, 1.00, 1.05, 1.40)
				s.Trim1Done = true
				return s
			}(),
			wantAction: types.ActionTrailingStop,
			wantClose:  1,
		},
		{
			name:       "trim_1_at_exact_25pct_gain",
			snapshot:   snap(2, 2, 1.40, 1.75, 1.75),
			wantAction: types.ActionTrim1,
			wantClose:  1,
		},
		{
			name: "trim_2_at_exact_50pct_gain",
			snapshot: func() position.Snapshot {
				s := snap(1, 2, 1.40, 2.10, 2.10)
				s.Trim1Done = true
				return s
			}(),
			wantAction: types.ActionTrim2,
			wantClose:  1,
		},
		{
			name:       "hard_stop_at_exact_50pct_loss",
			snapshot:   snap(2, 2, 1.40, 0.70, 1.40),
			wantAction: types.ActionHardStop,
			wantClose:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Evaluate(tt.snapshot, midSession)

			if d.Action != tt.wantAction {
				t.Fatalf("Evaluate() action = %s, want %s (reason: %s)", d.Action, tt.wantAction, d.Reason)
			}
			if d.ContractsToClose != tt.wantClose {
				t.Errorf("ContractsToClose = %d, want %d", d.ContractsToClose, tt.wantClose)
			}
		})
	}
}

func TestSingleContractNeverTrims(t *testing.T) {
	e := testEngine(t)

	// Deep in profit with no drawdown: a lone contract holds, trims are
	// structurally unreachable for it.
	s := snap(1, 1, 1.00, 1.60, 1.60)

	d := e.Evaluate(s, midSession)

	if d.Action != types.ActionNone {
		t.Errorf("Evaluate() action = %s, want %s", d.Action, types.ActionNone)
	}
}

func TestMultiContractTrimSequence(t *testing.T) {
	e := testEngine(t)

	// Two-contract lifecycle: +26% trims half, +50% closes the remainder.
	s := snap(2, 2, 1.00, 1.26, 1.26)

	d := e.Evaluate(s, midSession)
	if d.Action != types.ActionTrim1 {
		t.Fatalf("first decision = %s, want %s", d.Action, types.ActionTrim1)
	}
	if d.ContractsToClose != 1 {
		t.Fatalf("trim 1 contracts = %d, want 1", d.ContractsToClose)
	}

	s.ContractsHeld = 1
	s.Trim1Done = true
	s.CurrentPrice = 1.52
	s.HighWaterMark = 1.52

	d = e.Evaluate(s, midSession)
	if d.Action != types.ActionTrim2 {
		t.Fatalf("second decision = %s, want %s", d.Action, types.ActionTrim2)
	}
	if d.ContractsToClose != 1 {
		t.Errorf("trim 2 contracts = %d, want 1", d.ContractsToClose)
	}
}

func TestDTEForceClose(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name       string
		expiration string
		now        time.Time
		wantAction types.ExitAction
	}{
		{
			name:       "one_dte_closes",
			expiration: "2026-09-02",
			now:        time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			wantAction: types.ActionDTEClose,
		},
		{
			name:       "two_dte_holds",
			expiration: "2026-09-03",
			now:        time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			wantAction: types.ActionNone,
		},
		{
			name:       "zero_dte_before_cutoff_is_dte_close",
			expiration: "2026-09-01",
			now:        time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
			wantAction: types.ActionDTEClose,
		},
		{
			name:       "zero_dte_at_cutoff_is_force_close",
			expiration: "2026-09-01",
			now:        time.Date(2026, 9, 1, 15, 30, 0, 0, time.UTC),
			wantAction: types.ActionZeroDTEClose,
		},
		{
			name:       "zero_dte_past_cutoff_is_force_close",
			expiration: "2026-09-01",
			now:        time.Date(2026, 9, 1, 15, 45, 0, 0, time.UTC),
			wantAction: types.ActionZeroDTEClose,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := snap(2, 2, 1.00, 1.02, 1.02)
			s.Contract.Expiration = tt.expiration

			d := e.Evaluate(s, tt.now)

			if d.Action != tt.wantAction {
				t.Errorf("Evaluate() action = %s, want %s", d.Action, tt.wantAction)
			}
			if d.IsExit() && d.ContractsToClose != 2 {
				t.Errorf("ContractsToClose = %d, want full size 2", d.ContractsToClose)
			}
		})
	}
}

func TestHardStopOutranksExpiration(t *testing.T) {
	e := testEngine(t)

	// Expiring today, past the cutoff, and down 60%: the hard stop still
	// labels the exit.
	s := snap(1, 1, 1.00, 0.40, 1.00)
	s.Contract.Expiration = "2026-09-01"

	d := e.Evaluate(s, time.Date(2026, 9, 1, 15, 45, 0, 0, time.UTC))

	if d.Action != types.ActionHardStop {
		t.Errorf("Evaluate() action = %s, want %s", d.Action, types.ActionHardStop)
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	e := testEngine(t)

	s := snap(2, 2, 1.00, 1.30, 1.30)

	first := e.Evaluate(s, midSession)
	second := e.Evaluate(s, midSession)

	if first != second {
		t.Errorf("Evaluate() not idempotent: %+v vs %+v", first, second)
	}
}

func TestEvaluateClosedAndEmptyPositions(t *testing.T) {
	e := testEngine(t)

	closed := snap(0, 2, 1.00, 0.10, 1.00)
	closed.Closed = true

	if d := e.Evaluate(closed, midSession); d.Action != types.ActionNone {
		t.Errorf("closed position action = %s, want %s", d.Action, types.ActionNone)
	}

	empty := snap(0, 2, 1.00, 0.10, 1.00)
	if d := e.Evaluate(empty, midSession); d.Action != types.ActionNone {
		t.Errorf("empty position action = %s, want %s", d.Action, types.ActionNone)
	}
}

func TestNewValidation(t *testing.T) {
	valid := Config{
		HardStopPct:           0.50,
		Trim1ActivationPct:    0.25,
		Trim2ActivationPct:    0.50,
		TrailingStopPct:       0.25,
		ATRTrailingMultiplier: 2.5,
		CloseAtDTE:            1,
		ForceClose0DTETime:    "15:30",
		Location:              time.UTC,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "nil_location", mutate: func(c *Config) { c.Location = nil }},
		{name: "hard_stop_zero", mutate: func(c *Config) { c.HardStopPct = 0 }},
		{name: "hard_stop_full", mutate: func(c *Config) { c.HardStopPct = 1 }},
		{name: "trail_negative", mutate: func(c *Config) { c.TrailingStopPct = -0.1 }},
		{name: "atr_multiplier_zero", mutate: func(c *Config) { c.ATRTrailingMultiplier = 0 }},
		{name: "bad_clock", mutate: func(c *Config) { c.ForceClose0DTETime = "25:99" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			_, err := New(cfg)
			if err == nil {
				t.Error("New() expected validation error")
			}
		})
	}

	if _, err := New(valid); err != nil {
		t.Errorf("New() with valid config error = %v", err)
	}
}
