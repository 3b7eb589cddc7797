// Package risk implements the Governor, the final authority over whether a
// new trade may be opened. Entries are gated; exits never are.
package risk

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DenialReason is the fixed taxonomy of entry denials, ordered most
// catastrophic first.
type DenialReason string

const (
	DenyKillSwitch      DenialReason = "kill_switch"
	DenyDailyLockout    DenialReason = "daily_lockout"
	DenyDailyTradeLimit DenialReason = "daily_trade_limit"
	DenyMaxConcurrent   DenialReason = "max_concurrent_positions"
	DenyRiskPerTrade    DenialReason = "risk_per_trade"
)

// EntryDecision is the typed outcome of an entry approval. Denials are
// expected control flow, not errors.
type EntryDecision struct {
	Allowed bool
	Reason  DenialReason
	Detail  string
}

// Limits holds the risk caps enforced on every entry.
type Limits struct {
	MaxRiskPerTrade        float64
	MaxTradesPerDay        int
	DailyLossLimit         float64
	MaxConcurrentPositions int
	MaxContracts           int
}

// Governor owns the day-scoped risk counters. A single instance is passed by
// reference into the loop; no other component writes these counters.
type Governor struct {
	mu     sync.Mutex
	limits Limits
	logger *zap.Logger
	armed  bool

	// injectable clock for deterministic day-rollover tests
	now func() time.Time

	day               time.Time // date of the current session
	tradesOpenedToday int
	realizedPnLToday  float64
	lockoutActive     bool
	lockoutReason     string
	killSwitchActive  bool
}

// NewGovernor creates a governor for a fresh trading session.
func NewGovernor(limits Limits, armed bool, logger *zap.Logger) *Governor {
	g := &Governor{
		limits: limits,
		logger: logger,
		armed:  armed,
		now:    time.Now,
	}
	g.day = dateOf(g.now())

	logger.Info("risk-governor-initialized",
		zap.Bool("armed", armed),
		zap.Float64("max-risk-per-trade", limits.MaxRiskPerTrade),
		zap.Int("max-trades-per-day", limits.MaxTradesPerDay),
		zap.Float64("daily-loss-limit", limits.DailyLossLimit),
		zap.Int("max-concurrent-positions", limits.MaxConcurrentPositions))

	return g
}

// ApproveEntry validates a proposed new trade. Checks run in fixed order,
// most catastrophic first; the first failing check's reason is returned.
// No component may bypass this.
func (g *Governor) ApproveEntry(proposedRisk float64, currentOpenCount int) EntryDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkNewDayLocked()

	decision := g.approveLocked(proposedRisk, currentOpenCount)

	if decision.Allowed {
		EntriesApprovedTotal.Inc()
	} else {
		EntriesDeniedTotal.WithLabelValues(string(decision.Reason)).Inc()
		g.logger.Warn("entry-denied",
			zap.String("reason", string(decision.Reason)),
			zap.String("detail", decision.Detail))
	}

	return decision
}

func (g *Governor) approveLocked(proposedRisk float64, currentOpenCount int) EntryDecision {
	if g.killSwitchActive {
		return EntryDecision{Reason: DenyKillSwitch, Detail: "kill switch is active"}
	}

	if g.lockoutActive {
		return EntryDecision{Reason: DenyDailyLockout, Detail: g.lockoutReason}
	}

	if g.tradesOpenedToday >= g.limits.MaxTradesPerDay {
		return EntryDecision{
			Reason: DenyDailyTradeLimit,
			Detail: formatLimit("daily trade limit reached", g.tradesOpenedToday, g.limits.MaxTradesPerDay),
		}
	}

	if currentOpenCount >= g.limits.MaxConcurrentPositions {
		return EntryDecision{
			Reason: DenyMaxConcurrent,
			Detail: formatLimit("concurrent position limit reached", currentOpenCount, g.limits.MaxConcurrentPositions),
		}
	}

	if proposedRisk > g.limits.MaxRiskPerTrade {
		return EntryDecision{
			Reason: DenyRiskPerTrade,
			Detail: formatRisk(proposedRisk, g.limits.MaxRiskPerTrade),
		}
	}

	return EntryDecision{Allowed: true}
}

// RecordOpen increments the daily trade counter. Called once per filled
// entry.
func (g *Governor) RecordOpen() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkNewDayLocked()
	g.tradesOpenedToday++

	g.logger.Info("trade-open-recorded",
		zap.Int("trades-today", g.tradesOpenedToday),
		zap.Int("max-trades", g.limits.MaxTradesPerDay))
}

// RecordClose adds the realized P&L of a confirmed closing fill, partial or
// terminal, to the daily total. Breaching the daily loss limit activates the
// lockout, sticky for the rest of the session; subsequent profitable closes
// do not lift it.
func (g *Governor) RecordClose(realizedPnL float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkNewDayLocked()
	g.realizedPnLToday += realizedPnL
	RealizedPnLTodayGauge.Set(g.realizedPnLToday)

	g.logger.Info("trade-close-recorded",
		zap.Float64("realized-pnl", realizedPnL),
		zap.Float64("realized-today", g.realizedPnLToday))

	if !g.lockoutActive && g.realizedPnLToday <= -g.limits.DailyLossLimit {
		g.lockoutLocked(fmt.Sprintf("daily loss limit hit: $%.2f", g.realizedPnLToday))
	}
}

// ActivateKillSwitch halts all new entries immediately. In-flight exits
// always complete.
func (g *Governor) ActivateKillSwitch(reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.killSwitchActive = true
	KillSwitchGauge.Set(1)

	g.logger.Error("kill-switch-activated", zap.String("reason", reason))
}

// DeactivateKillSwitch re-enables entries. Manual, deliberate action only.
func (g *Governor) DeactivateKillSwitch() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.killSwitchActive = false
	KillSwitchGauge.Set(0)

	g.logger.Warn("kill-switch-deactivated")
}

// Armed reports whether live order submission is enabled.
func (g *Governor) Armed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.armed
}

// Status is a point-in-time view of governor state for audit surfaces.
type Status struct {
	Armed             bool    `json:"armed"`
	KillSwitchActive  bool    `json:"kill_switch_active"`
	LockoutActive     bool    `json:"lockout_active"`
	LockoutReason     string  `json:"lockout_reason,omitempty"`
	SessionDate       string  `json:"session_date"`
	TradesOpenedToday int     `json:"trades_opened_today"`
	TradesRemaining   int     `json:"trades_remaining"`
	RealizedPnLToday  float64 `json:"realized_pnl_today"`
	MaxRiskPerTrade   float64 `json:"max_risk_per_trade"`
	MaxTradesPerDay   int     `json:"max_trades_per_day"`
	DailyLossLimit    float64 `json:"daily_loss_limit"`
}

// Status returns the current governor state.
func (g *Governor) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.checkNewDayLocked()

	remaining := g.limits.MaxTradesPerDay - g.tradesOpenedToday
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Armed:             g.armed,
		KillSwitchActive:  g.killSwitchActive,
		LockoutActive:     g.lockoutActive,
		LockoutReason:     g.lockoutReason,
		SessionDate:       g.day.Format("2006-01-02"),
		TradesOpenedToday: g.tradesOpenedToday,
		TradesRemaining:   remaining,
		RealizedPnLToday:  g.realizedPnLToday,
		MaxRiskPerTrade:   g.limits.MaxRiskPerTrade,
		MaxTradesPerDay:   g.limits.MaxTradesPerDay,
		DailyLossLimit:    g.limits.DailyLossLimit,
	}
}

// checkNewDayLocked resets session counters at day rollover. The kill switch
// is not day-scoped and survives rollover.
func (g *Governor) checkNewDayLocked() {
	today := dateOf(g.now())
	if today.Equal(g.day) {
		return
	}

	g.logger.Info("new-trading-day",
		zap.String("previous", g.day.Format("2006-01-02")),
		zap.String("current", today.Format("2006-01-02")))

	g.day = today
	g.tradesOpenedToday = 0
	g.realizedPnLToday = 0
	g.lockoutActive = false
	g.lockoutReason = ""
	RealizedPnLTodayGauge.Set(0)
	LockoutGauge.Set(0)
}

func (g *Governor) lockoutLocked(reason string) {
	g.lockoutActive = true
	g.lockoutReason = reason
	LockoutsTotal.Inc()
	LockoutGauge.Set(1)

	g.logger.Error("daily-lockout-activated", zap.String("reason", reason))
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func formatLimit(msg string, current int, limit int) string {
	return fmt.Sprintf("%s (%d/%d)", msg, current, limit)
}

func formatRisk(proposed float64, limit float64) string {
	return fmt.Sprintf("risk $%.2f exceeds limit $%.2f", proposed, limit)
}
