package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/quantary/optionsentry/internal/entry"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

// StatusHandler serves the audit surfaces: open positions, governor state and
// candidate submission.
type StatusHandler struct {
	book     *position.Book
	governor *risk.Governor
	entries  *entry.Handler
	logger   *zap.Logger
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(book *position.Book, governor *risk.Governor, entries *entry.Handler, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		book:     book,
		governor: governor,
		entries:  entries,
		logger:   logger,
	}
}

// PositionView is the wire representation of one open position.
type PositionView struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	Ticker           string  `json:"ticker"`
	OptionType       string  `json:"option_type"`
	Strike           float64 `json:"strike"`
	Expiration       string  `json:"expiration"`
	ContractsHeld    int     `json:"contracts_held"`
	ContractsAtOpen  int     `json:"contracts_at_open"`
	EntryPrice       float64 `json:"entry_price"`
	CurrentPrice     float64 `json:"current_price"`
	HighWaterMark    float64 `json:"high_water_mark"`
	UnrealizedPnLPct float64 `json:"unrealized_pnl_pct"`
	DrawdownPct      float64 `json:"drawdown_from_high_pct"`
	Trim1Done        bool    `json:"trim_1_done"`
	Trim2Done        bool    `json:"trim_2_done"`
	RealizedPnL      float64 `json:"realized_pnl"`
}

// PositionsResponse is the HTTP response for the positions endpoint.
type PositionsResponse struct {
	Count     int            `json:"count"`
	Positions []PositionView `json:"positions"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandlePositions handles GET /api/positions requests.
func (h *StatusHandler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	snaps := h.book.Snapshots()

	views := make([]PositionView, 0, len(snaps))
	for _, s := range snaps {
		views = append(views, PositionView{
			ID:               s.ID,
			Symbol:           s.Contract.Symbol(),
			Ticker:           s.Contract.Ticker,
			OptionType:       string(s.Contract.Type),
			Strike:           s.Contract.Strike,
			Expiration:       s.Contract.Expiration,
			ContractsHeld:    s.ContractsHeld,
			ContractsAtOpen:  s.ContractsAtOpen,
			EntryPrice:       s.EntryPrice,
			CurrentPrice:     s.CurrentPrice,
			HighWaterMark:    s.HighWaterMark,
			UnrealizedPnLPct: s.UnrealizedPnLPct(),
			DrawdownPct:      s.DrawdownFromHighPct(),
			Trim1Done:        s.Trim1Done,
			Trim2Done:        s.Trim2Done,
			RealizedPnL:      s.RealizedPnL,
		})
	}

	h.writeJSON(w, http.StatusOK, PositionsResponse{Count: len(views), Positions: views})
}

// HandleGovernor handles GET /api/governor requests.
func (h *StatusHandler) HandleGovernor(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.governor.Status())
}

// CandidateResponse acknowledges a queued candidate.
type CandidateResponse struct {
	Status string `json:"status"`
}

// HandleSubmitCandidate handles POST /api/candidates requests. The candidate
// is queued; approval, sizing and execution happen asynchronously.
func (h *StatusHandler) HandleSubmitCandidate(w http.ResponseWriter, r *http.Request) {
	var candidate types.TradeCandidate

	err := json.NewDecoder(r.Body).Decode(&candidate)
	if err != nil {
		h.writeError(w, "invalid candidate payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if candidate.Ticker == "" || candidate.Expiration == "" {
		h.writeError(w, "candidate requires ticker and expiration", http.StatusBadRequest)
		return
	}

	err = h.entries.Submit(&candidate)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("candidate-queued",
		zap.String("ticker", candidate.Ticker),
		zap.String("grade", string(candidate.Grade)))

	h.writeJSON(w, http.StatusAccepted, CandidateResponse{Status: "queued"})
}

// KillSwitchRequest toggles the kill switch.
type KillSwitchRequest struct {
	Active bool   `json:"active"`
	Reason string `json:"reason,omitempty"`
}

// HandleKillSwitch handles POST /api/killswitch requests.
func (h *StatusHandler) HandleKillSwitch(w http.ResponseWriter, r *http.Request) {
	var req KillSwitchRequest

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		h.writeError(w, "invalid payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Active {
		reason := req.Reason
		if reason == "" {
			reason = "manual activation via API"
		}
		h.governor.ActivateKillSwitch(reason)
	} else {
		h.governor.DeactivateKillSwitch()
	}

	h.writeJSON(w, http.StatusOK, h.governor.Status())
}

func (h *StatusHandler) writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		h.logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func (h *StatusHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	h.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
