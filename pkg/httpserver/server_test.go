package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quantary/optionsentry/internal/broker"
	"github.com/quantary/optionsentry/internal/entry"
	"github.com/quantary/optionsentry/internal/position"
	"github.com/quantary/optionsentry/internal/risk"
	"github.com/quantary/optionsentry/internal/storage"
	"github.com/quantary/optionsentry/pkg/healthprobe"
	"github.com/quantary/optionsentry/pkg/types"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, *position.Book, *risk.Governor, *healthprobe.HealthChecker) {
	t.Helper()

	logger := zap.NewNop()
	book := position.NewBook(logger)

	governor := risk.NewGovernor(risk.Limits{
		MaxRiskPerTrade:        200,
		MaxTradesPerDay:        2,
		DailyLossLimit:         100,
		MaxConcurrentPositions: 2,
		MaxContracts:           4,
	}, false, logger)

	paper := broker.NewPaperBroker(10000, logger)
	entries := entry.New(entry.Config{QueueSize: 4, BrokerTimeout: time.Second, Logger: logger},
		book, governor, paper, storage.NewConsoleStorage(logger))

	hc := healthprobe.New()

	srv := New(&Config{
		Port:          "8080",
		Logger:        logger,
		HealthChecker: hc,
		Book:          book,
		Governor:      governor,
		EntryHandler:  entries,
	})

	return srv, book, governor, hc
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestReadyEndpoint(t *testing.T) {
	srv, _, _, hc := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("GET /ready before startup status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	hc.SetReady(true)

	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /ready after startup status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestPositionsEndpoint(t *testing.T) {
	srv, book, _, _ := newTestServer(t)

	pos, err := position.New(types.OptionContract{
		Ticker:     "SPY",
		Type:       types.Call,
		Strike:     500,
		Expiration: time.Now().AddDate(0, 1, 0).Format("2006-01-02"),
	}, 2, 1.00, time.Now())
	if err != nil {
		t.Fatalf("position.New() error = %v", err)
	}
	if err := book.Add(pos); err != nil {
		t.Fatalf("book.Add() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/positions status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp PositionsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Count != 1 {
		t.Fatalf("Count = %d, want 1", resp.Count)
	}
	if resp.Positions[0].Ticker != "SPY" {
		t.Errorf("Ticker = %s, want SPY", resp.Positions[0].Ticker)
	}
	if resp.Positions[0].ContractsHeld != 2 {
		t.Errorf("ContractsHeld = %d, want 2", resp.Positions[0].ContractsHeld)
	}
}

func TestGovernorEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/governor", nil)
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("GET /api/governor status = %d, want %d", w.Code, http.StatusOK)
	}

	var status risk.Status
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if status.MaxTradesPerDay != 2 {
		t.Errorf("MaxTradesPerDay = %d, want 2", status.MaxTradesPerDay)
	}
	if status.Armed {
		t.Error("Armed = true, want false")
	}
}

func TestSubmitCandidateEndpoint(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	body := `{"ticker":"SPY","direction":"call","strike":500,"expiration":"2026-12-18","grade":"A","max_risk":200}`
	req := httptest.NewRequest(http.MethodPost, "/api/candidates", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("POST /api/candidates status = %d, want %d", w.Code, http.StatusAccepted)
	}
}

func TestSubmitCandidateRejectsBadPayload(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed_json", body: `{ticker:`},
		{name: "missing_ticker", body: `{"grade":"A"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/candidates", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			srv.server.Handler.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestKillSwitchEndpoint(t *testing.T) {
	srv, _, governor, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/killswitch", strings.NewReader(`{"active":true,"reason":"drill"}`))
	w := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("POST /api/killswitch status = %d, want %d", w.Code, http.StatusOK)
	}

	decision := governor.ApproveEntry(100, 0)
	if decision.Allowed {
		t.Error("entry should be denied while kill switch is active")
	}
	if decision.Reason != risk.DenyKillSwitch {
		t.Errorf("Reason = %s, want %s", decision.Reason, risk.DenyKillSwitch)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/killswitch", strings.NewReader(`{"active":false}`))
	w = httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("kill switch deactivation status = %d, want %d", w.Code, http.StatusOK)
	}

	decision = governor.ApproveEntry(100, 0)
	if !decision.Allowed {
		t.Errorf("entry should be allowed after deactivation, denied with %s", decision.Reason)
	}
}
