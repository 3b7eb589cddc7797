package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthAlwaysReturnsOK(t *testing.T) {
	hc := New()
	handler := hc.Health()

	tests := []struct {
		name     string
		setReady bool
	}{
		{name: "not_ready", setReady: false},
		{name: "ready", setReady: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc.SetReady(tt.setReady)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Health status = %d, want %d", w.Code, http.StatusOK)
			}

			var resp HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != "healthy" {
				t.Errorf("Status = %s, want healthy", resp.Status)
			}
			if resp.Uptime == "" {
				t.Error("Uptime is empty")
			}
		})
	}
}

func TestReadyFollowsState(t *testing.T) {
	hc := New()
	handler := hc.Ready()

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("initial ready status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	hc.SetReady(true)
	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("ready status after SetReady(true) = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ready" {
		t.Errorf("Status = %s, want ready", resp.Status)
	}

	hc.SetReady(false)
	req = httptest.NewRequest(http.MethodGet, "/ready", nil)
	w = httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status after SetReady(false) = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
