package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStatusCommand_Structure tests command is properly configured
func TestStatusCommand_Structure(t *testing.T) {
	if statusCmd == nil {
		t.Fatal("statusCmd is nil")
	}

	if statusCmd.Use != "status" {
		t.Errorf("expected Use='status', got '%s'", statusCmd.Use)
	}

	if statusCmd.RunE == nil {
		t.Error("statusCmd has no RunE")
	}

	addr, err := statusCmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", addr)

	format, err := statusCmd.Flags().GetString("format")
	require.NoError(t, err)
	assert.Equal(t, "table", format)
}

// TestRunCommand_Structure tests command is properly configured
func TestRunCommand_Structure(t *testing.T) {
	if runCmd == nil {
		t.Fatal("runCmd is nil")
	}

	if runCmd.Use != "run" {
		t.Errorf("expected Use='run', got '%s'", runCmd.Use)
	}

	if runCmd.RunE == nil {
		t.Error("runCmd has no RunE")
	}
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count":2}`))
	}))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}

	var out struct {
		Count int `json:"count"`
	}
	err := fetchJSON(client, srv.URL, &out)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
}

func TestFetchJSONNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}

	var out struct{}
	err := fetchJSON(client, srv.URL, &out)
	assert.Error(t, err)
}
