package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/supportdesk/internal/app/features/health"
	"github.com/dalemusser/supportdesk/internal/testutil"
	"go.uber.org/zap"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Backend  string `json:"backend"`
	Message  string `json:"message"`
}

func serve(t *testing.T, h *health.Handler) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	h.Serve(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want %q", ct, "application/json")
	}
	var resp response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec, resp
}

func TestServe_DatabaseConnected(t *testing.T) {
	set := testutil.NewMemoryBackend(t)
	rec, resp := serve(t, health.NewHandler(set.Health, "memory", zap.NewNop()))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if resp.Status != "ok" || resp.Database != "connected" || resp.Backend != "memory" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestServe_DatabaseDown(t *testing.T) {
	rec, resp := serve(t, health.NewHandler(pinger{err: errors.New("no reachable servers")}, "mongo", zap.NewNop()))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
	if resp.Status != "error" || resp.Database != "disconnected" || resp.Message != "Database unavailable" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestServe_Mongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	set := testutil.NewMongoBackend(t, db)
	rec, resp := serve(t, health.NewHandler(set.Health, "mongo", zap.NewNop()))
	if rec.Code != http.StatusOK || resp.Status != "ok" {
		t.Errorf("got %d %+v", rec.Code, resp)
	}
}
