package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/velocitygame/velocity-server/internal/logger"
)

func TestNewWiresEverything(t *testing.T) {
	log := logger.NewWithLevel(logger.ParseLevel("error"))

	a, err := New(log, Config{DBPath: ":memory:", BaseURL: "http://localhost:3000"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(a.Close)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestNewFailsOnBadDBPath(t *testing.T) {
	log := logger.NewWithLevel(logger.ParseLevel("error"))

	_, err := New(log, Config{DBPath: "/no/such/dir/velocity.db"})
	if err == nil {
		t.Fatal("New() expected error for unwritable database path")
	}
}
