package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/orator/internal/infrastructure"
	"github.com/JaimeStill/orator/pkg/database"
	"github.com/JaimeStill/orator/pkg/lifecycle"
)

type downDatabase struct{}

func (downDatabase) Connection() *sql.DB                   { return nil }
func (downDatabase) Start(lc *lifecycle.Coordinator) error { return nil }
func (downDatabase) Health(ctx context.Context) error      { return database.ErrNotReady }

func TestRouterHealth(t *testing.T) {
	lc := lifecycle.New()
	infra := &infrastructure.Infrastructure{Lifecycle: lc}

	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router := buildRouter(infra, "/api", api)

	serve := func(target string) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
		return rec.Code
	}

	if code := serve("/healthz"); code != http.StatusOK {
		t.Errorf("healthz: got %d, want 200", code)
	}
	if code := serve("/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("readyz before startup: got %d, want 503", code)
	}
	if code := serve("/api/analysis/t/status"); code != http.StatusServiceUnavailable {
		t.Errorf("api before startup: got %d, want 503", code)
	}

	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if code := serve("/readyz"); code != http.StatusOK {
		t.Errorf("readyz after startup: got %d, want 200", code)
	}
	if code := serve("/api/analysis/t/status"); code != http.StatusTeapot {
		t.Errorf("api mount: got %d", code)
	}
}

func TestRouterNotReadyOnStartupFailure(t *testing.T) {
	lc := lifecycle.New()
	lc.OnStartup("media", func(ctx context.Context) error {
		return errors.New("ffmpeg unavailable")
	})
	lc.WaitForStartup()

	router := buildRouter(&infrastructure.Infrastructure{Lifecycle: lc}, "/api", http.NotFoundHandler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz: got %d, want 503", rec.Code)
	}
}

func TestRouterReadyWithLedgerDown(t *testing.T) {
	lc := lifecycle.New()
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}

	infra := &infrastructure.Infrastructure{Lifecycle: lc, Database: downDatabase{}}
	router := buildRouter(infra, "/api", http.NotFoundHandler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz: got %d, want 200", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["ledger"] != "unavailable" {
		t.Errorf("ledger: got %q, want unavailable", body["ledger"])
	}
}

func TestRouterHoldsAPIUntilRecoveryFinishes(t *testing.T) {
	lc := lifecycle.New()
	release := make(chan struct{})
	lc.OnStartup("jobs", func(ctx context.Context) error {
		<-release
		return nil
	})

	called := false
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	})
	router := buildRouter(&infrastructure.Infrastructure{Lifecycle: lc}, "/api", api)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analysis/upload", nil))
	if rec.Code != http.StatusServiceUnavailable || called {
		t.Fatalf("upload during startup: got %d, handler called %v", rec.Code, called)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	close(release)
	if err := lc.WaitForStartup(); err != nil {
		t.Fatalf("startup: %v", err)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analysis/upload", nil))
	if rec.Code != http.StatusAccepted || !called {
		t.Errorf("upload after startup: got %d, handler called %v", rec.Code, called)
	}
}
