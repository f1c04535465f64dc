package main

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/pkg/lifecycle"
)

func testServerConfig(t *testing.T, port int) *config.ServerConfig {
	t.Helper()

	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: port, ShutdownTimeout: "1s"}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	cfg.Port = port
	return cfg
}

func TestHTTPServerServesAndDrains(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := newHTTPServer(testServerConfig(t, 0), handler, logger)
	lc := lifecycle.New()

	if err := srv.Start(lc); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", resp.StatusCode)
	}

	if err := lc.Shutdown(2 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if _, err := http.Get("http://" + srv.Addr() + "/"); err == nil {
		t.Error("expected request after shutdown to fail")
	}
}

func TestHTTPServerPortConflict(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer taken.Close()

	port := taken.Addr().(*net.TCPAddr).Port
	srv := newHTTPServer(testServerConfig(t, port), http.NotFoundHandler(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := srv.Start(lifecycle.New()); err == nil {
		t.Fatal("expected listen error for a bound port")
	}
}
