package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/JaimeStill/orator/internal/api"
	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/internal/infrastructure"
)

const testConfig = `
[database]
name = "orator"
user = "orator"

[storage]
provider = "memory"

[api.cors]
enabled = true
origins = ["http://localhost:5173"]

[transcription]
provider = "azure"
key = "test-key"
region = "eastus"
`

func newModule(t *testing.T) *api.Module {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(testConfig), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ORATOR_UPLOADS_STAGING_DIR", filepath.Join(dir, "staging"))
	t.Setenv("ORATOR_JOBS_WORK_DIR", filepath.Join(dir, "work"))

	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure: %v", err)
	}
	t.Cleanup(func() { infra.Close() })

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("module: %v", err)
	}
	return m
}

func TestModuleRoutes(t *testing.T) {
	m := newModule(t)

	want := []string{
		"PUT /api/uploads/{tenant}/{session}/parts/{index}",
		"DELETE /api/uploads/{tenant}/{session}",
		"POST /api/analysis/score",
		"GET /api/analysis/{tenant}/status",
		"GET /api/analysis/{tenant}/result",
		"GET /api/analysis/metrics",
		"GET /api/jobs",
	}
	for _, p := range want {
		if !slices.Contains(m.Patterns, p) {
			t.Errorf("missing route %q in %v", p, m.Patterns)
		}
	}
}

func TestModuleServesScoring(t *testing.T) {
	m := newModule(t)

	body := `{"transcript": "Por lo tanto, según un estudio, el 40% de los clientes..."}`
	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest("POST", "/api/analysis/score", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}

	var report map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report["aggregate_score"] != 2.3 {
		t.Errorf("aggregate_score: got %v", report["aggregate_score"])
	}
}

func TestModuleErrors(t *testing.T) {
	m := newModule(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{"unknown tenant", "GET", "/api/analysis/nobody/status", "", http.StatusNotFound},
		{"bad chunk", "PUT", "/api/uploads/t1/s1/parts/9?total=2", "x", http.StatusBadRequest},
		{"unknown session", "DELETE", "/api/uploads/t1/missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))
			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestModuleCORS(t *testing.T) {
	m := newModule(t)

	req := httptest.NewRequest("OPTIONS", "/api/analysis/score", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin: got %q", got)
	}
}
