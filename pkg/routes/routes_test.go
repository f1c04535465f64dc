package routes_test

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/JaimeStill/orator/pkg/routes"
)

func status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	patterns := routes.Register(mux, routes.Group{
		Prefix: "/api",
		Children: []routes.Group{
			{
				Prefix: "/analysis",
				Routes: []routes.Route{
					{Method: "GET", Pattern: "/{tenant}/status", Handler: status(http.StatusOK)},
					{Method: "POST", Pattern: "/score", Handler: status(http.StatusAccepted)},
				},
			},
		},
	})

	want := []string{"GET /api/analysis/{tenant}/status", "POST /api/analysis/score"}
	if !slices.Equal(patterns, want) {
		t.Errorf("patterns: got %v, want %v", patterns, want)
	}

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"nested get", "GET", "/api/analysis/ABC/status", http.StatusOK},
		{"nested post", "POST", "/api/analysis/score", http.StatusAccepted},
		{"wrong method", "DELETE", "/api/analysis/score", http.StatusMethodNotAllowed},
		{"unknown path", "GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
