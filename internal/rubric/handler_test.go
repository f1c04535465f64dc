package rubric_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/orator/internal/rubric"
	"github.com/JaimeStill/orator/pkg/routes"
)

func newMux(maxBytes int64) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := rubric.NewHandler(rubric.NewDefault(), logger, maxBytes)

	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerScore(t *testing.T) {
	body := `{"transcript": "Por lo tanto, según un estudio, el 40% de los clientes...", "duration_seconds": 75}`

	rec := httptest.NewRecorder()
	newMux(1<<20).ServeHTTP(rec, httptest.NewRequest("POST", "/analysis/score", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200 (%s)", rec.Code, rec.Body.String())
	}

	var report rubric.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if report.AggregateScore != 2.3 {
		t.Errorf("aggregate_score: got %.1f, want 2.3", report.AggregateScore)
	}
	if report.CategoryScores[rubric.KeyStructure].Score != 2 {
		t.Errorf("structure: got %.1f, want 2", report.CategoryScores[rubric.KeyStructure].Score)
	}
	if report.PatternMatches[rubric.AppealLogical].Frequency != 2 {
		t.Errorf("logical frequency: got %d, want 2", report.PatternMatches[rubric.AppealLogical].Frequency)
	}
	if report.Delivery == nil || report.Delivery.DurationScore != 10 {
		t.Errorf("delivery: got %+v", report.Delivery)
	}
}

func TestHandlerScoreErrors(t *testing.T) {
	tests := []struct {
		name       string
		maxBytes   int64
		body       string
		wantStatus int
	}{
		{"malformed", 1 << 20, `{"transcript":`, http.StatusBadRequest},
		{"negative duration", 1 << 20, `{"transcript": "hola", "duration_seconds": -1}`, http.StatusBadRequest},
		{"too large", 16, `{"transcript": "una transcripción demasiado larga"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newMux(tt.maxBytes).ServeHTTP(rec, httptest.NewRequest("POST", "/analysis/score", strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
