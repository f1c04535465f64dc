package jobs_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/orator/internal/jobs"
	"github.com/JaimeStill/orator/pkg/pagination"
	"github.com/JaimeStill/orator/pkg/routes"
)

func newJobsMux(h *harness) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := jobs.NewHandler(h.orch, logger, pagination.Config{DefaultPageSize: 20, MaxPageSize: 100})

	mux := http.NewServeMux()
	routes.Register(mux, handler.Routes()...)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", target, nil))
	return rec
}

func TestHandlerStatusAndResult(t *testing.T) {
	tr := &fakeTranscriber{release: make(chan struct{})}
	h := newHarness(t, fakeExtractor{}, tr)
	mux := newJobsMux(h)

	if rec := get(mux, "/analysis/tenant-1/status"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown tenant status: got %d, want 404", rec.Code)
	}

	jobID, err := h.orch.StartJob(context.Background(), "tenant-1", mediaFile(t))
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if rec := get(mux, "/analysis/tenant-1/result"); rec.Code != http.StatusConflict {
		t.Errorf("result while processing: got %d, want 409", rec.Code)
	}

	close(tr.release)
	h.orch.Wait()

	rec := get(mux, "/analysis/tenant-1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var doc jobs.StatusDocument
	json.NewDecoder(rec.Body).Decode(&doc)
	if doc.JobID != jobID || doc.Status != jobs.StatusDone {
		t.Errorf("status doc: %+v", doc)
	}

	rec = get(mux, "/analysis/tenant-1/result")
	if rec.Code != http.StatusOK {
		t.Fatalf("result: got %d", rec.Code)
	}
	var result jobs.AnalysisResult
	json.NewDecoder(rec.Body).Decode(&result)
	if result.AggregateScore != 2.3 {
		t.Errorf("aggregate_score: got %.1f, want 2.3", result.AggregateScore)
	}
}

func TestHandlerJobs(t *testing.T) {
	h := newHarness(t, fakeExtractor{}, &fakeTranscriber{})
	mux := newJobsMux(h)

	ctx := context.Background()
	first, err := h.orch.StartJob(ctx, "a", mediaFile(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.orch.StartJob(ctx, "b", mediaFile(t)); err != nil {
		t.Fatal(err)
	}
	h.orch.Wait()

	rec := get(mux, "/jobs?tenant_id=a")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: got %d", rec.Code)
	}
	var page pagination.PageResult[jobs.Job]
	json.NewDecoder(rec.Body).Decode(&page)
	if len(page.Data) != 1 || page.Data[0].ID != first || page.Data[0].Status != jobs.StatusDone {
		t.Errorf("page: %+v", page)
	}

	if rec := get(mux, "/jobs/"+first.String()); rec.Code != http.StatusOK {
		t.Errorf("find: got %d", rec.Code)
	}
	if rec := get(mux, "/jobs/not-a-uuid"); rec.Code != http.StatusBadRequest {
		t.Errorf("find with bad id: got %d, want 400", rec.Code)
	}
}

func TestHandlerMetrics(t *testing.T) {
	h := newHarness(t, fakeExtractor{}, &fakeTranscriber{})
	mux := newJobsMux(h)
	ctx := context.Background()

	blobs := []struct{ key, data string }{
		{"a/status.json", "{}"},
		{"b/status.json", "{}"},
		{"b/presentation.mp4", "123456"},
	}
	for _, b := range blobs {
		if err := h.store.Upload(ctx, b.key, strings.NewReader(b.data), "application/octet-stream"); err != nil {
			t.Fatal(err)
		}
	}

	rec := get(mux, "/analysis/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", rec.Code)
	}

	var m jobs.Metrics
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Presentations != 2 || m.Objects != 3 || m.StorageBytes != 10 || m.Storage == "" {
		t.Errorf("metrics: got %+v", m)
	}
}
