package jobs

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/orator/pkg/handlers"
	"github.com/JaimeStill/orator/pkg/pagination"
	"github.com/JaimeStill/orator/pkg/routes"
)

// Handler exposes job status, results and the ledger over HTTP.
type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
	pagination   pagination.Config
}

// NewHandler creates a Handler that pages ledger listings with pagination.
func NewHandler(o *Orchestrator, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		orchestrator: o,
		logger:       logger.With("handler", "jobs"),
		pagination:   pagination,
	}
}

// Routes returns the analysis and ledger route groups.
func (h *Handler) Routes() []routes.Group {
	return []routes.Group{
		{
			Prefix: "/analysis",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "/metrics", Handler: h.Metrics},
				{Method: "GET", Pattern: "/{tenant}/status", Handler: h.Status},
				{Method: "GET", Pattern: "/{tenant}/result", Handler: h.Result},
			},
		},
		{
			Prefix: "/jobs",
			Routes: []routes.Route{
				{Method: "GET", Pattern: "", Handler: h.List},
				{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			},
		},
	}
}

// Status returns the tenant's latest status document.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	doc, err := h.orchestrator.GetStatus(r.Context(), r.PathValue("tenant"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, doc)
}

// Result returns the analysis of the tenant's latest job. It answers 409
// while the job is still processing or ended in error.
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.orchestrator.GetResult(r.Context(), r.PathValue("tenant"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Metrics reports how many presentations are stored and how much space the
// analysis store uses.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.orchestrator.Metrics(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, metrics)
}

// List returns a page of ledger entries filtered by tenant_id, status and since.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.orchestrator.ListJobs(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the ledger entry for a job id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	job, err := h.orchestrator.FindJob(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	handlers.RespondJSON(w, http.StatusOK, job)
}
