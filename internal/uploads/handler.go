package uploads

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/orator/pkg/handlers"
	"github.com/JaimeStill/orator/pkg/routes"
)

// Handler exposes chunked uploads over HTTP.
type Handler struct {
	assembler     *Assembler
	logger        *slog.Logger
	maxChunkSize  int64
	handoffStatus func(error) int
}

// NewHandler creates a Handler. Request bodies are limited to maxChunkSize.
// handoffStatus maps errors returned by the Handoff; nil maps them to 500.
func NewHandler(a *Assembler, logger *slog.Logger, maxChunkSize int64, handoffStatus func(error) int) *Handler {
	return &Handler{
		assembler:     a,
		logger:        logger.With("handler", "uploads"),
		maxChunkSize:  maxChunkSize,
		handoffStatus: handoffStatus,
	}
}

// Routes returns the route group for upload endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/uploads",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "PUT", Pattern: "/{tenant}/{session}/parts/{index}", Handler: h.SubmitPart},
			{Method: "DELETE", Pattern: "/{tenant}/{session}", Handler: h.Purge},
		},
	}
}

// List reports in-flight sessions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, h.assembler.Sessions())
}

// SubmitPart stages the raw request body as one part. The response is 202
// once the final part has been handed off for analysis.
func (h *Handler) SubmitPart(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: invalid index", ErrInvalidChunk))
		return
	}

	total, err := strconv.Atoi(r.URL.Query().Get("total"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: invalid total", ErrInvalidChunk))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxChunkSize)

	receipt, err := h.assembler.SubmitPart(r.Context(), Part{
		TenantID:  r.PathValue("tenant"),
		SessionID: r.PathValue("session"),
		Index:     index,
		Total:     total,
		Filename:  r.URL.Query().Get("filename"),
		Data:      r.Body,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, h.status(err), err)
		return
	}

	status := http.StatusOK
	if receipt.Complete {
		status = http.StatusAccepted
	}
	handlers.RespondJSON(w, status, receipt)
}

// Purge discards an incomplete session.
func (h *Handler) Purge(w http.ResponseWriter, r *http.Request) {
	tenant := r.PathValue("tenant")
	sessionID := r.PathValue("session")

	info, err := h.assembler.Session(sessionID)
	if err == nil && info.TenantID != tenant {
		err = ErrSessionNotFound
	}
	if err == nil {
		err = h.assembler.Purge(r.Context(), sessionID)
	}
	if err != nil {
		handlers.RespondError(w, h.logger, h.status(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) status(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if status := MapHTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	if h.handoffStatus != nil {
		return h.handoffStatus(err)
	}
	return http.StatusInternalServerError
}
