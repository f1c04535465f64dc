package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/orator/pkg/handlers"
	"github.com/JaimeStill/orator/pkg/routes"
)

// ScoreRequest is the body of a scoring-only request.
type ScoreRequest struct {
	Transcript      string  `json:"transcript"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// Handler exposes the scoring engine over HTTP.
type Handler struct {
	engine   *Engine
	logger   *slog.Logger
	maxBytes int64
}

// NewHandler creates a Handler limiting request bodies to maxBytes.
func NewHandler(engine *Engine, logger *slog.Logger, maxBytes int64) *Handler {
	return &Handler{
		engine:   engine,
		logger:   logger.With("handler", "rubric"),
		maxBytes: maxBytes,
	}
}

// Routes returns the route group for scoring endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/analysis",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/score", Handler: h.Score},
		},
	}
}

// Score evaluates a transcript without running the media pipeline.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, err)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", ErrInvalidRequest, err))
		return
	}
	if req.DurationSeconds < 0 {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: negative duration", ErrInvalidRequest))
		return
	}

	report := h.engine.Evaluate(req.Transcript, req.DurationSeconds)
	handlers.RespondJSON(w, http.StatusOK, report)
}
