package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/JaimeStill/orator/internal/infrastructure"
	"github.com/JaimeStill/orator/pkg/handlers"
	"github.com/JaimeStill/orator/pkg/lifecycle"
)

const ledgerProbeTimeout = 2 * time.Second

var errServiceStarting = errors.New("service is starting")

func buildRouter(infra *infrastructure.Infrastructure, basePath string, api http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			body := map[string]string{"status": "not ready"}
			if err := infra.Lifecycle.Err(); err != nil {
				body["error"] = err.Error()
			}
			handlers.RespondJSON(w, http.StatusServiceUnavailable, body)
			return
		}

		// Analysis keeps running without the ledger, so an unreachable
		// database degrades readiness instead of failing it.
		body := map[string]string{"status": "ready", "ledger": "ok"}
		if infra.Database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), ledgerProbeTimeout)
			defer cancel()

			if err := infra.Database.Health(ctx); err != nil {
				body["ledger"] = "unavailable"
				body["ledger_error"] = err.Error()
			}
		}
		handlers.RespondJSON(w, http.StatusOK, body)
	})

	mux.Handle(basePath+"/", untilReady(infra.Lifecycle, api))

	return mux
}

// untilReady answers 503 while startup hooks are still running, so uploads
// and status reads never observe state that recovery has yet to settle.
func untilReady(lc lifecycle.ReadinessChecker, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lc.Ready() {
			w.Header().Set("Retry-After", "1")
			handlers.RespondJSON(w, http.StatusServiceUnavailable, map[string]string{"error": errServiceStarting.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}
