// Package api assembles the analysis pipeline and serves it under the API base path.
package api

import (
	"net/http"

	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/internal/infrastructure"
	"github.com/JaimeStill/orator/pkg/lifecycle"
	"github.com/JaimeStill/orator/pkg/middleware"
)

// Module is the API surface: the domain systems and the middleware-wrapped
// mux serving their routes.
type Module struct {
	Domain   *Domain
	Patterns []string

	handler http.Handler
}

// NewModule creates the domain systems and registers their routes.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*Module, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	patterns := registerRoutes(mux, domain, runtime)

	mw := middleware.New()
	mw.Use(middleware.CORS(&cfg.API.CORS))
	mw.Use(middleware.Logger(runtime.Logger))

	return &Module{
		Domain:   domain,
		Patterns: patterns,
		handler:  mw.Apply(mux),
	}, nil
}

// Start registers the domain systems with the lifecycle coordinator.
func (m *Module) Start(lc *lifecycle.Coordinator) error {
	return m.Domain.Start(lc)
}

func (m *Module) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}
