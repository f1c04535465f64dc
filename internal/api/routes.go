package api

import (
	"net/http"

	"github.com/JaimeStill/orator/internal/jobs"
	"github.com/JaimeStill/orator/internal/rubric"
	"github.com/JaimeStill/orator/internal/uploads"
	"github.com/JaimeStill/orator/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) []string {
	cfg := runtime.Config.API

	children := []routes.Group{
		uploads.NewHandler(domain.Uploads, runtime.Logger, cfg.MaxChunkSizeBytes(), jobs.MapHTTPStatus).Routes(),
		rubric.NewHandler(domain.Rubric, runtime.Logger, cfg.MaxScoreInputBytes()).Routes(),
	}
	children = append(children, jobs.NewHandler(domain.Jobs, runtime.Logger, cfg.Pagination).Routes()...)

	return routes.Register(mux, routes.Group{
		Prefix:   cfg.BasePath,
		Children: children,
	})
}
