package api

import (
	"log/slog"

	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/internal/infrastructure"
	"github.com/JaimeStill/orator/internal/jobs"
	"github.com/JaimeStill/orator/pkg/events"
	"github.com/JaimeStill/orator/pkg/storage"
)

// Runtime is the slice of infrastructure the pipeline consumes, with the
// database already narrowed to the job ledger.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Storage storage.System
	Events  events.Publisher
	Ledger  jobs.Ledger
}

// NewRuntime derives the API runtime. Without a database the ledger is left
// nil and the job listing endpoints report it unavailable.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	rt := &Runtime{
		Config:  cfg,
		Logger:  infra.Logger.With("module", "api"),
		Storage: infra.Storage,
		Events:  infra.Events,
	}

	if infra.Database != nil {
		rt.Ledger = jobs.NewLedger(infra.Database.Connection(), cfg.API.Pagination)
	}

	return rt
}
