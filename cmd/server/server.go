package main

import (
	"time"

	"github.com/JaimeStill/orator/internal/api"
	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/internal/infrastructure"
)

type Server struct {
	infra *infrastructure.Infrastructure
	api   *api.Module
	http  *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra, cfg.API.BasePath, apiModule)

	infra.Logger.Info(
		"server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"env", cfg.Env(),
		"routes", len(apiModule.Patterns),
	)

	return &Server{
		infra: infra,
		api:   apiModule,
		http:  newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

func (s *Server) Start() error {
	s.infra.Logger.Info("starting service")

	if err := s.infra.Start(); err != nil {
		return err
	}

	if err := s.api.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	if err := s.http.Start(s.infra.Lifecycle); err != nil {
		return err
	}

	go func() {
		if err := s.infra.Lifecycle.WaitForStartup(); err != nil {
			s.infra.Logger.Error("startup failed, service not ready", "error", err)
			return
		}
		s.infra.Logger.Info("all subsystems ready")
	}()

	return nil
}

func (s *Server) Shutdown(timeout time.Duration) error {
	s.infra.Logger.Info("initiating shutdown")
	defer s.infra.Close()

	if err := s.infra.Lifecycle.Shutdown(timeout); err != nil {
		return err
	}

	s.infra.Logger.Info("orator stopped")
	return nil
}
