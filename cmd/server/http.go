package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/pkg/lifecycle"
)

type httpServer struct {
	srv      *http.Server
	addr     string
	listener net.Listener
	logger   *slog.Logger
	drain    time.Duration
}

func newHTTPServer(cfg *config.ServerConfig, handler http.Handler, logger *slog.Logger) *httpServer {
	logger = logger.With("system", "http")

	return &httpServer{
		srv: &http.Server{
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeoutDuration(),
			ReadHeaderTimeout: cfg.ReadHeaderTimeoutDuration(),
			WriteTimeout:      cfg.WriteTimeoutDuration(),
			IdleTimeout:       cfg.IdleTimeoutDuration(),
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		addr:   cfg.Addr(),
		logger: logger,
		drain:  cfg.ShutdownTimeoutDuration(),
	}
}

// Start binds the listen address before returning so a port conflict fails
// startup. Requests are served in the background and drained on shutdown.
func (s *httpServer) Start(lc *lifecycle.Coordinator) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Info("accepting connections", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve failed", "error", err)
		}
	}()

	lc.OnDrain(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.drain)
		defer cancel()

		if err := s.srv.Shutdown(ctx); err != nil {
			s.logger.Error("drain incomplete", "timeout", s.drain, "error", err)
			return
		}
		s.logger.Info("connections drained")
	})

	return nil
}

// Addr reports the bound address, which differs from the configured one
// when port 0 is requested.
func (s *httpServer) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}
