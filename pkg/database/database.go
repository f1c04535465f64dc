// Package database manages the PostgreSQL pool that backs the job ledger.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/orator/pkg/lifecycle"
)

// ErrNotReady indicates the database could not be reached within the connect window.
var ErrNotReady = errors.New("database not ready")

const retryInterval = 250 * time.Millisecond

// System owns the ledger connection pool.
type System interface {
	// Connection returns the pool. It is safe to hand out before Start completes.
	Connection() *sql.DB
	// Health pings the pool and returns ErrNotReady wrapped around any failure.
	Health(ctx context.Context) error
	// Start registers the connect and close hooks.
	Start(lc *lifecycle.Coordinator) error
}

type pool struct {
	db          *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
}

// New opens a pgx-backed pool with the configured limits. No connection is
// attempted until the startup hook registered in Start runs.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &pool{
		db:          db,
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		connTimeout: cfg.ConnTimeoutDuration(),
	}, nil
}

func (p *pool) Connection() *sql.DB {
	return p.db
}

func (p *pool) Health(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	}
	return nil
}

// Start retries the first ping until connTimeout elapses so the service can
// come up alongside a database container that is still initializing.
func (p *pool) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("database", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, p.connTimeout)
		defer cancel()

		attempts, err := p.connect(ctx)
		if err != nil {
			p.logger.Error("database unreachable", "attempts", attempts, "error", err)
			return err
		}

		stats := p.db.Stats()
		p.logger.Info("database connected", "attempts", attempts, "max_open", stats.MaxOpenConnections)
		return nil
	})

	lc.OnShutdown(func() {
		if err := p.db.Close(); err != nil {
			p.logger.Error("database close failed", "error", err)
			return
		}
		p.logger.Info("database closed")
	})

	return nil
}

func (p *pool) connect(ctx context.Context) (int, error) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := p.Health(ctx)
		if err == nil {
			return attempt, nil
		}

		select {
		case <-ctx.Done():
			return attempt, err
		case <-ticker.C:
			p.logger.Debug("database ping failed, retrying", "attempt", attempt, "error", err)
		}
	}
}
