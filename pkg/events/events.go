// Package events publishes domain events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/JaimeStill/orator/pkg/lifecycle"
)

// Publisher sends JSON-encoded events under a subject suffix.
type Publisher interface {
	// Start registers stream provisioning and connection draining with the coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Publish encodes payload as JSON and publishes it to <prefix>.<subject>.
	Publish(ctx context.Context, subject string, payload any) error
}

// New returns a JetStream publisher when cfg.URL is set, otherwise a no-op publisher.
// The connection retries in the background, so a missing server does not fail construction.
func New(cfg *Config, logger *slog.Logger) (Publisher, error) {
	logger = logger.With("system", "events")

	if cfg.URL == "" {
		logger.Info("event publishing disabled")
		return Nop{}, nil
	}

	nc, err := nats.Connect(
		cfg.URL,
		nats.Name("orator"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWaitDuration()),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &jetStream{
		nc:     nc,
		js:     js,
		cfg:    *cfg,
		logger: logger,
	}, nil
}

type jetStream struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	cfg    Config
	logger *slog.Logger
}

func (p *jetStream) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting event publisher", "stream", p.cfg.Stream)

	// A missing stream only degrades event delivery, so the hook logs instead of failing readiness.
	lc.OnStartup("events", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:      p.cfg.Stream,
			Subjects:  []string{p.cfg.SubjectPrefix + ".>"},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    p.cfg.MaxAgeDuration(),
		})
		if err != nil {
			p.logger.Warn("event stream unavailable", "stream", p.cfg.Stream, "error", err)
			return nil
		}

		p.logger.Info("event stream ready", "stream", p.cfg.Stream)
		return nil
	})

	lc.OnShutdown(func() {
		if err := p.nc.Drain(); err != nil {
			p.logger.Error("nats drain failed", "error", err)
			p.nc.Close()
		}
	})

	return nil
}

func (p *jetStream) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", subject, err)
	}

	full := p.cfg.SubjectPrefix + "." + subject
	if _, err := p.js.Publish(ctx, full, data); err != nil {
		return fmt.Errorf("publish event %s: %w", full, err)
	}

	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) Start(lc *lifecycle.Coordinator) error                          { return nil }
func (Nop) Publish(ctx context.Context, subject string, payload any) error { return nil }
