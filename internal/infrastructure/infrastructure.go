// Package infrastructure assembles the shared systems every domain package depends on:
// logging, lifecycle coordination, the job ledger database, object storage and event publishing.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JaimeStill/orator/internal/config"
	"github.com/JaimeStill/orator/pkg/database"
	"github.com/JaimeStill/orator/pkg/events"
	"github.com/JaimeStill/orator/pkg/lifecycle"
	"github.com/JaimeStill/orator/pkg/storage"
)

// Infrastructure holds the core systems required by all domain packages.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Events    events.Publisher

	logFile io.Closer
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger, logFile := NewLogger(&cfg.Logging, os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	pub, err := events.New(&cfg.Events, logger)
	if err != nil {
		return nil, fmt.Errorf("events init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Events:    pub,
		logFile:   logFile,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Events.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("events start failed: %w", err)
	}
	return nil
}

// Close releases the rotated log file, if one was opened.
func (i *Infrastructure) Close() error {
	if i.logFile == nil {
		return nil
	}
	return i.logFile.Close()
}

// NewLogger builds the service logger writing to console. When cfg.File is set,
// records are duplicated into a lumberjack-rotated file whose closer is returned.
func NewLogger(cfg *config.LoggingConfig, console io.Writer) (*slog.Logger, io.Closer) {
	var (
		out    = console
		closer io.Closer
	)

	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler), closer
}
