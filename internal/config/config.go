package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/orator/pkg/database"
	"github.com/JaimeStill/orator/pkg/events"
	"github.com/JaimeStill/orator/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvOratorEnv             = "ORATOR_ENV"
	EnvOratorShutdownTimeout = "ORATOR_SHUTDOWN_TIMEOUT"
	EnvOratorVersion         = "ORATOR_VERSION"
)

var databaseEnv = &database.Env{
	DSN:             "ORATOR_DB_DSN",
	Host:            "ORATOR_DB_HOST",
	Port:            "ORATOR_DB_PORT",
	Name:            "ORATOR_DB_NAME",
	User:            "ORATOR_DB_USER",
	Password:        "ORATOR_DB_PASSWORD",
	SSLMode:         "ORATOR_DB_SSL_MODE",
	MaxOpenConns:    "ORATOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "ORATOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "ORATOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "ORATOR_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "ORATOR_STORAGE_PROVIDER",
	ContainerName:    "ORATOR_STORAGE_CONTAINER_NAME",
	ConnectionString: "ORATOR_STORAGE_CONNECTION_STRING",
	ServiceURL:       "ORATOR_STORAGE_SERVICE_URL",
	Root:             "ORATOR_STORAGE_ROOT",
}

var eventsEnv = &events.Env{
	URL:           "ORATOR_NATS_URL",
	Stream:        "ORATOR_NATS_STREAM",
	SubjectPrefix: "ORATOR_NATS_SUBJECT_PREFIX",
	MaxReconnects: "ORATOR_NATS_MAX_RECONNECTS",
	ReconnectWait: "ORATOR_NATS_RECONNECT_WAIT",
	MaxAge:        "ORATOR_NATS_MAX_AGE",
}

// Config is the root configuration for the Orator service.
type Config struct {
	Server          ServerConfig        `toml:"server"`
	Logging         LoggingConfig       `toml:"logging"`
	Database        database.Config     `toml:"database"`
	Storage         storage.Config      `toml:"storage"`
	Events          events.Config       `toml:"events"`
	API             APIConfig           `toml:"api"`
	Uploads         UploadsConfig       `toml:"uploads"`
	Media           MediaConfig         `toml:"media"`
	Transcription   TranscriptionConfig `toml:"transcription"`
	Jobs            JobsConfig          `toml:"jobs"`
	Insight         InsightConfig       `toml:"insight"`
	ShutdownTimeout string              `toml:"shutdown_timeout"`
	Version         string              `toml:"version"`
}

// Env returns the ORATOR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvOratorEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	return LoadFrom(BaseConfigFile)
}

// LoadFrom behaves like Load with an explicit base file path. The overlay is
// resolved next to the base file.
func LoadFrom(base string) (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Logging.Merge(&overlay.Logging)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Events.Merge(&overlay.Events)
	c.API.Merge(&overlay.API)
	c.Uploads.Merge(&overlay.Uploads)
	c.Media.Merge(&overlay.Media)
	c.Transcription.Merge(&overlay.Transcription)
	c.Jobs.Merge(&overlay.Jobs)
	c.Insight.Merge(&overlay.Insight)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"server", c.Server.Finalize},
		{"logging", c.Logging.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"events", func() error { return c.Events.Finalize(eventsEnv) }},
		{"api", c.API.Finalize},
		{"uploads", c.Uploads.Finalize},
		{"media", c.Media.Finalize},
		{"transcription", c.Transcription.Finalize},
		{"jobs", c.Jobs.Finalize},
		{"insight", c.Insight.Finalize},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvOratorShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvOratorVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath(base string) string {
	env := os.Getenv(EnvOratorEnv)
	if env == "" {
		return ""
	}

	path := fmt.Sprintf(OverlayConfigPattern, env)
	if dir := filepath.Dir(base); dir != "." {
		path = filepath.Join(dir, path)
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
