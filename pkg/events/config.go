package events

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds NATS connection and JetStream stream settings.
// An empty URL disables publishing.
type Config struct {
	URL           string `toml:"url"`
	Stream        string `toml:"stream"`
	SubjectPrefix string `toml:"subject_prefix"`
	MaxReconnects int    `toml:"max_reconnects"`
	ReconnectWait string `toml:"reconnect_wait"`
	MaxAge        string `toml:"max_age"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	URL           string
	Stream        string
	SubjectPrefix string
	MaxReconnects string
	ReconnectWait string
	MaxAge        string
}

// ReconnectWaitDuration parses ReconnectWait. Returns 2s when unparseable.
func (c *Config) ReconnectWaitDuration() time.Duration {
	d, err := time.ParseDuration(c.ReconnectWait)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// MaxAgeDuration parses MaxAge. Returns 7 days when unparseable.
func (c *Config) MaxAgeDuration() time.Duration {
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.Stream != "" {
		c.Stream = overlay.Stream
	}
	if overlay.SubjectPrefix != "" {
		c.SubjectPrefix = overlay.SubjectPrefix
	}
	if overlay.MaxReconnects != 0 {
		c.MaxReconnects = overlay.MaxReconnects
	}
	if overlay.ReconnectWait != "" {
		c.ReconnectWait = overlay.ReconnectWait
	}
	if overlay.MaxAge != "" {
		c.MaxAge = overlay.MaxAge
	}
}

func (c *Config) loadDefaults() {
	if c.Stream == "" {
		c.Stream = "ANALYSIS"
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "analysis"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = -1
	}
	if c.ReconnectWait == "" {
		c.ReconnectWait = "2s"
	}
	if c.MaxAge == "" {
		c.MaxAge = "168h"
	}
}

func (c *Config) loadEnv(env *Env) {
	if v := getenv(env.URL); v != "" {
		c.URL = v
	}
	if v := getenv(env.Stream); v != "" {
		c.Stream = v
	}
	if v := getenv(env.SubjectPrefix); v != "" {
		c.SubjectPrefix = v
	}
	if v := getenv(env.MaxReconnects); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxReconnects = n
		}
	}
	if v := getenv(env.ReconnectWait); v != "" {
		c.ReconnectWait = v
	}
	if v := getenv(env.MaxAge); v != "" {
		c.MaxAge = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ReconnectWait); err != nil {
		return fmt.Errorf("invalid reconnect_wait: %w", err)
	}
	if _, err := time.ParseDuration(c.MaxAge); err != nil {
		return fmt.Errorf("invalid max_age: %w", err)
	}
	return nil
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
