package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig holds HTTP server parameters. Durations are Go duration strings.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	IdleTimeout       string `toml:"idle_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration { return duration(c.ReadTimeout) }
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return duration(c.ReadHeaderTimeout)
}
func (c *ServerConfig) WriteTimeoutDuration() time.Duration    { return duration(c.WriteTimeout) }
func (c *ServerConfig) IdleTimeoutDuration() time.Duration     { return duration(c.IdleTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration { return duration(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range c.durations(overlay) {
		if *f.src != "" {
			*f.dst = *f.src
		}
	}
}

type durationField struct {
	name string
	env  string
	dst  *string
	src  *string
}

// durations pairs every duration field with its env name and, when overlay is
// non-nil, with the matching overlay field.
func (c *ServerConfig) durations(overlay *ServerConfig) []durationField {
	if overlay == nil {
		overlay = &ServerConfig{}
	}
	return []durationField{
		{"read_timeout", "ORATOR_SERVER_READ_TIMEOUT", &c.ReadTimeout, &overlay.ReadTimeout},
		{"read_header_timeout", "ORATOR_SERVER_READ_HEADER_TIMEOUT", &c.ReadHeaderTimeout, &overlay.ReadHeaderTimeout},
		{"write_timeout", "ORATOR_SERVER_WRITE_TIMEOUT", &c.WriteTimeout, &overlay.WriteTimeout},
		{"idle_timeout", "ORATOR_SERVER_IDLE_TIMEOUT", &c.IdleTimeout, &overlay.IdleTimeout},
		{"shutdown_timeout", "ORATOR_SERVER_SHUTDOWN_TIMEOUT", &c.ShutdownTimeout, &overlay.ShutdownTimeout},
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	defaults := map[string]string{
		"read_timeout":        "5m",
		"read_header_timeout": "10s",
		"write_timeout":       "5m",
		"idle_timeout":        "2m",
		"shutdown_timeout":    "30s",
	}
	for _, f := range c.durations(nil) {
		if *f.dst == "" {
			*f.dst = defaults[f.name]
		}
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv("ORATOR_SERVER_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("ORATOR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	for _, f := range c.durations(nil) {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range c.durations(nil) {
		if _, err := time.ParseDuration(*f.dst); err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
