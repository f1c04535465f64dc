package storage

import (
	"fmt"
	"os"
)

// Supported storage providers.
const (
	ProviderAzure  = "azure"
	ProviderLocal  = "local"
	ProviderMemory = "memory"
)

// Config selects a storage provider and holds its connection parameters.
// Azure uses ConnectionString when set, otherwise ServiceURL with the
// default Azure credential chain. Local stores blobs beneath Root.
type Config struct {
	Provider         string `toml:"provider"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	ServiceURL       string `toml:"service_url"`
	Root             string `toml:"root"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	ContainerName    string
	ConnectionString string
	ServiceURL       string
	Root             string
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
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.ServiceURL != "" {
		c.ServiceURL = overlay.ServiceURL
	}
	if overlay.Root != "" {
		c.Root = overlay.Root
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderAzure
	}
	if c.ContainerName == "" {
		c.ContainerName = "presentations"
	}
	if c.Root == "" {
		c.Root = "data/blobs"
	}
}

func (c *Config) loadEnv(env *Env) {
	lookup := func(name string, dst *string) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	lookup(env.Provider, &c.Provider)
	lookup(env.ContainerName, &c.ContainerName)
	lookup(env.ConnectionString, &c.ConnectionString)
	lookup(env.ServiceURL, &c.ServiceURL)
	lookup(env.Root, &c.Root)
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderAzure:
		if c.ContainerName == "" {
			return fmt.Errorf("container_name required")
		}
		if c.ConnectionString == "" && c.ServiceURL == "" {
			return fmt.Errorf("connection_string or service_url required")
		}
	case ProviderLocal:
		if c.Root == "" {
			return fmt.Errorf("root required")
		}
	case ProviderMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	return nil
}
