package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvInsightEnabled    = "ORATOR_INSIGHT_ENABLED"
	EnvInsightTimeout    = "ORATOR_INSIGHT_TIMEOUT"
	EnvAgentProviderName = "ORATOR_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "ORATOR_AGENT_BASE_URL"
	EnvAgentToken        = "ORATOR_AGENT_TOKEN"
	EnvAgentDeployment   = "ORATOR_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "ORATOR_AGENT_API_VERSION"
	EnvAgentAuthType     = "ORATOR_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "ORATOR_AGENT_MODEL_NAME"
)

// InsightConfig enables the language model review that runs after scoring.
// Agent is only finalized when Enabled is set.
type InsightConfig struct {
	Enabled bool                 `toml:"enabled"`
	Timeout string               `toml:"timeout"`
	Agent   gaconfig.AgentConfig `toml:"agent"`
}

// TimeoutDuration bounds a single review.
func (c *InsightConfig) TimeoutDuration() time.Duration { return duration(c.Timeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *InsightConfig) Finalize() error {
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
	if v := os.Getenv(EnvInsightEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvInsightEnabled, v)
		}
		c.Enabled = enabled
	}
	if v := os.Getenv(EnvInsightTimeout); v != "" {
		c.Timeout = v
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid timeout: %q", c.Timeout)
	}
	if !c.Enabled {
		return nil
	}
	if err := FinalizeAgent(&c.Agent); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *InsightConfig) Merge(overlay *InsightConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	c.Agent.Merge(&overlay.Agent)
}

// FinalizeAgent fills an agent config from go-agents defaults, applies the
// ORATOR_AGENT_* overrides and validates the result.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	loadAgentDefaults(c)
	loadAgentEnv(c)
	return validateAgent(c)
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	setOption := func(envVar, key string) {
		if v := os.Getenv(envVar); v != "" {
			c.Provider.Options[key] = v
		}
	}

	setOption(EnvAgentToken, "token")
	setOption(EnvAgentDeployment, "deployment")
	setOption(EnvAgentAPIVersion, "api_version")
	setOption(EnvAgentAuthType, "auth_type")
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.Provider == nil || c.Provider.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if c.Model == nil || c.Model.Name == "" {
		return fmt.Errorf("model name required")
	}
	return nil
}
