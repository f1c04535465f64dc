package config

import (
	"fmt"
	"os"

	"github.com/JaimeStill/orator/pkg/formatting"
	"github.com/JaimeStill/orator/pkg/middleware"
	"github.com/JaimeStill/orator/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "ORATOR_CORS_ENABLED",
	Origins:          "ORATOR_CORS_ORIGINS",
	AllowedMethods:   "ORATOR_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "ORATOR_CORS_ALLOWED_HEADERS",
	AllowCredentials: "ORATOR_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "ORATOR_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "ORATOR_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "ORATOR_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, request limits, CORS, and pagination settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxChunkSize  string                `toml:"max_chunk_size"`
	MaxScoreInput string                `toml:"max_score_input"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxChunkSizeBytes returns the largest accepted upload part body.
func (c *APIConfig) MaxChunkSizeBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxChunkSize)
	return size
}

// MaxScoreInputBytes returns the largest accepted scoring request body.
func (c *APIConfig) MaxScoreInputBytes() int64 {
	size, _ := formatting.ParseBytes(c.MaxScoreInput)
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxChunkSize != "" {
		c.MaxChunkSize = overlay.MaxChunkSize
	}
	if overlay.MaxScoreInput != "" {
		c.MaxScoreInput = overlay.MaxScoreInput
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxChunkSize == "" {
		c.MaxChunkSize = "16MB"
	}
	if c.MaxScoreInput == "" {
		c.MaxScoreInput = "1MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("ORATOR_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("ORATOR_API_MAX_CHUNK_SIZE"); v != "" {
		c.MaxChunkSize = v
	}
	if v := os.Getenv("ORATOR_API_MAX_SCORE_INPUT"); v != "" {
		c.MaxScoreInput = v
	}
}

func (c *APIConfig) validate() error {
	if _, err := formatting.ParseBytes(c.MaxChunkSize); err != nil {
		return fmt.Errorf("invalid max_chunk_size: %w", err)
	}
	if _, err := formatting.ParseBytes(c.MaxScoreInput); err != nil {
		return fmt.Errorf("invalid max_score_input: %w", err)
	}
	return nil
}
