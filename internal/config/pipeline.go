package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JaimeStill/orator/pkg/formatting"
)

// Supported transcription providers.
const (
	TranscriptionAzure  = "azure"
	TranscriptionOpenAI = "openai"
)

// UploadsConfig controls chunk staging. Incomplete sessions idle longer than
// StaleAfter are purged.
type UploadsConfig struct {
	StagingDir   string `toml:"staging_dir"`
	CompletedTTL string `toml:"completed_ttl"`
	StaleAfter   string `toml:"stale_after"`
}

// CompletedTTLDuration returns how long a completed session is remembered.
func (c *UploadsConfig) CompletedTTLDuration() time.Duration { return duration(c.CompletedTTL) }

// StaleAfterDuration returns the idle time after which a session is purged.
func (c *UploadsConfig) StaleAfterDuration() time.Duration { return duration(c.StaleAfter) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *UploadsConfig) Finalize() error {
	if c.StagingDir == "" {
		c.StagingDir = "data/staging"
	}
	if c.CompletedTTL == "" {
		c.CompletedTTL = "168h"
	}
	if c.StaleAfter == "" {
		c.StaleAfter = "6h"
	}
	if v := os.Getenv("ORATOR_UPLOADS_STAGING_DIR"); v != "" {
		c.StagingDir = v
	}
	if v := os.Getenv("ORATOR_UPLOADS_COMPLETED_TTL"); v != "" {
		c.CompletedTTL = v
	}
	if v := os.Getenv("ORATOR_UPLOADS_STALE_AFTER"); v != "" {
		c.StaleAfter = v
	}
	if d, err := time.ParseDuration(c.CompletedTTL); err != nil || d <= 0 {
		return fmt.Errorf("invalid completed_ttl: %q", c.CompletedTTL)
	}
	if d, err := time.ParseDuration(c.StaleAfter); err != nil || d <= 0 {
		return fmt.Errorf("invalid stale_after: %q", c.StaleAfter)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *UploadsConfig) Merge(overlay *UploadsConfig) {
	if overlay.StagingDir != "" {
		c.StagingDir = overlay.StagingDir
	}
	if overlay.CompletedTTL != "" {
		c.CompletedTTL = overlay.CompletedTTL
	}
	if overlay.StaleAfter != "" {
		c.StaleAfter = overlay.StaleAfter
	}
}

// MediaConfig locates the ffmpeg toolchain.
type MediaConfig struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
	SampleRate  int    `toml:"sample_rate"`
	Timeout     string `toml:"timeout"`
}

// TimeoutDuration bounds a single ffmpeg or ffprobe invocation.
func (c *MediaConfig) TimeoutDuration() time.Duration { return duration(c.Timeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MediaConfig) Finalize() error {
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.FFprobePath == "" {
		c.FFprobePath = "ffprobe"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.Timeout == "" {
		c.Timeout = "30m"
	}
	if v := os.Getenv("ORATOR_FFMPEG_PATH"); v != "" {
		c.FFmpegPath = v
	}
	if v := os.Getenv("ORATOR_FFPROBE_PATH"); v != "" {
		c.FFprobePath = v
	}
	if c.SampleRate < 8000 {
		return fmt.Errorf("invalid sample_rate: %d", c.SampleRate)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *MediaConfig) Merge(overlay *MediaConfig) {
	if overlay.FFmpegPath != "" {
		c.FFmpegPath = overlay.FFmpegPath
	}
	if overlay.FFprobePath != "" {
		c.FFprobePath = overlay.FFprobePath
	}
	if overlay.SampleRate != 0 {
		c.SampleRate = overlay.SampleRate
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

// TranscriptionConfig selects and configures the speech recognition backend.
// Diarization is enabled when MaxSpeakers is greater than one. An azure
// backend without Key authenticates with the default Azure credential.
type TranscriptionConfig struct {
	Provider    string `toml:"provider"`
	Key         string `toml:"key"`
	Region      string `toml:"region"`
	Endpoint    string `toml:"endpoint"`
	Language    string `toml:"language"`
	MaxSpeakers int    `toml:"max_speakers"`
	Model       string `toml:"model"`
	Timeout     string `toml:"timeout"`
	// MaxUpload is the largest audio file sent to openai in one request.
	// Longer audio is split into SegmentLength pieces.
	MaxUpload     string `toml:"max_upload"`
	SegmentLength string `toml:"segment_length"`
}

// TimeoutDuration bounds a single recognition request.
func (c *TranscriptionConfig) TimeoutDuration() time.Duration { return duration(c.Timeout) }

// MaxUploadBytes returns MaxUpload in bytes.
func (c *TranscriptionConfig) MaxUploadBytes() int64 {
	n, _ := formatting.ParseBytes(c.MaxUpload)
	return n
}

// SegmentDuration returns the length of the pieces oversized audio is split into.
func (c *TranscriptionConfig) SegmentDuration() time.Duration { return duration(c.SegmentLength) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *TranscriptionConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *TranscriptionConfig) Merge(overlay *TranscriptionConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Key != "" {
		c.Key = overlay.Key
	}
	if overlay.Region != "" {
		c.Region = overlay.Region
	}
	if overlay.Endpoint != "" {
		c.Endpoint = overlay.Endpoint
	}
	if overlay.Language != "" {
		c.Language = overlay.Language
	}
	if overlay.MaxSpeakers != 0 {
		c.MaxSpeakers = overlay.MaxSpeakers
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxUpload != "" {
		c.MaxUpload = overlay.MaxUpload
	}
	if overlay.SegmentLength != "" {
		c.SegmentLength = overlay.SegmentLength
	}
}

func (c *TranscriptionConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = TranscriptionAzure
	}
	if c.Language == "" {
		c.Language = "es-MX"
	}
	if c.MaxSpeakers == 0 {
		c.MaxSpeakers = 4
	}
	if c.Model == "" {
		c.Model = "whisper-1"
	}
	if c.Timeout == "" {
		c.Timeout = "15m"
	}
	if c.MaxUpload == "" {
		c.MaxUpload = "24MiB"
	}
	if c.SegmentLength == "" {
		c.SegmentLength = "10m"
	}
}

func (c *TranscriptionConfig) loadEnv() {
	if v := os.Getenv("ORATOR_SPEECH_PROVIDER"); v != "" {
		c.Provider = v
	}
	if v := os.Getenv("ORATOR_SPEECH_KEY"); v != "" {
		c.Key = v
	}
	if v := os.Getenv("ORATOR_SPEECH_REGION"); v != "" {
		c.Region = v
	}
	if v := os.Getenv("ORATOR_SPEECH_ENDPOINT"); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv("ORATOR_SPEECH_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("ORATOR_SPEECH_MAX_SPEAKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxSpeakers = n
		}
	}
	if v := os.Getenv("ORATOR_SPEECH_MODEL"); v != "" {
		c.Model = v
	}
}

func (c *TranscriptionConfig) validate() error {
	switch c.Provider {
	case TranscriptionAzure:
		if c.Region == "" && c.Endpoint == "" {
			return fmt.Errorf("region or endpoint required for azure")
		}
	case TranscriptionOpenAI:
		if c.Key == "" {
			return fmt.Errorf("key required for openai")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if n, err := formatting.ParseBytes(c.MaxUpload); err != nil || n <= 0 {
		return fmt.Errorf("invalid max_upload %q", c.MaxUpload)
	}
	if d, err := time.ParseDuration(c.SegmentLength); err != nil || d <= 0 {
		return fmt.Errorf("invalid segment_length %q", c.SegmentLength)
	}
	return nil
}

// JobsConfig bounds background analysis work.
type JobsConfig struct {
	MaxConcurrent int    `toml:"max_concurrent"`
	WorkDir       string `toml:"work_dir"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *JobsConfig) Finalize() error {
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 2
	}
	if c.WorkDir == "" {
		c.WorkDir = os.TempDir()
	}
	if v := os.Getenv("ORATOR_JOBS_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("ORATOR_JOBS_WORK_DIR"); v != "" {
		c.WorkDir = v
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("invalid max_concurrent: %d", c.MaxConcurrent)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *JobsConfig) Merge(overlay *JobsConfig) {
	if overlay.MaxConcurrent != 0 {
		c.MaxConcurrent = overlay.MaxConcurrent
	}
	if overlay.WorkDir != "" {
		c.WorkDir = overlay.WorkDir
	}
}
