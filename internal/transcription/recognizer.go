package transcription

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
)

// Supported recognizer providers.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
)

// Config selects and authenticates a recognizer backend.
type Config struct {
	Provider string
	Key      string
	Region   string
	Endpoint string
	Model    string
	Timeout  time.Duration

	// MaxUploadBytes and SegmentDuration bound each openai request. Audio
	// over the limit is cut by Splitter; without one it is rejected.
	MaxUploadBytes  int64
	SegmentDuration time.Duration
	Splitter        Splitter

	// HTTPClient overrides the transport used by either backend.
	HTTPClient *http.Client
}

// NewRecognizer builds the backend named by cfg.Provider.
func NewRecognizer(cfg Config, logger *slog.Logger) (Recognizer, error) {
	logger = logger.With("system", "recognizer")

	switch cfg.Provider {
	case ProviderAzure:
		var client *policy.ClientOptions
		if cfg.HTTPClient != nil {
			client = &policy.ClientOptions{Transport: cfg.HTTPClient}
		}
		rec, err := newAzureSpeech(cfg, logger, client)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case ProviderOpenAI:
		return newOpenAIWhisper(cfg, logger, cfg.HTTPClient), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
