package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

const (
	fastTranscriptionPath       = "/speechtotext/transcriptions:transcribe"
	fastTranscriptionAPIVersion = "2024-11-15"
	cognitiveServicesScope      = "https://cognitiveservices.azure.com/.default"
)

// azureSpeech calls the Azure AI Speech fast transcription API and replays the
// returned phrases as session events.
type azureSpeech struct {
	endpoint string
	pipeline runtime.Pipeline
	timeout  time.Duration
	logger   *slog.Logger
}

type subscriptionKeyPolicy struct {
	key string
}

func (p subscriptionKeyPolicy) Do(req *policy.Request) (*http.Response, error) {
	req.Raw().Header.Set("Ocp-Apim-Subscription-Key", p.key)
	return req.Next()
}

// newAzureSpeech authenticates with cfg.Key when set, otherwise with the
// default Azure credential chain (which requires a custom-domain Endpoint).
func newAzureSpeech(cfg Config, logger *slog.Logger, client *policy.ClientOptions) (*azureSpeech, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, fmt.Errorf("azure speech requires region or endpoint")
		}
		endpoint = fmt.Sprintf("https://%s.api.cognitive.microsoft.com", cfg.Region)
	}

	var plOpts runtime.PipelineOptions
	if cfg.Key != "" {
		plOpts.PerCall = append(plOpts.PerCall, subscriptionKeyPolicy{key: cfg.Key})
	} else {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("create azure credential: %w", err)
		}
		plOpts.PerRetry = append(plOpts.PerRetry, runtime.NewBearerTokenPolicy(cred, []string{cognitiveServicesScope}, nil))
	}

	return &azureSpeech{
		endpoint: endpoint,
		pipeline: runtime.NewPipeline("orator/transcription", "v0.1.0", plOpts, client),
		timeout:  cfg.Timeout,
		logger:   logger.With("provider", ProviderAzure),
	}, nil
}

type azureDefinition struct {
	Locales     []string          `json:"locales"`
	Diarization *azureDiarization `json:"diarization,omitempty"`
}

type azureDiarization struct {
	Enabled     bool `json:"enabled"`
	MaxSpeakers int  `json:"maxSpeakers"`
}

type azureResponse struct {
	DurationMilliseconds int64         `json:"durationMilliseconds"`
	Phrases              []azurePhrase `json:"phrases"`
}

type azurePhrase struct {
	Speaker              *int    `json:"speaker"`
	OffsetMilliseconds   int64   `json:"offsetMilliseconds"`
	DurationMilliseconds int64   `json:"durationMilliseconds"`
	Text                 string  `json:"text"`
	Confidence           float64 `json:"confidence"`
}

func (a *azureSpeech) Start(ctx context.Context, audioPath string, opts Options) (Session, error) {
	fields, err := a.fields(audioPath, opts)
	if err != nil {
		return nil, err
	}
	body, contentType, err := spoolForm(filepath.Dir(audioPath), fields)
	if err != nil {
		return nil, err
	}

	return startStream(ctx, func(emit func(Event) bool) {
		defer os.Remove(body.Name())
		defer body.Close()

		resp, err := a.transcribe(ctx, body, contentType)
		if err != nil {
			emit(Event{Kind: Canceled, Err: err})
			return
		}

		if len(resp.Phrases) == 0 {
			if !emit(Event{Kind: NoMatch}) {
				return
			}
		}

		for _, p := range resp.Phrases {
			seg := Segment{
				Text:     p.Text,
				Offset:   time.Duration(p.OffsetMilliseconds) * time.Millisecond,
				Duration: time.Duration(p.DurationMilliseconds) * time.Millisecond,
			}
			if p.Speaker != nil {
				seg.SpeakerID = strconv.Itoa(*p.Speaker)
			}
			if !emit(Event{Kind: Recognized, Segment: seg}) {
				return
			}
		}

		emit(Event{
			Kind:     SessionStopped,
			Duration: time.Duration(resp.DurationMilliseconds) * time.Millisecond,
		})
	}), nil
}

func (a *azureSpeech) fields(audioPath string, opts Options) ([]formField, error) {
	def := azureDefinition{Locales: []string{opts.Language}}
	if opts.MaxSpeakers > 1 {
		def.Diarization = &azureDiarization{Enabled: true, MaxSpeakers: opts.MaxSpeakers}
	}
	definition, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}

	return []formField{
		{name: "audio", path: audioPath},
		{name: "definition", value: string(definition)},
	}, nil
}

func (a *azureSpeech) transcribe(ctx context.Context, body io.ReadSeekCloser, contentType string) (*azureResponse, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := runtime.NewRequest(ctx, http.MethodPost, a.endpoint+fastTranscriptionPath)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	q := req.Raw().URL.Query()
	q.Set("api-version", fastTranscriptionAPIVersion)
	req.Raw().URL.RawQuery = q.Encode()
	req.Raw().Header.Set("Accept", "application/json")

	if err := req.SetBody(streaming.NopCloser(body), contentType); err != nil {
		return nil, fmt.Errorf("set body: %w", err)
	}

	start := time.Now()
	resp, err := a.pipeline.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fast transcription request: %w", err)
	}
	defer resp.Body.Close()

	if !runtime.HasStatusCode(resp, http.StatusOK) {
		var respErr *azcore.ResponseError
		if errors.As(runtime.NewResponseError(resp), &respErr) {
			return nil, fmt.Errorf("fast transcription rejected: status %d code %q", respErr.StatusCode, respErr.ErrorCode)
		}
		return nil, fmt.Errorf("fast transcription rejected: status %d", resp.StatusCode)
	}

	var out azureResponse
	if err := runtime.UnmarshalAsJSON(resp, &out); err != nil {
		return nil, fmt.Errorf("decode fast transcription: %w", err)
	}

	a.logger.Info("fast transcription complete",
		"phrases", len(out.Phrases),
		"duration_ms", out.DurationMilliseconds,
		"elapsed", time.Since(start),
	)
	return &out, nil
}
