package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JaimeStill/orator/pkg/formatting"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
	// defaultMaxUpload stays under the 25 MB request limit of the endpoint.
	defaultMaxUpload = 24 << 20
	// defaultSegment keeps 16 kHz mono PCM pieces below defaultMaxUpload.
	defaultSegment = 10 * time.Minute
	// noSpeechThreshold marks whisper segments that are most likely silence.
	noSpeechThreshold = 0.8
)

// Splitter cuts an audio file into consecutive pieces of at most every length.
type Splitter interface {
	Split(ctx context.Context, in, dir string, every time.Duration) ([]string, error)
}

// openAIWhisper transcribes through the OpenAI audio transcription endpoint
// using verbose_json segments. Audio over maxUpload is sent in pieces whose
// offsets are shifted back onto one timeline. Whisper does not diarize.
type openAIWhisper struct {
	endpoint  string
	key       string
	model     string
	maxUpload int64
	segment   time.Duration
	splitter  Splitter
	client    *http.Client
	logger    *slog.Logger
}

func newOpenAIWhisper(cfg Config, logger *slog.Logger, client *http.Client) *openAIWhisper {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = "whisper-1"
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	segment := cfg.SegmentDuration
	if segment <= 0 {
		segment = defaultSegment
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &openAIWhisper{
		endpoint:  endpoint,
		key:       cfg.Key,
		model:     model,
		maxUpload: maxUpload,
		segment:   segment,
		splitter:  cfg.Splitter,
		client:    client,
		logger:    logger.With("provider", ProviderOpenAI),
	}
}

type whisperResponse struct {
	Text     string           `json:"text"`
	Duration float64          `json:"duration"`
	Segments []whisperSegment `json:"segments"`
}

type whisperSegment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	NoSpeechProb float64 `json:"no_speech_prob"`
}

func (o *openAIWhisper) Start(ctx context.Context, audioPath string, opts Options) (Session, error) {
	pieces, cleanup, err := o.pieces(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	return startStream(ctx, func(emit func(Event) bool) {
		defer cleanup()

		var offset time.Duration
		for i, piece := range pieces {
			resp, err := o.transcribe(ctx, piece, opts)
			if err != nil {
				if len(pieces) > 1 {
					err = fmt.Errorf("piece %d of %d: %w", i+1, len(pieces), err)
				}
				emit(Event{Kind: Canceled, Err: err})
				return
			}

			if len(resp.Segments) == 0 && strings.TrimSpace(resp.Text) != "" {
				resp.Segments = []whisperSegment{{Text: resp.Text, End: resp.Duration}}
			}

			var end float64
			for _, s := range resp.Segments {
				end = max(end, s.End)
				ev := Event{Kind: NoMatch}
				if s.NoSpeechProb < noSpeechThreshold && strings.TrimSpace(s.Text) != "" {
					ev = Event{Kind: Recognized, Segment: Segment{
						Text:     s.Text,
						Offset:   offset + seconds(s.Start),
						Duration: seconds(s.End - s.Start),
					}}
				}
				if !emit(ev) {
					return
				}
			}

			if resp.Duration > 0 {
				end = resp.Duration
			}
			offset += seconds(end)
		}

		emit(Event{Kind: SessionStopped, Duration: offset})
	}), nil
}

// pieces returns the files to upload for audioPath and a cleanup for any
// pieces it created.
func (o *openAIWhisper) pieces(ctx context.Context, audioPath string) ([]string, func(), error) {
	info, err := os.Stat(audioPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open audio: %w", err)
	}
	if info.Size() <= o.maxUpload {
		return []string{audioPath}, func() {}, nil
	}
	if o.splitter == nil {
		return nil, nil, fmt.Errorf("audio is %s, over the %s upload limit",
			formatting.FormatBytes(info.Size(), 1), formatting.FormatBytes(o.maxUpload, 1))
	}

	dir, err := os.MkdirTemp(filepath.Dir(audioPath), "pieces-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create piece dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	pieces, err := o.splitter.Split(ctx, audioPath, dir, o.segment)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("split audio: %w", err)
	}

	o.logger.Info("audio split for upload",
		"size", formatting.FormatBytes(info.Size(), 1),
		"pieces", len(pieces),
		"segment", o.segment,
	)
	return pieces, cleanup, nil
}

func (o *openAIWhisper) fields(audioPath string, opts Options) []formField {
	fields := []formField{
		{name: "model", value: o.model},
		{name: "response_format", value: "verbose_json"},
		{name: "timestamp_granularities[]", value: "segment"},
	}
	if lang := isoLanguage(opts.Language); lang != "" {
		fields = append(fields, formField{name: "language", value: lang})
	}
	return append(fields, formField{name: "file", path: audioPath})
}

func (o *openAIWhisper) transcribe(ctx context.Context, audioPath string, opts Options) (*whisperResponse, error) {
	body, contentType := streamForm(o.fields(audioPath, opts))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint+"/audio/transcriptions", body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.key)
	req.Header.Set("Content-Type", contentType)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("whisper http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var out whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode whisper response: %w", err)
	}

	o.logger.Info("whisper transcription complete",
		"file", filepath.Base(audioPath),
		"segments", len(out.Segments),
		"duration_seconds", out.Duration,
		"elapsed", time.Since(start),
	)
	return &out, nil
}

// isoLanguage reduces a locale such as es-MX to its ISO-639-1 code.
func isoLanguage(locale string) string {
	lang, _, _ := strings.Cut(locale, "-")
	return strings.ToLower(lang)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
