package api

import (
	"fmt"

	"github.com/JaimeStill/orator/internal/insight"
	"github.com/JaimeStill/orator/internal/jobs"
	"github.com/JaimeStill/orator/internal/media"
	"github.com/JaimeStill/orator/internal/rubric"
	"github.com/JaimeStill/orator/internal/transcription"
	"github.com/JaimeStill/orator/internal/uploads"
	"github.com/JaimeStill/orator/pkg/lifecycle"
)

// Domain holds the systems of the analysis pipeline.
type Domain struct {
	Media         *media.Transcoder
	Transcription *transcription.Engine
	Rubric        *rubric.Engine
	Jobs          *jobs.Orchestrator
	Uploads       *uploads.Assembler
}

// NewDomain creates the pipeline from the API runtime: uploads hand off to
// jobs, which drive media extraction, transcription and scoring, followed by
// the insight review when it is enabled.
func NewDomain(runtime *Runtime) (*Domain, error) {
	cfg := runtime.Config

	transcoder := media.New(media.Config{
		FFmpegPath:  cfg.Media.FFmpegPath,
		FFprobePath: cfg.Media.FFprobePath,
		SampleRate:  cfg.Media.SampleRate,
		Timeout:     cfg.Media.TimeoutDuration(),
	}, runtime.Logger)

	recognizer, err := transcription.NewRecognizer(transcription.Config{
		Provider: cfg.Transcription.Provider,
		Key:      cfg.Transcription.Key,
		Region:   cfg.Transcription.Region,
		Endpoint: cfg.Transcription.Endpoint,
		Model:    cfg.Transcription.Model,
		Timeout:  cfg.Transcription.TimeoutDuration(),

		MaxUploadBytes:  cfg.Transcription.MaxUploadBytes(),
		SegmentDuration: cfg.Transcription.SegmentDuration(),
		Splitter:        transcoder,
	}, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("transcription init failed: %w", err)
	}

	engine := transcription.NewEngine(recognizer, transcoder, transcription.Options{
		Language:    cfg.Transcription.Language,
		MaxSpeakers: cfg.Transcription.MaxSpeakers,
	}, runtime.Logger)

	scorer := rubric.NewDefault()

	var advisor jobs.Advisor
	if cfg.Insight.Enabled {
		advisor = insight.New(cfg.Insight.Agent, runtime.Logger)
	}

	orchestrator := jobs.New(jobs.Config{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		WorkDir:       cfg.Jobs.WorkDir,
		ReviewTimeout: cfg.Insight.TimeoutDuration(),
	}, jobs.Deps{
		Storage:     runtime.Storage,
		Extractor:   transcoder,
		Transcriber: engine,
		Scorer:      scorer,
		Advisor:     advisor,
		Ledger:      runtime.Ledger,
		Publisher:   runtime.Events,
		Logger:      runtime.Logger,
	})

	assembler := uploads.New(uploads.Config{
		StagingDir:   cfg.Uploads.StagingDir,
		CompletedTTL: cfg.Uploads.CompletedTTLDuration(),
		StaleAfter:   cfg.Uploads.StaleAfterDuration(),
	}, orchestrator, runtime.Logger)

	return &Domain{
		Media:         transcoder,
		Transcription: engine,
		Rubric:        scorer,
		Jobs:          orchestrator,
		Uploads:       assembler,
	}, nil
}

// Start registers startup and shutdown hooks for every domain system.
func (d *Domain) Start(lc *lifecycle.Coordinator) error {
	if err := d.Media.Start(lc); err != nil {
		return fmt.Errorf("media start failed: %w", err)
	}
	if err := d.Jobs.Start(lc); err != nil {
		return fmt.Errorf("jobs start failed: %w", err)
	}
	if err := d.Uploads.Start(lc); err != nil {
		return fmt.Errorf("uploads start failed: %w", err)
	}
	return nil
}
