package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/orator/internal/insight"
	"github.com/JaimeStill/orator/internal/rubric"
	"github.com/JaimeStill/orator/internal/transcription"
	"github.com/JaimeStill/orator/pkg/formatting"
	"github.com/JaimeStill/orator/pkg/lifecycle"
	"github.com/JaimeStill/orator/pkg/pagination"
	"github.com/JaimeStill/orator/pkg/storage"
)

const (
	maxDetailLen     = 300
	interruptedError = "analysis interrupted by a service restart"
	recoveryWorkers  = 8
)

// Extractor converts a media file into mono PCM audio.
type Extractor interface {
	Extract(ctx context.Context, in, out string) error
}

// Transcriber turns an audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcription.Result, error)
}

// Scorer evaluates a transcript.
type Scorer interface {
	Evaluate(transcript string, durationSeconds float64) rubric.Report
	Pitch(transcript string) *rubric.PitchScore
}

// Advisor writes a narrative review of a transcript.
type Advisor interface {
	Review(ctx context.Context, transcript string) (*insight.Insight, error)
}

// Publisher announces status transitions.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// Config bounds concurrent jobs and locates scratch files. ReviewTimeout
// bounds the Advisor call.
type Config struct {
	MaxConcurrent int
	WorkDir       string
	ReviewTimeout time.Duration
}

// Deps are the collaborators of an Orchestrator. Advisor, Ledger and
// Publisher are optional.
type Deps struct {
	Storage     storage.System
	Extractor   Extractor
	Transcriber Transcriber
	Scorer      Scorer
	Advisor     Advisor
	Ledger      Ledger
	Publisher   Publisher
	Logger      *slog.Logger
}

// Orchestrator accepts assembled presentations and drives each through the
// analysis pipeline in the background. Each tenant has at most one job in
// flight, and the orchestrator is the only writer of tenant status documents.
type Orchestrator struct {
	cfg         Config
	store       store
	extractor   Extractor
	transcriber Transcriber
	scorer      Scorer
	advisor     Advisor
	ledger      Ledger
	publisher   Publisher
	logger      *slog.Logger
	started     time.Time

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]uuid.UUID
}

// New creates an Orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if cfg.ReviewTimeout <= 0 {
		cfg.ReviewTimeout = 2 * time.Minute
	}

	return &Orchestrator{
		cfg:         cfg,
		store:       store{objects: deps.Storage},
		extractor:   deps.Extractor,
		transcriber: deps.Transcriber,
		scorer:      deps.Scorer,
		advisor:     deps.Advisor,
		ledger:      deps.Ledger,
		publisher:   deps.Publisher,
		logger:      deps.Logger.With("system", "jobs"),
		started:     time.Now().UTC(),
		sem:         semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		inflight:    make(map[string]uuid.UUID),
	}
}

// Start registers recovery of interrupted jobs at startup and waits for
// in-flight jobs while shutdown drains, before the ledger and event sinks close.
func (o *Orchestrator) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("jobs", func(ctx context.Context) error {
		if err := os.MkdirAll(o.cfg.WorkDir, 0o755); err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
		return o.recoverInterrupted(ctx)
	})

	lc.OnDrain(func() {
		o.logger.Info("waiting for in-flight jobs")
		o.Wait()
		o.logger.Info("jobs drained")
	})

	return nil
}

// StartJob persists a processing status for tenantID and analyzes the media
// at mediaPath in the background. The orchestrator owns mediaPath once
// StartJob returns without error and removes it when the job ends.
func (o *Orchestrator) StartJob(ctx context.Context, tenantID, mediaPath string) (uuid.UUID, error) {
	if !validTenant(tenantID) {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}

	o.mu.Lock()
	if active, ok := o.inflight[tenantID]; ok {
		o.mu.Unlock()
		if active == uuid.Nil {
			return uuid.Nil, fmt.Errorf("%w: recovery in progress for %s", ErrJobActive, tenantID)
		}
		return uuid.Nil, fmt.Errorf("%w: job %s", ErrJobActive, active)
	}

	now := time.Now().UTC()
	doc := StatusDocument{
		JobID:     uuid.New(),
		TenantID:  tenantID,
		Status:    StatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.inflight[tenantID] = doc.JobID
	o.mu.Unlock()

	if err := o.store.putStatus(ctx, doc); err != nil {
		o.release(tenantID)
		return uuid.Nil, fmt.Errorf("persist status for %s: %w", tenantID, err)
	}

	o.announce(ctx, doc)
	o.logger.Info("job started", "job_id", doc.JobID, "tenant_id", tenantID)

	o.wg.Go(func() {
		o.run(doc, mediaPath)
	})

	return doc.JobID, nil
}

// GetStatus returns the latest status document for tenantID.
func (o *Orchestrator) GetStatus(ctx context.Context, tenantID string) (StatusDocument, error) {
	if !validTenant(tenantID) {
		return StatusDocument{}, fmt.Errorf("%w: %q", ErrInvalidTenant, tenantID)
	}
	return o.store.status(ctx, tenantID)
}

// GetResult returns the analysis of tenantID's latest job once it is done.
// The result comes from the same status document that reports done, so a
// later job cannot swap it between reads.
func (o *Orchestrator) GetResult(ctx context.Context, tenantID string) (AnalysisResult, error) {
	doc, err := o.GetStatus(ctx, tenantID)
	if err != nil {
		return AnalysisResult{}, err
	}
	if doc.Status != StatusDone {
		return AnalysisResult{}, fmt.Errorf("%w: job %s is %s", ErrNotReady, doc.JobID, doc.Status)
	}
	if doc.Result == nil {
		return AnalysisResult{}, fmt.Errorf("%w: job %s has no embedded result", ErrNotFound, doc.JobID)
	}
	return *doc.Result, nil
}

// Metrics summarizes what the analysis store holds.
type Metrics struct {
	Presentations int    `json:"total_presentations"`
	Objects       int    `json:"total_objects"`
	StorageBytes  int64  `json:"total_storage_bytes"`
	Storage       string `json:"total_storage"`
}

// Metrics counts the tenants with a status document and the size of every
// stored object.
func (o *Orchestrator) Metrics(ctx context.Context) (Metrics, error) {
	tenants, err := o.store.tenants(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("list status documents: %w", err)
	}
	usage, err := o.store.objects.Usage(ctx, "")
	if err != nil {
		return Metrics{}, fmt.Errorf("measure storage: %w", err)
	}

	return Metrics{
		Presentations: len(tenants),
		Objects:       usage.Objects,
		StorageBytes:  usage.Bytes,
		Storage:       formatting.FormatBytes(usage.Bytes, 2),
	}, nil
}

// ListJobs returns a page of the job ledger.
func (o *Orchestrator) ListJobs(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	if o.ledger == nil {
		return nil, ErrLedgerUnavailable
	}
	return o.ledger.List(ctx, page, filters)
}

// FindJob returns a single ledger entry.
func (o *Orchestrator) FindJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	if o.ledger == nil {
		return nil, ErrLedgerUnavailable
	}
	return o.ledger.Find(ctx, id)
}

// Active reports the job currently running for tenantID.
func (o *Orchestrator) Active(tenantID string) (uuid.UUID, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	id, ok := o.inflight[tenantID]
	if id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, ok
}

// claim reserves tenantID for recovery. It fails when a job already holds it.
func (o *Orchestrator) claim(tenantID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.inflight[tenantID]; ok {
		return false
	}
	o.inflight[tenantID] = uuid.Nil
	return true
}

// Wait blocks until every started job has written its terminal status.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) run(doc StatusDocument, mediaPath string) {
	defer o.release(doc.TenantID)
	defer os.Remove(mediaPath)

	ctx := context.Background()
	start := time.Now()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.fail(ctx, doc, err)
		return
	}
	defer o.sem.Release(1)

	result, err := o.execute(ctx, doc, mediaPath)
	if err != nil {
		o.logger.Error("job failed",
			"job_id", doc.JobID,
			"tenant_id", doc.TenantID,
			"error", err,
			"elapsed", time.Since(start),
		)
		o.fail(ctx, doc, err)
		return
	}

	o.complete(ctx, doc, result)
	o.logger.Info("job complete",
		"job_id", doc.JobID,
		"tenant_id", doc.TenantID,
		"aggregate_score", result.AggregateScore,
		"audio", formatting.FormatClock(result.DurationSeconds),
		"elapsed", time.Since(start),
	)
}

func (o *Orchestrator) execute(ctx context.Context, doc StatusDocument, mediaPath string) (result *AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	if err := o.store.retainMedia(ctx, doc.TenantID, mediaPath); err != nil {
		return nil, fmt.Errorf("retain media: %w", err)
	}

	dir, err := os.MkdirTemp(o.cfg.WorkDir, "orator-"+doc.TenantID+"-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	audio := filepath.Join(dir, "audio.wav")
	if err := o.extractor.Extract(ctx, mediaPath, audio); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	transcript, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	report := o.scorer.Evaluate(transcript.Text, transcript.DurationSeconds)

	result = &AnalysisResult{
		Transcript:      transcript.Text,
		Utterances:      transcript.Utterances,
		DurationSeconds: transcript.DurationSeconds,
		Report:          report,
	}

	// With several speakers the pitch is rated on the seller's speech alone.
	if speaker, text, ok := transcript.Seller(); ok && report.Notice == "" {
		result.Seller = speaker
		result.SalesPitch = o.scorer.Pitch(text)
	}

	if o.advisor != nil && report.Notice == "" {
		result.Insight = o.review(ctx, doc, transcript.Text)
	}

	if err := o.store.putResult(ctx, doc.TenantID, result); err != nil {
		return nil, fmt.Errorf("persist result: %w", err)
	}

	return result, nil
}

// review asks the advisor for an insight. A failed review is logged and the
// job completes without one.
func (o *Orchestrator) review(ctx context.Context, doc StatusDocument, transcript string) *insight.Insight {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ReviewTimeout)
	defer cancel()

	ins, err := o.advisor.Review(ctx, transcript)
	if err != nil {
		o.logger.Warn("insight review skipped", "job_id", doc.JobID, "tenant_id", doc.TenantID, "error", err)
		return nil
	}
	return ins
}

func (o *Orchestrator) complete(ctx context.Context, doc StatusDocument, result *AnalysisResult) {
	next, err := transition(doc, StatusDone)
	if err != nil {
		o.logger.Error("status transition rejected", "job_id", doc.JobID, "error", err)
		return
	}
	next.Result = result

	if err := o.store.putStatus(ctx, next); err != nil {
		o.logger.Error("persist done status failed", "job_id", doc.JobID, "error", err)
		o.fail(ctx, doc, fmt.Errorf("persist status: %w", err))
		return
	}

	o.announce(ctx, next)
}

func (o *Orchestrator) fail(ctx context.Context, doc StatusDocument, cause error) {
	next, err := transition(doc, StatusError)
	if err != nil {
		o.logger.Error("status transition rejected", "job_id", doc.JobID, "error", err)
		return
	}
	next.ErrorDetail = detail(cause)

	if err := o.store.putStatus(ctx, next); err != nil {
		o.logger.Error("persist error status failed", "job_id", doc.JobID, "error", err)
		return
	}

	o.announce(ctx, next)
}

// announce records a transition in the ledger and publishes it. Neither
// failure affects the job.
func (o *Orchestrator) announce(ctx context.Context, doc StatusDocument) {
	ctx = context.WithoutCancel(ctx)

	if o.ledger != nil {
		if err := o.ledger.Record(ctx, doc); err != nil {
			o.logger.Warn("ledger record failed", "job_id", doc.JobID, "status", doc.Status, "error", err)
		}
	}

	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, "jobs."+string(doc.Status), newEvent(doc)); err != nil {
			o.logger.Warn("publish event failed", "job_id", doc.JobID, "status", doc.Status, "error", err)
		}
	}
}

func (o *Orchestrator) release(tenantID string) {
	o.mu.Lock()
	delete(o.inflight, tenantID)
	o.mu.Unlock()
}

// recoverInterrupted moves status documents left in processing by an earlier
// process to error, since no worker owns them anymore. Each tenant is claimed
// while it is inspected so a job started meanwhile is never touched, and
// documents created after this orchestrator started are left alone.
func (o *Orchestrator) recoverInterrupted(ctx context.Context) error {
	tenants, err := o.store.tenants(ctx)
	if err != nil {
		return fmt.Errorf("list status documents: %w", err)
	}

	var (
		mu        sync.Mutex
		recovered int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recoveryWorkers)

	for _, tenant := range tenants {
		g.Go(func() error {
			if !o.claim(tenant) {
				return nil
			}
			defer o.release(tenant)

			doc, err := o.store.status(gctx, tenant)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					return nil
				}
				o.logger.Warn("unreadable status document", "tenant_id", tenant, "error", err)
				return nil
			}
			if doc.Status != StatusProcessing || doc.CreatedAt.After(o.started) {
				return nil
			}

			next, err := transition(doc, StatusError)
			if err != nil {
				return err
			}
			next.ErrorDetail = interruptedError

			if err := o.store.putStatus(gctx, next); err != nil {
				return fmt.Errorf("recover %s: %w", tenant, err)
			}
			o.announce(gctx, next)

			mu.Lock()
			recovered++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	o.logger.Info("job recovery complete", "tenants", len(tenants), "recovered", recovered)
	return nil
}

// transition returns doc advanced to next. Only processing may advance, and
// only to a terminal status.
func transition(doc StatusDocument, next Status) (StatusDocument, error) {
	if doc.Status != StatusProcessing || !next.Terminal() {
		return doc, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, doc.Status, next)
	}
	doc.Status = next
	doc.UpdatedAt = time.Now().UTC()
	return doc, nil
}

func detail(err error) string {
	msg := err.Error()
	if utf8.RuneCountInString(msg) <= maxDetailLen {
		return msg
	}
	runes := []rune(msg)
	return string(runes[:maxDetailLen]) + "..."
}
