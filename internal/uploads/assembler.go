// Package uploads reassembles presentations submitted as ordered chunks and
// hands each complete file to the analysis pipeline.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/JaimeStill/orator/pkg/formatting"
	"github.com/JaimeStill/orator/pkg/lifecycle"
)

// Handoff receives a fully assembled presentation and takes ownership of the
// file at mediaPath.
type Handoff interface {
	StartJob(ctx context.Context, tenantID, mediaPath string) (uuid.UUID, error)
}

// Config controls where parts are staged and how long sessions are kept.
type Config struct {
	StagingDir   string
	CompletedTTL time.Duration
	StaleAfter   time.Duration
}

// Assembler stages chunks on disk until a session is complete.
type Assembler struct {
	cfg     Config
	handoff Handoff
	logger  *slog.Logger
	started time.Time

	mu        sync.Mutex
	sessions  map[string]*session
	completed *cache.Cache
}

// New creates an Assembler that hands complete sessions to handoff.
func New(cfg Config, handoff Handoff, logger *slog.Logger) *Assembler {
	if cfg.CompletedTTL <= 0 {
		cfg.CompletedTTL = 7 * 24 * time.Hour
	}
	return &Assembler{
		cfg:       cfg,
		handoff:   handoff,
		logger:    logger.With("system", "uploads"),
		started:   time.Now(),
		sessions:  make(map[string]*session),
		completed: cache.New(cfg.CompletedTTL, cfg.CompletedTTL/2),
	}
}

// Start restores staged sessions left by a previous process and, when
// StaleAfter is set, purges sessions that stop receiving parts.
func (a *Assembler) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup("uploads", func(ctx context.Context) error {
		return a.restore()
	})

	if a.cfg.StaleAfter <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.sweep(lc.Context())
	}()
	lc.OnShutdown(func() { <-done })

	return nil
}

// SubmitPart stages one chunk. Resubmitting an index replaces the earlier
// copy. The part that completes the session triggers reassembly and handoff;
// parts for a session that already completed are acknowledged without effect.
func (a *Assembler) SubmitPart(ctx context.Context, p Part) (Receipt, error) {
	if err := validatePart(p); err != nil {
		return Receipt{}, err
	}

	for {
		if r, ok, err := a.tombstoned(p); ok {
			return r, err
		}

		s, err := a.acquire(p)
		if err != nil {
			return Receipt{}, err
		}

		s.mu.Lock()
		if !s.done {
			defer s.mu.Unlock()
			return a.submit(ctx, s, p)
		}
		s.mu.Unlock()
	}
}

// Purge discards an incomplete session and everything staged for it.
func (a *Assembler) Purge(ctx context.Context, sessionID string) error {
	if !ValidKey(sessionID) {
		return fmt.Errorf("%w: unsafe session id %q", ErrInvalidChunk, sessionID)
	}

	s, err := a.lookup(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return err
		}
		a.logger.Warn("purging unreadable session", "session_id", sessionID, "error", err)
		return os.RemoveAll(a.sessionDir(sessionID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return ErrSessionNotFound
	}

	a.discard(s)
	a.logger.Info("session purged", "session_id", sessionID, "tenant_id", s.meta.TenantID, "received", len(s.received))
	return nil
}

// Session reports the state of an in-flight session.
func (a *Assembler) Session(sessionID string) (SessionInfo, error) {
	if !ValidKey(sessionID) {
		return SessionInfo{}, ErrSessionNotFound
	}

	s, err := a.lookup(sessionID)
	if err != nil {
		return SessionInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return SessionInfo{}, ErrSessionNotFound
	}
	return s.info(), nil
}

// Sessions lists in-flight sessions ordered by id.
func (a *Assembler) Sessions() []SessionInfo {
	a.mu.Lock()
	active := make([]*session, 0, len(a.sessions))
	for _, s := range a.sessions {
		active = append(active, s)
	}
	a.mu.Unlock()

	infos := make([]SessionInfo, 0, len(active))
	for _, s := range active {
		s.mu.Lock()
		if !s.done {
			infos = append(infos, s.info())
		}
		s.mu.Unlock()
	}

	slices.SortFunc(infos, func(x, y SessionInfo) int {
		return strings.Compare(x.ID, y.ID)
	})
	return infos
}

// PurgeStale discards sessions that have not received a part since cutoff
// and returns how many were removed.
func (a *Assembler) PurgeStale(ctx context.Context, cutoff time.Time) int {
	purged := 0
	for _, info := range a.Sessions() {
		if !info.UpdatedAt.Before(cutoff) {
			continue
		}

		s, err := a.lookup(info.ID)
		if err != nil {
			continue
		}

		s.mu.Lock()
		if !s.done && s.updated.Before(cutoff) {
			a.discard(s)
			purged++
		}
		s.mu.Unlock()
	}

	if purged > 0 {
		a.logger.Info("stale sessions purged", "count", purged, "cutoff", cutoff)
	}
	return purged
}

func (a *Assembler) submit(ctx context.Context, s *session, p Part) (Receipt, error) {
	if p.Total != s.meta.Total {
		return Receipt{}, fmt.Errorf("%w: total %d conflicts with %d for session %s", ErrInvalidChunk, p.Total, s.meta.Total, s.id)
	}
	if p.TenantID != s.meta.TenantID {
		return Receipt{}, fmt.Errorf("%w: session %s belongs to another tenant", ErrInvalidChunk, s.id)
	}

	if _, err := s.writePart(p.Index, p.Data); err != nil {
		if errors.Is(err, ErrInvalidChunk) {
			return Receipt{}, err
		}
		return Receipt{}, fmt.Errorf("stage part %d of session %s: %w", p.Index, s.id, err)
	}

	s.received[p.Index] = struct{}{}
	s.updated = time.Now()

	if s.meta.Filename == "" && p.Filename != "" {
		s.meta.Filename = p.Filename
		if err := s.saveMeta(); err != nil {
			a.logger.Warn("update session metadata failed", "session_id", s.id, "error", err)
		}
	}

	receipt := Receipt{
		Accepted: true,
		Received: len(s.received),
		Total:    s.meta.Total,
	}

	if !s.complete() {
		return receipt, nil
	}

	jobID, err := a.finish(ctx, s)
	if err != nil {
		return receipt, err
	}

	receipt.Complete = true
	receipt.JobID = jobID.String()
	return receipt, nil
}

// finish reassembles a complete session and hands it off. Staged parts are
// kept when the handoff fails so the final part can be resubmitted.
func (a *Assembler) finish(ctx context.Context, s *session) (uuid.UUID, error) {
	artifact, size, err := a.assemble(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("assemble session %s: %w", s.id, err)
	}

	jobID, err := a.handoff.StartJob(ctx, s.meta.TenantID, artifact)
	if err != nil {
		os.Remove(artifact)
		return uuid.Nil, fmt.Errorf("hand off session %s: %w", s.id, err)
	}

	a.remember(s.id, tombstone{
		TenantID:    s.meta.TenantID,
		Total:       s.meta.Total,
		JobID:       jobID,
		CompletedAt: time.Now().UTC(),
	})

	a.discard(s)

	a.logger.Info("session complete",
		"session_id", s.id,
		"tenant_id", s.meta.TenantID,
		"parts", s.meta.Total,
		"size", formatting.FormatBytes(size, 1),
		"job_id", jobID,
	)

	return jobID, nil
}

func (a *Assembler) assemble(s *session) (string, int64, error) {
	dir := a.assembledDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}

	out, err := os.CreateTemp(dir, s.id+"-*"+extension(s.meta.Filename))
	if err != nil {
		return "", 0, err
	}

	size, err := concat(out, s)
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", 0, err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", 0, err
	}

	return out.Name(), size, nil
}

func concat(w io.Writer, s *session) (int64, error) {
	var total int64
	for i := range s.meta.Total {
		f, err := os.Open(s.partPath(i))
		if err != nil {
			return total, err
		}
		n, err := io.Copy(w, f)
		f.Close()
		total += n
		if err != nil {
			return total, fmt.Errorf("part %d: %w", i, err)
		}
	}
	return total, nil
}

// discard removes a session's staging area and forgets it. The caller holds s.mu.
func (a *Assembler) discard(s *session) {
	s.done = true
	if err := os.RemoveAll(s.dir); err != nil {
		a.logger.Warn("remove staging failed", "session_id", s.id, "error", err)
	}

	a.mu.Lock()
	if a.sessions[s.id] == s {
		delete(a.sessions, s.id)
	}
	a.mu.Unlock()
}

func (a *Assembler) tombstoned(p Part) (Receipt, bool, error) {
	t, ok := a.recall(p.SessionID)
	if !ok {
		return Receipt{}, false, nil
	}
	if t.TenantID != p.TenantID {
		return Receipt{}, true, fmt.Errorf("%w: session %s belongs to another tenant", ErrInvalidChunk, p.SessionID)
	}
	return t.receipt(), true, nil
}

// acquire returns the live session for p, creating its staging area on the
// first part.
func (a *Assembler) acquire(p Part) (*session, error) {
	s, err := a.lookup(p.SessionID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("load session %s: %w", p.SessionID, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[p.SessionID]; ok {
		return s, nil
	}

	dir := a.sessionDir(p.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging for session %s: %w", p.SessionID, err)
	}

	s = newSession(p.SessionID, dir, meta{
		TenantID: p.TenantID,
		Total:    p.Total,
		Filename: p.Filename,
	})
	if err := s.saveMeta(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write metadata for session %s: %w", p.SessionID, err)
	}

	a.sessions[p.SessionID] = s
	return s, nil
}

// lookup finds a session in memory or restores it from its staging area.
func (a *Assembler) lookup(id string) (*session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s, ok := a.sessions[id]; ok {
		return s, nil
	}

	s, err := loadSession(id, a.sessionDir(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	a.sessions[id] = s
	return s, nil
}

func (a *Assembler) restore() error {
	if err := os.MkdirAll(a.sessionsDir(), 0o755); err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}

	a.clearOrphans()
	if n := a.pruneMarkers(time.Now().Add(-a.cfg.CompletedTTL)); n > 0 {
		a.logger.Info("expired completion markers pruned", "count", n)
	}

	entries, err := os.ReadDir(a.sessionsDir())
	if err != nil {
		return fmt.Errorf("read staging dir: %w", err)
	}

	restored := 0
	for _, e := range entries {
		if !e.IsDir() || !ValidKey(e.Name()) {
			continue
		}
		if _, err := a.lookup(e.Name()); err != nil {
			a.logger.Warn("skipping unreadable session", "session_id", e.Name(), "error", err)
			continue
		}
		restored++
	}

	a.logger.Info("staging restored", "dir", a.cfg.StagingDir, "sessions", restored)
	return nil
}

// clearOrphans removes artifacts assembled by an earlier process. They were
// never handed off, and files from this process belong to a live handoff.
func (a *Assembler) clearOrphans() {
	entries, err := os.ReadDir(a.assembledDir())
	if err != nil {
		return
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(a.started) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(a.assembledDir(), e.Name())); err != nil {
			a.logger.Warn("remove orphaned artifact failed", "name", e.Name(), "error", err)
		}
	}
}

func (a *Assembler) sweep(ctx context.Context) {
	ticker := time.NewTicker(max(a.cfg.StaleAfter/4, time.Minute))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.PurgeStale(ctx, now.Add(-a.cfg.StaleAfter))
			a.pruneMarkers(now.Add(-a.cfg.CompletedTTL))
		}
	}
}

func (a *Assembler) sessionsDir() string {
	return filepath.Join(a.cfg.StagingDir, "sessions")
}

func (a *Assembler) sessionDir(id string) string {
	return filepath.Join(a.sessionsDir(), id)
}

func (a *Assembler) assembledDir() string {
	return filepath.Join(a.cfg.StagingDir, "assembled")
}

func validatePart(p Part) error {
	switch {
	case !ValidKey(p.TenantID):
		return fmt.Errorf("%w: unsafe tenant id %q", ErrInvalidChunk, p.TenantID)
	case !ValidKey(p.SessionID):
		return fmt.Errorf("%w: unsafe session id %q", ErrInvalidChunk, p.SessionID)
	case p.Total <= 0:
		return fmt.Errorf("%w: total must be positive, got %d", ErrInvalidChunk, p.Total)
	case p.Index < 0 || p.Index >= p.Total:
		return fmt.Errorf("%w: index %d outside [0, %d)", ErrInvalidChunk, p.Index, p.Total)
	case p.Data == nil:
		return fmt.Errorf("%w: missing data", ErrInvalidChunk)
	}
	return nil
}
