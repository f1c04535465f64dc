package uploads

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const markerExt = ".json"

// tombstone remembers a completed session so late or repeated parts are
// acknowledged without a second handoff. It is kept in memory and as a
// marker file under <staging>/completed so it survives restarts.
type tombstone struct {
	TenantID    string    `json:"tenant_id"`
	Total       int       `json:"total"`
	JobID       uuid.UUID `json:"job_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (t tombstone) receipt() Receipt {
	return Receipt{
		Accepted: true,
		Complete: true,
		Received: t.Total,
		Total:    t.Total,
		JobID:    t.JobID.String(),
	}
}

func (a *Assembler) completedDir() string {
	return filepath.Join(a.cfg.StagingDir, "completed")
}

func (a *Assembler) markerPath(id string) string {
	return filepath.Join(a.completedDir(), id+markerExt)
}

// remember records t for sessionID. A marker that cannot be written is
// logged; the in-memory entry still covers this process.
func (a *Assembler) remember(sessionID string, t tombstone) {
	a.completed.Set(sessionID, t, cache.DefaultExpiration)

	data, err := json.Marshal(t)
	if err == nil {
		err = os.MkdirAll(a.completedDir(), 0o755)
	}
	if err == nil {
		_, err = writeAtomic(a.markerPath(sessionID), func(w io.Writer) (int64, error) {
			n, err := w.Write(data)
			return int64(n), err
		})
	}
	if err != nil {
		a.logger.Warn("persist completion marker failed", "session_id", sessionID, "error", err)
	}
}

// recall finds the tombstone of sessionID in memory or on disk. Markers
// older than CompletedTTL are treated as absent.
func (a *Assembler) recall(sessionID string) (tombstone, bool) {
	if v, ok := a.completed.Get(sessionID); ok {
		return v.(tombstone), true
	}

	t, err := readMarker(a.markerPath(sessionID))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("unreadable completion marker", "session_id", sessionID, "error", err)
		}
		return tombstone{}, false
	}

	remaining := time.Until(t.CompletedAt.Add(a.cfg.CompletedTTL))
	if remaining <= 0 {
		return tombstone{}, false
	}

	a.completed.Set(sessionID, t, remaining)
	return t, true
}

// pruneMarkers removes markers completed before cutoff and returns how many
// were removed.
func (a *Assembler) pruneMarkers(cutoff time.Time) int {
	entries, err := os.ReadDir(a.completedDir())
	if err != nil {
		return 0
	}

	pruned := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, markerExt) {
			continue
		}

		path := filepath.Join(a.completedDir(), name)
		t, err := readMarker(path)
		if err == nil && !t.CompletedAt.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			pruned++
		}
	}
	return pruned
}

func readMarker(path string) (tombstone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tombstone{}, err
	}

	var t tombstone
	if err := json.Unmarshal(data, &t); err != nil {
		return tombstone{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return t, nil
}
