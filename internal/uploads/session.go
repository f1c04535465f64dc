package uploads

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	metaFile   = "meta.json"
	partPrefix = "part-"
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidKey reports whether id can be used as a path segment for staging and
// object storage.
func ValidKey(id string) bool {
	return safeKey.MatchString(id)
}

// Part is one chunk of a presentation upload.
type Part struct {
	TenantID  string
	SessionID string
	Index     int
	Total     int
	Filename  string
	Data      io.Reader
}

// Receipt acknowledges a submitted part.
type Receipt struct {
	Accepted bool   `json:"accepted"`
	Complete bool   `json:"complete"`
	Received int    `json:"received"`
	Total    int    `json:"total"`
	JobID    string `json:"job_id,omitempty"`
}

// SessionInfo describes an in-flight upload session.
type SessionInfo struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Total     int       `json:"total"`
	Received  int       `json:"received"`
	Filename  string    `json:"filename,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type meta struct {
	TenantID string `json:"tenant_id"`
	Total    int    `json:"total"`
	Filename string `json:"filename,omitempty"`
}

// session is the staging state of one upload. mu serializes every operation
// on the session; done is set once the session has been handed off or purged
// and the staging directory no longer belongs to it.
type session struct {
	mu       sync.Mutex
	id       string
	dir      string
	meta     meta
	received map[int]struct{}
	updated  time.Time
	done     bool
}

func newSession(id, dir string, m meta) *session {
	return &session{
		id:       id,
		dir:      dir,
		meta:     m,
		received: make(map[int]struct{}),
		updated:  time.Now(),
	}
}

// loadSession rebuilds a session from its staging directory.
func loadSession(id, dir string) (*session, error) {
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, err
	}

	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", metaFile, err)
	}

	s := newSession(id, dir, m)
	if info, err := os.Stat(dir); err == nil {
		s.updated = info.ModTime()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, partPrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(name, partPrefix))
		if err != nil || idx < 0 || idx >= m.Total {
			continue
		}
		s.received[idx] = struct{}{}
		if info, err := e.Info(); err == nil && info.ModTime().After(s.updated) {
			s.updated = info.ModTime()
		}
	}
	return s, nil
}

func (s *session) complete() bool {
	return len(s.received) == s.meta.Total
}

func (s *session) partPath(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s%06d", partPrefix, index))
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:        s.id,
		TenantID:  s.meta.TenantID,
		Total:     s.meta.Total,
		Received:  len(s.received),
		Filename:  s.meta.Filename,
		UpdatedAt: s.updated,
	}
}

func (s *session) saveMeta() error {
	data, err := json.Marshal(s.meta)
	if err != nil {
		return err
	}
	_, err = writeAtomic(filepath.Join(s.dir, metaFile), func(w io.Writer) (int64, error) {
		n, err := w.Write(data)
		return int64(n), err
	})
	return err
}

// writePart stages data for index, replacing any earlier copy.
func (s *session) writePart(index int, data io.Reader) (int64, error) {
	return writeAtomic(s.partPath(index), func(w io.Writer) (int64, error) {
		n, err := io.Copy(w, data)
		if err == nil && n == 0 {
			err = fmt.Errorf("%w: part %d is empty", ErrInvalidChunk, index)
		}
		return n, err
	})
}

// writeAtomic writes through a temp file in the destination directory and
// renames it into place so readers never observe a partial file.
func writeAtomic(path string, write func(io.Writer) (int64, error)) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := write(tmp)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, err
	}
	return n, nil
}

// extension returns the lower-cased file extension of a client filename.
func extension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 || !safeKey.MatchString(ext[1:]) {
		return ".bin"
	}
	return ext
}
