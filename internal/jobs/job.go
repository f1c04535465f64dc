// Package jobs runs the analysis pipeline for assembled presentations and
// persists a pollable status document per tenant.
package jobs

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/orator/internal/insight"
	"github.com/JaimeStill/orator/internal/rubric"
	"github.com/JaimeStill/orator/internal/transcription"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}

// AnalysisResult is the persisted outcome of a completed job.
type AnalysisResult struct {
	Transcript      string                    `json:"transcript"`
	Utterances      []transcription.Utterance `json:"utterances,omitempty"`
	Seller          string                    `json:"seller,omitempty"`
	DurationSeconds float64                   `json:"duration_seconds"`
	Insight         *insight.Insight          `json:"insight,omitempty"`
	rubric.Report
}

// StatusDocument is the per-tenant record a client polls. Result is set only
// when Status is done and ErrorDetail only when Status is error.
type StatusDocument struct {
	JobID       uuid.UUID       `json:"job_id"`
	TenantID    string          `json:"tenant_id"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Result      *AnalysisResult `json:"result,omitempty"`
	ErrorDetail string          `json:"error_detail,omitempty"`
}

// Event is published on every status transition.
type Event struct {
	JobID          uuid.UUID `json:"job_id"`
	TenantID       string    `json:"tenant_id"`
	Status         Status    `json:"status"`
	ErrorDetail    string    `json:"error_detail,omitempty"`
	AggregateScore *float64  `json:"aggregate_score,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func newEvent(doc StatusDocument) Event {
	e := Event{
		JobID:       doc.JobID,
		TenantID:    doc.TenantID,
		Status:      doc.Status,
		ErrorDetail: doc.ErrorDetail,
		Timestamp:   doc.UpdatedAt,
	}
	if doc.Result != nil {
		score := doc.Result.AggregateScore
		e.AggregateScore = &score
	}
	return e
}

var tenantKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

func validTenant(id string) bool {
	return tenantKey.MatchString(id)
}
