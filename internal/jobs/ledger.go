package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/orator/pkg/pagination"
	"github.com/JaimeStill/orator/pkg/query"
	"github.com/JaimeStill/orator/pkg/repository"
)

// Job is one row of the job ledger.
type Job struct {
	ID              uuid.UUID `json:"id"`
	TenantID        string    `json:"tenant_id"`
	Status          Status    `json:"status"`
	ErrorDetail     *string   `json:"error_detail,omitempty"`
	AggregateScore  *float64  `json:"aggregate_score,omitempty"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Ledger records every status transition for later listing.
type Ledger interface {
	Record(ctx context.Context, doc StatusDocument) error

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Job], error)

	Find(ctx context.Context, id uuid.UUID) (*Job, error)
}

type ledger struct {
	db         *sql.DB
	pagination pagination.Config
}

// NewLedger creates a Ledger stored in the analysis_jobs table.
func NewLedger(db *sql.DB, pagination pagination.Config) Ledger {
	return &ledger{
		db:         db,
		pagination: pagination,
	}
}

// Record upserts the job row. Rows that already reached a terminal status
// are left untouched and reported as ErrInvalidTransition.
func (l *ledger) Record(ctx context.Context, doc StatusDocument) error {
	q := `
		INSERT INTO analysis_jobs(id, tenant_id, status, error_detail, aggregate_score, duration_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			error_detail = EXCLUDED.error_detail,
			aggregate_score = EXCLUDED.aggregate_score,
			duration_seconds = EXCLUDED.duration_seconds,
			updated_at = EXCLUDED.updated_at
		WHERE analysis_jobs.status = 'processing'`

	var (
		detail   *string
		score    *float64
		duration *float64
	)
	if doc.ErrorDetail != "" {
		detail = &doc.ErrorDetail
	}
	if doc.Result != nil {
		score = &doc.Result.AggregateScore
		duration = &doc.Result.DurationSeconds
	}

	n, err := repository.ExecAffected(ctx, l.db, q,
		doc.JobID,
		doc.TenantID,
		string(doc.Status),
		detail,
		score,
		duration,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record job %s: %w", doc.JobID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: job %s already terminal", ErrInvalidTransition, doc.JobID)
	}
	return nil
}

func (l *ledger) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Job], error) {
	page.Normalize(l.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "TenantID")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	total, err := repository.QueryCount(ctx, l.db, countSQL, countArgs)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	jobs, err := repository.QueryMany(ctx, l.db, pageSQL, pageArgs, scanJob)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}

	result := pagination.NewPageResult(jobs, total, page.Page, page.PageSize)
	return &result, nil
}

func (l *ledger) Find(ctx context.Context, id uuid.UUID) (*Job, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	j, err := repository.QueryOne(ctx, l.db, q, args, scanJob)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, err)
	}
	return &j, nil
}
