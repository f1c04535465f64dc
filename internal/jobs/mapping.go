package jobs

import (
	"net/url"
	"strings"
	"time"

	"github.com/JaimeStill/orator/pkg/query"
	"github.com/JaimeStill/orator/pkg/repository"
)

var projection = query.
	NewProjection("public", "analysis_jobs", "j").
	Project("id", "ID").
	Project("tenant_id", "TenantID").
	Project("status", "Status").
	Project("error_detail", "ErrorDetail").
	Project("aggregate_score", "AggregateScore").
	Project("duration_seconds", "DurationSeconds").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters narrows ledger listings. Zero fields are ignored.
type Filters struct {
	TenantID *string    `json:"tenant_id,omitempty"`
	Statuses []string   `json:"statuses,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("TenantID", f.TenantID).
		WhereAny("Status", f.Statuses).
		WhereCompare("CreatedAt", ">=", f.Since)
}

// FiltersFromQuery extracts filters from URL query parameters. status takes a
// comma-separated list; unknown statuses and malformed RFC 3339 since values
// are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("tenant_id"); t != "" {
		f.TenantID = &t
	}

	for s := range strings.SplitSeq(values.Get("status"), ",") {
		if st := Status(strings.TrimSpace(s)); st.Valid() {
			f.Statuses = append(f.Statuses, string(st))
		}
	}

	if s := values.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			f.Since = &t
		}
	}

	return f
}

func scanJob(s repository.Scanner) (Job, error) {
	var j Job
	err := s.Scan(
		&j.ID,
		&j.TenantID,
		&j.Status,
		&j.ErrorDetail,
		&j.AggregateScore,
		&j.DurationSeconds,
		&j.CreatedAt,
		&j.UpdatedAt,
	)
	return j, err
}
