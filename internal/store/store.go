// Package store persists pipeline runs, their artifacts and the leads they
// produced.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/company"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ErrNotFound is returned when a run or artifact does not exist.
var ErrNotFound = eris.New("store: not found")

// RunStats counts the records produced by each step of a run. Filtered is
// the number of source records dropped by source filters before merging.
type RunStats struct {
	SearchTerms   int `json:"search_terms"`
	PlacesRecords int `json:"places_records"`
	Merged        int `json:"merged"`
	Filtered      int `json:"filtered"`
	Scored        int `json:"scored"`
	Qualified     int `json:"qualified"`
	Leads         int `json:"leads"`
	ValidLeads    int `json:"valid_leads"`
}

// Run is one pipeline execution.
type Run struct {
	ID                 string    `json:"id"`
	ProductDescription string    `json:"product_description"`
	Status             RunStatus `json:"status"`
	Stats              *RunStats `json:"stats,omitempty"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Artifact is a file written by a pipeline step.
type Artifact struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status RunStatus `json:"status,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for pipeline runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, productDescription string) (*Run, error)
	CompleteRun(ctx context.Context, runID string, stats RunStats) error
	FailRun(ctx context.Context, runID string, reason string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Artifacts
	SaveArtifact(ctx context.Context, a Artifact) error
	GetArtifact(ctx context.Context, runID, name string) (*Artifact, error)
	ListArtifacts(ctx context.Context, runID string) ([]Artifact, error)

	// Leads
	SaveLeads(ctx context.Context, runID string, leads []company.Lead) (int64, error)
	ListLeads(ctx context.Context, runID string) ([]company.Lead, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the Store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

// leadColumns is the column order of the leads table.
var leadColumns = []string{
	"run_id", "company_name", "domain", "likelihood_score", "name", "title", "email", "linkedin_url", "status",
}

func leadRow(runID string, l company.Lead) []any {
	return []any{
		runID, l.CompanyName, l.Domain, l.LikelihoodScore,
		l.Name, l.Title, l.Email, l.LinkedInURL, string(l.Status),
	}
}

func listLimit(n int) int {
	if n <= 0 || n > 1000 {
		return 100
	}
	return n
}
