package db

import (
	"time"

	"github.com/google/uuid"
)

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusSkipped   = "skipped"
	RunStatusFailed    = "failed"
)

// Run represents an evaluation run record
type Run struct {
	ID               uuid.UUID  `json:"id"`
	Query            string     `json:"query"`
	PageURL          string     `json:"page_url"`
	Status           string     `json:"status"`
	LinksFound       int        `json:"links_found"`
	DocumentsFetched int        `json:"documents_fetched"`
	FetchFailures    int        `json:"fetch_failures"`
	TotalMatches     int        `json:"total_matches"`
	Error            *string    `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.CreatedAt)
}

// RunSummary holds the counters written when a run finishes.
type RunSummary struct {
	Status           string
	Query            string
	LinksFound       int
	DocumentsFetched int
	FetchFailures    int
	TotalMatches     int
	Error            string
}

// ResultRow is one stored evaluation_results row.
type ResultRow struct {
	Position        int
	ResultID        string
	Filename        string
	IsMatch         bool
	Score           int
	Explanation     string
	Snippet         string
	LinkedInProfile bool
}
