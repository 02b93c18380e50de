// Package history persists finished pipeline runs for later inspection.
// The scheduler never depends on it; the app records a run after reporting.
package history

import (
	"time"

	"github.com/vk/pipegrid/internal/run"
)

// Record is the flattened, queryable form of one finished run.
type Record struct {
	ID       string    `json:"id"`
	Pipeline string    `json:"pipeline"`
	Event    string    `json:"event"`
	Branch   string    `json:"branch"`
	Overall  string    `json:"overall"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
}

// CellRecord is one cell outcome row belonging to a run.
type CellRecord struct {
	RunID   string `json:"runId"`
	Job     string `json:"job"`
	Cell    string `json:"cell"`
	Outcome string `json:"outcome"`
	Err     string `json:"error,omitempty"`
}

// Store is the run history backend.
type Store interface {
	// SaveRun persists a finished run with all its cell outcomes.
	SaveRun(r *run.PipelineRun) error
	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]Record, error)
	// ListCells returns the cell outcomes of one run.
	ListCells(runID string) ([]CellRecord, error)
	// Migrate creates the schema if it does not exist yet.
	Migrate() error
	Close() error
}
