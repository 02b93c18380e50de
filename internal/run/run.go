// Package run holds the shared value types of a single pipeline run: outcomes,
// matrix cells, per-job results and the top-level PipelineRun container.
//
// The types here are deliberately plain data. They are produced by the
// scheduler, consumed by the reporter and the history store, and never carry
// behavior beyond aggregation, so every component observes the same run
// through the same immutable record.
package run

import (
	"time"

	"github.com/google/uuid"
)

// Event is the kind of trigger that started a pipeline run.
type Event string

const (
	EventPush        Event = "push"
	EventPullRequest Event = "pull_request"
	EventSchedule    Event = "schedule"
)

// Cell is one concrete matrix combination of a job, dispatched as an
// independent execution unit. Cells are derived by the matrix expander and
// never declared directly.
type Cell struct {
	// Job is the name of the job this cell belongs to.
	Job string
	// Name is the stable display name, e.g. "Test[linux, py313]".
	Name string
	// Bindings holds the substitution variables merged across all axes.
	Bindings map[string]string
	// Ordinal is the cell's position in the expander's enumeration order.
	Ordinal int
}

// StepResult records the terminal status of one step inside a cell.
type StepResult struct {
	Name           string
	Outcome        Outcome
	IgnoredFailure bool
}

// CellResult records the terminal status of one dispatched cell.
type CellResult struct {
	Cell    Cell
	Outcome Outcome
	Steps   []StepResult
	// Err holds the failure message of the first fatal step, if any.
	Err string
}

// JobResult aggregates all cell results of a job into its terminal outcome.
type JobResult struct {
	Job     string
	Outcome Outcome
	Cells   []CellResult
}

// PipelineRun is the top-level container for one trigger event. It owns the
// full set of job results and is discarded after reporting.
type PipelineRun struct {
	ID       string
	Pipeline string
	Event    Event
	Branch   string
	Started  time.Time
	Finished time.Time

	// Jobs holds one result per declared job, in declaration order.
	Jobs []JobResult
}

// NewPipelineRun creates an empty run record with a fresh identifier.
func NewPipelineRun(pipeline string, event Event, branch string) *PipelineRun {
	return &PipelineRun{
		ID:       uuid.NewString(),
		Pipeline: pipeline,
		Event:    event,
		Branch:   branch,
		Started:  time.Now().UTC(),
	}
}

// Overall reduces all job outcomes into the pipeline outcome: Failed if any
// job failed, otherwise Canceled if any job was canceled, otherwise Succeeded.
func (r *PipelineRun) Overall() Outcome {
	overall := OutcomeSucceeded
	for _, j := range r.Jobs {
		switch j.Outcome {
		case OutcomeFailed:
			return OutcomeFailed
		case OutcomeCanceled:
			overall = OutcomeCanceled
		}
	}
	return overall
}
