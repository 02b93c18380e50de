// Package report aggregates a finished pipeline run into its user-visible
// summary: a complete per-job, per-cell outcome table, the overall status
// and the process exit code.
//
// The table is always complete, even on partial failure or cancellation;
// the exit code is the only fatal signal handed to the invoking environment.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/vk/pipegrid/internal/run"
)

// timeRound keeps the duration line readable.
const timeRound = 10 * time.Millisecond

// Exit codes by overall outcome.
const (
	ExitSucceeded = 0
	ExitFailed    = 1
	ExitCanceled  = 2
)

// Report renders the outcome table of a run to w and returns the overall
// status with its exit code.
func Report(w io.Writer, r *run.PipelineRun) (run.Outcome, int) {
	overall := r.Overall()

	fmt.Fprintf(w, "Pipeline %s, run %s (%s on %q): %s\n\n", r.Pipeline, r.ID, r.Event, r.Branch, overall)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tCELL\tOUTCOME\tDETAIL")
	for _, job := range r.Jobs {
		// Cell-level detail is never collapsed into the job summary.
		if len(job.Cells) == 0 {
			fmt.Fprintf(tw, "%s\t-\t%s\t\n", job.Job, job.Outcome)
			continue
		}
		fmt.Fprintf(tw, "%s\t\t%s\t\n", job.Job, job.Outcome)
		for _, cell := range job.Cells {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", cell.Cell.Name, cell.Outcome, cell.Err)
		}
	}
	tw.Flush()

	if !r.Finished.IsZero() && r.Finished.After(r.Started) {
		fmt.Fprintf(w, "\nDuration: %s\n", r.Finished.Sub(r.Started).Round(timeRound))
	}

	return overall, ExitCode(overall)
}

// ExitCode maps an overall outcome to the process exit code: zero only for
// a fully succeeded run.
func ExitCode(o run.Outcome) int {
	switch o {
	case run.OutcomeSucceeded:
		return ExitSucceeded
	case run.OutcomeCanceled:
		return ExitCanceled
	default:
		return ExitFailed
	}
}
