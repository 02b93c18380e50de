package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/run"
)

func sampleRun() *run.PipelineRun {
	r := run.NewPipelineRun("evo-ci", run.EventPush, "master")
	r.Finished = r.Started.Add(1234 * time.Millisecond)
	r.Jobs = []run.JobResult{
		{Job: "Lint", Outcome: run.OutcomeSucceeded, Cells: []run.CellResult{
			{Cell: run.Cell{Name: "Lint"}, Outcome: run.OutcomeSucceeded},
		}},
		{Job: "Test", Outcome: run.OutcomeFailed, Cells: []run.CellResult{
			{Cell: run.Cell{Name: "Test[linux]"}, Outcome: run.OutcomeFailed, Err: "exit status 1"},
			{Cell: run.Cell{Name: "Test[mac]"}, Outcome: run.OutcomeSucceeded},
		}},
		{Job: "Publish", Outcome: run.OutcomeSkipped},
	}
	return r
}

func TestReportTable(t *testing.T) {
	var sb strings.Builder
	overall, code := Report(&sb, sampleRun())

	assert.Equal(t, run.OutcomeFailed, overall)
	assert.Equal(t, ExitFailed, code)

	out := sb.String()
	assert.Contains(t, out, "Pipeline evo-ci")
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "OUTCOME")

	// Every job and every cell gets its own row, failure detail included.
	assert.Contains(t, out, "Test[linux]")
	assert.Contains(t, out, "Test[mac]")
	assert.Contains(t, out, "exit status 1")
	assert.Contains(t, out, "Publish")
	assert.Contains(t, out, "Skipped")
	assert.Contains(t, out, "Duration: 1.23s")
}

func TestReportWithoutFinishTimeOmitsDuration(t *testing.T) {
	r := sampleRun()
	r.Finished = time.Time{}

	var sb strings.Builder
	Report(&sb, r)
	assert.NotContains(t, sb.String(), "Duration:")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSucceeded, ExitCode(run.OutcomeSucceeded))
	assert.Equal(t, ExitFailed, ExitCode(run.OutcomeFailed))
	assert.Equal(t, ExitCanceled, ExitCode(run.OutcomeCanceled))
}

func TestReportCanceledRun(t *testing.T) {
	r := run.NewPipelineRun("evo-ci", run.EventPullRequest, "feature/x")
	r.Jobs = []run.JobResult{
		{Job: "Build", Outcome: run.OutcomeSucceeded},
		{Job: "Test", Outcome: run.OutcomeCanceled},
	}

	var sb strings.Builder
	overall, code := Report(&sb, r)
	require.Equal(t, run.OutcomeCanceled, overall)
	assert.Equal(t, ExitCanceled, code)
}
