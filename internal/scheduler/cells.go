package scheduler

import (
	"context"
	"strings"
	"sync"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/localexec"
	"github.com/vk/pipegrid/internal/run"
)

// runCells dispatches every cell of a job in enumeration order, bounded by
// the job's own maxParallel and the pipeline-wide cell ceiling. Completion
// order is unconstrained; results land at each cell's ordinal slot.
func (s *Scheduler) runCells(runCtx, cellCtx context.Context, js *jobState, cells []run.Cell) []run.CellResult {
	results := make([]run.CellResult, len(cells))

	var jobSem chan struct{}
	if js.job.MaxParallel > 0 {
		jobSem = make(chan struct{}, js.job.MaxParallel)
	}

	var wg sync.WaitGroup
	for i, cell := range cells {
		wg.Add(1)
		go func(i int, cell run.Cell) {
			defer wg.Done()

			// Cells that never obtain a slot before cancellation go
			// straight to Canceled without touching the executor.
			if !acquire(runCtx, jobSem) {
				results[i] = run.CellResult{Cell: cell, Outcome: run.OutcomeCanceled}
				return
			}
			defer release(jobSem)
			if !acquire(runCtx, s.cellSem) {
				results[i] = run.CellResult{Cell: cell, Outcome: run.OutcomeCanceled}
				return
			}
			defer release(s.cellSem)
			if runCtx.Err() != nil {
				results[i] = run.CellResult{Cell: cell, Outcome: run.OutcomeCanceled}
				return
			}

			results[i] = s.runCell(cellCtx, js.job, cell)
		}(i, cell)
	}
	wg.Wait()
	return results
}

// acquire takes one token, giving up when the run context is done. A nil
// semaphore always succeeds.
func acquire(ctx context.Context, sem chan struct{}) bool {
	if sem == nil {
		return ctx.Err() == nil
	}
	select {
	case sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func release(sem chan struct{}) {
	if sem != nil {
		<-sem
	}
}

// runCell executes one cell's steps in order. The cell's outcome is the
// first non-ignored step failure, Succeeded when every step succeeds, or
// Canceled when the cell context dies mid-flight.
func (s *Scheduler) runCell(ctx context.Context, job *config.Job, cell run.Cell) run.CellResult {
	logger := ctxlog.FromContext(ctx).With("cell", cell.Name)
	logger.Info("▶️ Starting cell.")

	result := run.CellResult{Cell: cell, Outcome: run.OutcomeSucceeded}
	failed := false

	for _, step := range job.Steps {
		name := step.Name
		if name == "" {
			name = step.Run
		}

		// A failed cell skips the rest of its steps unless a step insists
		// on running regardless of prior failure.
		if failed && !step.AlwaysRun {
			result.Steps = append(result.Steps, run.StepResult{Name: name, Outcome: run.OutcomeSkipped})
			continue
		}
		if ctx.Err() != nil {
			result.Steps = append(result.Steps, run.StepResult{Name: name, Outcome: run.OutcomeCanceled})
			result.Outcome = run.OutcomeCanceled
			continue
		}

		env := make(map[string]string, len(cell.Bindings)+len(step.Env))
		for k, v := range cell.Bindings {
			env[k] = v
		}
		for k, v := range step.Env {
			env[k] = substitute(v, cell.Bindings)
		}

		err := s.exec.RunStep(ctx, localexec.StepSpec{
			Command: substitute(step.Run, cell.Bindings),
			Env:     env,
			WorkDir: substitute(step.WorkDir, cell.Bindings),
			Pool:    job.Pool,
		})
		switch {
		case err == nil:
			result.Steps = append(result.Steps, run.StepResult{Name: name, Outcome: run.OutcomeSucceeded})
		case ctx.Err() != nil:
			logger.Warn("Step canceled.", "step", name)
			result.Steps = append(result.Steps, run.StepResult{Name: name, Outcome: run.OutcomeCanceled})
			result.Outcome = run.OutcomeCanceled
		case step.ContinueOnError:
			logger.Warn("Step failed, continuing on error.", "step", name, "error", err)
			result.Steps = append(result.Steps, run.StepResult{Name: name, Outcome: run.OutcomeFailed, IgnoredFailure: true})
		default:
			logger.Warn("Step failed.", "step", name, "error", err)
			result.Steps = append(result.Steps, run.StepResult{Name: name, Outcome: run.OutcomeFailed})
			result.Err = err.Error()
			failed = true
		}
	}

	if failed && result.Outcome != run.OutcomeCanceled {
		result.Outcome = run.OutcomeFailed
	}
	switch result.Outcome {
	case run.OutcomeSucceeded:
		logger.Info("✅ Cell succeeded.")
	default:
		logger.Warn("Cell finished without success.", "outcome", result.Outcome.String())
	}
	return result
}

// substitute replaces $(name) references with the cell's bindings, leaving
// unknown references untouched so shell constructs survive.
func substitute(s string, bindings map[string]string) string {
	if !strings.Contains(s, "$(") {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, "$(")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start:], ")")
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		name := s[start+2 : start+end]
		if val, ok := bindings[name]; ok {
			b.WriteString(s[:start])
			b.WriteString(val)
		} else {
			b.WriteString(s[:start+end+1])
		}
		s = s[start+end+1:]
	}
}
