package scheduler

import (
	"context"

	"github.com/vk/pipegrid/internal/condition"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/matrix"
	"github.com/vk/pipegrid/internal/run"
)

// jobWorker is the processing loop for one concurrent job slot. It picks
// ready jobs off the channel, gates them through the condition evaluator,
// dispatches their cells and records the aggregated outcome.
func (s *Scheduler) jobWorker(runCtx, cellCtx context.Context, readyChan chan *jobState, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(runCtx).With("workerID", workerID)

	for js := range readyChan {
		jobLogger := logger.With("job", js.job.Name)

		// A done run context means the pipeline was canceled or fail-fast
		// tripped: everything still pending terminates Canceled without
		// expansion, conditions included.
		if runCtx.Err() != nil {
			jobLogger.Warn("Run canceled, marking pending job Canceled.")
			s.finish(runCtx, readyChan, js, run.JobResult{Job: js.job.Name, Outcome: run.OutcomeCanceled})
			continue
		}

		depOutcomes, err := s.graph.DependencyOutcomes(js.job.Name)
		if err != nil {
			// Unreachable after construction validated every reference.
			jobLogger.Error("Dependency lookup failed.", "error", err)
			s.finish(runCtx, readyChan, js, run.JobResult{Job: js.job.Name, Outcome: run.OutcomeCanceled})
			continue
		}
		if condition.Evaluate(js.pred, depOutcomes) == condition.Skip {
			jobLogger.Info("⏭ Skipping job, condition not met.", "condition", js.pred.String())
			s.finish(runCtx, readyChan, js, run.JobResult{Job: js.job.Name, Outcome: run.OutcomeSkipped})
			continue
		}

		js.setState(run.StateExpanding)
		cells := matrix.Expand(js.job)
		jobLogger.Info("▶️ Dispatching job.", "cells", len(cells))

		js.setState(run.StateDispatched)
		cellResults := s.runCells(runCtx, cellCtx, js, cells)
		outcome := aggregate(js.job.ContinueOnError, cellResults)

		if outcome == run.OutcomeFailed && !js.job.ContinueOnError && s.opts.FailFast {
			jobLogger.Warn("🛑 Job failed with fail-fast enabled, canceling remaining jobs.")
			cancel()
		}

		switch outcome {
		case run.OutcomeSucceeded:
			jobLogger.Info("✅ Job succeeded.")
		default:
			jobLogger.Warn("Job finished without success.", "outcome", outcome.String())
		}
		s.finish(runCtx, readyChan, js, run.JobResult{Job: js.job.Name, Outcome: outcome, Cells: cellResults})
	}
}

// finish records a job's terminal outcome exactly once, stores its result
// and unlocks any dependents whose last dependency this was.
func (s *Scheduler) finish(ctx context.Context, readyChan chan *jobState, js *jobState, result run.JobResult) {
	logger := ctxlog.FromContext(ctx)

	js.setState(run.StateDone)
	if err := s.graph.SetOutcome(js.job.Name, result.Outcome); err != nil {
		// The write-once table makes double completion loud instead of racy.
		logger.Error("Outcome write rejected.", "job", js.job.Name, "error", err)
		s.wg.Done()
		return
	}

	s.resultsMu.Lock()
	s.results[js.job.Name] = result
	s.resultsMu.Unlock()

	dependents, err := s.graph.Dependents(js.job.Name)
	if err == nil {
		for _, dep := range dependents {
			if s.jobs[dep].depCount.Add(-1) == 0 {
				logger.Debug("Unlocking dependent job.", "job", dep)
				readyChan <- s.jobs[dep]
			}
		}
	}
	s.wg.Done()
}

// aggregate reduces cell outcomes into the job outcome. A non-ignored cell
// failure fails the job even when sibling cells were canceled mid-run; only
// a failure-free job with canceled cells reports Canceled. Failures don't
// count when the job carries continue-on-error.
func aggregate(continueOnError bool, cells []run.CellResult) run.Outcome {
	anyCanceled, anyFailed := false, false
	for _, c := range cells {
		switch c.Outcome {
		case run.OutcomeCanceled:
			anyCanceled = true
		case run.OutcomeFailed:
			anyFailed = true
		}
	}
	switch {
	case anyFailed && !continueOnError:
		return run.OutcomeFailed
	case anyCanceled:
		return run.OutcomeCanceled
	default:
		return run.OutcomeSucceeded
	}
}
