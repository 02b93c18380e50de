package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/history"
	"github.com/vk/pipegrid/internal/report"
	"github.com/vk/pipegrid/internal/run"
	"github.com/vk/pipegrid/internal/scheduler"
	"github.com/vk/pipegrid/internal/trigger"
)

// Run executes one pipeline run end to end and returns its overall outcome.
// A pipeline whose trigger does not fire returns Succeeded without
// dispatching anything. The error is reserved for construction-time and
// infrastructure failures; job failures travel in the outcome.
func (a *App) Run(ctx context.Context) (run.Outcome, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.StatusPort > 0 {
		a.startStatusServer(a.config.StatusPort)
	}

	decision, err := trigger.Evaluate(a.model.Triggers, trigger.Request{
		Event:  run.Event(a.config.Event),
		Branch: a.config.Branch,
	})
	if err != nil {
		return run.OutcomeNone, fmt.Errorf("evaluating triggers: %w", err)
	}
	if !decision.Fire {
		a.logger.Info("Pipeline not triggered.", "reason", decision.Reason)
		fmt.Fprintf(a.outW, "Pipeline %s not triggered: %s\n", a.model.Name, decision.Reason)
		return run.OutcomeSucceeded, nil
	}
	a.logger.Info("🚀 Pipeline triggered.", "reason", decision.Reason, "auto_cancel", decision.AutoCancel)

	if a.config.HistoryPath != "" {
		store, err := history.NewSQLiteStore(a.config.HistoryPath)
		if err != nil {
			return run.OutcomeNone, fmt.Errorf("opening history store: %w", err)
		}
		if err := store.Migrate(); err != nil {
			return run.OutcomeNone, fmt.Errorf("migrating history store: %w", err)
		}
		defer store.Close()
		a.setHistory(store)
	}

	sched, err := scheduler.New(a.model, a.exec, scheduler.Options{
		Workers:     a.config.Workers,
		FailFast:    a.config.FailFast,
		GracePeriod: a.config.GracePeriod,
	})
	if err != nil {
		return run.OutcomeNone, fmt.Errorf("building pipeline: %w", err)
	}

	pipelineRun := run.NewPipelineRun(a.model.Name, run.Event(a.config.Event), a.config.Branch)
	a.logger.Info("Starting pipeline run.", "run_id", pipelineRun.ID, "jobs", len(a.model.Jobs))

	results, err := sched.Run(ctx)
	if err != nil {
		return run.OutcomeNone, fmt.Errorf("executing pipeline: %w", err)
	}
	pipelineRun.Jobs = results
	pipelineRun.Finished = time.Now().UTC()

	overall, _ := report.Report(a.outW, pipelineRun)
	a.logger.Info("🏁 Pipeline run finished.", "run_id", pipelineRun.ID, "overall", overall.String())

	a.publishBundles(pipelineRun.Bundles(a.resultRefs()))

	if store := a.historyStore(); store != nil {
		if err := store.SaveRun(pipelineRun); err != nil {
			// History is best-effort; the run itself already finished.
			a.logger.Error("Failed to record run history.", "error", err)
		}
	}

	return overall, nil
}

// resultRefs collects each job's declared result references for bundling.
func (a *App) resultRefs() map[string][]string {
	refs := make(map[string][]string)
	for _, j := range a.model.Jobs {
		if len(j.Results) > 0 {
			refs[j.Name] = j.Results
		}
	}
	return refs
}
