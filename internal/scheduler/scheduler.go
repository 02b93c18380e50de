// Package scheduler drives a pipeline run: it walks the job graph, gates
// each ready job through its condition, expands matrices into cells and
// dispatches them under the configured concurrency bounds, then aggregates
// cell outcomes into job outcomes until the graph is exhausted.
//
// Failures never cross job boundaries as errors. A failed cell is an
// Outcome; dependents observe it through the graph's outcome table and the
// condition evaluator, nothing else.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/pipegrid/internal/condition"
	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/ctxlog"
	"github.com/vk/pipegrid/internal/graph"
	"github.com/vk/pipegrid/internal/localexec"
	"github.com/vk/pipegrid/internal/run"
)

// Options configures one scheduler instance.
type Options struct {
	// Workers is the pipeline-wide ceiling on simultaneously running cells.
	Workers int
	// FailFast cancels the whole run after the first unhandled job failure,
	// marking every still-pending job Canceled. The default is
	// continue-on-error: independent jobs run to completion.
	FailFast bool
	// GracePeriod is how long in-flight cells may drain after cancellation
	// before they are force-terminated.
	GracePeriod time.Duration
}

// DefaultWorkers is the cell ceiling used when Options.Workers is zero.
const DefaultWorkers = 10

// Scheduler executes one pipeline model. It is single-use: Run may be
// called exactly once.
type Scheduler struct {
	graph *graph.Graph
	exec  localexec.Executor
	opts  Options

	jobs map[string]*jobState
	// order mirrors job declaration order for result assembly.
	order []string

	// cellSem holds the global cell-concurrency tokens.
	cellSem chan struct{}

	wg sync.WaitGroup

	resultsMu sync.Mutex
	results   map[string]run.JobResult
}

// jobState is the per-job scheduling record.
type jobState struct {
	job  *config.Job
	pred condition.Predicate
	// state tracks Pending → Expanding → Dispatched → Done.
	state atomic.Int32
	// depCount counts dependencies without a terminal outcome.
	depCount atomic.Int32
}

func (js *jobState) setState(s run.State) {
	js.state.Store(int32(s))
}

// New validates the model's job references and builds the dependency graph.
// Construction-time errors (duplicate jobs, unknown references, cycles)
// reject the pipeline before anything runs.
func New(model *config.Model, exec localexec.Executor, opts Options) (*Scheduler, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}

	g := graph.New()
	s := &Scheduler{
		graph:   g,
		exec:    exec,
		opts:    opts,
		jobs:    make(map[string]*jobState, len(model.Jobs)),
		cellSem: make(chan struct{}, opts.Workers),
		results: make(map[string]run.JobResult, len(model.Jobs)),
	}

	for _, j := range model.Jobs {
		if err := g.AddJob(j.Name); err != nil {
			return nil, fmt.Errorf("building job graph: %w", err)
		}
		pred, err := condition.Parse(j.Condition)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", j.Name, err)
		}
		s.jobs[j.Name] = &jobState{job: j, pred: pred}
		s.order = append(s.order, j.Name)
	}
	for _, j := range model.Jobs {
		for _, dep := range j.DependsOn {
			if err := g.AddDependency(j.Name, dep); err != nil {
				return nil, fmt.Errorf("building job graph: %w", err)
			}
		}
		s.jobs[j.Name].depCount.Store(int32(len(j.DependsOn)))
	}
	return s, nil
}

// Run executes the whole graph and returns one result per job, in
// declaration order. The result set is always complete: on cancellation or
// failure every job still carries a terminal outcome. The returned error is
// reserved for internal invariant violations, not job failures.
func (s *Scheduler) Run(ctx context.Context) ([]run.JobResult, error) {
	logger := ctxlog.FromContext(ctx)

	// runCtx governs dispatch: once it is done, no new cell starts and
	// pending jobs terminate Canceled. It trips on external cancellation
	// or, under fail-fast, on the first unhandled failure.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// cellCtx governs in-flight cells. It survives runCtx by the grace
	// period so running work may drain before being force-terminated.
	cellCtx, forceCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer forceCancel()
	drained := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			timer := time.NewTimer(s.opts.GracePeriod)
			defer timer.Stop()
			select {
			case <-timer.C:
				forceCancel()
			case <-drained:
			}
		case <-drained:
		}
	}()

	readyChan := make(chan *jobState, len(s.jobs))
	rootCount := 0
	for _, id := range s.order {
		js := s.jobs[id]
		if js.depCount.Load() == 0 {
			readyChan <- js
			rootCount++
		}
	}
	logger.Debug("Scheduler initialized.", "jobs", len(s.jobs), "roots", rootCount, "cell_ceiling", s.opts.Workers)

	s.wg.Add(len(s.jobs))
	for i := 0; i < len(s.jobs); i++ {
		go s.jobWorker(runCtx, cellCtx, readyChan, cancel, i)
	}

	s.wg.Wait()
	close(readyChan)
	close(drained)

	if remaining := s.graph.Remaining(); remaining != 0 {
		return nil, fmt.Errorf("scheduler finished with %d jobs lacking a terminal outcome", remaining)
	}

	results := make([]run.JobResult, 0, len(s.order))
	s.resultsMu.Lock()
	defer s.resultsMu.Unlock()
	for _, id := range s.order {
		results = append(results, s.results[id])
	}
	logger.Debug("Scheduler run complete.", "jobs", len(results))
	return results, nil
}
