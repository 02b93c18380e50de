// Package graph implements the directed acyclic job graph: identities,
// dependency edges and the write-once outcome table of one pipeline run.
//
// All operations on the graph are concurrency-safe. The outcome table is the
// only state shared between concurrently completing jobs; each entry is
// written exactly once, by the single worker that finished the job.
package graph

import (
	"fmt"
	"sync"

	"github.com/vk/pipegrid/internal/run"
)

// Graph is a collection of jobs and their dependency edges.
type Graph struct {
	// mutex protects the nodes map and the per-node outcome fields.
	mutex sync.RWMutex
	nodes map[string]*node
	// order remembers job declaration order for deterministic iteration.
	order []string
}

// node represents a single job vertex. It is un-exported to enforce
// interaction with the graph via the public API (using job names), not by
// direct struct manipulation.
type node struct {
	id string
	// deps holds the jobs this job depends on (predecessors).
	deps map[string]*node
	// dependents holds the jobs that depend on this job (successors).
	dependents map[string]*node
	// outcome is write-once; OutcomeNone until the job terminates.
	outcome run.Outcome
}

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*node)}
}

// AddJob adds a job with the given identity. It fails with ErrDuplicateJob
// if the identity already exists.
func (g *Graph) AddJob(id string) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, id)
	}
	g.nodes[id] = &node{
		id:         id,
		deps:       make(map[string]*node),
		dependents: make(map[string]*node),
	}
	g.order = append(g.order, id)
	return nil
}

// AddDependency records that job id depends on job dependsOn. It fails with
// ErrUnknownJob if either endpoint is undeclared, and with ErrCycle if the
// new edge would make dependsOn reachable from itself. A rejected edge
// leaves the graph unchanged.
func (g *Graph) AddDependency(id, dependsOn string) error {
	if id == dependsOn {
		return fmt.Errorf("%w: %s depends on itself", ErrCycle, id)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	from, ok := g.nodes[dependsOn]
	if !ok {
		return fmt.Errorf("%w: %s (referenced by %s)", ErrUnknownJob, dependsOn, id)
	}
	to, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}

	// Incremental reachability check: the edge dependsOn -> id closes a
	// cycle iff dependsOn is already reachable from id.
	if reaches(to, from, make(map[string]bool)) {
		return fmt.Errorf("%w: adding %s -> %s", ErrCycle, dependsOn, id)
	}

	to.deps[dependsOn] = from
	from.dependents[id] = to
	return nil
}

// reaches walks dependents depth-first and reports whether target is
// reachable from n.
func reaches(n, target *node, visited map[string]bool) bool {
	if n == target {
		return true
	}
	visited[n.id] = true
	for _, dep := range n.dependents {
		if visited[dep.id] {
			continue
		}
		if reaches(dep, target, visited) {
			return true
		}
	}
	return false
}

// Jobs returns all job identities in declaration order.
func (g *Graph) Jobs() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of jobs in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Dependencies returns the identities the given job depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return g.orderedSubset(n.deps), nil
}

// Dependents returns the identities that depend on the given job.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	return g.orderedSubset(n.dependents), nil
}

// orderedSubset filters the declaration order down to the given set, keeping
// iteration deterministic. Callers must hold the read lock.
func (g *Graph) orderedSubset(set map[string]*node) []string {
	out := make([]string, 0, len(set))
	for _, id := range g.order {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// SetOutcome records a job's terminal outcome. The table is write-once: a
// second write for the same job fails with ErrOutcomeAlreadySet.
func (g *Graph) SetOutcome(id string, o run.Outcome) error {
	if !o.Terminal() {
		return fmt.Errorf("outcome for %s is not terminal", id)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	if n.outcome.Terminal() {
		return fmt.Errorf("%w: %s is already %s", ErrOutcomeAlreadySet, id, n.outcome)
	}
	n.outcome = o
	return nil
}

// Outcome returns the recorded outcome for a job; OutcomeNone when the job
// has not terminated yet.
func (g *Graph) Outcome(id string) run.Outcome {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return n.outcome
	}
	return run.OutcomeNone
}

// DependencyOutcomes returns the outcomes of all dependencies of a job, in
// declaration order.
func (g *Graph) DependencyOutcomes(id string) ([]run.Outcome, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, id)
	}
	outcomes := make([]run.Outcome, 0, len(n.deps))
	for _, depID := range g.orderedSubset(n.deps) {
		outcomes = append(outcomes, g.nodes[depID].outcome)
	}
	return outcomes, nil
}

// IsReady reports whether every dependency of the job holds a terminal
// outcome and the job itself does not.
func (g *Graph) IsReady(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok || n.outcome.Terminal() {
		return false
	}
	for _, dep := range n.deps {
		if !dep.outcome.Terminal() {
			return false
		}
	}
	return true
}

// Remaining returns how many jobs have no terminal outcome yet.
func (g *Graph) Remaining() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	remaining := 0
	for _, n := range g.nodes {
		if !n.outcome.Terminal() {
			remaining++
		}
	}
	return remaining
}
