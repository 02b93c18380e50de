// Package testutil provides shared helpers for pipegrid's tests: a scripted
// step executor, a thread-safe log buffer and an app-level harness.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/pipegrid/internal/localexec"
)

// ScriptedExecutor is a step executor double. Commands containing one of the
// FailOn substrings fail; everything else succeeds. Every invocation is
// recorded for assertions.
type ScriptedExecutor struct {
	// FailOn lists command substrings that should fail.
	FailOn []string
	// Started, when non-nil, receives each spec as its step begins. Used by
	// cancellation tests to know work is in flight.
	Started chan localexec.StepSpec
	// Release, when non-nil, blocks every step until it is closed or the
	// step context dies.
	Release chan struct{}

	mu    sync.Mutex
	calls []localexec.StepSpec
}

// RunStep implements localexec.Executor.
func (e *ScriptedExecutor) RunStep(ctx context.Context, spec localexec.StepSpec) error {
	e.mu.Lock()
	e.calls = append(e.calls, spec)
	e.mu.Unlock()

	if e.Started != nil {
		select {
		case e.Started <- spec:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if e.Release != nil {
		select {
		case <-e.Release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, substr := range e.FailOn {
		if strings.Contains(spec.Command, substr) {
			return fmt.Errorf("scripted failure for %q", spec.Command)
		}
	}
	return nil
}

// Calls returns a snapshot of every recorded invocation.
func (e *ScriptedExecutor) Calls() []localexec.StepSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]localexec.StepSpec, len(e.calls))
	copy(out, e.calls)
	return out
}

// CallsMatching counts recorded commands containing substr.
func (e *ScriptedExecutor) CallsMatching(substr string) int {
	n := 0
	for _, c := range e.Calls() {
		if strings.Contains(c.Command, substr) {
			n++
		}
	}
	return n
}
