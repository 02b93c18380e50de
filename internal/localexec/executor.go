// Package localexec is the step execution boundary: it runs one opaque
// command and reports only its exit status. The orchestration core never
// inspects or interprets command content.
package localexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// StepSpec is everything that crosses the execution boundary for one step.
type StepSpec struct {
	// Command is the opaque command line.
	Command string
	// Env holds the cell's matrix bindings plus the step's own env.
	Env map[string]string
	// WorkDir is the working directory; empty means the process default.
	WorkDir string
	// Pool is the declared host-image selector. The local executor ignores
	// it; remote executors use it to pick a host.
	Pool string
}

// Executor dispatches one step and reports success or failure.
type Executor interface {
	RunStep(ctx context.Context, spec StepSpec) error
}

// Local runs steps through `sh -c` on the invoking host.
type Local struct{}

// NewLocal returns the host-local executor.
func NewLocal() *Local {
	return &Local{}
}

// RunStep implements Executor. The step's combined output is logged at
// debug level; only the exit status is surfaced.
func (l *Local) RunStep(ctx context.Context, spec StepSpec) error {
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, "sh", "-c", spec.Command)
	cmd.Dir = spec.WorkDir
	cmd.Env = append(os.Environ(), flatten(spec.Env)...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	logger.Debug("Step command finished.", "command", spec.Command, "output", out.String(), "error", err)
	if err != nil {
		return fmt.Errorf("step command %q: %w", spec.Command, err)
	}
	return nil
}

// flatten renders env bindings as KEY=VALUE pairs in a stable order.
func flatten(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+env[k])
	}
	return pairs
}
