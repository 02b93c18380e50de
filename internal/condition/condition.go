// Package condition evaluates the per-job predicate that gates dispatch
// once every dependency holds a terminal outcome.
//
// Evaluation is pure: the same predicate and the same outcome history always
// yield the same decision, so a decision can be re-derived for auditing and
// asserted in tests without replaying the run.
package condition

import (
	"fmt"

	"github.com/vk/pipegrid/internal/run"
)

// Predicate is the tagged variant of a job's condition string. Conditions
// are parsed once at load time; the scheduler never interprets strings.
type Predicate int

const (
	// Succeeded runs the job only if every dependency succeeded. This is
	// the default for jobs that declare no condition.
	Succeeded Predicate = iota
	// SucceededOrFailed runs the job unless a dependency was canceled.
	SucceededOrFailed
	// Always runs the job regardless of dependency outcomes. Used by
	// result-reporting jobs that must run even after upstream failures.
	Always
)

// String implements fmt.Stringer, yielding the declaration-syntax name.
func (p Predicate) String() string {
	switch p {
	case SucceededOrFailed:
		return "succeededOrFailed"
	case Always:
		return "always"
	default:
		return "succeeded"
	}
}

// Parse maps a declared condition string to its predicate. The empty string
// is the default predicate. Unknown strings are a construction-time error.
func Parse(s string) (Predicate, error) {
	switch s {
	case "", "succeeded":
		return Succeeded, nil
	case "succeededOrFailed":
		return SucceededOrFailed, nil
	case "always":
		return Always, nil
	default:
		return Succeeded, fmt.Errorf("unknown condition %q (want succeeded, succeededOrFailed or always)", s)
	}
}

// Decision is the evaluator's verdict for one job.
type Decision int

const (
	Run Decision = iota
	Skip
)

// String implements fmt.Stringer for log output.
func (d Decision) String() string {
	if d == Skip {
		return "Skip"
	}
	return "Run"
}

// Evaluate applies the predicate to the aggregated outcomes of a job's
// dependencies. A job with no dependencies always runs.
func Evaluate(p Predicate, deps []run.Outcome) Decision {
	switch p {
	case Always:
		return Run
	case SucceededOrFailed:
		for _, o := range deps {
			if o == run.OutcomeCanceled {
				return Skip
			}
		}
		return Run
	default:
		for _, o := range deps {
			if o != run.OutcomeSucceeded {
				return Skip
			}
		}
		return Run
	}
}
