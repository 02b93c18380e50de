package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/run"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Predicate
	}{
		{"", Succeeded},
		{"succeeded", Succeeded},
		{"succeededOrFailed", SucceededOrFailed},
		{"always", Always},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	_, err := Parse("failed")
	assert.Error(t, err)
	_, err = Parse("Succeeded")
	assert.Error(t, err, "condition strings are case-sensitive")
}

func TestEvaluate(t *testing.T) {
	succeeded := run.OutcomeSucceeded
	failed := run.OutcomeFailed
	skipped := run.OutcomeSkipped
	canceled := run.OutcomeCanceled

	cases := []struct {
		name string
		pred Predicate
		deps []run.Outcome
		want Decision
	}{
		{"no deps always runs", Succeeded, nil, Run},
		{"succeeded all green", Succeeded, []run.Outcome{succeeded, succeeded}, Run},
		{"succeeded with one failure", Succeeded, []run.Outcome{succeeded, failed}, Skip},
		{"succeeded with skipped upstream", Succeeded, []run.Outcome{skipped}, Skip},
		{"succeeded with canceled upstream", Succeeded, []run.Outcome{canceled}, Skip},
		{"succeededOrFailed tolerates failure", SucceededOrFailed, []run.Outcome{failed}, Run},
		{"succeededOrFailed tolerates skipped", SucceededOrFailed, []run.Outcome{skipped}, Run},
		{"succeededOrFailed vetoes canceled", SucceededOrFailed, []run.Outcome{succeeded, canceled}, Skip},
		{"always runs over failures", Always, []run.Outcome{failed, failed}, Run},
		{"always runs over skipped", Always, []run.Outcome{skipped}, Run},
		{"always runs over canceled", Always, []run.Outcome{canceled}, Run},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.pred, tc.deps))
		})
	}
}

// Re-evaluating the same outcome history must always yield the same
// decision; the evaluator is consulted once per job but audited repeatedly.
func TestEvaluateIsIdempotent(t *testing.T) {
	deps := []run.Outcome{run.OutcomeSucceeded, run.OutcomeFailed, run.OutcomeSkipped}
	for _, pred := range []Predicate{Succeeded, SucceededOrFailed, Always} {
		first := Evaluate(pred, deps)
		for i := 0; i < 100; i++ {
			require.Equal(t, first, Evaluate(pred, deps), "predicate %s", pred)
		}
	}
}
