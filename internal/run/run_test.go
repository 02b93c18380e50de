package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverall(t *testing.T) {
	cases := []struct {
		name     string
		outcomes []Outcome
		want     Outcome
	}{
		{"empty run succeeds", nil, OutcomeSucceeded},
		{"all succeeded", []Outcome{OutcomeSucceeded, OutcomeSkipped}, OutcomeSucceeded},
		{"any failure wins", []Outcome{OutcomeSucceeded, OutcomeFailed, OutcomeCanceled}, OutcomeFailed},
		{"canceled without failure", []Outcome{OutcomeSucceeded, OutcomeCanceled}, OutcomeCanceled},
		{"skips never taint the run", []Outcome{OutcomeSkipped, OutcomeSkipped}, OutcomeSucceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewPipelineRun("p", EventPush, "main")
			for i, o := range tc.outcomes {
				r.Jobs = append(r.Jobs, JobResult{Job: string(rune('A' + i)), Outcome: o})
			}
			assert.Equal(t, tc.want, r.Overall())
		})
	}
}

func TestNewPipelineRunIdentity(t *testing.T) {
	a := NewPipelineRun("p", EventPush, "main")
	b := NewPipelineRun("p", EventPush, "main")
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Started.IsZero())
}

func TestBundles(t *testing.T) {
	r := NewPipelineRun("p", EventPush, "main")
	r.Jobs = []JobResult{
		{Job: "Test", Outcome: OutcomeFailed, Cells: []CellResult{
			{Cell: Cell{Name: "Test[linux]", Bindings: map[string]string{"os": "linux"}}, Outcome: OutcomeFailed},
			{Cell: Cell{Name: "Test[mac]", Bindings: map[string]string{"os": "mac"}}, Outcome: OutcomeSucceeded},
		}},
		{Job: "Publish", Outcome: OutcomeSkipped},
	}

	bundles := r.Bundles(map[string][]string{"Test": {"junit.xml"}})
	require.Len(t, bundles, 2)

	test := bundles[0]
	assert.Equal(t, r.ID, test.RunID)
	assert.Equal(t, "Failed", test.Outcome)
	require.Len(t, test.Cells, 2)
	assert.Equal(t, "Test[linux]", test.Cells[0].Name)
	assert.Equal(t, map[string]string{"os": "linux"}, test.Cells[0].Bindings)
	assert.Equal(t, []string{"junit.xml"}, test.Cells[0].ResultRefs)

	// Jobs without cells still get a bundle with the job-level outcome.
	assert.Equal(t, "Skipped", bundles[1].Outcome)
	assert.Empty(t, bundles[1].Cells)
}
