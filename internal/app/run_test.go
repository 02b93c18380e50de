package app_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/app"
	"github.com/vk/pipegrid/internal/history"
	"github.com/vk/pipegrid/internal/run"
	"github.com/vk/pipegrid/internal/testutil"
)

const pipelineDoc = `
name: release
trigger:
  branches:
    include: [main, release/*]
jobs:
  - job: Build
    steps:
      - name: compile
        run: make build
  - job: Test
    dependsOn: Build
    strategy:
      matrix:
        os:
          linux: {img: ubuntu-22.04}
          mac: {img: macOS-14}
    steps:
      - name: unit
        run: make test-$(img)
    results: [junit.xml]
  - job: Publish
    dependsOn: Test
    steps:
      - name: upload
        run: make publish
`

func TestRunEndToEndSucceeds(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	result := testutil.RunPipelineTest(t, "release.yml", pipelineDoc, exec)

	require.NoError(t, result.Err)
	assert.Equal(t, run.OutcomeSucceeded, result.Outcome)

	assert.Contains(t, result.LogOutput, "🚀")
	assert.Contains(t, result.LogOutput, "🏁")
	assert.Contains(t, result.LogOutput, "JOB")
	assert.Contains(t, result.LogOutput, "Test[linux]")

	assert.Equal(t, 1, exec.CallsMatching("make build"))
	assert.Equal(t, 1, exec.CallsMatching("make test-ubuntu-22.04"))
	assert.Equal(t, 1, exec.CallsMatching("make test-macOS-14"))
	assert.Equal(t, 1, exec.CallsMatching("make publish"))

	// Bundles carry cell detail plus the declared result references.
	bundles := result.App.Bundles()
	require.Len(t, bundles, 3)
	assert.Equal(t, "Test", bundles[1].Job)
	require.Len(t, bundles[1].Cells, 2)
	assert.Equal(t, []string{"junit.xml"}, bundles[1].Cells[0].ResultRefs)
}

func TestRunFailurePropagates(t *testing.T) {
	exec := &testutil.ScriptedExecutor{FailOn: []string{"test-ubuntu"}}
	result := testutil.RunPipelineTest(t, "release.yml", pipelineDoc, exec)

	require.NoError(t, result.Err)
	assert.Equal(t, run.OutcomeFailed, result.Outcome)
	assert.Equal(t, 0, exec.CallsMatching("make publish"), "Publish is skipped when Test fails")
	assert.Contains(t, result.LogOutput, "⏭")
}

func TestRunNotTriggered(t *testing.T) {
	exec := &testutil.ScriptedExecutor{}
	result := testutil.RunPipelineTest(t, "release.yml", pipelineDoc, exec, func(cfg *app.Config) {
		cfg.Branch = "feature/x"
	})

	require.NoError(t, result.Err)
	assert.Equal(t, run.OutcomeSucceeded, result.Outcome)
	assert.Contains(t, result.LogOutput, "not triggered")
	assert.Empty(t, exec.Calls())
}

func TestRunRecordsHistory(t *testing.T) {
	historyPath := filepath.Join(t.TempDir(), "history.db")
	exec := &testutil.ScriptedExecutor{}
	result := testutil.RunPipelineTest(t, "release.yml", pipelineDoc, exec, func(cfg *app.Config) {
		cfg.HistoryPath = historyPath
	})
	require.NoError(t, result.Err)
	require.Equal(t, run.OutcomeSucceeded, result.Outcome)

	store, err := history.NewSQLiteStore(historyPath)
	require.NoError(t, err)
	defer store.Close()

	records, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "release", records[0].Pipeline)
	assert.Equal(t, "Succeeded", records[0].Overall)

	cells, err := store.ListCells(records[0].ID)
	require.NoError(t, err)
	assert.Len(t, cells, 4)
}

func TestStartupPanicsOnBrokenDocument(t *testing.T) {
	result := testutil.RunPipelineTest(t, "broken.yml", "jobs: []\n", &testutil.ScriptedExecutor{})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "application startup panicked")
}

func TestNewConfigValidation(t *testing.T) {
	valid := app.Config{PipelinePath: "p.yml", Event: "push"}

	_, err := app.NewConfig(valid)
	assert.NoError(t, err)

	missing := valid
	missing.PipelinePath = ""
	_, err = app.NewConfig(missing)
	assert.Error(t, err)

	badEvent := valid
	badEvent.Event = "deploy"
	_, err = app.NewConfig(badEvent)
	assert.Error(t, err)

	negative := valid
	negative.Workers = -1
	_, err = app.NewConfig(negative)
	assert.Error(t, err)
}
