package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
name: evo-ci
trigger:
  branches:
    include: [master, release/*]
    exclude: [release/old-*]
pr:
  autoCancel: true
  branches:
    include: ["*"]
schedules:
  - cron: "0 4 * * 1"
    displayName: weekly
    branches:
      include: [master]
jobs:
  - job: Lint
    pool: ubuntu-22.04
    steps:
      - name: flake8
        run: python -m flake8
  - job: Test
    dependsOn: Lint
    pool: $(vmImage)
    strategy:
      maxParallel: 4
      matrix:
        os:
          linux: {vmImage: ubuntu-22.04}
          mac: {vmImage: macOS-14}
          windows: {vmImage: windows-2022}
        python:
          py312: {python: 3.12}
          py313: {python: 3.13}
    steps:
      - name: pytest
        run: python$(python) -m pytest
        env:
          PYTHONHASHSEED: "0"
      - name: publish results
        run: ci/publish_results.sh
        alwaysRun: true
        continueOnError: true
    results: [junit.xml]
  - job: Publish
    dependsOn: [Test]
    condition: succeeded
    pool: ubuntu-22.04
    steps:
      - run: python -m build
  - job: Report
    dependsOn: [Test, Publish]
    condition: always
    pool: ubuntu-22.04
    steps:
      - run: ci/report.sh
        workingDirectory: ci
`

func TestYAMLParse(t *testing.T) {
	model, err := NewYAMLLoader().Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "evo-ci", model.Name)

	require.NotNil(t, model.Triggers.Push)
	assert.Equal(t, []string{"master", "release/*"}, model.Triggers.Push.Include)
	assert.Equal(t, []string{"release/old-*"}, model.Triggers.Push.Exclude)

	require.NotNil(t, model.Triggers.PullRequest)
	assert.True(t, model.Triggers.PullRequest.AutoCancel)
	assert.Equal(t, []string{"*"}, model.Triggers.PullRequest.Include)

	require.Len(t, model.Triggers.Schedules, 1)
	assert.Equal(t, "0 4 * * 1", model.Triggers.Schedules[0].Cron)
	assert.Equal(t, []string{"master"}, model.Triggers.Schedules[0].Branches.Include)

	require.Len(t, model.Jobs, 4)

	test := model.Jobs[1]
	assert.Equal(t, "Test", test.Name)
	assert.Equal(t, []string{"Lint"}, test.DependsOn, "scalar dependsOn decodes as a one-element list")
	assert.Equal(t, 4, test.MaxParallel)
	assert.Equal(t, []string{"junit.xml"}, test.Results)

	// Axis and variant declaration order must survive decoding.
	require.Len(t, test.Matrix, 2)
	assert.Equal(t, "os", test.Matrix[0].Name)
	assert.Equal(t, "python", test.Matrix[1].Name)
	osNames := []string{}
	for _, v := range test.Matrix[0].Variants {
		osNames = append(osNames, v.Name)
	}
	assert.Equal(t, []string{"linux", "mac", "windows"}, osNames)

	// Scalars keep their literal source form.
	assert.Equal(t, "3.12", test.Matrix[1].Variants[0].Vars["python"])

	require.Len(t, test.Steps, 2)
	assert.True(t, test.Steps[1].AlwaysRun)
	assert.True(t, test.Steps[1].ContinueOnError)
	assert.Equal(t, map[string]string{"PYTHONHASHSEED": "0"}, test.Steps[0].Env)

	report := model.Jobs[3]
	assert.Equal(t, []string{"Test", "Publish"}, report.DependsOn)
	assert.Equal(t, "always", report.Condition)
	assert.Equal(t, "ci", report.Steps[0].WorkDir)
}

func TestYAMLLoadNamesAfterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nightly.yml")
	doc := "jobs:\n  - job: Build\n    steps:\n      - run: make\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	model, err := NewYAMLLoader().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "nightly", model.Name, "unnamed pipelines fall back to the file name")
}

func TestYAMLParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"no jobs", "name: empty\n"},
		{"empty axis", `
jobs:
  - job: Test
    strategy:
      matrix:
        os:
    steps:
      - run: make
`},
		{"matrix not a mapping", `
jobs:
  - job: Test
    strategy:
      matrix: [a, b]
    steps:
      - run: make
`},
		{"unknown condition", `
jobs:
  - job: Test
    condition: onWednesdays
    steps:
      - run: make
`},
		{"empty step command", `
jobs:
  - job: Test
    steps:
      - name: hollow
        run: "  "
`},
		{"bad cron", `
schedules:
  - cron: "weekly"
jobs:
  - job: Test
    steps:
      - run: make
`},
		{"duplicate variant across axes", `
jobs:
  - job: Test
    strategy:
      matrix:
        os:
          shared: {a: "1"}
        arch:
          shared: {b: "2"}
    steps:
      - run: make
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewYAMLLoader().Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}
