// Package config defines the format-agnostic model of a pipeline document
// and the loaders that translate concrete formats (HCL, YAML) into it.
//
// The model is loaded once per run and immutable thereafter. Everything the
// scheduler needs (the job graph, matrices, conditions, steps) is resolved
// into plain Go values at load time, so no downstream component ever touches
// format-specific syntax.
package config

// Model is the format-agnostic representation of one pipeline document.
type Model struct {
	// Name identifies the pipeline in logs and reports.
	Name     string
	Triggers Triggers
	// Jobs holds every declared job in declaration order.
	Jobs []*Job
}

// Triggers describes the events that may start a run of this pipeline.
type Triggers struct {
	// Push gates push events by branch. A nil filter fires on every branch.
	Push *BranchFilter
	// PullRequest gates pull-request events by target branch.
	PullRequest *PullRequestTrigger
	// Schedules lists cron entries that gate schedule events.
	Schedules []Schedule
}

// BranchFilter is an include/exclude list of branch name patterns
// (path.Match globs). An empty include list matches every branch.
type BranchFilter struct {
	Include []string
	Exclude []string
}

// PullRequestTrigger gates pull-request events and carries the auto-cancel
// flag for superseding runs on the same branch.
type PullRequestTrigger struct {
	BranchFilter
	AutoCancel bool
}

// Schedule is a cron-style scheduled trigger. The cron expression is
// validated at load time but never evaluated against a clock here; the
// invoking environment owns scheduling.
type Schedule struct {
	Cron        string
	DisplayName string
	Branches    BranchFilter
}

// Job is one named unit of pipeline work, expandable across a matrix.
type Job struct {
	// Name is the unique identity used in dependsOn references.
	Name        string
	DisplayName string
	// DependsOn names the jobs that must reach a terminal outcome first.
	DependsOn []string
	// Condition is the predicate gating dispatch once dependencies are
	// terminal: "succeeded" (default when empty), "succeededOrFailed" or
	// "always".
	Condition string
	// Pool selects the execution host image. Opaque to the core; it is
	// handed to the step executor as-is.
	Pool string
	// MaxParallel bounds how many of this job's cells run at once.
	// Zero means no per-job bound beyond the pipeline-wide ceiling.
	MaxParallel int
	// ContinueOnError marks the whole job's cells as non-fatal: their
	// failures do not fail the job or trip fail-fast.
	ContinueOnError bool
	// Matrix lists the axes to expand, in declaration order. A job with no
	// matrix runs as a single implicit cell.
	Matrix []Axis
	// Steps run in order inside every cell.
	Steps []Step
	// Results lists machine-readable result references (paths, globs) the
	// job's steps publish. Opaque to the core; surfaced in result bundles.
	Results []string
}

// Axis is one named matrix dimension with its ordered variants.
type Axis struct {
	Name     string
	Variants []Variant
}

// Variant is one named point on an axis, carrying the substitution
// variables it binds.
type Variant struct {
	Name string
	Vars map[string]string
}

// Step is an ordered, opaque unit of work inside a job. The core only ever
// observes its exit status.
type Step struct {
	// Name is the display name; falls back to the command when empty.
	Name string
	// Run is the command line handed to the external executor.
	Run string
	// WorkDir is the working directory for the command, if any.
	WorkDir string
	// Env holds extra environment bindings, applied after the cell's
	// matrix bindings.
	Env map[string]string
	// AlwaysRun makes the step run even after an earlier step in the same
	// cell failed.
	AlwaysRun bool
	// ContinueOnError keeps the step's own failure from failing the cell.
	ContinueOnError bool
}
