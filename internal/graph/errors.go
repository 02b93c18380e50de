package graph

import "errors"

// Construction-time errors. All of them reject the pipeline definition
// before any job runs.
var (
	// ErrDuplicateJob is returned when a job identity is declared twice.
	ErrDuplicateJob = errors.New("duplicate job")
	// ErrUnknownJob is returned when a dependency endpoint is undeclared.
	ErrUnknownJob = errors.New("unknown job")
	// ErrCycle is returned when an edge would make the graph cyclic.
	ErrCycle = errors.New("dependency cycle")
)

// ErrOutcomeAlreadySet guards the write-once outcome table at runtime.
var ErrOutcomeAlreadySet = errors.New("outcome already set")
