package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/vk/pipegrid/internal/run"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string

	// Event and Branch identify the trigger request for this run.
	Event  string
	Branch string

	// Workers is the pipeline-wide ceiling on simultaneously running cells.
	Workers int
	// FailFast cancels the run after the first unhandled job failure.
	FailFast bool
	// GracePeriod is how long in-flight cells may drain after cancellation.
	GracePeriod time.Duration

	LogFormat string
	LogLevel  string

	// HistoryPath enables the SQLite run history store when non-empty.
	HistoryPath string
	// StatusPort enables the HTTP status server when positive.
	StatusPort int
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	switch run.Event(cfg.Event) {
	case run.EventPush, run.EventPullRequest, run.EventSchedule:
	default:
		return nil, fmt.Errorf("invalid event %q: must be push, pull_request or schedule", cfg.Event)
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers must not be negative")
	}
	if cfg.GracePeriod < 0 {
		return nil, errors.New("GracePeriod must not be negative")
	}
	return &cfg, nil
}
