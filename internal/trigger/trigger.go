// Package trigger decides whether a pipeline fires for a given run request
// (event kind plus branch), applying the document's branch filters and
// schedule entries. Evaluation is pure; the invoking environment owns clocks
// and actual cron scheduling.
package trigger

import (
	"fmt"
	"path"

	"github.com/vk/pipegrid/internal/config"
	"github.com/vk/pipegrid/internal/run"
)

// Request identifies one trigger event.
type Request struct {
	Event  run.Event
	Branch string
}

// Decision is the evaluation verdict for a request.
type Decision struct {
	// Fire reports whether the pipeline should run.
	Fire bool
	// AutoCancel reports whether a superseding run on the same branch
	// should cancel this one (pull-request trigger flag).
	AutoCancel bool
	// Reason is a short human-readable explanation, for logs.
	Reason string
}

// Evaluate applies the declared triggers to a request. An absent push or
// pull-request block falls back to firing on every branch, the common CI
// default; schedule events fire only when a declared schedule matches.
func Evaluate(t config.Triggers, req Request) (Decision, error) {
	switch req.Event {
	case run.EventPush:
		if t.Push == nil {
			return Decision{Fire: true, Reason: "push: no filter declared"}, nil
		}
		ok, err := matches(*t.Push, req.Branch)
		if err != nil {
			return Decision{}, err
		}
		return Decision{Fire: ok, Reason: reason("push", req.Branch, ok)}, nil

	case run.EventPullRequest:
		if t.PullRequest == nil {
			return Decision{Fire: true, Reason: "pull_request: no filter declared"}, nil
		}
		ok, err := matches(t.PullRequest.BranchFilter, req.Branch)
		if err != nil {
			return Decision{}, err
		}
		return Decision{
			Fire:       ok,
			AutoCancel: ok && t.PullRequest.AutoCancel,
			Reason:     reason("pull_request", req.Branch, ok),
		}, nil

	case run.EventSchedule:
		for _, s := range t.Schedules {
			ok, err := matches(s.Branches, req.Branch)
			if err != nil {
				return Decision{}, err
			}
			if ok {
				return Decision{Fire: true, Reason: fmt.Sprintf("schedule %q matched branch %q", s.DisplayName, req.Branch)}, nil
			}
		}
		return Decision{Reason: "schedule: no entry matched"}, nil

	default:
		return Decision{}, fmt.Errorf("unknown event %q", req.Event)
	}
}

// matches applies an include/exclude glob filter to a branch name. An empty
// include list matches every branch; exclusions always win.
func matches(f config.BranchFilter, branch string) (bool, error) {
	included := len(f.Include) == 0
	for _, pattern := range f.Include {
		ok, err := path.Match(pattern, branch)
		if err != nil {
			return false, fmt.Errorf("branch pattern %q: %w", pattern, err)
		}
		if ok {
			included = true
			break
		}
	}
	if !included {
		return false, nil
	}
	for _, pattern := range f.Exclude {
		ok, err := path.Match(pattern, branch)
		if err != nil {
			return false, fmt.Errorf("branch pattern %q: %w", pattern, err)
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

func reason(event, branch string, fired bool) string {
	if fired {
		return fmt.Sprintf("%s: branch %q matched", event, branch)
	}
	return fmt.Sprintf("%s: branch %q filtered out", event, branch)
}
