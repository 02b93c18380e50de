package config

import (
	"fmt"
	"strings"

	"github.com/vk/pipegrid/internal/condition"
)

// Validate checks everything about a model that can be rejected before any
// job runs. Graph-level checks (unknown references, cycles) belong to the
// job graph, which rejects them at construction time.
func Validate(m *Model) error {
	if len(m.Jobs) == 0 {
		return fmt.Errorf("pipeline %q declares no jobs", m.Name)
	}

	for _, s := range m.Triggers.Schedules {
		if err := validateCron(s.Cron); err != nil {
			return fmt.Errorf("schedule %q: %w", s.DisplayName, err)
		}
	}

	for _, j := range m.Jobs {
		if err := validateJob(j); err != nil {
			return err
		}
	}
	return nil
}

func validateJob(j *Job) error {
	if j.Name == "" {
		return fmt.Errorf("job with empty name")
	}
	if _, err := condition.Parse(j.Condition); err != nil {
		return fmt.Errorf("job %q: %w", j.Name, err)
	}
	if j.MaxParallel < 0 {
		return fmt.Errorf("job %q: maxParallel must not be negative", j.Name)
	}
	for _, dep := range j.DependsOn {
		if dep == j.Name {
			return fmt.Errorf("job %q depends on itself", j.Name)
		}
	}

	// Variant names must be unique within the whole job, not just per axis:
	// they become part of the cell display name.
	seen := make(map[string]string)
	for _, axis := range j.Matrix {
		if axis.Name == "" {
			return fmt.Errorf("job %q: matrix axis with empty name", j.Name)
		}
		if len(axis.Variants) == 0 {
			return fmt.Errorf("job %q: matrix axis %q has no variants", j.Name, axis.Name)
		}
		for _, v := range axis.Variants {
			if v.Name == "" {
				return fmt.Errorf("job %q: axis %q has a variant with an empty name", j.Name, axis.Name)
			}
			if prev, ok := seen[v.Name]; ok {
				return fmt.Errorf("job %q: variant %q declared on both axis %q and axis %q", j.Name, v.Name, prev, axis.Name)
			}
			seen[v.Name] = axis.Name
		}
	}

	for i, s := range j.Steps {
		if strings.TrimSpace(s.Run) == "" {
			return fmt.Errorf("job %q: step %d has an empty command", j.Name, i)
		}
	}
	return nil
}

// validateCron accepts the classic five-field cron syntax. Field contents
// are opaque here: the core never evaluates schedules against a clock.
func validateCron(expr string) error {
	if fields := strings.Fields(expr); len(fields) != 5 {
		return fmt.Errorf("cron expression %q must have 5 fields, got %d", expr, len(strings.Fields(expr)))
	}
	return nil
}
