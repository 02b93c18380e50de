package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// HCLLoader decodes an HCL pipeline document into the model.
type HCLLoader struct {
	parser *hclparse.Parser
}

// NewHCLLoader returns a loader for .hcl pipeline documents.
func NewHCLLoader() *HCLLoader {
	return &HCLLoader{parser: hclparse.NewParser()}
}

// Load implements Loader.
func (l *HCLLoader) Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading HCL pipeline document.", "path", path)

	file, diags := l.parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}

	var doc hclDocument
	if diags := gohcl.DecodeBody(file.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", path, diags)
	}
	if doc.Pipeline == nil {
		return nil, fmt.Errorf("%s: missing pipeline block", path)
	}

	model, err := doc.Pipeline.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := Validate(model); err != nil {
		return nil, err
	}
	logger.Debug("HCL pipeline document loaded.", "pipeline", model.Name, "jobs", len(model.Jobs))
	return model, nil
}

// --- HCL document schema ---

type hclDocument struct {
	Pipeline *hclPipeline `hcl:"pipeline,block"`
}

type hclPipeline struct {
	Name    string      `hcl:"name,label"`
	Trigger *hclTrigger `hcl:"trigger,block"`
	Jobs    []hclJob    `hcl:"job,block"`
}

type hclTrigger struct {
	Push        *hclPush        `hcl:"push,block"`
	PullRequest *hclPullRequest `hcl:"pull_request,block"`
	Schedules   []hclSchedule   `hcl:"schedule,block"`
}

type hclPush struct {
	Include []string `hcl:"include,optional"`
	Exclude []string `hcl:"exclude,optional"`
}

type hclPullRequest struct {
	Include    []string `hcl:"include,optional"`
	Exclude    []string `hcl:"exclude,optional"`
	AutoCancel bool     `hcl:"auto_cancel,optional"`
}

type hclSchedule struct {
	Cron        string   `hcl:"cron"`
	DisplayName string   `hcl:"display_name,optional"`
	Include     []string `hcl:"include,optional"`
	Exclude     []string `hcl:"exclude,optional"`
}

type hclJob struct {
	Name            string    `hcl:"name,label"`
	DisplayName     string    `hcl:"display_name,optional"`
	Pool            string    `hcl:"pool,optional"`
	DependsOn       []string  `hcl:"depends_on,optional"`
	Condition       string    `hcl:"condition,optional"`
	MaxParallel     int       `hcl:"max_parallel,optional"`
	ContinueOnError bool      `hcl:"continue_on_error,optional"`
	Results         []string  `hcl:"results,optional"`
	Axes            []hclAxis `hcl:"axis,block"`
	Steps           []hclStep `hcl:"step,block"`
}

type hclAxis struct {
	Name     string       `hcl:"name,label"`
	Variants []hclVariant `hcl:"variant,block"`
}

type hclVariant struct {
	Name string    `hcl:"name,label"`
	Vars cty.Value `hcl:"vars,optional"`
}

type hclStep struct {
	Name             string    `hcl:"name,label"`
	Run              string    `hcl:"run"`
	WorkingDirectory string    `hcl:"working_directory,optional"`
	Env              cty.Value `hcl:"env,optional"`
	AlwaysRun        bool      `hcl:"always_run,optional"`
	ContinueOnError  bool      `hcl:"continue_on_error,optional"`
}

func (p *hclPipeline) toModel() (*Model, error) {
	model := &Model{Name: p.Name}

	if t := p.Trigger; t != nil {
		if t.Push != nil {
			model.Triggers.Push = &BranchFilter{Include: t.Push.Include, Exclude: t.Push.Exclude}
		}
		if t.PullRequest != nil {
			model.Triggers.PullRequest = &PullRequestTrigger{
				BranchFilter: BranchFilter{Include: t.PullRequest.Include, Exclude: t.PullRequest.Exclude},
				AutoCancel:   t.PullRequest.AutoCancel,
			}
		}
		for _, s := range t.Schedules {
			model.Triggers.Schedules = append(model.Triggers.Schedules, Schedule{
				Cron:        s.Cron,
				DisplayName: s.DisplayName,
				Branches:    BranchFilter{Include: s.Include, Exclude: s.Exclude},
			})
		}
	}

	for _, j := range p.Jobs {
		job := &Job{
			Name:            j.Name,
			DisplayName:     j.DisplayName,
			DependsOn:       j.DependsOn,
			Condition:       j.Condition,
			Pool:            j.Pool,
			MaxParallel:     j.MaxParallel,
			ContinueOnError: j.ContinueOnError,
			Results:         j.Results,
		}
		for _, a := range j.Axes {
			axis := Axis{Name: a.Name}
			for _, v := range a.Variants {
				vars, err := ctyStringMap(v.Vars)
				if err != nil {
					return nil, fmt.Errorf("job %q, axis %q, variant %q: %w", j.Name, a.Name, v.Name, err)
				}
				axis.Variants = append(axis.Variants, Variant{Name: v.Name, Vars: vars})
			}
			job.Matrix = append(job.Matrix, axis)
		}
		for _, s := range j.Steps {
			env, err := ctyStringMap(s.Env)
			if err != nil {
				return nil, fmt.Errorf("job %q, step %q: %w", j.Name, s.Name, err)
			}
			job.Steps = append(job.Steps, Step{
				Name:            s.Name,
				Run:             s.Run,
				WorkDir:         s.WorkingDirectory,
				Env:             env,
				AlwaysRun:       s.AlwaysRun,
				ContinueOnError: s.ContinueOnError,
			})
		}
		model.Jobs = append(model.Jobs, job)
	}
	return model, nil
}

// ctyStringMap converts an HCL object value into plain string bindings,
// coercing scalar values (numbers, bools) through cty's conversion rules.
func ctyStringMap(val cty.Value) (map[string]string, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, nil
	}
	ty := val.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("expected a map of strings, got %s", ty.FriendlyName())
	}
	out := make(map[string]string)
	for it := val.ElementIterator(); it.Next(); {
		k, v := it.Element()
		str, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("value for %q is not convertible to string: %w", k.AsString(), err)
		}
		out[k.AsString()] = str.AsString()
	}
	return out, nil
}
