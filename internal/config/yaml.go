package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vk/pipegrid/internal/ctxlog"
)

// YAMLLoader decodes a YAML pipeline document into the model.
type YAMLLoader struct{}

// NewYAMLLoader returns a loader for .yml/.yaml pipeline documents.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{}
}

// Load implements Loader.
func (l *YAMLLoader) Load(ctx context.Context, path string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading YAML pipeline document.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline document: %w", err)
	}
	model, err := l.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if model.Name == "" {
		model.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	logger.Debug("YAML pipeline document loaded.", "pipeline", model.Name, "jobs", len(model.Jobs))
	return model, nil
}

// Parse decodes and validates raw YAML content.
func (l *YAMLLoader) Parse(data []byte) (*Model, error) {
	var doc yamlPipeline
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	model := &Model{
		Name: doc.Name,
		Triggers: Triggers{
			Push:        doc.Trigger.toFilter(),
			PullRequest: doc.PR.toTrigger(),
		},
	}
	for _, s := range doc.Schedules {
		model.Triggers.Schedules = append(model.Triggers.Schedules, Schedule{
			Cron:        s.Cron,
			DisplayName: s.DisplayName,
			Branches:    s.Branches.toValue(),
		})
	}

	for _, j := range doc.Jobs {
		job := &Job{
			Name:            j.Job,
			DisplayName:     j.DisplayName,
			DependsOn:       j.DependsOn,
			Condition:       j.Condition,
			Pool:            j.Pool,
			MaxParallel:     j.Strategy.MaxParallel,
			ContinueOnError: j.ContinueOnError,
			Matrix:          j.Strategy.Matrix,
			Results:         j.Results,
		}
		for _, s := range j.Steps {
			job.Steps = append(job.Steps, Step{
				Name:            s.Name,
				Run:             s.Run,
				WorkDir:         s.WorkingDirectory,
				Env:             s.Env,
				AlwaysRun:       s.AlwaysRun,
				ContinueOnError: s.ContinueOnError,
			})
		}
		model.Jobs = append(model.Jobs, job)
	}

	if err := Validate(model); err != nil {
		return nil, err
	}
	return model, nil
}

// --- YAML document schema ---

type yamlPipeline struct {
	Name      string         `yaml:"name"`
	Trigger   *yamlFilter    `yaml:"trigger"`
	PR        *yamlPR        `yaml:"pr"`
	Schedules []yamlSchedule `yaml:"schedules"`
	Jobs      []yamlJob      `yaml:"jobs"`
}

type yamlFilter struct {
	Branches struct {
		Include stringList `yaml:"include"`
		Exclude stringList `yaml:"exclude"`
	} `yaml:"branches"`
}

func (f *yamlFilter) toFilter() *BranchFilter {
	if f == nil {
		return nil
	}
	v := f.toValue()
	return &v
}

func (f *yamlFilter) toValue() BranchFilter {
	if f == nil {
		return BranchFilter{}
	}
	return BranchFilter{Include: f.Branches.Include, Exclude: f.Branches.Exclude}
}

type yamlPR struct {
	yamlFilter `yaml:",inline"`
	AutoCancel bool `yaml:"autoCancel"`
}

func (p *yamlPR) toTrigger() *PullRequestTrigger {
	if p == nil {
		return nil
	}
	return &PullRequestTrigger{BranchFilter: p.toValue(), AutoCancel: p.AutoCancel}
}

type yamlSchedule struct {
	Cron        string      `yaml:"cron"`
	DisplayName string      `yaml:"displayName"`
	Branches    *yamlFilter `yaml:"branches"`
}

type yamlJob struct {
	Job             string       `yaml:"job"`
	DisplayName     string       `yaml:"displayName"`
	DependsOn       stringList   `yaml:"dependsOn"`
	Condition       string       `yaml:"condition"`
	Pool            string       `yaml:"pool"`
	ContinueOnError bool         `yaml:"continueOnError"`
	Strategy        yamlStrategy `yaml:"strategy"`
	Steps           []yamlStep   `yaml:"steps"`
	Results         stringList   `yaml:"results"`
}

type yamlStrategy struct {
	MaxParallel int        `yaml:"maxParallel"`
	Matrix      yamlMatrix `yaml:"matrix"`
}

type yamlStep struct {
	Name             string            `yaml:"name"`
	Run              string            `yaml:"run"`
	WorkingDirectory string            `yaml:"workingDirectory"`
	Env              map[string]string `yaml:"env"`
	AlwaysRun        bool              `yaml:"alwaysRun"`
	ContinueOnError  bool              `yaml:"continueOnError"`
}

// stringList accepts either a scalar or a sequence, so `dependsOn: Test`
// and `dependsOn: [Test, Lint]` both work.
type stringList []string

func (s *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = stringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*s = items
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// yamlMatrix decodes the axis→variant→vars mapping through yaml.Node so the
// axis and variant declaration order survives. Go maps would shuffle it, and
// the expander's determinism contract depends on that order.
type yamlMatrix []Axis

func (m *yamlMatrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: matrix must be a mapping of axes", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		axisName, variantsNode := node.Content[i], node.Content[i+1]
		if variantsNode.Kind != yaml.MappingNode {
			return fmt.Errorf("line %d: axis %q must be a mapping of variants", variantsNode.Line, axisName.Value)
		}
		axis := Axis{Name: axisName.Value}
		for k := 0; k < len(variantsNode.Content); k += 2 {
			variantName, varsNode := variantsNode.Content[k], variantsNode.Content[k+1]
			vars, err := decodeScalarMap(varsNode)
			if err != nil {
				return fmt.Errorf("axis %q, variant %q: %w", axisName.Value, variantName.Value, err)
			}
			axis.Variants = append(axis.Variants, Variant{Name: variantName.Value, Vars: vars})
		}
		*m = append(*m, axis)
	}
	return nil
}

// decodeScalarMap reads a mapping of variable name to scalar, rendering
// every scalar through its literal source form so `python: 3.13` stays
// "3.13" instead of decaying to a float.
func decodeScalarMap(node *yaml.Node) (map[string]string, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: expected a mapping of variables", node.Line)
	}
	vars := make(map[string]string, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: variable %q must be a scalar", val.Line, key.Value)
		}
		vars[key.Value] = val.Value
	}
	return vars, nil
}
