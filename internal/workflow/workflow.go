// Package workflow runs multi-step pipelines against the remote job API.
// Each step is one launch/poll/retrieve cycle; outputs land in the working
// directory where later steps can pick them up as inputs.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"bioflow/internal/client"
	"bioflow/internal/model"
	"bioflow/internal/telemetry"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Workflow is a parsed pipeline document.
type Workflow struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one launch against the remote API.
type Step struct {
	Name       string            `yaml:"name"`
	Endpoint   string            `yaml:"endpoint"`
	Inputs     map[string]string `yaml:"inputs"`
	Outputs    map[string]string `yaml:"outputs"`
	Properties map[string]any    `yaml:"properties"`
}

// Parse parses and validates a YAML pipeline document.
func Parse(doc []byte) (*Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(doc, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if wf.Name == "" {
		return nil, fmt.Errorf("workflow has no name")
	}
	if len(wf.Steps) == 0 {
		return nil, fmt.Errorf("workflow %q has no steps", wf.Name)
	}
	seen := map[string]bool{}
	for i, step := range wf.Steps {
		if step.Name == "" {
			return nil, fmt.Errorf("step %d has no name", i)
		}
		if seen[step.Name] {
			return nil, fmt.Errorf("duplicate step name %q", step.Name)
		}
		seen[step.Name] = true
		if step.Endpoint == "" {
			return nil, fmt.Errorf("step %q has no endpoint", step.Name)
		}
	}
	return &wf, nil
}

// ParseFile reads and parses a pipeline document from disk.
func ParseFile(path string) (*Workflow, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return Parse(doc)
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Step        string
	Token       string
	Elapsed     time.Duration
	OutputFiles []model.OutputFile
}

// Runner executes workflows sequentially over a client. All downloads land
// in the working directory.
type Runner struct {
	remote  *client.Client
	workdir string
}

// NewRunner creates a runner that stages files in workdir.
func NewRunner(remote *client.Client, workdir string) *Runner {
	return &Runner{remote: remote, workdir: workdir}
}

// Run executes every step in order. A failed step aborts the pipeline and
// the results of the completed steps are returned alongside the error.
func (r *Runner) Run(ctx context.Context, wf *Workflow) ([]StepResult, error) {
	if err := os.MkdirAll(r.workdir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}

	var results []StepResult
	for _, step := range wf.Steps {
		telemetry.Logger.Info("Running workflow step",
			zap.String("workflow", wf.Name),
			zap.String("step", step.Name),
			zap.String("endpoint", step.Endpoint),
		)

		token, files, elapsed, err := r.remote.RunJob(ctx, step.Endpoint, r.stepArgs(step), r.workdir)
		if err != nil {
			return results, fmt.Errorf("step %q failed: %w", step.Name, err)
		}
		results = append(results, StepResult{
			Step:        step.Name,
			Token:       token,
			Elapsed:     elapsed,
			OutputFiles: files,
		})
	}

	telemetry.Logger.Info("Workflow completed",
		zap.String("workflow", wf.Name),
		zap.Int("steps", len(results)),
	)
	return results, nil
}

// stepArgs builds the launch arguments for a step. Relative input paths are
// resolved against the working directory, which is where earlier steps left
// their downloads.
func (r *Runner) stepArgs(step Step) []client.Argument {
	var args []client.Argument
	for name, path := range step.Inputs {
		if !filepath.IsAbs(path) {
			path = filepath.Join(r.workdir, path)
		}
		args = append(args, client.FileInput{Name: name, Path: path})
	}
	for name, path := range step.Outputs {
		args = append(args, client.OutputPath{Name: name, Path: path})
	}
	if len(step.Properties) > 0 {
		args = append(args, client.ConfigObject{Properties: step.Properties})
	}
	return args
}
