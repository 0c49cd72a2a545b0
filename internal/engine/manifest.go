package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/mayant15/railcar-bench/internal/core"
)

// ManifestFile is the name of the per-job manifest.
const ManifestFile = "job.yaml"

// manifest is the on-disk form of a task. The argument record is stored
// under the key matching its kind.
type manifest struct {
	Label      string        `yaml:"label"`
	Project    string        `yaml:"project"`
	Mode       string        `yaml:"mode"`
	Variant    string        `yaml:"variant,omitempty"`
	Entrypoint string        `yaml:"entrypoint,omitempty"`
	Iteration  int           `yaml:"iteration"`
	Seed       int           `yaml:"seed"`
	OutDir     string        `yaml:"outdir"`
	Timeout    string        `yaml:"timeout"`
	Metrics    string        `yaml:"metrics,omitempty"`
	Cores      string        `yaml:"cores,omitempty"`
	Kind       Kind          `yaml:"kind"`
	Fuzz       *FuzzArgs     `yaml:"fuzz,omitempty"`
	Managed    *ManagedArgs  `yaml:"managed,omitempty"`
	UnitTest   *UnitTestArgs `yaml:"unitTest,omitempty"`
}

// WriteManifest writes <task.OutDir>/job.yaml.
func WriteManifest(task Task, cores core.CoreSet) error {
	m := manifest{
		Label:      task.Label,
		Project:    task.Project,
		Mode:       task.Mode,
		Variant:    task.Variant,
		Entrypoint: task.Entrypoint,
		Iteration:  task.Iteration,
		Seed:       task.Seed,
		OutDir:     task.OutDir,
		Timeout:    task.Timeout.String(),
		Metrics:    task.Metrics,
		Cores:      cores.String(),
		Kind:       task.Kind(),
	}
	switch a := task.Args.(type) {
	case FuzzArgs:
		m.Fuzz = &a
	case ManagedArgs:
		m.Managed = &a
	case UnitTestArgs:
		m.UnitTest = &a
	default:
		return fmt.Errorf("task %s: unsupported engine arguments %T", task.Label, task.Args)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest for %s: %w", task.Label, err)
	}
	path := filepath.Join(task.OutDir, ManifestFile)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// ReadManifest reads a job.yaml written by WriteManifest.
func ReadManifest(path string) (Task, core.CoreSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Task{}, nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return Task{}, nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	timeout, err := time.ParseDuration(m.Timeout)
	if err != nil {
		return Task{}, nil, fmt.Errorf("manifest %s: invalid timeout %q: %w", path, m.Timeout, err)
	}
	cores, err := core.ParseCoreSet(m.Cores)
	if err != nil {
		return Task{}, nil, fmt.Errorf("manifest %s: %w", path, err)
	}

	task := Task{
		Label:      m.Label,
		Project:    m.Project,
		Mode:       m.Mode,
		Variant:    m.Variant,
		Entrypoint: m.Entrypoint,
		Iteration:  m.Iteration,
		Seed:       m.Seed,
		OutDir:     m.OutDir,
		Timeout:    timeout,
		Metrics:    m.Metrics,
	}

	switch {
	case m.Kind == KindFuzz && m.Fuzz != nil:
		task.Args = *m.Fuzz
	case m.Kind == KindManaged && m.Managed != nil:
		task.Args = *m.Managed
	case m.Kind == KindUnitTest && m.UnitTest != nil:
		task.Args = *m.UnitTest
	default:
		return Task{}, nil, fmt.Errorf("manifest %s: missing arguments for engine kind %q", path, m.Kind)
	}
	return task, cores, nil
}
