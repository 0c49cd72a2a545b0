// Package campaign expands a configuration space into engine tasks and
// drives a campaign from scheduling to the published summary.
package campaign

import (
	"context"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"time"

	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/metrics"
)

// testSuiteMode stands in for the mode of unit-test tasks, which run once
// per project and iteration regardless of the configured modes.
const testSuiteMode = "testsuite"

// defaultInclude is the nyc include glob for projects that set none.
const defaultInclude = "**/*.js"

// Space is the configuration space of a campaign.
type Space struct {
	Projects []config.Project
	Modes    []string
	// Variants empty means one unnamed variant.
	Variants   []config.Variant
	Iterations int
	// Seeds holds one seed per iteration.
	Seeds   []int
	Timeout time.Duration
	// Root is the results root all output dirs are created in.
	Root        string
	Kind        engine.Kind
	CoresPerJob int
	// ProjectsDir holds the instrumented sources used by the managed and
	// unit-test engines.
	ProjectsDir string
	Labels      map[string]string
}

// NewSpace builds the space described by cfg. Seeds and Root are filled in
// by the runner.
func NewSpace(cfg *config.Config) (Space, error) {
	kind, err := engine.ParseKind(cfg.Engine.Kind)
	if err != nil {
		return Space{}, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}
	projects := cfg.Projects
	if len(projects) == 0 {
		names, err := DiscoverProjects(cfg.Paths.ExamplesDir)
		if err != nil {
			return Space{}, fmt.Errorf("%w: no projects configured: %w", core.ErrConfiguration, err)
		}
		for _, name := range names {
			projects = append(projects, config.Project{Name: name})
		}
	}
	return Space{
		Projects:    projects,
		Modes:       cfg.Campaign.Modes,
		Variants:    cfg.Campaign.Variants,
		Iterations:  cfg.Campaign.Iterations,
		Timeout:     cfg.Campaign.Timeout,
		Kind:        kind,
		CoresPerJob: cfg.Campaign.CoresPerJob,
		ProjectsDir: cfg.Paths.ProjectsDir,
		Labels:      cfg.Engine.Labels,
	}, nil
}

// Generator expands a Space into scheduler requests.
type Generator struct {
	Resolver Resolver
	// Locator picks the heartbeat store of each task. Nil means a sqlite
	// file in the output dir.
	Locator *metrics.Locator
}

// Generate returns one request per project, mode, variant, entrypoint and
// iteration, in that nesting order. Resolution errors and entrypoints that
// would share an output dir abort generation.
func (g *Generator) Generate(ctx context.Context, space Space) ([]core.Request[engine.Task], error) {
	if err := space.validate(); err != nil {
		return nil, err
	}
	variants := space.Variants
	if len(variants) == 0 {
		variants = []config.Variant{{}}
	}
	modes := space.Modes
	if space.Kind == engine.KindUnitTest {
		modes = []string{testSuiteMode}
	}

	var reqs []core.Request[engine.Task]
	seen := make(map[string]bool)
	for _, project := range space.Projects {
		for _, mode := range modes {
			eps, err := g.entrypoints(ctx, space, project.Name, mode)
			if err != nil {
				return nil, err
			}
			for _, variant := range variants {
				for _, ep := range eps {
					for i := range space.Iterations {
						name := jobName(project.Name, mode, variant.Name, ep, len(eps) > 1)
						label := path.Join(fmt.Sprintf("iter_%d", i), name)
						if seen[label] {
							return nil, fmt.Errorf("%w: entrypoints of %s/%s share the output dir %s", core.ErrConfiguration, project.Name, mode, label)
						}
						seen[label] = true
						outDir := filepath.Join(space.Root, filepath.FromSlash(label))
						task := engine.Task{
							Label:      label,
							Project:    project.Name,
							Mode:       mode,
							Variant:    variant.Name,
							Entrypoint: ep.Path,
							Iteration:  i,
							Seed:       space.Seeds[i],
							OutDir:     outDir,
							Timeout:    space.Timeout,
							Metrics:    g.metricsTarget(outDir),
							Args:       space.args(project, variant, ep),
						}
						reqs = append(reqs, core.Request[engine.Task]{
							Payload: task,
							Cores:   space.CoresPerJob,
							Group:   project.Name,
						})
					}
				}
			}
		}
	}
	return reqs, nil
}

func (g *Generator) entrypoints(ctx context.Context, space Space, project, mode string) ([]Entrypoint, error) {
	if space.Kind == engine.KindUnitTest {
		return []Entrypoint{{}}, nil
	}
	if g.Resolver == nil {
		return nil, fmt.Errorf("%w: no entrypoint resolver", core.ErrConfiguration)
	}
	eps, err := g.Resolver.Resolve(ctx, project, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving %s/%s: %w", core.ErrConfiguration, project, mode, err)
	}
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: no entrypoints for %s/%s", core.ErrConfiguration, project, mode)
	}
	return eps, nil
}

func (g *Generator) metricsTarget(outDir string) string {
	if g.Locator == nil {
		return filepath.Join(outDir, metrics.FileName)
	}
	return g.Locator.Target(outDir)
}

func jobName(project, mode, variant string, ep Entrypoint, multi bool) string {
	name := project + "_" + mode
	if variant != "" {
		name += "_" + variant
	}
	if multi {
		name += "_" + ep.Name()
	}
	return name
}

func (s Space) validate() error {
	switch {
	case s.Iterations < 1:
		return fmt.Errorf("%w: iterations must be at least 1, got %d", core.ErrConfiguration, s.Iterations)
	case len(s.Seeds) < s.Iterations:
		return fmt.Errorf("%w: %d seeds for %d iterations", core.ErrConfiguration, len(s.Seeds), s.Iterations)
	case s.CoresPerJob < 1:
		return fmt.Errorf("%w: cores per job must be at least 1, got %d", core.ErrConfiguration, s.CoresPerJob)
	case len(s.Modes) == 0 && s.Kind != engine.KindUnitTest:
		return fmt.Errorf("%w: no modes", core.ErrConfiguration)
	case s.Root == "":
		return fmt.Errorf("%w: no results root", core.ErrConfiguration)
	}
	switch s.Kind {
	case engine.KindFuzz, engine.KindManaged, engine.KindUnitTest:
	default:
		return fmt.Errorf("%w: unknown engine kind %q", core.ErrConfiguration, s.Kind)
	}
	return nil
}

func (s Space) args(project config.Project, variant config.Variant, ep Entrypoint) engine.Args {
	include := project.Include
	if include == "" {
		include = defaultInclude
	}
	source := filepath.Join(s.ProjectsDir, project.Name, "src")

	switch s.Kind {
	case engine.KindManaged:
		return engine.ManagedArgs{
			Driver:  ep.Path,
			Source:  source,
			Include: include,
			Exclude: project.Exclude,
		}
	case engine.KindUnitTest:
		return engine.UnitTestArgs{
			Source:  source,
			Include: include,
			Exclude: project.Exclude,
			Command: project.Test,
		}
	default:
		return engine.FuzzArgs{
			Config:          ep.Config,
			Schema:          variant.Schema,
			SimpleMutations: variant.SimpleMutations,
			Ignored:         project.Ignored,
			SkipEndpoints:   project.SkipEndpoints,
			Labels:          maps.Clone(s.Labels),
		}
	}
}
