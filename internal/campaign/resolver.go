package campaign

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/mayant15/railcar-bench/internal/core"
)

// ErrUnknownProject is returned by a resolver that has no entrypoints for a
// project/mode pair. ChainResolver moves on to the next resolver.
var ErrUnknownProject = errors.New("unknown project")

// Entrypoint is a fuzz target and the engine config used with it.
type Entrypoint struct {
	Path   string
	Config string
}

// Name is the driver name used to tell entrypoints of one project apart:
// the file name without its extension.
func (e Entrypoint) Name() string {
	base := filepath.Base(e.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Resolver finds the entrypoints of a project for a mode.
type Resolver interface {
	Resolve(ctx context.Context, project, mode string) ([]Entrypoint, error)
}

// StaticResolver serves entrypoints listed in the configuration.
type StaticResolver map[string]map[string][]config.Entrypoint

func (r StaticResolver) Resolve(_ context.Context, project, mode string) ([]Entrypoint, error) {
	eps := r[project][mode]
	if len(eps) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownProject, project, mode)
	}
	out := make([]Entrypoint, 0, len(eps))
	for _, ep := range eps {
		out = append(out, Entrypoint(ep))
	}
	return out, nil
}

// ChainResolver asks each resolver in turn. The first one that knows the
// project wins; any other error is returned as is.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, project, mode string) ([]Entrypoint, error) {
	for _, r := range c {
		eps, err := r.Resolve(ctx, project, mode)
		if errors.Is(err, ErrUnknownProject) {
			continue
		}
		return eps, err
	}
	return nil, fmt.Errorf("%w: no entrypoints for %s/%s", ErrUnknownProject, project, mode)
}

// LookupFunc returns the npm entry file of pkg, running in dir.
type LookupFunc func(ctx context.Context, dir, pkg string) (string, error)

const (
	locatorScript = "locate-index.js"
	configFile    = "railcar.config.js"
	baselineFile  = "baseline.js"
	driversDir    = "railcar"
	modeBytes     = "bytes"
)

// packageAliases maps example directory names to the npm package they wrap.
var packageAliases = map[string]string{
	"turf":    "@turf/turf",
	"angular": "@angular/compiler",
	"xmldom":  "@xmldom/xmldom",
}

// NodeLookup runs `node <script> <pkg>` and returns its trimmed output.
func NodeLookup(script string) LookupFunc {
	return func(ctx context.Context, dir, pkg string) (string, error) {
		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, "node", script, pkg)
		cmd.Dir = dir
		cmd.Stderr = &stderr
		out, err := cmd.Output()
		if err != nil {
			return "", fmt.Errorf("failed to locate %s: %w: %s", pkg, err, strings.TrimSpace(stderr.String()))
		}
		return strings.TrimSpace(string(out)), nil
	}
}

// ExamplesResolver finds entrypoints in the examples directory. The bytes
// mode uses the hand-written drivers of a project; every other mode fuzzes
// the npm package entry file directly.
type ExamplesResolver struct {
	Dir    string
	Lookup LookupFunc
}

func (r *ExamplesResolver) Resolve(ctx context.Context, project, mode string) ([]Entrypoint, error) {
	root := filepath.Join(r.Dir, project)
	if !fileutil.IsDir(root) {
		return nil, fmt.Errorf("%w: %s not found in %s", ErrUnknownProject, project, r.Dir)
	}
	if mode == modeBytes {
		return r.bytesEntrypoints(root)
	}

	projectConfig := filepath.Join(root, configFile)
	if !fileutil.IsFile(projectConfig) {
		return nil, fmt.Errorf("%w: %s has no %s", core.ErrConfiguration, project, configFile)
	}
	pkg := project
	if alias, ok := packageAliases[project]; ok {
		pkg = alias
	}
	lookup := r.Lookup
	if lookup == nil {
		lookup = NodeLookup(filepath.Join(r.Dir, locatorScript))
	}
	path, err := lookup(ctx, r.Dir, pkg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfiguration, err)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: no entry file found for package %s", core.ErrConfiguration, pkg)
	}
	return []Entrypoint{{Path: path, Config: projectConfig}}, nil
}

func (r *ExamplesResolver) bytesEntrypoints(root string) ([]Entrypoint, error) {
	projectConfig := filepath.Join(root, configFile)

	drivers := filepath.Join(root, driversDir)
	if fileutil.IsDir(drivers) {
		entries, err := os.ReadDir(drivers)
		if err != nil {
			return nil, fmt.Errorf("failed to list drivers: %w", err)
		}
		var eps []Entrypoint
		for _, e := range entries {
			if strings.Contains(e.Name(), "config") {
				continue
			}
			ep := Entrypoint{Path: filepath.Join(drivers, e.Name())}
			adjacent := filepath.Join(drivers, ep.Name()+".config.js")
			switch {
			case fileutil.IsFile(adjacent):
				ep.Config = adjacent
			case fileutil.IsFile(projectConfig):
				ep.Config = projectConfig
			default:
				return nil, fmt.Errorf("%w: no configuration file for driver %s", core.ErrConfiguration, ep.Path)
			}
			eps = append(eps, ep)
		}
		if len(eps) == 0 {
			return nil, fmt.Errorf("%w: %s contains no drivers", core.ErrConfiguration, drivers)
		}
		slices.SortFunc(eps, func(a, b Entrypoint) int { return strings.Compare(a.Path, b.Path) })
		return eps, nil
	}

	baseline := filepath.Join(root, baselineFile)
	if fileutil.IsFile(baseline) {
		if !fileutil.IsFile(projectConfig) {
			return nil, fmt.Errorf("%w: %s has no %s", core.ErrConfiguration, root, configFile)
		}
		return []Entrypoint{{Path: baseline, Config: projectConfig}}, nil
	}
	return nil, fmt.Errorf("%w: %s has neither %s/ nor %s", core.ErrConfiguration, root, driversDir, baselineFile)
}

// ProjectsResolver serves the jazzer driver of an instrumented project in
// the benchmark projects directory, for every mode.
type ProjectsResolver struct {
	Dir string
}

func (r *ProjectsResolver) Resolve(_ context.Context, project, _ string) ([]Entrypoint, error) {
	driver := filepath.Join(r.Dir, project, "drivers", "jazzer.js")
	if !fileutil.IsFile(driver) {
		return nil, fmt.Errorf("%w: %s has no jazzer driver", ErrUnknownProject, project)
	}
	return []Entrypoint{{Path: driver}}, nil
}

// DiscoverProjects lists the project directories in the examples directory.
func DiscoverProjects(examplesDir string) ([]string, error) {
	entries, err := os.ReadDir(examplesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list examples: %w", err)
	}
	var projects []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "example" {
			projects = append(projects, e.Name())
		}
	}
	return projects, nil
}
