package campaign

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/executor"
	"github.com/mayant15/railcar-bench/internal/results"
	"github.com/mayant15/railcar-bench/internal/scheduler"
)

// ReplayPrefix names the roots replay coverage is written to.
const ReplayPrefix = "railcar-replay-coverage"

// ReplayRequests builds one single-core replay request per job found under
// root. Each replay writes below covRoot/<label> and reads the corpus the
// original job produced.
func ReplayRequests(root, covRoot, projectsDir string, projects []config.Project) ([]core.Request[engine.Task], error) {
	manifests, err := findManifests(root)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]config.Project, len(projects))
	for _, p := range projects {
		byName[p.Name] = p
	}

	reqs := make([]core.Request[engine.Task], 0, len(manifests))
	for _, m := range manifests {
		orig, _, err := engine.ReadManifest(m)
		if err != nil {
			return nil, err
		}
		orig.OutDir = filepath.Dir(m)

		project := byName[orig.Project]
		project.Name = orig.Project
		include := project.Include
		if include == "" {
			include = defaultInclude
		}
		src := filepath.Join(projectsDir, orig.Project)

		task := engine.Task{
			Label:      orig.Label,
			Project:    orig.Project,
			Mode:       orig.Mode,
			Variant:    orig.Variant,
			Entrypoint: orig.Entrypoint,
			Iteration:  orig.Iteration,
			Seed:       orig.Seed,
			OutDir:     filepath.Join(covRoot, filepath.FromSlash(orig.Label)),
			Args: engine.ManagedArgs{
				Driver:     filepath.Join(src, "drivers", "jazzer.js"),
				Source:     filepath.Join(src, "src"),
				Include:    include,
				Exclude:    project.Exclude,
				Corpus:     orig.CorpusDir(),
				ReplayOnly: true,
			},
		}
		reqs = append(reqs, core.Request[engine.Task]{Payload: task, Cores: 1})
	}
	return reqs, nil
}

// ReplayPlan replays the corpora of an existing root.
type ReplayPlan struct {
	Root        string
	ResultsDir  string
	ProjectsDir string
	Projects    []config.Project
	Capacity    int
	Workers     int
	Pin         bool
}

// ReplayOutcome lists the replay jobs and the coverage they reported.
type ReplayOutcome struct {
	Root    string
	Results []executor.Result
	Reports map[string]results.CoverageReport
}

// Replay runs every corpus of plan.Root through the managed engine's
// coverage replay.
func (r *Runner) Replay(ctx context.Context, plan ReplayPlan) (*ReplayOutcome, error) {
	unlock, err := lockResults(ctx, plan.ResultsDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	covRoot, err := results.EnsureDir(plan.ResultsDir, ReplayPrefix, r.now())
	if err != nil {
		return nil, err
	}
	reqs, err := ReplayRequests(plan.Root, covRoot, plan.ProjectsDir, plan.Projects)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no %s found under %s", engine.ManifestFile, plan.Root)
	}

	capacity := plan.Capacity
	if capacity < 1 {
		capacity = executor.HostCores(ctx)
	}
	sched, err := scheduler.Schedule(reqs, capacity)
	if err != nil {
		return nil, err
	}
	workers := plan.Workers
	if workers < 1 {
		workers = capacity
	}

	logger.Info(ctx, "Replaying corpora", tag.Dir(plan.Root), tag.Count(len(reqs)), tag.Int("waves", len(sched)))
	pool := executor.New(ctx, r.Planner, workers,
		executor.WithAffinity(plan.Pin),
		executor.WithEnvironment(r.Env),
	)
	jobResults := executor.RunSchedule(ctx, pool, sched)
	pool.Close()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("replay interrupted: %w", err)
	}

	out := &ReplayOutcome{Root: covRoot, Results: jobResults, Reports: make(map[string]results.CoverageReport)}
	for _, req := range reqs {
		report, err := results.ReadCoverageReport(req.Payload.CoverageDir())
		if err != nil {
			continue
		}
		out.Reports[req.Payload.Label] = report
	}
	return out, nil
}
