package campaign

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/executor"
	"github.com/mayant15/railcar-bench/internal/metrics"
	"github.com/mayant15/railcar-bench/internal/results"
	"github.com/mayant15/railcar-bench/internal/scheduler"
	"github.com/samber/lo"
)

// Notifier delivers the rendered summary.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Publisher uploads summary artifacts of a results root.
type Publisher interface {
	Publish(ctx context.Context, root string, files ...string) error
}

// Runner executes campaigns. Notifier and Publisher are optional.
type Runner struct {
	Generator *Generator
	Planner   executor.Planner
	Locator   *metrics.Locator
	Notifier  Notifier
	Publisher Publisher
	Env       engine.Environment
	// RepoDir is the repository whose revision is recorded.
	RepoDir string
	// LogToFile, when set, returns a context whose logger also writes to w.
	// Run uses it to keep a campaign log in the results root.
	LogToFile func(ctx context.Context, w io.Writer) context.Context
	Rand      *rand.Rand
	Now       func() time.Time
}

// LogFileName is the campaign log kept at the top of a results root.
const LogFileName = "campaign.log"

// Plan is one campaign to run.
type Plan struct {
	Space       Space
	PinnedSeeds []int
	// Capacity below one uses every logical core of the host.
	Capacity int
	// Workers below one starts one worker per core of capacity.
	Workers       int
	Pin           bool
	ResultsDir    string
	ResultsPrefix string
}

// Prepared is a scheduled campaign that has not been started.
type Prepared struct {
	Seeds    []int
	Capacity int
	Requests []core.Request[engine.Task]
	Schedule core.Schedule[engine.Task]
}

// Outcome is the result of a campaign or of a re-summarized root.
type Outcome struct {
	Root    string
	Record  Record
	Results []executor.Result
	Rows    []results.Row
	Missing []results.Missing
	Summary results.Summary
	// Text is the rendered summary.
	Text  string
	Files []string
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) rng() *rand.Rand {
	if r.Rand == nil {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return r.Rand
}

// Prepare draws seeds, generates the requests of the plan under root and
// schedules them. Nothing is spawned.
func (r *Runner) Prepare(ctx context.Context, plan Plan, root string) (*Prepared, error) {
	seeds, err := DrawSeeds(plan.Space.Iterations, plan.PinnedSeeds, r.rng())
	if err != nil {
		return nil, err
	}
	space := plan.Space
	space.Seeds = seeds
	space.Root = root

	reqs, err := r.Generator.Generate(ctx, space)
	if err != nil {
		return nil, err
	}
	capacity := plan.Capacity
	if capacity < 1 {
		capacity = executor.HostCores(ctx)
	}
	sched, err := scheduler.Schedule(reqs, capacity)
	if err != nil {
		return nil, err
	}
	return &Prepared{Seeds: seeds, Capacity: capacity, Requests: reqs, Schedule: sched}, nil
}

// Run executes a campaign end to end: it creates a fresh results root,
// runs every wave, aggregates the heartbeats against the previous root and
// reports the summary.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Outcome, error) {
	unlock, err := lockResults(ctx, plan.ResultsDir)
	if err != nil {
		return nil, err
	}
	defer unlock()

	previous, err := results.PreviousDir(plan.ResultsDir, plan.ResultsPrefix, "")
	if err != nil {
		return nil, err
	}
	root, err := results.EnsureDir(plan.ResultsDir, plan.ResultsPrefix, r.now())
	if err != nil {
		return nil, err
	}

	prepared, err := r.Prepare(ctx, plan, root)
	if err != nil {
		// An empty root would become the baseline of the next campaign.
		if rmErr := os.RemoveAll(root); rmErr != nil {
			logger.Warn(ctx, "Failed to remove results root", tag.Dir(root), tag.Error(rmErr))
		}
		return nil, err
	}

	rec := Record{
		ID:        uuid.NewString(),
		CreatedAt: r.now().UTC(),
		Engine:    plan.Space.Kind.String(),
		Seeds:     prepared.Seeds,
		Timeout:   plan.Space.Timeout.String(),
		Capacity:  prepared.Capacity,
		Jobs:      len(prepared.Requests),
		Revision:  results.GitRevision(ctx, r.RepoDir),
		Host:      results.HostName(ctx),
		Baseline:  previous,
	}
	if err := writeRecord(root, rec); err != nil {
		return nil, err
	}

	if r.LogToFile != nil {
		logFile, err := fileutil.OpenOrCreateFile(filepath.Join(root, LogFileName))
		if err != nil {
			logger.Warn(ctx, "Failed to open campaign log", tag.Dir(root), tag.Error(err))
		} else {
			defer func() {
				_ = logFile.Close()
			}()
			ctx = r.LogToFile(ctx, logFile)
		}
	}

	ctx = logger.WithValues(ctx, "campaign", rec.ID)
	logger.Info(ctx, "Campaign started",
		tag.Dir(root),
		tag.Engine(rec.Engine),
		tag.Count(rec.Jobs),
		tag.Int("waves", len(prepared.Schedule)),
		tag.Int("capacity", prepared.Capacity),
		tag.Timeout(plan.Space.Timeout),
	)
	if previous == "" {
		logger.Info(ctx, "No previous results found, the summary has no baseline")
	}
	logger.Debug(ctx, "Wave plan\n"+scheduler.Describe(prepared.Schedule, engine.Task.String))

	workers := plan.Workers
	if workers < 1 {
		workers = prepared.Capacity
	}
	pool := executor.New(ctx, r.Planner, workers,
		executor.WithAffinity(plan.Pin),
		executor.WithEnvironment(r.Env),
	)
	jobResults := executor.RunSchedule(ctx, pool, prepared.Schedule)
	pool.Close()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("campaign interrupted: %w", err)
	}

	failed := lo.CountBy(jobResults, executor.Result.Failed)
	logger.Info(ctx, "All waves finished", tag.Count(len(jobResults)), tag.Int("failed", failed))

	tasks := lo.Map(prepared.Requests, func(req core.Request[engine.Task], _ int) engine.Task {
		return req.Payload
	})
	out, err := r.finish(ctx, root, rec, tasks)
	if err != nil {
		return nil, err
	}
	out.Results = jobResults

	r.report(ctx, out)
	return out, nil
}

// Summarize aggregates an existing results root again from the manifests
// its jobs left behind. Running it twice yields identical files. The
// results lock of the directory holding root is held while it runs.
func (r *Runner) Summarize(ctx context.Context, root string) (*Outcome, error) {
	unlock, err := lockResults(ctx, filepath.Dir(root))
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := ReadRecord(root)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "Results root has no campaign record, summarizing without a baseline", tag.Dir(root))
		rec = Record{Revision: "unknown"}
	} else if err != nil {
		return nil, err
	}

	manifests, err := findManifests(root)
	if err != nil {
		return nil, err
	}
	if len(manifests) == 0 {
		return nil, fmt.Errorf("no %s found under %s", engine.ManifestFile, root)
	}
	tasks := make([]engine.Task, 0, len(manifests))
	for _, m := range manifests {
		task, _, err := engine.ReadManifest(m)
		if err != nil {
			return nil, err
		}
		// The root may have been moved since the campaign ran.
		task.OutDir = filepath.Dir(m)
		if r.Locator != nil && !r.Locator.Shared() {
			task.Metrics = r.Locator.Target(task.OutDir)
		}
		tasks = append(tasks, task)
	}
	return r.finish(ctx, root, rec, tasks)
}

// finish aggregates tasks into the summary files of root. Rows are ordered
// by iteration, then label, whether the tasks come from a run or from the
// manifests of an existing root.
func (r *Runner) finish(ctx context.Context, root string, rec Record, tasks []engine.Task) (*Outcome, error) {
	tasks = slices.Clone(tasks)
	slices.SortFunc(tasks, func(a, b engine.Task) int {
		return cmp.Or(
			cmp.Compare(a.Iteration, b.Iteration),
			cmp.Compare(a.Label, b.Label),
		)
	})

	var reader results.SnapshotReader = r.Locator
	if r.Locator == nil {
		reader = metrics.NewLocator(metrics.DefaultDriver, "")
	}
	rows, missing, err := results.Collect(ctx, tasks, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to collect results: %w", err)
	}
	if len(missing) > 0 {
		logger.Warn(ctx, "Some jobs left no heartbeat", tag.Count(len(missing)))
	}

	baseline, err := results.LoadBaseline(rec.Baseline)
	if err != nil {
		logger.Warn(ctx, "Ignoring unreadable baseline", tag.Dir(rec.Baseline), tag.Error(err))
		baseline = nil
	}
	summary := results.Summarize(rows, baseline)

	summaryFile, err := results.WriteSummary(root, rec.Header(), summary)
	if err != nil {
		return nil, err
	}
	rowsFile, err := results.WriteRows(root, rows)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Summary written", tag.File(summaryFile), tag.Int("rows", len(rows)))

	return &Outcome{
		Root:    root,
		Record:  rec,
		Rows:    rows,
		Missing: missing,
		Summary: summary,
		Text:    results.Render(rec.Header(), summary),
		Files:   []string{summaryFile, rowsFile},
	}, nil
}

// report delivers the outcome. Delivery problems are logged only.
func (r *Runner) report(ctx context.Context, out *Outcome) {
	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, out.Text); err != nil {
			logger.Warn(ctx, "Failed to send notification", tag.Error(err))
		}
	}
	if r.Publisher != nil {
		if err := r.Publisher.Publish(ctx, out.Root, out.Files...); err != nil {
			logger.Warn(ctx, "Failed to publish results", tag.Dir(out.Root), tag.Error(err))
		}
	}
}

// lockResults takes the results lock of base. The returned function
// releases it.
func lockResults(ctx context.Context, base string) (func(), error) {
	lock, err := results.Lock(base)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn(ctx, "Failed to release results lock", tag.File(lock.Path()), tag.Error(err))
		}
	}, nil
}

// findManifests returns the job manifests below root in lexical order.
func findManifests(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+engine.ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(m)))
	}
	slices.Sort(paths)
	return paths, nil
}
