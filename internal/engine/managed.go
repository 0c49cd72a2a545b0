package engine

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/mayant15/railcar-bench/internal/core"
)

// ManagedEngine runs a libFuzzer-style engine (jazzer.js) and then replays
// the corpus it produced under nyc to measure coverage.
type ManagedEngine struct {
	// Command launches the engine, ["npx", "jazzer"] by default.
	Command []string
}

var _ Engine = (*ManagedEngine)(nil)

func (e *ManagedEngine) Kind() Kind { return KindManaged }

func (e *ManagedEngine) command() []string {
	if len(e.Command) == 0 {
		return []string{"npx", "jazzer"}
	}
	return e.Command
}

// Plan returns the fuzz step followed by the replay step. The fuzz step is
// restarted with the next seed until the timeout is spent, since the engine
// exits on the first crash it finds.
func (e *ManagedEngine) Plan(task Task, _ core.CoreSet, env Environment) ([]Invocation, error) {
	args, err := argsOf[ManagedArgs](task)
	if err != nil {
		return nil, err
	}
	if args.Driver == "" {
		return nil, fmt.Errorf("task %s has no fuzz driver", task.Label)
	}
	if args.Source == "" {
		return nil, fmt.Errorf("task %s has no project source", task.Label)
	}

	corpus := args.Corpus
	if corpus == "" {
		corpus = task.CorpusDir()
	}
	cmd := e.command()

	var plan []Invocation
	if !args.ReplayOnly {
		base := append(slices.Clone(cmd[1:]), args.Driver, corpus, "--")
		seed := task.Seed
		fuzz := Invocation{
			Name:    "fuzz",
			Path:    cmd[0],
			Args:    append(slices.Clone(base), "-seed="+strconv.Itoa(seed)),
			Dir:     task.CrashesDir(),
			Env:     env.Vars,
			Timeout: task.Timeout,
		}
		if task.Timeout > 0 {
			fuzz.Args = jazzerArgs(base, seed, task.Timeout)
			fuzz.Rearm = func(attempt int, remaining time.Duration) []string {
				return jazzerArgs(base, seed+attempt, remaining)
			}
		}
		plan = append(plan, fuzz)
	}

	// nyc already resolves binaries from node_modules/.bin.
	replayCmd := cmd
	if cmd[0] == "npx" && len(cmd) > 1 {
		replayCmd = cmd[1:]
	}
	replay := append(slices.Clone(replayCmd), "--mode", "regression", args.Driver, corpus)

	cov := Coverage{
		Source:    args.Source,
		Include:   args.Include,
		Exclude:   args.Exclude,
		ReportDir: task.CoverageDir(),
	}
	plan = append(plan, cov.Invocation("replay", replay, args.Source, env))

	return plan, nil
}

func jazzerArgs(base []string, seed int, remaining time.Duration) []string {
	secs := int(math.Ceil(remaining.Seconds()))
	return append(slices.Clone(base),
		"-seed="+strconv.Itoa(seed),
		"-max_total_time="+strconv.Itoa(secs),
	)
}
