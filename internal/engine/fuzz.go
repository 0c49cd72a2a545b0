package engine

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/mayant15/railcar-bench/internal/core"
)

// FuzzEngine runs the railcar fuzzer.
type FuzzEngine struct {
	// Command is the base command line, e.g. ["railcar"] or
	// ["cargo", "run", "--release", "--bin", "railcar", "--"].
	Command []string
	// PinCores passes the assigned cores with --cores.
	PinCores bool
}

var _ Engine = (*FuzzEngine)(nil)

func (e *FuzzEngine) Kind() Kind { return KindFuzz }

// Plan returns a single fuzz invocation bounded by the task timeout.
func (e *FuzzEngine) Plan(task Task, cores core.CoreSet, env Environment) ([]Invocation, error) {
	args, err := argsOf[FuzzArgs](task)
	if err != nil {
		return nil, err
	}
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("fuzz engine has no command")
	}
	if task.Entrypoint == "" {
		return nil, fmt.Errorf("task %s has no entrypoint", task.Label)
	}

	argv := slices.Clone(e.Command[1:])
	argv = append(argv,
		"--outdir", task.OutDir,
		"--mode", task.Mode,
		"--seed", strconv.Itoa(task.Seed),
		"--metrics", task.Metrics,
		"--config", args.Config,
	)
	if args.Schema != "" {
		argv = append(argv, "--schema", args.Schema)
	}
	if e.PinCores && len(cores) > 0 {
		argv = append(argv, "--cores", cores.String())
	}
	if args.SimpleMutations {
		argv = append(argv, "--simple-mutations")
	}
	for _, msg := range args.Ignored {
		argv = append(argv, "-i", msg)
	}
	for _, endpoint := range args.SkipEndpoints {
		argv = append(argv, "-s", endpoint)
	}

	// The job label goes first so heartbeat rows in a shared store can be
	// told apart.
	argv = append(argv, "--label", "job="+task.Label)
	for _, k := range slices.Sorted(maps.Keys(args.Labels)) {
		if k == "job" {
			continue
		}
		argv = append(argv, "--label", k+"="+args.Labels[k])
	}
	argv = append(argv, task.Entrypoint)

	return []Invocation{{
		Name:    "fuzz",
		Path:    e.Command[0],
		Args:    argv,
		Dir:     env.Dir,
		Env:     env.Vars,
		Timeout: task.Timeout,
	}}, nil
}
