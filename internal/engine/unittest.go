package engine

import (
	"fmt"

	"github.com/mayant15/railcar-bench/internal/core"
)

// UnitTestRunner runs a project's own test suite under nyc so its coverage
// can be compared with the fuzzers'.
type UnitTestRunner struct{}

var _ Engine = (*UnitTestRunner)(nil)

func (UnitTestRunner) Kind() Kind { return KindUnitTest }

// Plan wraps the project's test command in nyc. Projects without a test
// command produce an empty plan.
func (UnitTestRunner) Plan(task Task, _ core.CoreSet, env Environment) ([]Invocation, error) {
	args, err := argsOf[UnitTestArgs](task)
	if err != nil {
		return nil, err
	}
	if len(args.Command) == 0 {
		return nil, nil
	}
	if args.Source == "" {
		return nil, fmt.Errorf("task %s has no project source", task.Label)
	}

	cov := Coverage{
		Source:    args.Source,
		Include:   args.Include,
		Exclude:   args.Exclude,
		ReportDir: task.CoverageDir(),
	}
	inv := cov.Invocation("test", args.Command, args.Source, env)
	inv.Timeout = task.Timeout
	return []Invocation{inv}, nil
}
