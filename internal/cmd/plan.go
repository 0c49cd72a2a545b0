package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/scheduler"
	"github.com/spf13/cobra"
)

func Plan() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "plan [flags]",
			Short: "Print the wave plan of a campaign without running it",
			Long: `Generate the jobs of a campaign and pack them into waves exactly as run
would, then print the plan. Nothing is spawned and no results root is created.

Example:
  railcar-bench plan --capacity 16 --mode bytes
`,
			Args: cobra.NoArgs,
		}, campaignFlags, runPlan,
	)
}

// pendingRoot stands in for the results root, which only exists once a
// campaign starts.
const pendingRoot = "pending"

func runPlan(ctx *Context, _ []string) error {
	plan, err := ctx.CampaignPlan()
	if err != nil {
		return err
	}

	runner, cleanup, err := ctx.NewRunner(plan.Space.Kind)
	if err != nil {
		return err
	}
	defer cleanup()

	root := filepath.Join(plan.ResultsDir, plan.ResultsPrefix+"-"+pendingRoot)
	prepared, err := runner.Prepare(ctx, plan, root)
	if err != nil {
		return err
	}

	w := ctx.Command.OutOrStdout()
	printPlanHeader(w, plan.Space.Kind, prepared.Seeds, prepared.Capacity, len(prepared.Requests), len(prepared.Schedule))
	_, err = fmt.Fprint(w, scheduler.Describe(prepared.Schedule, engine.Task.String))
	return err
}

func printPlanHeader(w io.Writer, kind engine.Kind, seeds []int, capacity, jobs, waves int) {
	fmt.Fprintf(w, "engine: %s\n", kind)
	for i, s := range seeds {
		fmt.Fprintf(w, "iter_%d seed: %d\n", i, s)
	}
	fmt.Fprintf(w, "capacity: %d cores\n", capacity)
	fmt.Fprintf(w, "jobs: %d in %d waves\n\n", jobs, waves)
}
