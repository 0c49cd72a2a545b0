package cmd

import (
	"fmt"

	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/executor"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func Run() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "run [flags]",
			Short: "Run a benchmark campaign",
			Long: `Run every configured project, mode and variant for the configured number
of iterations, packing jobs onto the available cores in waves.

Each job writes its corpus, crashes, coverage and heartbeats under a fresh
results root. Once all waves have finished, the latest heartbeat of every job
is aggregated into summary.txt and coverage.csv and compared against the
previous results root.

Example:
  railcar-bench run --timeout 10 --iterations 2 --mode graph --pin=false

A timeout of 0 lets every job run until it exits on its own.
`,
			Args: cobra.NoArgs,
		}, campaignFlags, runCampaign,
	)
}

func runCampaign(ctx *Context, _ []string) error {
	plan, err := ctx.CampaignPlan()
	if err != nil {
		return err
	}

	runner, cleanup, err := ctx.NewRunner(plan.Space.Kind)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := runner.Run(ctx, plan)
	if err != nil {
		return fmt.Errorf("campaign failed: %w", err)
	}

	if failed := lo.CountBy(out.Results, executor.Result.Failed); failed > 0 {
		logger.Warn(ctx, "Some jobs failed, see their logs.txt", tag.Count(failed))
	}

	_, err = fmt.Fprint(ctx.Command.OutOrStdout(), out.Text)
	return err
}
