package cmd

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mayant15/railcar-bench/internal/campaign"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/spf13/cobra"
)

func Replay() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "replay [flags] <results root>",
			Short: "Replay the corpora of a results root to measure coverage",
			Long: `Run every corpus found in a results root through the managed engine's
replay under nyc and report the line and branch coverage it reaches. The
coverage reports are written to a new railcar-replay-coverage root next to
the other results.

Example:
  railcar-bench replay --capacity 8 ./railcar-results-2024-03-09-1709985600
`,
			Args: cobra.ExactArgs(1),
		}, []commandLineFlag{capacityFlag, workersFlag, pinFlag, resultsDirFlag}, runReplay,
	)
}

func runReplay(ctx *Context, args []string) error {
	root, err := fileutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve results root %q: %w", args[0], err)
	}
	if !fileutil.IsDir(root) {
		return fmt.Errorf("results root %s does not exist", root)
	}

	runner, cleanup, err := ctx.NewRunner(engine.KindManaged)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := ctx.Config
	out, err := runner.Replay(ctx, campaign.ReplayPlan{
		Root:        root,
		ResultsDir:  cfg.Paths.ResultsDir,
		ProjectsDir: cfg.Paths.ProjectsDir,
		Projects:    cfg.Projects,
		Capacity:    cfg.Campaign.Capacity,
		Workers:     cfg.Campaign.Workers,
		Pin:         cfg.Campaign.Pin,
	})
	if err != nil {
		return fmt.Errorf("replay failed: %w", err)
	}
	if missing := len(out.Results) - len(out.Reports); missing > 0 {
		logger.Warn(ctx, "Some replays produced no coverage report", tag.Count(missing))
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Job", "Line %", "Branch %"})
	for _, label := range slices.Sorted(maps.Keys(out.Reports)) {
		report := out.Reports[label]
		t.AppendRow(table.Row{label, fmt.Sprintf("%.2f", report.Line), fmt.Sprintf("%.2f", report.Branch)})
	}
	_, err = fmt.Fprintf(ctx.Command.OutOrStdout(), "coverage root: %s\n%s\n", out.Root, t.Render())
	return err
}
