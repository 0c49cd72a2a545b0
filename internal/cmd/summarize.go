package cmd

import (
	"fmt"

	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/spf13/cobra"
)

func Summarize() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "summarize [flags] <results root>",
			Short: "Aggregate an existing results root again",
			Long: `Read the job manifests and heartbeats left in a results root and rewrite
its summary.txt and coverage.csv. The baseline recorded when the campaign ran
is used for the comparison, so summarizing the same root twice produces
identical files.

Example:
  railcar-bench summarize ./railcar-results-2024-03-09-1709985600
`,
			Args: cobra.ExactArgs(1),
		}, nil, runSummarize,
	)
}

func runSummarize(ctx *Context, args []string) error {
	root, err := fileutil.ResolvePath(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve results root %q: %w", args[0], err)
	}
	if !fileutil.IsDir(root) {
		return fmt.Errorf("results root %s does not exist", root)
	}

	runner, cleanup, err := ctx.NewRunner(engine.KindFuzz)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := runner.Summarize(ctx, root)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(ctx.Command.OutOrStdout(), out.Text)
	return err
}
