package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mayant15/railcar-bench/internal/build"
	"github.com/mayant15/railcar-bench/internal/cmd"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   build.Slug,
	Short: "railcar-bench runs fuzzing benchmark campaigns",
	Long: `railcar-bench runs fuzzing benchmark campaigns.

It expands a configuration space of projects, modes, variants and iterations
into jobs, packs them onto the host's cores in waves, and aggregates the
coverage every job reached into a summary compared against the previous
campaign.
`,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cmd.Run())
	rootCmd.AddCommand(cmd.Plan())
	rootCmd.AddCommand(cmd.Summarize())
	rootCmd.AddCommand(cmd.Replay())
	rootCmd.AddCommand(cmd.Version())

	build.Version = version
	rootCmd.Version = version
}

var version = "0.0.0"
