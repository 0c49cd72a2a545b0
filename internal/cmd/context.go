package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Context holds the configuration for a command.
type Context struct {
	context.Context

	Command *cobra.Command
	Flags   []commandLineFlag
	Config  *config.Config
	Quiet   bool
	// Env is the explicit environment every spawned job starts with.
	Env engine.Environment
}

// NewContext initializes the application setup by loading configuration,
// setting up logger context, and logging any warnings.
func NewContext(cmd *cobra.Command, flags []commandLineFlag) (*Context, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := bindFlags(cmd, flags...); err != nil {
		return nil, err
	}

	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return nil, fmt.Errorf("failed to get quiet flag: %w", err)
	}

	var configLoaderOpts []config.ConfigLoaderOption
	if cfgPath := viper.GetString("config"); cfgPath != "" {
		configLoaderOpts = append(configLoaderOpts, config.WithConfigFile(cfgPath))
	}

	cfg, err := config.Load(configLoaderOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if f := cmd.Flags().Lookup(projectFlag.name); f != nil && f.Changed {
		names, _ := cmd.Flags().GetStringSlice(projectFlag.name)
		cfg.Projects = selectProjects(cfg.Projects, names)
	}

	ctx = logger.WithLogger(ctx, logger.NewLogger(loggerOptions(cfg, quiet)...))

	for _, w := range cfg.Warnings {
		logger.Warn(ctx, w)
	}
	if cfg.Paths.ConfigFileUsed != "" {
		logger.Debug(ctx, "Configuration loaded", tag.File(cfg.Paths.ConfigFileUsed))
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	env, err := engine.NewEnvironment(wd, os.Environ(), cfg.DotEnv...)
	if err != nil {
		return nil, err
	}

	return &Context{
		Context: ctx,
		Command: cmd,
		Flags:   flags,
		Config:  cfg,
		Quiet:   quiet,
		Env:     env,
	}, nil
}

// LogToFile returns ctx with a logger that also writes to w.
func (c *Context) LogToFile(ctx context.Context, w io.Writer) context.Context {
	opts := append(loggerOptions(c.Config, c.Quiet), logger.WithWriter(w))
	return logger.WithLogger(ctx, logger.NewLogger(opts...))
}

func loggerOptions(cfg *config.Config, quiet bool) []logger.Option {
	var opts []logger.Option
	if cfg.Debug || os.Getenv("DEBUG") != "" {
		opts = append(opts, logger.WithDebug())
	}
	if quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if cfg.LogFormat != "" {
		opts = append(opts, logger.WithFormat(cfg.LogFormat))
	}
	return opts
}

// NewCommand wires runFunc into cmd with a fully initialized Context.
func NewCommand(cmd *cobra.Command, flags []commandLineFlag, runFunc func(cmd *Context, args []string) error) *cobra.Command {
	initFlags(cmd, flags...)
	cmd.SilenceUsage = true

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, err := NewContext(cmd, flags)
		if err != nil {
			return fmt.Errorf("initialization error: %w", err)
		}
		if err := runFunc(ctx, args); err != nil {
			logger.Error(ctx.Context, "Command failed", tag.Error(err))
			return err
		}
		return nil
	}

	return cmd
}

// selectProjects keeps the configured entries named in names, in the order
// given. Names without a configured entry become bare projects.
func selectProjects(configured []config.Project, names []string) []config.Project {
	selected := make([]config.Project, 0, len(names))
	for _, name := range names {
		if slices.ContainsFunc(selected, func(p config.Project) bool { return p.Name == name }) {
			continue
		}
		i := slices.IndexFunc(configured, func(p config.Project) bool { return p.Name == name })
		if i < 0 {
			selected = append(selected, config.Project{Name: name})
			continue
		}
		selected = append(selected, configured[i])
	}
	return selected
}
