package cmd

import (
	"fmt"

	"github.com/mayant15/railcar-bench/internal/campaign"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/metrics"
	"github.com/mayant15/railcar-bench/internal/notify"
	"github.com/mayant15/railcar-bench/internal/publish"
)

// Registry returns the engines available to a campaign.
func (c *Context) Registry() *engine.Registry {
	return engine.NewRegistry(
		&engine.FuzzEngine{Command: c.Config.Engine.Command, PinCores: c.Config.Campaign.Pin},
		&engine.ManagedEngine{},
		engine.UnitTestRunner{},
	)
}

// Resolver returns the entrypoint resolver for the given engine kind.
// Entrypoints from the config file take precedence over discovered ones.
func (c *Context) Resolver(kind engine.Kind) campaign.Resolver {
	static := campaign.StaticResolver(c.Config.Entrypoints)
	switch kind {
	case engine.KindFuzz:
		return campaign.ChainResolver{static, &campaign.ExamplesResolver{Dir: c.Config.Paths.ExamplesDir}}
	case engine.KindManaged:
		return campaign.ChainResolver{static, &campaign.ProjectsResolver{Dir: c.Config.Paths.ProjectsDir}}
	default:
		return nil
	}
}

// Locator returns where heartbeats are read from. The caller closes it.
func (c *Context) Locator() *metrics.Locator {
	return metrics.NewLocator(c.Config.Metrics.Driver, c.Config.Metrics.DSN)
}

// Notifier returns the webhook notifier configured in the environment.
func (c *Context) Notifier() notify.Notifier {
	n := notify.FromEnv(c.Env.Map())
	if _, ok := n.(notify.Nop); ok {
		logger.Debug(c, "No webhook configured, notifications are disabled")
	}
	return n
}

// Publisher returns the artifact publisher, or nil when publishing is not
// configured.
func (c *Context) Publisher() (campaign.Publisher, error) {
	if c.Config.Publish == nil {
		return nil, nil
	}
	p, err := publish.New(*c.Config.Publish)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}
	logger.Debug(c, "Publishing enabled", tag.URL(c.Config.Publish.Endpoint))
	return p, nil
}

// NewRunner builds a campaign runner for the engine kind. The returned
// function releases the metrics connections.
func (c *Context) NewRunner(kind engine.Kind) (*campaign.Runner, func(), error) {
	locator := c.Locator()
	cleanup := func() {
		if err := locator.Close(); err != nil {
			logger.Warn(c, "Failed to close metrics store", tag.Error(err))
		}
	}

	runner := &campaign.Runner{
		Generator: &campaign.Generator{Resolver: c.Resolver(kind), Locator: locator},
		Planner:   c.Registry(),
		Locator:   locator,
		Notifier:  c.Notifier(),
		Env:       c.Env,
		RepoDir:   c.Env.Dir,
		LogToFile: c.LogToFile,
	}
	pub, err := c.Publisher()
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if pub != nil {
		runner.Publisher = pub
	}
	return runner, cleanup, nil
}

// CampaignPlan builds the campaign plan from the loaded configuration.
func (c *Context) CampaignPlan() (campaign.Plan, error) {
	space, err := campaign.NewSpace(c.Config)
	if err != nil {
		return campaign.Plan{}, err
	}
	return campaign.Plan{
		Space:         space,
		PinnedSeeds:   c.Config.Campaign.Seeds,
		Capacity:      c.Config.Campaign.Capacity,
		Workers:       c.Config.Campaign.Workers,
		Pin:           c.Config.Campaign.Pin,
		ResultsDir:    c.Config.Paths.ResultsDir,
		ResultsPrefix: c.Config.Paths.ResultsPrefix,
	}, nil
}
