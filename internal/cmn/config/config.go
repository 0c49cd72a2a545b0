package config

import (
	"fmt"
	"time"
)

// Config holds the validated configuration of a campaign run.
type Config struct {
	Paths    Paths
	Campaign Campaign
	Engine   Engine
	// Projects in configuration order.
	Projects []Project
	// Entrypoints maps project -> mode -> statically configured entrypoints.
	Entrypoints map[string]map[string][]Entrypoint
	Metrics     Metrics
	// Publish is nil when publishing is disabled.
	Publish   *Publish
	Debug     bool
	LogFormat string
	DotEnv    []string
	Warnings  []string
}

// Paths holds the resolved directories.
type Paths struct {
	ConfigDir      string
	ConfigFileUsed string
	ResultsDir     string
	ResultsPrefix  string
	ExamplesDir    string
	ProjectsDir    string
}

// Campaign is the configuration space of one sweep.
type Campaign struct {
	Modes      []string
	Variants   []Variant
	Iterations int
	Seeds      []int
	// Timeout of zero means unbounded.
	Timeout     time.Duration
	Capacity    int
	CoresPerJob int
	Pin         bool
	Workers     int
}

// Variant is a schema/mutation variant of the engine.
type Variant struct {
	Name            string
	Schema          string
	SimpleMutations bool
}

// Project is a benchmark target.
type Project struct {
	Name          string
	Include       string
	Exclude       string
	Main          string
	Ignored       []string
	SkipEndpoints []string
	Test          []string
}

// Engine is the engine selection.
type Engine struct {
	Kind    string
	Command []string
	Labels  map[string]string
}

type Entrypoint struct {
	Path   string
	Config string
}

type Metrics struct {
	Driver string
	DSN    string
}

// Publish holds the object storage target for summary artifacts.
type Publish struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Secure    bool
	AccessKey string
	SecretKey string
}

// Supported metrics drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ProjectNames returns the configured project names in order.
func (c *Config) ProjectNames() []string {
	names := make([]string, 0, len(c.Projects))
	for _, p := range c.Projects {
		names = append(names, p.Name)
	}
	return names
}

// Project looks up a project by name.
func (c *Config) Project(name string) (Project, bool) {
	for _, p := range c.Projects {
		if p.Name == name {
			return p, true
		}
	}
	return Project{}, false
}

// Validate checks the campaign settings that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Campaign.Iterations < 1 {
		return fmt.Errorf("campaign.iterations must be at least 1, got %d", c.Campaign.Iterations)
	}
	if c.Campaign.CoresPerJob < 1 {
		return fmt.Errorf("campaign.coresPerJob must be at least 1, got %d", c.Campaign.CoresPerJob)
	}
	if c.Campaign.Capacity < 0 {
		return fmt.Errorf("campaign.capacity must not be negative, got %d", c.Campaign.Capacity)
	}
	if c.Campaign.Workers < 0 {
		return fmt.Errorf("campaign.workers must not be negative, got %d", c.Campaign.Workers)
	}
	if c.Campaign.Timeout < 0 {
		return fmt.Errorf("campaign.timeout must not be negative, got %s", c.Campaign.Timeout)
	}
	if len(c.Campaign.Modes) == 0 {
		return fmt.Errorf("campaign.modes must not be empty")
	}
	switch c.Metrics.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported metrics driver %q", c.Metrics.Driver)
	}
	if c.Metrics.Driver == DriverPostgres && c.Metrics.DSN == "" {
		return fmt.Errorf("metrics.dsn is required for the postgres driver")
	}
	if c.Publish != nil && c.Publish.Bucket == "" {
		return fmt.Errorf("publish.bucket is required when publish.endpoint is set")
	}
	seen := make(map[string]bool, len(c.Projects))
	for _, p := range c.Projects {
		if p.Name == "" {
			return fmt.Errorf("project entry without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate project %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
