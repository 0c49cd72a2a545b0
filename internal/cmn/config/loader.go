package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-viper/mapstructure/v2"
	"github.com/mayant15/railcar-bench/internal/build"
	"github.com/mayant15/railcar-bench/internal/cmn/duration"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/spf13/viper"
	"mvdan.cc/sh/v3/shell"
)

// Default campaign settings, matching the nightly sweep.
var (
	defaultProjects = []string{"fast-xml-parser", "pako", "js-yaml", "protobuf-js", "sharp"}
	defaultModes    = []string{"bytes", "graph"}
)

const (
	defaultResultsPrefix = "railcar-results"
	defaultIterations    = 4
	defaultTimeout       = "1m"
)

// ConfigLoader reads and merges configuration from the config file, the
// environment and bound command line flags.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	appHomeDir string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithAppHomeDir overrides the application home directory, which is
// otherwise taken from RAILCAR_BENCH_HOME or the XDG config directory.
func WithAppHomeDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.appHomeDir = dir
	}
}

// Load loads the configuration using the global viper instance, so values
// bound from command line flags take part in the merge.
func Load(options ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.GetViper(), options...).Load()
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load reads the configuration file, applies defaults and environment
// overrides, and returns a validated Config.
func (l *ConfigLoader) Load() (*Config, error) {
	configDir, err := l.configDir()
	if err != nil {
		return nil, err
	}

	l.configureViper(configDir)
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	configFileUsed, err := fileutil.ResolvePath(l.v.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config file path: %w", err)
	}

	var def Definition
	if err := l.v.Unmarshal(&def, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	cfg.Paths.ConfigDir = configDir
	cfg.Paths.ConfigFileUsed = configFileUsed
	cfg.Warnings = l.warnings

	return cfg, nil
}

// buildConfig transforms the Definition into a validated Config.
func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := Config{
		Debug:     def.Debug,
		LogFormat: def.LogFormat,
		Engine: Engine{
			Kind:    def.Engine.Kind,
			Command: []string(def.Engine.Command),
			Labels:  def.Engine.Labels,
		},
		Metrics: Metrics{
			Driver: strings.ToLower(def.Metrics.Driver),
			DSN:    def.Metrics.DSN,
		},
	}

	if err := l.loadPaths(&cfg, def); err != nil {
		return nil, err
	}
	l.loadCampaign(&cfg, def.Campaign)
	l.loadEntrypoints(&cfg, def)

	for _, f := range def.DotEnv {
		path, err := fileutil.ResolvePath(f)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dotenv path %q: %w", f, err)
		}
		cfg.DotEnv = append(cfg.DotEnv, path)
	}

	if def.Publish != nil && def.Publish.Endpoint != "" {
		cfg.Publish = &Publish{
			Endpoint:  def.Publish.Endpoint,
			Bucket:    def.Publish.Bucket,
			Prefix:    strings.Trim(def.Publish.Prefix, "/"),
			Secure:    def.Publish.Secure,
			AccessKey: def.Publish.AccessKey,
			SecretKey: def.Publish.SecretKey,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *ConfigLoader) loadPaths(cfg *Config, def Definition) error {
	for _, p := range []struct {
		name  string
		value string
		dst   *string
	}{
		{"resultsDir", def.ResultsDir, &cfg.Paths.ResultsDir},
		{"examplesDir", def.ExamplesDir, &cfg.Paths.ExamplesDir},
		{"projectsDir", def.ProjectsDir, &cfg.Paths.ProjectsDir},
	} {
		resolved, err := fileutil.ResolvePath(p.value)
		if err != nil {
			return fmt.Errorf("failed to resolve %s path %q: %w", p.name, p.value, err)
		}
		*p.dst = resolved
	}
	cfg.Paths.ResultsPrefix = def.ResultsPrefix
	if cfg.Paths.ResultsPrefix == "" {
		cfg.Paths.ResultsPrefix = defaultResultsPrefix
	}
	if cfg.Paths.ExamplesDir != "" && !fileutil.IsDir(cfg.Paths.ExamplesDir) {
		l.warnings = append(l.warnings, fmt.Sprintf("examples directory %s does not exist", cfg.Paths.ExamplesDir))
	}
	return nil
}

func (l *ConfigLoader) loadCampaign(cfg *Config, def CampaignDef) {
	cfg.Campaign = Campaign{
		Modes:       dedupe(def.Modes),
		Iterations:  def.Iterations,
		Seeds:       def.Seeds,
		Timeout:     l.parseTimeout("campaign.timeout", def.Timeout),
		Capacity:    def.Capacity,
		CoresPerJob: def.CoresPerJob,
		Pin:         def.Pin,
		Workers:     def.Workers,
	}
	for _, v := range def.Variants {
		cfg.Campaign.Variants = append(cfg.Campaign.Variants, Variant(v))
	}
	for _, p := range def.Projects {
		cfg.Projects = append(cfg.Projects, Project{
			Name:          p.Name,
			Include:       p.Include,
			Exclude:       p.Exclude,
			Main:          p.Main,
			Ignored:       p.Ignored,
			SkipEndpoints: p.SkipEndpoints,
			Test:          []string(p.Test),
		})
	}
	if len(def.Seeds) > def.Iterations {
		l.warnings = append(l.warnings, fmt.Sprintf(
			"campaign.seeds has %d entries for %d iterations; extra seeds are ignored", len(def.Seeds), def.Iterations))
	}
}

func (l *ConfigLoader) loadEntrypoints(cfg *Config, def Definition) {
	if len(def.Entrypoints) == 0 {
		return
	}
	cfg.Entrypoints = make(map[string]map[string][]Entrypoint, len(def.Entrypoints))
	for project, modes := range def.Entrypoints {
		byMode := make(map[string][]Entrypoint, len(modes))
		for mode, eps := range modes {
			for _, ep := range eps {
				if ep.Path == "" {
					l.warnings = append(l.warnings, fmt.Sprintf("entrypoint for %s/%s has no path; skipped", project, mode))
					continue
				}
				byMode[mode] = append(byMode[mode], Entrypoint(ep))
			}
		}
		cfg.Entrypoints[project] = byMode
	}
}

// parseTimeout accepts a duration string or a plain number of seconds. An
// invalid value adds a warning and falls back to the default.
func (l *ConfigLoader) parseTimeout(fieldName, value string) time.Duration {
	if strings.TrimSpace(value) == "" {
		return 0
	}
	d, err := duration.Parse(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("invalid %s %q, using %s", fieldName, value, defaultTimeout))
		d, _ = duration.Parse(defaultTimeout)
	}
	return d
}

func (l *ConfigLoader) configDir() (string, error) {
	if l.appHomeDir != "" {
		return fileutil.ResolvePath(l.appHomeDir)
	}
	if home := os.Getenv(build.EnvPrefix() + "_HOME"); home != "" {
		return fileutil.ResolvePath(home)
	}
	return filepath.Join(xdg.ConfigHome, build.Slug), nil
}

func (l *ConfigLoader) configureViper(configDir string) {
	if l.configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(build.EnvPrefix())
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *ConfigLoader) setDefaults() {
	l.v.SetDefault("resultsDir", ".")
	l.v.SetDefault("resultsPrefix", defaultResultsPrefix)
	l.v.SetDefault("examplesDir", "examples")
	l.v.SetDefault("projectsDir", filepath.Join("benchmarks", "projects"))
	l.v.SetDefault("debug", false)
	l.v.SetDefault("logFormat", "text")
	l.v.SetDefault("dotenv", []string{})

	l.v.SetDefault("campaign.projects", defaultProjects)
	l.v.SetDefault("campaign.modes", defaultModes)
	l.v.SetDefault("campaign.iterations", defaultIterations)
	l.v.SetDefault("campaign.seeds", []int{})
	l.v.SetDefault("campaign.timeout", defaultTimeout)
	l.v.SetDefault("campaign.capacity", 0)
	l.v.SetDefault("campaign.coresPerJob", 1)
	l.v.SetDefault("campaign.pin", true)
	l.v.SetDefault("campaign.workers", 0)

	l.v.SetDefault("engine.kind", "fuzz")
	l.v.SetDefault("engine.command", []string{"railcar"})

	l.v.SetDefault("metrics.driver", DriverSQLite)
	l.v.SetDefault("metrics.dsn", "")

	// Registered so the RAILCAR_BENCH_PUBLISH_* variables are picked up by
	// AutomaticEnv even without a publish section in the file.
	l.v.SetDefault("publish.endpoint", "")
	l.v.SetDefault("publish.bucket", "")
	l.v.SetDefault("publish.prefix", "")
	l.v.SetDefault("publish.secure", true)
	l.v.SetDefault("publish.accessKey", "")
	l.v.SetDefault("publish.secretKey", "")
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		commandLineHook(),
		mapstructure.StringToSliceHookFunc(","),
		projectNameHook(),
	)
}

// commandLineHook splits a command written as one string the way a shell
// would, so quoted arguments survive.
func commandLineHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(CommandDef{}) {
			return data, nil
		}
		fields, err := shell.Fields(data.(string), nil)
		if err != nil {
			return nil, fmt.Errorf("invalid command line %q: %w", data, err)
		}
		return fields, nil
	}
}

// projectNameHook lets a project be written as its bare name.
func projectNameHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf(ProjectDef{}) {
			return data, nil
		}
		name := strings.TrimSpace(data.(string))
		return map[string]any{"name": name}, nil
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
