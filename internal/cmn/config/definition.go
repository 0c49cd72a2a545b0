package config

// Definition holds the raw configuration as read from the config file and
// environment. It is turned into a validated Config by the loader.
type Definition struct {
	// ResultsDir is the directory holding one results root per campaign.
	ResultsDir string `mapstructure:"resultsDir"`

	// ResultsPrefix is the name prefix of every results root.
	ResultsPrefix string `mapstructure:"resultsPrefix"`

	// ExamplesDir contains one directory per benchmark target together with
	// the locate-index.js helper.
	ExamplesDir string `mapstructure:"examplesDir"`

	// ProjectsDir contains the instrumented project sources used by the
	// managed and unit-test engines.
	ProjectsDir string `mapstructure:"projectsDir"`

	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"logFormat"`

	// DotEnv lists dotenv files merged into the environment of every job.
	DotEnv []string `mapstructure:"dotenv"`

	Campaign    CampaignDef                           `mapstructure:"campaign"`
	Engine      EngineDef                             `mapstructure:"engine"`
	Entrypoints map[string]map[string][]EntrypointDef `mapstructure:"entrypoints"`
	Metrics     MetricsDef                            `mapstructure:"metrics"`
	Publish     *PublishDef                           `mapstructure:"publish"`
}

// CampaignDef describes the configuration space of a campaign.
type CampaignDef struct {
	// Projects may be given as plain names or as full project entries.
	Projects   []ProjectDef `mapstructure:"projects"`
	Modes      []string     `mapstructure:"modes"`
	Variants   []VariantDef `mapstructure:"variants"`
	Iterations int          `mapstructure:"iterations"`
	// Seeds pins the per-iteration seeds. Empty means a fresh draw.
	Seeds []int `mapstructure:"seeds"`
	// Timeout is a duration string ("10m") or a number of seconds. Zero
	// disables the limit.
	Timeout     string `mapstructure:"timeout"`
	Capacity    int    `mapstructure:"capacity"`
	CoresPerJob int    `mapstructure:"coresPerJob"`
	Pin         bool   `mapstructure:"pin"`
	Workers     int    `mapstructure:"workers"`
}

// ProjectDef is a benchmark target.
type ProjectDef struct {
	Name          string     `mapstructure:"name"`
	Include       string     `mapstructure:"include"`
	Exclude       string     `mapstructure:"exclude"`
	Main          string     `mapstructure:"main"`
	Ignored       []string   `mapstructure:"ignored"`
	SkipEndpoints []string   `mapstructure:"skipEndpoints"`
	Test          CommandDef `mapstructure:"test"`
}

// VariantDef is an optional schema/mutation variant.
type VariantDef struct {
	Name            string `mapstructure:"name"`
	Schema          string `mapstructure:"schema"`
	SimpleMutations bool   `mapstructure:"simpleMutations"`
}

// EngineDef selects the engine and its base command line.
type EngineDef struct {
	Kind    string            `mapstructure:"kind"`
	Command CommandDef        `mapstructure:"command"`
	Labels  map[string]string `mapstructure:"labels"`
}

// EntrypointDef is a statically configured entrypoint for a project/mode pair.
type EntrypointDef struct {
	Path   string `mapstructure:"path"`
	Config string `mapstructure:"config"`
}

// MetricsDef selects where heartbeat rows are read from. An empty DSN means
// one sqlite store per job.
type MetricsDef struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// PublishDef configures the optional S3-compatible artifact upload.
type PublishDef struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Secure    bool   `mapstructure:"secure"`
	AccessKey string `mapstructure:"accessKey"`
	SecretKey string `mapstructure:"secretKey"`
}

// CommandDef is a command line given either as a list of arguments or as a
// single string split with shell quoting rules.
type CommandDef []string
