package build

import "strings"

var (
	Version = "dev"
	AppName = "railcar-bench"
	Slug    = ""
)

func init() {
	if Slug == "" {
		Slug = strings.ToLower(AppName)
	}
}

// EnvPrefix returns the prefix used for environment overrides, e.g. RAILCAR_BENCH.
func EnvPrefix() string {
	return strings.ToUpper(strings.ReplaceAll(Slug, "-", "_"))
}
