package engine

import "path/filepath"

// nycOutputDir is where nyc keeps raw coverage before reporting.
const nycOutputDir = ".nyc_output"

// Coverage describes an nyc-instrumented run of a project.
type Coverage struct {
	// Source is the project source root; nyc runs with it as --cwd.
	Source  string
	Include string
	Exclude string
	// ReportDir receives the lcov report.
	ReportDir string
}

// Wrap prefixes cmd with the nyc invocation that collects coverage for it.
func (c Coverage) Wrap(cmd []string) []string {
	wrapped := []string{
		"npx", "nyc",
		"--all",
		"--clean",
		"--cwd", c.Source,
		"--temp-dir", c.TempDir(),
		"--reporter", "lcov",
		"--reporter", "json-summary",
		"--report-dir", c.ReportDir,
		"--include", c.Include,
	}
	if c.Exclude != "" {
		wrapped = append(wrapped, "--exclude", c.Exclude)
	}
	return append(wrapped, cmd...)
}

// TempDir is nyc's scratch directory, removed once the report is written.
func (c Coverage) TempDir() string {
	return filepath.Join(c.ReportDir, nycOutputDir)
}

// Invocation builds the wrapped invocation for cmd.
func (c Coverage) Invocation(name string, cmd []string, dir string, env Environment) Invocation {
	argv := c.Wrap(cmd)
	return Invocation{
		Name:        name,
		Path:        argv[0],
		Args:        argv[1:],
		Dir:         dir,
		Env:         env.Vars,
		CoverageDir: c.ReportDir,
		Cleanup:     []string{c.TempDir()},
	}
}
