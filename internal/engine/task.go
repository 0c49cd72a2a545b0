package engine

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Task is one unit of campaign work: a single engine run for a
// project/mode/variant/iteration combination.
type Task struct {
	// Label identifies the job. It is the output directory relative to the
	// results root, e.g. iter_0/pako_bytes.
	Label      string
	Project    string
	Mode       string
	Variant    string
	Entrypoint string
	Iteration  int
	Seed       int
	OutDir     string
	Timeout    time.Duration
	// Metrics is where the engine writes heartbeat rows: a sqlite file or a
	// shared store DSN.
	Metrics string
	Args    Args
}

// Directory layout of a job's output dir.
const (
	CorpusDirName   = "corpus"
	CrashesDirName  = "crashes"
	CoverageDirName = "coverage"
	LogFileName     = "logs.txt"
	MetricsFileName = "metrics.db"
)

func (t Task) CorpusDir() string   { return filepath.Join(t.OutDir, CorpusDirName) }
func (t Task) CrashesDir() string  { return filepath.Join(t.OutDir, CrashesDirName) }
func (t Task) CoverageDir() string { return filepath.Join(t.OutDir, CoverageDirName) }
func (t Task) LogFile() string     { return filepath.Join(t.OutDir, LogFileName) }

// Kind returns the kind of the task's argument record.
func (t Task) Kind() Kind {
	if t.Args == nil {
		return ""
	}
	return t.Args.Kind()
}

func (t Task) String() string { return t.Label }

// Environment carries the working directory and variables that every
// invocation is started with. Nothing is read from the ambient process
// environment once it has been built.
type Environment struct {
	Dir  string
	Vars []string
}

// NewEnvironment builds an environment from base variables (KEY=VALUE) and
// dotenv files. Later sources override earlier ones.
func NewEnvironment(dir string, base []string, dotenv ...string) (Environment, error) {
	env := Environment{Dir: dir}
	env = env.With(base...)
	for _, f := range dotenv {
		vars, err := godotenv.Read(f)
		if err != nil {
			return Environment{}, fmt.Errorf("failed to read dotenv file %s: %w", f, err)
		}
		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			env = env.With(k + "=" + vars[k])
		}
	}
	return env, nil
}

// With returns a copy of the environment with the given KEY=VALUE pairs set.
func (e Environment) With(kv ...string) Environment {
	vars := slices.Clone(e.Vars)
	for _, pair := range kv {
		key, _, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		vars = slices.DeleteFunc(vars, func(v string) bool {
			return strings.HasPrefix(v, key+"=")
		})
		vars = append(vars, pair)
	}
	return Environment{Dir: e.Dir, Vars: vars}
}

// Lookup returns the value of key.
func (e Environment) Lookup(key string) (string, bool) {
	for i := len(e.Vars) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(e.Vars[i], key+"="); ok {
			return v, true
		}
	}
	return "", false
}

// Map returns the variables as a map.
func (e Environment) Map() map[string]string {
	m := make(map[string]string, len(e.Vars))
	for _, pair := range e.Vars {
		if k, v, ok := strings.Cut(pair, "="); ok {
			m[k] = v
		}
	}
	return m
}

// Invocation is one process to start for a task.
type Invocation struct {
	// Name is a short step name used in logs ("fuzz", "replay").
	Name string
	Path string
	Args []string
	Dir  string
	Env  []string
	// Timeout of zero means the process may run forever.
	Timeout time.Duration
	// CoverageDir, when set, is emptied before the process starts.
	CoverageDir string
	// Cleanup lists paths removed after the process exits.
	Cleanup []string
	// Rearm, when set together with Timeout, restarts the process until the
	// timeout budget is used up. It returns the arguments for each attempt.
	Rearm func(attempt int, remaining time.Duration) []string
}

// Command returns the full command line.
func (inv Invocation) Command() []string {
	return append([]string{inv.Path}, inv.Args...)
}

func (inv Invocation) String() string {
	return strings.Join(inv.Command(), " ")
}
