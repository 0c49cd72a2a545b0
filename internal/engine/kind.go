package engine

import (
	"fmt"
	"strings"
)

// Kind tags an engine and the argument record it accepts.
type Kind string

const (
	// KindFuzz is the railcar fuzzer.
	KindFuzz Kind = "fuzz"
	// KindManaged is a libFuzzer-style engine followed by a coverage replay.
	KindManaged Kind = "managed"
	// KindUnitTest runs the project's own test suite under coverage.
	KindUnitTest Kind = "unit-test"
)

// Kinds lists every supported kind.
var Kinds = []Kind{KindFuzz, KindManaged, KindUnitTest}

// ParseKind parses a kind from configuration or a flag.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown engine kind %q", s)
}

func (k Kind) String() string { return string(k) }

// Heartbeats reports whether jobs of the kind write heartbeats. Kinds that
// do not are measured by their nyc coverage report alone.
func (k Kind) Heartbeats() bool {
	return k != KindManaged && k != KindUnitTest
}

// Args is the per-kind argument record carried by a Task. Exactly one
// implementation exists per Kind.
type Args interface {
	Kind() Kind
}

// FuzzArgs are the arguments of the fuzz engine.
type FuzzArgs struct {
	// Config is the engine config file (railcar.config.js).
	Config          string            `yaml:"config"`
	Schema          string            `yaml:"schema,omitempty"`
	SimpleMutations bool              `yaml:"simpleMutations,omitempty"`
	Ignored         []string          `yaml:"ignored,omitempty"`
	SkipEndpoints   []string          `yaml:"skipEndpoints,omitempty"`
	Labels          map[string]string `yaml:"labels,omitempty"`
}

func (FuzzArgs) Kind() Kind { return KindFuzz }

// ManagedArgs are the arguments of the managed engine.
type ManagedArgs struct {
	// Driver is the fuzz driver script.
	Driver string `yaml:"driver"`
	// Source is the instrumented project source, used as the nyc cwd.
	Source  string `yaml:"source"`
	Include string `yaml:"include"`
	Exclude string `yaml:"exclude,omitempty"`
	// Corpus overrides <outdir>/corpus, used when replaying an older run.
	Corpus string `yaml:"corpus,omitempty"`
	// ReplayOnly skips fuzzing and only replays the corpus for coverage.
	ReplayOnly bool `yaml:"replayOnly,omitempty"`
}

func (ManagedArgs) Kind() Kind { return KindManaged }

// UnitTestArgs are the arguments of the unit test runner.
type UnitTestArgs struct {
	Source  string   `yaml:"source"`
	Include string   `yaml:"include"`
	Exclude string   `yaml:"exclude,omitempty"`
	Command []string `yaml:"command,omitempty"`
}

func (UnitTestArgs) Kind() Kind { return KindUnitTest }
