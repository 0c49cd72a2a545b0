package campaign

import (
	"context"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testResolver = StaticResolver{
	"pako": {
		"bytes": {{Path: "/e/pako/baseline.js", Config: "/e/pako/railcar.config.js"}},
		"graph": {{Path: "/nm/pako/index.js", Config: "/e/pako/railcar.config.js"}},
	},
	"xmldom": {
		"bytes": {
			{Path: "/e/xmldom/railcar/dom-parser-html.js", Config: "/e/xmldom/railcar.config.js"},
			{Path: "/e/xmldom/railcar/dom-parser-xml.js", Config: "/e/xmldom/railcar.config.js"},
		},
		"graph": {{Path: "/nm/@xmldom/xmldom/index.js", Config: "/e/xmldom/railcar.config.js"}},
	},
}

func testSpace(root string) Space {
	return Space{
		Projects: []config.Project{
			{Name: "pako", Ignored: []string{"invalid"}},
			{Name: "xmldom", SkipEndpoints: []string{"DOMParser"}},
		},
		Modes:       []string{"bytes", "graph"},
		Iterations:  2,
		Seeds:       []int{7, 11},
		Timeout:     time.Minute,
		Root:        root,
		Kind:        engine.KindFuzz,
		CoresPerJob: 1,
		Labels:      map[string]string{"run": "nightly"},
	}
}

func labels(reqs []core.Request[engine.Task]) []string {
	out := make([]string, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.Payload.Label)
	}
	return out
}

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	g := &Generator{Resolver: testResolver}

	reqs, err := g.Generate(context.Background(), testSpace(root))
	require.NoError(t, err)

	// pako: 2 modes x 2 iterations, xmldom: (2 bytes drivers + 1 graph) x 2 iterations
	assert.Equal(t, []string{
		"iter_0/pako_bytes", "iter_1/pako_bytes",
		"iter_0/pako_graph", "iter_1/pako_graph",
		"iter_0/xmldom_bytes_dom-parser-html", "iter_1/xmldom_bytes_dom-parser-html",
		"iter_0/xmldom_bytes_dom-parser-xml", "iter_1/xmldom_bytes_dom-parser-xml",
		"iter_0/xmldom_graph", "iter_1/xmldom_graph",
	}, labels(reqs))

	first := reqs[0]
	assert.Equal(t, 1, first.Cores)
	assert.Equal(t, "pako", first.Group)
	task := first.Payload
	assert.Equal(t, filepath.Join(root, "iter_0", "pako_bytes"), task.OutDir)
	assert.Equal(t, filepath.Join(task.OutDir, metrics.FileName), task.Metrics)
	assert.Equal(t, 7, task.Seed)
	assert.Equal(t, 11, reqs[1].Payload.Seed)
	assert.Equal(t, time.Minute, task.Timeout)
	assert.Equal(t, "/e/pako/baseline.js", task.Entrypoint)
	assert.Equal(t, engine.FuzzArgs{
		Config:  "/e/pako/railcar.config.js",
		Ignored: []string{"invalid"},
		Labels:  map[string]string{"run": "nightly"},
	}, task.Args)

	xml := reqs[6].Payload.Args.(engine.FuzzArgs)
	assert.Equal(t, []string{"DOMParser"}, xml.SkipEndpoints)
}

func TestGenerate_Variants(t *testing.T) {
	space := testSpace(t.TempDir())
	space.Projects = space.Projects[:1]
	space.Modes = []string{"graph"}
	space.Iterations = 1
	space.Variants = []config.Variant{
		{Name: "plain"},
		{Name: "schema", Schema: "/s/pako.json", SimpleMutations: true},
	}

	reqs, err := (&Generator{Resolver: testResolver}).Generate(context.Background(), space)
	require.NoError(t, err)
	assert.Equal(t, []string{"iter_0/pako_graph_plain", "iter_0/pako_graph_schema"}, labels(reqs))

	args := reqs[1].Payload.Args.(engine.FuzzArgs)
	assert.Equal(t, "/s/pako.json", args.Schema)
	assert.True(t, args.SimpleMutations)
	assert.Equal(t, "schema", reqs[1].Payload.Variant)
}

func TestGenerate_UniqueLabels(t *testing.T) {
	space := testSpace(t.TempDir())
	space.Iterations = 3
	space.Seeds = []int{1, 2, 3}
	space.Variants = []config.Variant{{Name: "a"}, {Name: "b"}}

	reqs, err := (&Generator{Resolver: testResolver}).Generate(context.Background(), space)
	require.NoError(t, err)
	// (pako 2 + xmldom 3 entrypoints) x 2 variants x 3 iterations
	require.Len(t, reqs, 30)

	seen := make(map[string]bool)
	for _, r := range reqs {
		assert.False(t, seen[r.Payload.Label], r.Payload.Label)
		seen[r.Payload.Label] = true
		assert.Equal(t, space.Seeds[r.Payload.Iteration], r.Payload.Seed)
	}
}

func TestGenerate_SharedMetrics(t *testing.T) {
	g := &Generator{Resolver: testResolver, Locator: metrics.NewLocator("postgres", "postgres://db/bench")}
	reqs, err := g.Generate(context.Background(), testSpace(t.TempDir()))
	require.NoError(t, err)
	for _, r := range reqs {
		assert.Equal(t, "postgres://db/bench", r.Payload.Metrics)
	}
}

func TestGenerate_Managed(t *testing.T) {
	space := testSpace(t.TempDir())
	space.Kind = engine.KindManaged
	space.Projects = []config.Project{{Name: "pako", Include: "lib/**", Exclude: "dist/**"}}
	space.Modes = []string{"bytes"}
	space.ProjectsDir = "/bench/projects"
	space.CoresPerJob = 2

	reqs, err := (&Generator{Resolver: testResolver}).Generate(context.Background(), space)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, 2, reqs[0].Cores)
	assert.Equal(t, engine.ManagedArgs{
		Driver:  "/e/pako/baseline.js",
		Source:  "/bench/projects/pako/src",
		Include: "lib/**",
		Exclude: "dist/**",
	}, reqs[0].Payload.Args)
}

func TestGenerate_UnitTest(t *testing.T) {
	space := testSpace(t.TempDir())
	space.Kind = engine.KindUnitTest
	space.Projects = []config.Project{{Name: "js-yaml", Test: []string{"npm", "test"}}}
	space.ProjectsDir = "/bench/projects"

	// No resolver needed: the test suite runs once per iteration.
	reqs, err := (&Generator{}).Generate(context.Background(), space)
	require.NoError(t, err)
	assert.Equal(t, []string{"iter_0/js-yaml_testsuite", "iter_1/js-yaml_testsuite"}, labels(reqs))
	assert.Equal(t, engine.UnitTestArgs{
		Source:  "/bench/projects/js-yaml/src",
		Include: defaultInclude,
		Command: []string{"npm", "test"},
	}, reqs[0].Payload.Args)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Space)
		g      *Generator
	}{
		{name: "TooFewSeeds", mutate: func(s *Space) { s.Seeds = []int{1} }},
		{name: "ZeroIterations", mutate: func(s *Space) { s.Iterations = 0 }},
		{name: "ZeroCores", mutate: func(s *Space) { s.CoresPerJob = 0 }},
		{name: "NoModes", mutate: func(s *Space) { s.Modes = nil }},
		{name: "NoRoot", mutate: func(s *Space) { s.Root = "" }},
		{name: "UnknownKind", mutate: func(s *Space) { s.Kind = "afl" }},
		{name: "UnresolvedProject", mutate: func(s *Space) { s.Projects = append(s.Projects, config.Project{Name: "lodash"}) }},
		{name: "NoResolver", mutate: func(*Space) {}, g: &Generator{}},
		{
			name:   "SharedOutputDir",
			mutate: func(s *Space) { s.Projects = s.Projects[:1]; s.Modes = []string{"bytes"} },
			g: &Generator{Resolver: StaticResolver{"pako": {"bytes": {
				{Path: "/e/pako/railcar/inflate.js", Config: "/e/pako/railcar.config.js"},
				{Path: "/e/pako/drivers/inflate.js", Config: "/e/pako/railcar.config.js"},
			}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			space := testSpace(t.TempDir())
			tt.mutate(&space)
			g := tt.g
			if g == nil {
				g = &Generator{Resolver: testResolver}
			}
			reqs, err := g.Generate(context.Background(), space)
			assert.ErrorIs(t, err, core.ErrConfiguration)
			assert.Nil(t, reqs)
		})
	}
}

func TestDrawSeeds(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	seeds, err := DrawSeeds(4, nil, rng)
	require.NoError(t, err)
	require.Len(t, seeds, 4)
	for _, s := range seeds {
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100000)
	}

	again, err := DrawSeeds(4, nil, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	assert.Equal(t, seeds, again, "same source, same seeds")

	pinned, err := DrawSeeds(2, []int{7, 11, 13}, rng)
	require.NoError(t, err)
	assert.Equal(t, []int{7, 11}, pinned)

	_, err = DrawSeeds(3, []int{7}, rng)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	_, err = DrawSeeds(0, nil, rng)
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
