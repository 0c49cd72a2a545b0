package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mayant15/railcar-bench/internal/build"
	"github.com/mayant15/railcar-bench/internal/campaign"
	"github.com/mayant15/railcar-bench/internal/cmn/config"
	"github.com/mayant15/railcar-bench/internal/results"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTest isolates the global viper instance and the process environment
// from the host.
func setupTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("RAILCAR_BENCH_HOME", t.TempDir())
	t.Setenv("DISCORD_WEBHOOK", "")
	t.Setenv("SLACK_WEBHOOK", "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// capture runs a command that only records the Context it was given.
func capture(t *testing.T, flags []commandLineFlag, args ...string) (*Context, error) {
	t.Helper()
	var got *Context
	cmd := NewCommand(&cobra.Command{Use: "capture"}, flags, func(ctx *Context, _ []string) error {
		got = ctx
		return nil
	})
	_, err := execute(t, cmd, args...)
	return got, err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, Version())
	require.NoError(t, err)
	assert.Equal(t, build.Version+"\n", out)
}

func TestNewContext_FlagsOverrideConfig(t *testing.T) {
	setupTest(t)
	path := writeConfig(t, `
campaign:
  projects:
    - pako
    - name: js-yaml
      include: "lib/**"
  modes: [bytes]
  iterations: 4
  timeout: 1m
`)

	ctx, err := capture(t, campaignFlags,
		"--config", path,
		"--timeout", "5",
		"--iterations", "3",
		"--mode", "graph", "--mode", "sequence",
		"--pin",
		"--project", "js-yaml", "--project", "sharp",
	)
	require.NoError(t, err)
	require.NotNil(t, ctx)

	cfg := ctx.Config
	assert.Equal(t, path, cfg.Paths.ConfigFileUsed)
	assert.Equal(t, 5*time.Minute, cfg.Campaign.Timeout)
	assert.Equal(t, 3, cfg.Campaign.Iterations)
	assert.Equal(t, []string{"graph", "sequence"}, cfg.Campaign.Modes)
	assert.True(t, cfg.Campaign.Pin)
	assert.Equal(t, []string{"js-yaml", "sharp"}, cfg.ProjectNames())

	p, ok := cfg.Project("js-yaml")
	require.True(t, ok)
	assert.Equal(t, "lib/**", p.Include, "configured entries keep their settings")
}

func TestNewContext_ConfigDefaults(t *testing.T) {
	setupTest(t)
	path := writeConfig(t, "campaign:\n  iterations: 2\n  timeout: 90\n")

	ctx, err := capture(t, campaignFlags, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.Config.Campaign.Iterations)
	assert.Equal(t, 90*time.Second, ctx.Config.Campaign.Timeout)
	assert.False(t, ctx.Quiet)
	assert.NotEmpty(t, ctx.Env.Dir)
}

func TestNewContext_Pin(t *testing.T) {
	tests := []struct {
		name     string
		config   string
		args     []string
		expected bool
	}{
		{name: "Default", expected: true},
		{name: "FlagDisables", args: []string{"--pin=false"}, expected: false},
		{name: "ConfigDisables", config: "campaign:\n  pin: false\n", expected: false},
		{name: "FlagOverridesConfig", config: "campaign:\n  pin: false\n", args: []string{"--pin"}, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTest(t)
			args := append([]string{"--quiet"}, tt.args...)
			if tt.config != "" {
				args = append(args, "--config", writeConfig(t, tt.config))
			}
			ctx, err := capture(t, campaignFlags, args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ctx.Config.Campaign.Pin)
		})
	}
}

func TestNewContext_Timeout(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected time.Duration
		errMsg   string
	}{
		{name: "Minutes", value: "10", expected: 10 * time.Minute},
		{name: "Unbounded", value: "0", expected: 0},
		{name: "NotANumber", value: "soon", errMsg: "invalid --timeout"},
		{name: "Negative", value: "-3", errMsg: "invalid --timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTest(t)
			ctx, err := capture(t, campaignFlags, "--quiet", "--timeout="+tt.value)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.True(t, ctx.Quiet)
			assert.Equal(t, tt.expected, ctx.Config.Campaign.Timeout)
		})
	}
}

func TestNewContext_InvalidConfig(t *testing.T) {
	setupTest(t)
	path := writeConfig(t, "campaign:\n  iterations: 0\n")

	_, err := capture(t, nil, "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialization error")
}

func TestNewContext_DotEnv(t *testing.T) {
	setupTest(t)
	dotenv := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("SLACK_WEBHOOK=http://127.0.0.1:1/hook\n"), 0600))
	path := writeConfig(t, "dotenv: ["+dotenv+"]\n")

	ctx, err := capture(t, nil, "--config", path)
	require.NoError(t, err)

	v, ok := ctx.Env.Lookup("SLACK_WEBHOOK")
	require.True(t, ok)
	assert.Equal(t, "http://127.0.0.1:1/hook", v)
	assert.NotNil(t, ctx.Notifier())
}

func TestSelectProjects(t *testing.T) {
	configured := []config.Project{{Name: "pako", Include: "lib/**"}, {Name: "sharp"}}

	got := selectProjects(configured, []string{"sharp", "js-yaml", "pako", "sharp"})
	assert.Equal(t, []config.Project{{Name: "sharp"}, {Name: "js-yaml"}, {Name: "pako", Include: "lib/**"}}, got)
}

func TestPlan(t *testing.T) {
	setupTest(t)
	resultsDir := t.TempDir()
	path := writeConfig(t, `
resultsDir: `+resultsDir+`
campaign:
  projects:
    - name: pako
      test: [npm, test]
    - name: js-yaml
      test: [npm, test]
  iterations: 2
  seeds: [7, 11]
  capacity: 2
engine:
  kind: unit-test
`)

	out, err := execute(t, Plan(), "--config", path, "--quiet")
	require.NoError(t, err)

	assert.Contains(t, out, "engine: unit-test\n")
	assert.Contains(t, out, "iter_0 seed: 7\niter_1 seed: 11\n")
	assert.Contains(t, out, "capacity: 2 cores\n")
	assert.Contains(t, out, "jobs: 4 in 2 waves\n")
	assert.Contains(t, out, "wave 0 (2 cores):")
	assert.Contains(t, out, "iter_0/pako_testsuite")
	assert.Contains(t, out, "iter_1/js-yaml_testsuite")

	entries, err := os.ReadDir(resultsDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "plan must not create a results root")
}

func TestPlan_CapacityFlag(t *testing.T) {
	setupTest(t)
	path := writeConfig(t, `
resultsDir: `+t.TempDir()+`
campaign:
  projects:
    - name: pako
      test: [npm, test]
  iterations: 3
  seeds: [1, 2, 3]
engine:
  kind: unit-test
`)

	out, err := execute(t, Plan(), "--config", path, "--quiet", "--capacity", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "jobs: 3 in 3 waves\n")
}

func TestPlan_ConfigurationError(t *testing.T) {
	setupTest(t)
	path := writeConfig(t, "engine:\n  kind: afl\n")

	_, err := execute(t, Plan(), "--config", path, "--quiet")
	require.Error(t, err)
}

// fuzzConfig runs a fuzz campaign whose engine is a shell that exits at once
// without writing heartbeats.
func fuzzConfig(t *testing.T, resultsDir string) string {
	t.Helper()
	ep := filepath.Join(t.TempDir(), "fuzz.js")
	require.NoError(t, os.WriteFile(ep, []byte("module.exports = {}\n"), 0600))
	return writeConfig(t, `
resultsDir: `+resultsDir+`
resultsPrefix: bench
campaign:
  projects: [pako]
  modes: [bytes, graph]
  iterations: 1
  seeds: [42]
  capacity: 2
  timeout: 30
engine:
  kind: fuzz
  command: ["/bin/sh", "-c", "exit 0", "railcar"]
entrypoints:
  pako:
    bytes:
      - path: `+ep+`
    graph:
      - path: `+ep+`
`)
}

func TestRunAndSummarize(t *testing.T) {
	setupTest(t)
	resultsDir := t.TempDir()
	path := fuzzConfig(t, resultsDir)

	out, err := execute(t, Run(), "--config", path, "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "iter_0 seed: 42\n")
	assert.Contains(t, out, "timeout: 30s\n")

	roots, err := filepath.Glob(filepath.Join(resultsDir, "bench-*"))
	require.NoError(t, err)
	require.Len(t, roots, 1)
	root := roots[0]
	assert.FileExists(t, filepath.Join(resultsDir, results.LockFileName))

	campaignLog, err := os.ReadFile(filepath.Join(root, campaign.LogFileName))
	require.NoError(t, err)
	assert.Contains(t, string(campaignLog), "Campaign started", "quiet only silences stderr")

	rec, err := campaign.ReadRecord(root)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Jobs)
	assert.Equal(t, "fuzz", rec.Engine)
	assert.Contains(t, out, "campaign: "+rec.ID+"\n")

	for _, job := range []string{"pako_bytes", "pako_graph"} {
		assert.FileExists(t, filepath.Join(root, "iter_0", job, "job.yaml"))
		assert.FileExists(t, filepath.Join(root, "iter_0", job, "logs.txt"))
	}

	summary, err := os.ReadFile(filepath.Join(root, results.SummaryFileName))
	require.NoError(t, err)
	assert.Equal(t, out, string(summary))

	viper.Reset()
	again, err := execute(t, Summarize(), "--config", path, "--quiet", root)
	require.NoError(t, err)
	assert.Equal(t, out, again, "summarizing the same root is stable")
}

func TestSummarize_MissingRoot(t *testing.T) {
	setupTest(t)

	_, err := execute(t, Summarize(), "--quiet", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestReplay_EmptyRoot(t *testing.T) {
	setupTest(t)
	path := writeConfig(t, "resultsDir: "+t.TempDir()+"\ncampaign:\n  capacity: 1\n")

	_, err := execute(t, Replay(), "--config", path, "--quiet", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job.yaml")
}

func TestResolver(t *testing.T) {
	setupTest(t)
	ctx, err := capture(t, nil, "--quiet")
	require.NoError(t, err)

	assert.NotNil(t, ctx.Resolver("fuzz"))
	assert.NotNil(t, ctx.Resolver("managed"))
	assert.Nil(t, ctx.Resolver("unit-test"))

	pub, err := ctx.Publisher()
	require.NoError(t, err)
	assert.Nil(t, pub)
}
