//go:build linux

package cmdutil

import (
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartWithAffinity(t *testing.T) {
	allowed, err := Affinity(os.Getpid())
	require.NoError(t, err)
	require.NotEmpty(t, allowed)
	target := allowed[len(allowed)-1]

	cmd := exec.Command("sleep", "5")
	SetupCommand(cmd)
	require.NoError(t, StartWithAffinity(cmd, []int{target}))
	defer func() {
		_ = KillProcessGroup(cmd, syscall.SIGKILL)
		_ = cmd.Wait()
	}()

	cores, err := Affinity(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, []int{target}, cores)

	// The calling thread gets its original mask back.
	after, err := Affinity(0)
	require.NoError(t, err)
	assert.Equal(t, allowed, after)
}

func TestStartWithAffinity_Unpinned(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, StartWithAffinity(cmd, nil))
	require.NoError(t, cmd.Wait())
}

func TestKillProcessGroup(t *testing.T) {
	// The shell spawns a child; killing the group must take down both.
	cmd := exec.Command("/bin/sh", "-c", "sleep 30 & wait")
	SetupCommand(cmd)
	require.NoError(t, cmd.Start())

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	require.NoError(t, KillProcessGroup(cmd, syscall.SIGKILL))

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("process group was not killed")
	}
}

func TestKillProcessGroup_NotStarted(t *testing.T) {
	assert.NoError(t, KillProcessGroup(exec.Command("true"), syscall.SIGKILL))
	assert.NoError(t, KillProcessGroup(nil, syscall.SIGKILL))
}
