//go:build unix

package signal

import (
	"context"
	"os/exec"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName(t *testing.T) {
	assert.Equal(t, "SIGSEGV", Name(syscall.SIGSEGV))
	assert.Equal(t, "SIGKILL", Name(syscall.SIGKILL))
	assert.Equal(t, "signal 63", Name(syscall.Signal(63)))
}

func TestIsCrash(t *testing.T) {
	assert.True(t, IsCrash(syscall.SIGSEGV))
	assert.True(t, IsCrash(syscall.SIGABRT))
	assert.False(t, IsCrash(syscall.SIGKILL))
	assert.False(t, IsCrash(syscall.SIGTERM))
	assert.False(t, IsCrash(syscall.Signal(63)))
}

func TestFromError(t *testing.T) {
	t.Run("Signaled", func(t *testing.T) {
		err := exec.CommandContext(context.Background(), "/bin/sh", "-c", "kill -SEGV $$").Run()
		require.Error(t, err)
		sig, ok := FromError(err)
		require.True(t, ok)
		assert.Equal(t, syscall.SIGSEGV, sig)
	})
	t.Run("ExitCode", func(t *testing.T) {
		err := exec.CommandContext(context.Background(), "/bin/sh", "-c", "exit 3").Run()
		require.Error(t, err)
		_, ok := FromError(err)
		assert.False(t, ok)
	})
	t.Run("Nil", func(t *testing.T) {
		_, ok := FromError(nil)
		assert.False(t, ok)
	})
}
