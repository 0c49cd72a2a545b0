//go:build !linux

package cmdutil

import (
	"errors"
	"os/exec"
)

// AffinitySupported reports whether StartWithAffinity can pin processes.
const AffinitySupported = false

// StartWithAffinity starts cmd without pinning; CPU affinity is Linux only.
func StartWithAffinity(cmd *exec.Cmd, _ []int) error {
	return cmd.Start()
}

// Affinity is not available on this platform.
func Affinity(_ int) ([]int, error) {
	return nil, errors.New("cpu affinity is not supported on this platform")
}
