//go:build linux

package cmdutil

import (
	"fmt"
	"os/exec"
	"runtime"

	"golang.org/x/sys/unix"
)

// AffinitySupported reports whether StartWithAffinity can pin processes.
const AffinitySupported = true

// maxCPUs mirrors CPU_SETSIZE.
const maxCPUs = 1024

// StartWithAffinity starts cmd restricted to the given CPU ids.
//
// The mask is applied to the calling OS thread right before the fork, so the
// child inherits it from its first instruction on. The thread's previous mask
// is restored afterwards. An empty core list starts the command unpinned.
func StartWithAffinity(cmd *exec.Cmd, cores []int) error {
	if len(cores) == 0 {
		return cmd.Start()
	}

	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}

	runtime.LockOSThread()

	var prev unix.CPUSet
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("failed to read cpu affinity: %w", err)
	}
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("failed to set cpu affinity %v: %w", cores, err)
	}

	startErr := cmd.Start()

	if err := unix.SchedSetaffinity(0, &prev); err != nil {
		// Keep the pinned thread locked; the runtime discards it with the goroutine.
		return startErr
	}
	runtime.UnlockOSThread()

	return startErr
}

// Affinity returns the CPU ids the given process may run on.
func Affinity(pid int) ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(pid, &set); err != nil {
		return nil, fmt.Errorf("failed to read cpu affinity of %d: %w", pid, err)
	}
	var cores []int
	for i := 0; i < maxCPUs && len(cores) < set.Count(); i++ {
		if set.IsSet(i) {
			cores = append(cores, i)
		}
	}
	return cores, nil
}
