// Package signal describes the signals that end job processes.
package signal

import (
	"errors"
	"os/exec"
	"strconv"
	"syscall"
)

type signalInfo struct {
	name string
	// crash marks signals raised by a fault in the process itself, as
	// opposed to signals sent to stop it.
	crash bool
}

// Name returns the conventional name of sig, e.g. "SIGSEGV". Unknown
// signals are named by number.
func Name(sig syscall.Signal) string {
	if info, ok := signalMap[sig]; ok {
		return info.name
	}
	return "signal " + strconv.Itoa(int(sig))
}

// IsCrash reports whether sig is raised by a fault such as an invalid memory
// access or an abort.
func IsCrash(sig syscall.Signal) bool {
	return signalMap[sig].crash
}

// FromError returns the signal that terminated the process behind err, an
// error returned by exec.Cmd.Wait.
func FromError(err error) (syscall.Signal, bool) {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return 0, false
	}
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return ws.Signal(), true
}
