//go:build windows

package signal

import "syscall"

var signalMap = map[syscall.Signal]signalInfo{
	syscall.SIGABRT: {"SIGABRT", true},
	syscall.SIGFPE:  {"SIGFPE", true},
	syscall.SIGILL:  {"SIGILL", true},
	syscall.SIGKILL: {"SIGKILL", false},
	syscall.SIGHUP:  {"SIGHUP", false},
	syscall.SIGINT:  {"SIGINT", false},
	syscall.SIGSEGV: {"SIGSEGV", true},
	syscall.SIGTERM: {"SIGTERM", false},
}
