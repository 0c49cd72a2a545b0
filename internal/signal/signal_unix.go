//go:build unix

package signal

import "syscall"

// See https://pubs.opengroup.org/onlinepubs/9699919799/
var signalMap = map[syscall.Signal]signalInfo{
	syscall.SIGABRT: {"SIGABRT", true},
	syscall.SIGALRM: {"SIGALRM", false},
	syscall.SIGBUS:  {"SIGBUS", true},
	syscall.SIGFPE:  {"SIGFPE", true},
	syscall.SIGHUP:  {"SIGHUP", false},
	syscall.SIGILL:  {"SIGILL", true},
	syscall.SIGINT:  {"SIGINT", false},
	syscall.SIGKILL: {"SIGKILL", false},
	syscall.SIGPIPE: {"SIGPIPE", false},
	syscall.SIGQUIT: {"SIGQUIT", true},
	syscall.SIGSEGV: {"SIGSEGV", true},
	syscall.SIGSYS:  {"SIGSYS", true},
	syscall.SIGTERM: {"SIGTERM", false},
	syscall.SIGTRAP: {"SIGTRAP", true},
	syscall.SIGUSR1: {"SIGUSR1", false},
	syscall.SIGUSR2: {"SIGUSR2", false},
	syscall.SIGXCPU: {"SIGXCPU", true},
	syscall.SIGXFSZ: {"SIGXFSZ", true},
}
