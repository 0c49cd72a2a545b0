// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
package tag

import (
	"log/slog"
	"time"
)

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Job creates a tag for a job label (its identity inside a campaign).
func Job(label string) slog.Attr {
	return slog.String("job", label)
}

// Project creates a tag for target library names.
func Project(name string) slog.Attr {
	return slog.String("project", name)
}

// Mode creates a tag for engine execution modes.
func Mode(mode string) slog.Attr {
	return slog.String("mode", mode)
}

// Engine creates a tag for engine kinds.
func Engine(kind string) slog.Attr {
	return slog.String("engine", kind)
}

// Wave creates a tag for wave indices.
func Wave(n int) slog.Attr {
	return slog.Int("wave", n)
}

// Cores creates a tag for a core-id list.
func Cores(list string) slog.Attr {
	return slog.String("cores", list)
}

// Count creates a tag for generic counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Seed creates a tag for RNG seeds.
func Seed(seed int64) slog.Attr {
	return slog.Int64("seed", seed)
}

// Campaign creates a tag for campaign identifiers.
func Campaign(id string) slog.Attr {
	return slog.String("campaign", id)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Dir creates a tag for directory paths.
func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// Command creates a tag for an executable path.
func Command(path string) slog.Attr {
	return slog.String("command", path)
}

// Step creates a tag for the invocation name within a job.
func Step(name string) slog.Attr {
	return slog.String("step", name)
}

// Timeout creates a tag for timeout duration values.
func Timeout(d time.Duration) slog.Attr {
	return slog.Duration("timeout", d)
}

// Duration creates a tag for elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// ExitCode creates a tag for process exit codes.
func ExitCode(code int) slog.Attr {
	return slog.Int("exit-code", code)
}

// URL creates a tag for remote endpoints.
func URL(url string) slog.Attr {
	return slog.String("url", url)
}

// Size creates a tag for pool or capacity sizes.
func Size(n int) slog.Attr {
	return slog.Int("size", n)
}

// Signal creates a tag for the signal that terminated a process.
func Signal(name string) slog.Attr {
	return slog.String("signal", name)
}
