package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/mayant15/railcar-bench/internal/cmn/cmdutil"
	"github.com/mayant15/railcar-bench/internal/cmn/fileutil"
	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/signal"
)

var errStart = errors.New("failed to start")

// Result is the outcome of one job.
type Result struct {
	Job   core.Job[engine.Task]
	Steps []StepResult
	// Err is set when the job could not be prepared or was never started.
	Err      error
	Duration time.Duration
}

// Failed reports whether the job or any of its steps failed.
func (r Result) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, s := range r.Steps {
		if s.Failed() {
			return true
		}
	}
	return false
}

// StepResult is the outcome of one invocation.
type StepResult struct {
	Name     string
	ExitCode int
	TimedOut bool
	// Attempts counts restarts of a rearmed invocation.
	Attempts int
	// Signal names the signal that terminated the process, if any.
	Signal   string
	// Crashed is set when that signal was raised by a fault in the process.
	Crashed  bool
	Err      error
	Duration time.Duration
}

// Failed reports a non-zero exit, a kill or a start error. A rearmed step
// that used up its budget is not a failure.
func (s StepResult) Failed() bool {
	return s.Err != nil || s.ExitCode != 0
}

func (p *Pool) runJob(ctx context.Context, job core.Job[engine.Task]) Result {
	task := job.Payload
	ctx = logger.WithValues(ctx, tag.Job(task.Label))
	start := time.Now()
	result := Result{Job: job}

	if err := fileutil.EnsureDirs(task.CorpusDir(), task.CrashesDir(), task.CoverageDir()); err != nil {
		result.Err = err
		logger.Error(ctx, "Failed to prepare job directory", tag.Dir(task.OutDir), tag.Error(err))
		return result
	}

	logFile, err := fileutil.OpenOrCreateFile(task.LogFile())
	if err != nil {
		result.Err = fmt.Errorf("failed to open log file: %w", err)
		logger.Error(ctx, "Failed to open job log", tag.File(task.LogFile()), tag.Error(err))
		return result
	}
	defer func() {
		_ = logFile.Close()
	}()

	if err := engine.WriteManifest(task, job.Cores); err != nil {
		logger.Warn(ctx, "Failed to write job manifest", tag.Error(err))
	}

	plan, err := p.planner.Plan(task, job.Cores, p.env)
	if err != nil {
		result.Err = fmt.Errorf("failed to plan job: %w", err)
		logger.Error(ctx, "Failed to plan job", tag.Error(err))
		return result
	}

	logger.Debug(ctx, "Starting job",
		tag.Engine(task.Kind().String()),
		tag.Cores(job.Cores.String()),
		tag.Count(len(plan)),
	)

	for _, inv := range plan {
		if ctx.Err() != nil {
			break
		}
		step := p.runInvocation(ctx, inv, job.Cores, logFile)
		result.Steps = append(result.Steps, step)
		if step.Failed() {
			msg := "Job step failed"
			if step.Crashed {
				msg = "Job step crashed"
			}
			logger.Warn(ctx, msg,
				tag.Step(step.Name),
				tag.ExitCode(step.ExitCode),
				tag.Signal(step.Signal),
				tag.String("timed-out", fmt.Sprint(step.TimedOut)),
				tag.File(task.LogFile()),
				tag.Error(step.Err),
			)
		}
	}

	result.Duration = time.Since(start)
	logger.Debug(ctx, "Job finished", tag.Duration(result.Duration))
	return result
}

// runInvocation runs one planned invocation, restarting it while it has a
// rearm function and budget left.
func (p *Pool) runInvocation(ctx context.Context, inv engine.Invocation, cores core.CoreSet, log io.Writer) StepResult {
	start := time.Now()
	defer func() {
		for _, path := range inv.Cleanup {
			if err := os.RemoveAll(path); err != nil {
				logger.Warn(ctx, "Failed to clean up", tag.File(path), tag.Error(err))
			}
		}
	}()

	if inv.CoverageDir != "" {
		if err := resetDir(inv.CoverageDir); err != nil {
			return StepResult{Name: inv.Name, Err: err, ExitCode: -1}
		}
	}

	if inv.Rearm == nil || inv.Timeout <= 0 {
		step := p.runProcess(ctx, inv, inv.Args, inv.Timeout, cores, log)
		step.Attempts = 1
		step.Duration = time.Since(start)
		return step
	}

	var step StepResult
	remaining := inv.Timeout
	for attempt := 0; remaining > 0 && ctx.Err() == nil; attempt++ {
		began := time.Now()
		step = p.runProcess(ctx, inv, inv.Rearm(attempt, remaining), remaining, cores, log)
		step.Attempts = attempt + 1
		remaining -= time.Since(began)

		if errors.Is(step.Err, errStart) {
			break
		}
	}
	if remaining <= 0 && step.TimedOut {
		// Running out of budget is how a rearmed step normally ends.
		step.TimedOut, step.Err, step.ExitCode = false, nil, 0
	}
	step.Duration = time.Since(start)
	return step
}

func (p *Pool) runProcess(ctx context.Context, inv engine.Invocation, args []string, timeout time.Duration, cores core.CoreSet, log io.Writer) StepResult {
	step := StepResult{Name: inv.Name}

	runCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Path, args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.Env
	if cmd.Env == nil {
		cmd.Env = []string{}
	}
	cmd.Stdout = log
	cmd.Stderr = log
	cmdutil.SetupCommand(cmd)
	cmd.Cancel = func() error {
		return cmdutil.KillProcessGroup(cmd, os.Kill)
	}
	cmd.WaitDelay = p.waitDelay

	var err error
	if p.pin {
		err = cmdutil.StartWithAffinity(cmd, cores)
	} else {
		err = cmd.Start()
	}
	if err != nil {
		step.Err = fmt.Errorf("%w %s: %w", errStart, inv.Path, err)
		step.ExitCode = -1
		return step
	}

	err = cmd.Wait()
	step.ExitCode = exitCodeFromError(err)
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		step.TimedOut = true
		step.Err = fmt.Errorf("killed after %s: %w", timeout, context.DeadlineExceeded)
	} else if err != nil {
		step.Err = err
		if sig, ok := signal.FromError(err); ok {
			step.Signal = signal.Name(sig)
			step.Crashed = signal.IsCrash(sig)
		}
	}
	return step
}

func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	return fileutil.EnsureDirs(dir)
}
