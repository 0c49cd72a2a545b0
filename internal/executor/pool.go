// Package executor runs scheduled jobs as isolated OS processes.
package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/core"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/shirou/gopsutil/v4/cpu"
)

// Planner turns a task into the invocations that run it.
type Planner interface {
	Plan(task engine.Task, cores core.CoreSet, env engine.Environment) ([]engine.Invocation, error)
}

// Pool is a fixed set of long-lived workers. Waves are submitted one at a
// time with RunWave, which returns only after every job of the wave ended.
type Pool struct {
	planner   Planner
	env       engine.Environment
	pin       bool
	waitDelay time.Duration

	size    int
	work    chan workItem
	workers sync.WaitGroup
	close   sync.Once
}

type workItem struct {
	ctx  context.Context
	job  core.Job[engine.Task]
	done func(Result)
}

// Option configures a Pool.
type Option func(*Pool)

// WithAffinity restricts each process to the cores assigned to its job.
func WithAffinity(pin bool) Option {
	return func(p *Pool) {
		p.pin = pin
	}
}

// WithEnvironment sets the working directory and variables of every process.
func WithEnvironment(env engine.Environment) Option {
	return func(p *Pool) {
		p.env = env
	}
}

// WithWaitDelay bounds how long Wait keeps draining output after a process
// was killed.
func WithWaitDelay(d time.Duration) Option {
	return func(p *Pool) {
		p.waitDelay = d
	}
}

const defaultWaitDelay = 3 * time.Second

// New starts a pool of size workers. A size below one uses the host's
// logical core count.
func New(ctx context.Context, planner Planner, size int, opts ...Option) *Pool {
	if size < 1 {
		size = HostCores(ctx)
	}
	p := &Pool{
		planner:   planner,
		waitDelay: defaultWaitDelay,
		size:      size,
		work:      make(chan workItem),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.workers.Add(size)
	for range size {
		go p.worker()
	}
	return p
}

// HostCores returns the number of logical cores of the host.
func HostCores(ctx context.Context) int {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil || n < 1 {
		logger.Warn(ctx, "Failed to count logical cores, falling back to the Go runtime", tag.Error(err))
		return runtime.NumCPU()
	}
	return n
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) worker() {
	defer p.workers.Done()
	for item := range p.work {
		item.done(p.runJob(item.ctx, item.job))
	}
}

// RunWave runs every job of the wave concurrently and blocks until all of
// them finished. Results are in wave order. A cancelled context stops jobs
// that have not started yet; their results carry the context error.
func (p *Pool) RunWave(ctx context.Context, wave core.Wave[engine.Task]) []Result {
	results := make([]Result, len(wave))

	var wg sync.WaitGroup
	for i, job := range wave {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Job: job, Err: fmt.Errorf("not started: %w", err)}
			continue
		}
		wg.Add(1)
		item := workItem{
			ctx: ctx,
			job: job,
			done: func(r Result) {
				results[i] = r
				wg.Done()
			},
		}
		select {
		case p.work <- item:
		case <-ctx.Done():
			wg.Done()
			results[i] = Result{Job: job, Err: fmt.Errorf("not started: %w", ctx.Err())}
		}
	}
	wg.Wait()

	return results
}

// Close stops the workers after the current wave. The pool cannot be used
// afterwards.
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.work)
	})
	p.workers.Wait()
}

// RunSchedule runs the waves strictly one after the other and returns all
// results in schedule order. Job failures never stop the schedule; only a
// cancelled context does.
func RunSchedule(ctx context.Context, pool *Pool, schedule core.Schedule[engine.Task]) []Result {
	var results []Result
	for i, wave := range schedule {
		if ctx.Err() != nil {
			for _, job := range wave {
				results = append(results, Result{Job: job, Err: fmt.Errorf("not started: %w", ctx.Err())})
			}
			continue
		}

		logger.Info(ctx, "Starting wave",
			tag.Wave(i),
			tag.Count(len(wave)),
			tag.Int("cores", wave.Cores()),
		)
		start := time.Now()
		waveResults := pool.RunWave(ctx, wave)

		failed := 0
		for _, r := range waveResults {
			if r.Failed() {
				failed++
			}
		}
		logger.Info(ctx, "Wave finished",
			tag.Wave(i),
			tag.Duration(time.Since(start)),
			tag.Int("failed", failed),
		)
		results = append(results, waveResults...)
	}
	return results
}
