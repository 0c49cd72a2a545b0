package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/mayant15/railcar-bench/internal/cmn/logger"
	"github.com/mayant15/railcar-bench/internal/cmn/logger/tag"
	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// SnapshotReader returns the newest heartbeat of a job.
type SnapshotReader interface {
	Latest(ctx context.Context, target, job string) (metrics.Snapshot, error)
}

// Missing describes a job that left no heartbeat.
type Missing struct {
	Job    string
	OutDir string
	Err    error
}

// maxConcurrentReads bounds the number of stores open at once.
const maxConcurrentReads = 8

// Collect reads the newest heartbeat of every task. Jobs of kinds without
// heartbeats are read from their coverage report instead. Jobs with neither
// are skipped and reported as missing. A zero edge count or an unreadable
// store aborts collection. Rows keep the order of tasks.
func Collect(ctx context.Context, tasks []engine.Task, reader SnapshotReader) ([]Row, []Missing, error) {
	type outcome struct {
		row     Row
		missing error
	}
	outcomes := make([]outcome, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for i, task := range tasks {
		g.Go(func() error {
			if !task.Kind().Heartbeats() {
				report, err := ReadCoverageReport(task.CoverageDir())
				if errors.Is(err, ErrNoReport) {
					outcomes[i].missing = err
					return nil
				}
				if err != nil {
					return fmt.Errorf("job %s: %w", task.Label, err)
				}
				outcomes[i].row = NewReportRow(task, report)
				return nil
			}

			snap, err := reader.Latest(gctx, task.Metrics, task.Label)
			if errors.Is(err, metrics.ErrMetricsMissing) {
				outcomes[i].missing = err
				return nil
			}
			if err != nil {
				return err
			}
			row, err := NewRow(task, snap)
			if err != nil {
				return err
			}
			if report, err := ReadCoverageReport(task.CoverageDir()); err == nil {
				row.Line, row.Branch = &report.Line, &report.Branch
			} else if !errors.Is(err, ErrNoReport) {
				logger.Warn(gctx, "Ignoring unreadable coverage report", tag.Job(task.Label), tag.Error(err))
			}
			outcomes[i].row = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		rows    []Row
		missing []Missing
	)
	for i, o := range outcomes {
		if o.missing != nil {
			missing = append(missing, Missing{Job: tasks[i].Label, OutDir: tasks[i].OutDir, Err: o.missing})
			logger.Warn(ctx, "Job left no results, skipping",
				tag.Job(tasks[i].Label),
				tag.File(tasks[i].LogFile()),
			)
			continue
		}
		rows = append(rows, o.row)
	}
	return rows, missing, nil
}
