// Package results aggregates per-job heartbeats into campaign summaries and
// manages the results directory they are persisted in.
package results

import (
	"errors"
	"fmt"

	"github.com/mayant15/railcar-bench/internal/engine"
	"github.com/mayant15/railcar-bench/internal/metrics"
)

// ErrInstrumentation means a job reported zero total edges. Unlike a
// missing heartbeat this points at broken instrumentation, so aggregation
// stops.
var ErrInstrumentation = errors.New("instrumentation reported zero total edges")

// Row is the raw result of one job.
type Row struct {
	Iteration  int
	Project    string
	Mode       string
	Variant    string
	Job        string
	Coverage   float64
	Covered    int64
	TotalEdges int64
	Execs      int64
	ValidExecs int64
	// Line and Branch come from the nyc report and are nil when the job
	// produced none.
	Line   *float64
	Branch *float64
}

// Key returns the grouping key of the row.
func (r Row) Key() Key {
	return Key{Project: r.Project, Mode: r.Mode}
}

// CoveragePct returns covered * 100 / total.
func CoveragePct(covered, total int64) (float64, error) {
	if total == 0 {
		return 0, ErrInstrumentation
	}
	return float64(covered) * 100 / float64(total), nil
}

// NewReportRow builds the row of a job that is measured by its coverage
// report only. Branch coverage stands in for edge coverage.
func NewReportRow(task engine.Task, report CoverageReport) Row {
	return Row{
		Iteration: task.Iteration,
		Project:   task.Project,
		Mode:      task.Mode,
		Variant:   task.Variant,
		Job:       task.Label,
		Coverage:  report.Branch,
		Line:      &report.Line,
		Branch:    &report.Branch,
	}
}

// NewRow joins a task with its latest heartbeat.
func NewRow(task engine.Task, snap metrics.Snapshot) (Row, error) {
	pct, err := CoveragePct(snap.Covered, snap.TotalEdges)
	if err != nil {
		return Row{}, fmt.Errorf("job %s: %w", task.Label, err)
	}
	return Row{
		Iteration:  task.Iteration,
		Project:    task.Project,
		Mode:       task.Mode,
		Variant:    task.Variant,
		Job:        task.Label,
		Coverage:   pct,
		Covered:    snap.Covered,
		TotalEdges: snap.TotalEdges,
		Execs:      snap.Execs,
		ValidExecs: snap.ValidExecs,
	}, nil
}
