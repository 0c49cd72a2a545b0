// Package scheduler packs core requests into waves of concurrently running
// jobs.
package scheduler

import (
	"fmt"
	"strings"

	"github.com/mayant15/railcar-bench/internal/core"
)

// Schedule assigns cores to requests greedily in arrival order.
//
// A cursor tracks the next free core of the open wave. When a request does not
// fit behind the cursor the wave is closed and a new one is opened. Closed
// waves are never revisited, so capacity left at the end of a wave stays
// unused. Every request is checked before any placement happens, so a request
// that can never fit yields an error and no partial schedule.
func Schedule[T any](requests []core.Request[T], capacity int) (core.Schedule[T], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be at least 1, got %d", core.ErrConfiguration, capacity)
	}
	for i, req := range requests {
		if req.Cores < 1 {
			return nil, core.NewRequestError(i, fmt.Errorf("%w: requires %d cores", core.ErrConfiguration, req.Cores))
		}
		if req.Cores > capacity {
			return nil, core.NewRequestError(i, fmt.Errorf("%w: requires %d cores but only %d are available",
				core.ErrConfiguration, req.Cores, capacity))
		}
	}

	schedule := core.Schedule[T]{}
	var wave core.Wave[T]
	cursor := 0

	for _, req := range requests {
		if capacity-cursor < req.Cores {
			schedule = append(schedule, wave)
			wave = nil
			cursor = 0
		}
		wave = append(wave, core.Job[T]{
			Payload: req.Payload,
			Cores:   core.Range(cursor, req.Cores),
			Group:   req.Group,
		})
		cursor += req.Cores
	}
	if len(wave) > 0 {
		schedule = append(schedule, wave)
	}

	if err := Validate(schedule, requests, capacity); err != nil {
		return nil, err
	}
	return schedule, nil
}

// Validate checks a schedule against the requests it was built from.
func Validate[T any](schedule core.Schedule[T], requests []core.Request[T], capacity int) error {
	var errs core.ErrorList

	if n := schedule.Len(); n != len(requests) {
		errs = append(errs, fmt.Errorf("%w: %d jobs for %d requests", core.ErrInvalidSchedule, n, len(requests)))
	}

	idx := 0
	for w, wave := range schedule {
		if len(wave) == 0 {
			errs = append(errs, fmt.Errorf("%w: wave %d is empty", core.ErrInvalidSchedule, w))
		}
		if used := wave.Cores(); used > capacity {
			errs = append(errs, fmt.Errorf("%w: wave %d uses %d cores, capacity is %d",
				core.ErrInvalidSchedule, w, used, capacity))
		}
		for i, job := range wave {
			if len(job.Cores) == 0 {
				errs = append(errs, fmt.Errorf("%w: wave %d job %d has no cores", core.ErrInvalidSchedule, w, i))
			}
			if idx < len(requests) && len(job.Cores) != requests[idx].Cores {
				errs = append(errs, fmt.Errorf("%w: wave %d job %d has %d cores, requested %d",
					core.ErrInvalidSchedule, w, i, len(job.Cores), requests[idx].Cores))
			}
			for _, c := range job.Cores {
				if c < 0 || c >= capacity {
					errs = append(errs, fmt.Errorf("%w: wave %d job %d uses core %d outside [0,%d)",
						core.ErrInvalidSchedule, w, i, c, capacity))
					break
				}
			}
			for k := range i {
				if job.Cores.Overlaps(wave[k].Cores) {
					errs = append(errs, fmt.Errorf("%w: wave %d jobs %d and %d share cores",
						core.ErrInvalidSchedule, w, k, i))
				}
			}
			idx++
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Describe renders the schedule one wave per line, each job as label@cores.
func Describe[T any](schedule core.Schedule[T], label func(T) string) string {
	var sb strings.Builder
	for w, wave := range schedule {
		fmt.Fprintf(&sb, "wave %d (%d cores):", w, wave.Cores())
		for _, job := range wave {
			fmt.Fprintf(&sb, " %s@%s", label(job.Payload), job.Cores)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
