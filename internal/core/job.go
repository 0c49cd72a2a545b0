package core

// Request asks for a number of cores to run a payload on.
type Request[T any] struct {
	Payload T
	Cores   int
	// Group identifies the library the payload belongs to. It is carried
	// through the schedule but does not affect placement.
	Group string
}

// Job is a request that has been assigned concrete cores.
type Job[T any] struct {
	Payload T
	Cores   CoreSet
	Group   string
}

// Wave is a set of jobs that run concurrently on disjoint cores.
type Wave[T any] []Job[T]

// Cores returns the total number of cores used by the wave.
func (w Wave[T]) Cores() int {
	n := 0
	for _, j := range w {
		n += len(j.Cores)
	}
	return n
}

// Schedule is an ordered list of waves. Waves run strictly one after the
// other.
type Schedule[T any] []Wave[T]

// Jobs flattens the schedule back into request order.
func (s Schedule[T]) Jobs() []Job[T] {
	var jobs []Job[T]
	for _, w := range s {
		jobs = append(jobs, w...)
	}
	return jobs
}

// Len returns the number of jobs in the schedule.
func (s Schedule[T]) Len() int {
	n := 0
	for _, w := range s {
		n += len(w)
	}
	return n
}
