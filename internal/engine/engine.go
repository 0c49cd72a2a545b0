// Package engine turns campaign tasks into the processes that run them.
package engine

import (
	"fmt"
	"sync"

	"github.com/mayant15/railcar-bench/internal/core"
)

// Engine plans the invocations for a task on a set of cores.
type Engine interface {
	Kind() Kind
	// Plan returns the invocations to run in order. An empty plan means the
	// task has nothing to do.
	Plan(task Task, cores core.CoreSet, env Environment) ([]Invocation, error)
}

// Registry dispatches tasks to engines by the kind of their arguments.
type Registry struct {
	mu      sync.RWMutex
	engines map[Kind]Engine
}

// NewRegistry creates a registry holding the given engines.
func NewRegistry(engines ...Engine) *Registry {
	r := &Registry{engines: make(map[Kind]Engine)}
	for _, e := range engines {
		r.Register(e)
	}
	return r
}

// Register adds or replaces the engine for its kind.
func (r *Registry) Register(e Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[e.Kind()] = e
}

// Get returns the engine registered for kind.
func (r *Registry) Get(kind Kind) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[kind]
	return e, ok
}

// Plan plans the task with the engine matching its argument kind.
func (r *Registry) Plan(task Task, cores core.CoreSet, env Environment) ([]Invocation, error) {
	if task.Args == nil {
		return nil, fmt.Errorf("task %s has no engine arguments", task.Label)
	}
	e, ok := r.Get(task.Args.Kind())
	if !ok {
		return nil, fmt.Errorf("no engine registered for kind %q", task.Args.Kind())
	}
	return e.Plan(task, cores, env)
}

// argsOf extracts the typed argument record of a task.
func argsOf[A Args](task Task) (A, error) {
	var zero A
	switch a := task.Args.(type) {
	case A:
		return a, nil
	case nil:
		return zero, fmt.Errorf("task %s has no engine arguments", task.Label)
	default:
		return zero, fmt.Errorf("task %s: expected %s arguments, got %s", task.Label, zero.Kind(), a.Kind())
	}
}
