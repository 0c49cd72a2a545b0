package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration reports a campaign that can never be scheduled, such
	// as a job demanding more cores than the machine has. It is raised
	// before any process is spawned.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidSchedule reports a schedule that breaks the wave invariants.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// ErrorList is just a list of errors.
type ErrorList []error

// Error returns all the errors separated by a semicolon.
func (e ErrorList) Error() string {
	errStrings := make([]string, len(e))
	for i, err := range e {
		errStrings[i] = err.Error()
	}
	return strings.Join(errStrings, "; ")
}

// Unwrap lets errors.Is check against each error in the list.
func (e ErrorList) Unwrap() []error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// RequestError ties an error to the position of the request that caused it.
type RequestError struct {
	Index int
	Err   error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request %d: %v", e.Index, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// NewRequestError wraps err with the index of the offending request.
func NewRequestError(index int, err error) error {
	return &RequestError{Index: index, Err: err}
}
