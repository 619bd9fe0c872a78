package runner

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNavigationTimeout means the readiness landmark never appeared.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrAssertionTimeout means expected text never became visible in its window.
	ErrAssertionTimeout = errors.New("assertion timeout")
	// ErrAssertionMismatch means an observation contradicted the expectation.
	ErrAssertionMismatch = errors.New("assertion mismatch")
	// ErrConstruction means the seed state could not be serialized losslessly.
	// It is a defect in the scenario, never retried.
	ErrConstruction = errors.New("construction error")
	// ErrElementNotFound means a room or interaction locator matched nothing.
	ErrElementNotFound = errors.New("element not found")
)

// Cause classifies why a run entered the FAILED state.
type Cause string

const (
	CauseNavigationTimeout Cause = "navigation_timeout"
	CauseAssertionTimeout  Cause = "assertion_timeout"
	CauseAssertionMismatch Cause = "assertion_mismatch"
	CauseConstruction      Cause = "construction"
	CauseElementNotFound   Cause = "element_not_found"
	// CauseBrowser covers session crashes and protocol errors: harness
	// infrastructure rather than client behaviour.
	CauseBrowser Cause = "browser"

	CauseCanceled Cause = "canceled"
)

// Behavioral is true when the failure points at the client under test
// rather than at the harness or its environment.
func (c Cause) Behavioral() bool {
	switch c {
	case CauseAssertionTimeout, CauseAssertionMismatch, CauseElementNotFound:
		return true
	}
	return false
}

// Classify maps an error returned by a step to its cause.
func Classify(err error) Cause {
	switch {
	case errors.Is(err, ErrConstruction):
		return CauseConstruction
	case errors.Is(err, ErrNavigationTimeout):
		return CauseNavigationTimeout
	case errors.Is(err, ErrAssertionTimeout):
		return CauseAssertionTimeout
	case errors.Is(err, ErrAssertionMismatch):
		return CauseAssertionMismatch
	case errors.Is(err, ErrElementNotFound):
		return CauseElementNotFound
	case errors.Is(err, context.Canceled):
		return CauseCanceled
	default:
		return CauseBrowser
	}
}

// StepError is the payload of the FAILED state.
type StepError struct {
	State State  // last state reached before the failure
	Step  State  // state the failing step was trying to reach
	Cause Cause
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s -> %s failed (%s): %v", e.State, e.Step, e.Cause, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
