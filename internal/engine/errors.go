package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/equery/internal/ir"
)

// Phase names a stage of an execution.
type Phase string

const (
	PhaseCondition  Phase = "condition"
	PhaseOrder      Phase = "order"
	PhaseProjection Phase = "projection"
)

// ExecutionError records where an execution failed. The underlying error is
// usually an *ir.QueryError and stays reachable through errors.As and
// errors.Is.
type ExecutionError struct {
	// ExecutionID identifies the failed run in logs.
	ExecutionID string

	// Phase is the stage that failed.
	Phase Phase

	// Err is the cause.
	Err error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s phase: %v", e.Phase, e.Err)
}

// Unwrap returns the cause.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func phaseError(id string, phase Phase, err error) error {
	return &ExecutionError{ExecutionID: id, Phase: phase, Err: err}
}

// PhaseOf returns the phase an execution failed in. ok is false for errors
// raised before any phase ran (validation, row ceiling, compilation).
func PhaseOf(err error) (phase Phase, ok bool) {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee.Phase, true
	}
	return "", false
}

// IsRowLimitError reports whether err is a row ceiling violation.
func IsRowLimitError(err error) bool {
	return ir.HasCode(err, ir.ErrRowLimit)
}

// IsCanceled reports whether the execution stopped because its context ended.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
