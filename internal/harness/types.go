package harness

import "github.com/roach88/equery/internal/ir"

// TraceEvent records one executed scenario step.
type TraceEvent struct {
	// Seq is the 1-based step number.
	Seq int `json:"seq"`

	// Query is the statement that ran.
	Query string `json:"query"`

	// Collection is set when the step ran against the scenario's store.
	Collection string `json:"collection,omitempty"`

	// ExecutionID is the engine execution ID. Empty when the step failed.
	ExecutionID string `json:"execution_id,omitempty"`

	// Rows is the result. Nil when the step failed.
	Rows ir.Dataset `json:"rows,omitempty"`

	// Error is the query error, if any.
	Error *TraceError `json:"error,omitempty"`
}

// TraceError is the coded failure of a step.
type TraceError struct {
	Code    ir.ErrorCode `json:"code"`
	Message string       `json:"message"`
}

// Failed reports whether the step ended in a query error.
func (e TraceEvent) Failed() bool {
	return e.Error != nil
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions hold.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step returns the trace event of step i (0-based).
func (r *Result) Step(i int) (TraceEvent, bool) {
	if i < 0 || i >= len(r.Trace) {
		return TraceEvent{}, false
	}
	return r.Trace[i], true
}
