package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/equery/internal/ir"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the statement, a row or a scenario failed
	ExitCommandError = 2 // the command could not run: bad flags, unreadable input, database trouble
)

// ExitError carries the exit code a command failure maps to.
type ExitError struct {
	Code    int
	Message string
	Err     error

	// Reported is set once the failure has been written through an
	// OutputFormatter, so Execute does not print it again.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

func reported(e *ExitError) *ExitError {
	e.Reported = true
	return e
}

// GetExitCode returns the exit code for err. Errors that are not
// ExitErrors count as ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &exitErr):
		return exitErr.Code
	default:
		return ExitFailure
	}
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format string
	Writer io.Writer
	// ErrWriter receives diagnostics (verbose logs, execution stats) so
	// they never interleave with a JSON envelope. Writer is used when nil.
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command in --format json.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	TraceID string    `json:"trace_id,omitempty"` // execution ID of the query
}

// CLIError identifies a failure by code: E0xx for command errors, E1xx
// for validation, E2xx for scenarios and Qnnn for statement errors.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// QueryErrorDetails is attached to errors raised by a statement.
type QueryErrorDetails struct {
	Code   int    `json:"code"`
	Detail string `json:"detail,omitempty"`
	Phase  string `json:"phase,omitempty"`
}

func (f *OutputFormatter) json() bool { return f.Format == "json" }

// Success writes data: the envelope in JSON mode, fmt's default
// rendering of data otherwise.
func (f *OutputFormatter) Success(data any) error {
	if f.json() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes a failure. Details appear in text mode only with --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.json() {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %+v\n", details)
	}
	return nil
}

// QueryError reports err, raised while running phase of a statement, and
// returns the ExitError the command should fail with. A *ir.QueryError
// is reported under its Qnnn code and exits with ExitFailure; anything
// else is E001 and ExitCommandError.
func (f *OutputFormatter) QueryError(err error, phase string) error {
	var qe *ir.QueryError
	if errors.As(err, &qe) {
		_ = f.Error(QueryErrorCode(qe.Code), qe.Message, QueryErrorDetails{
			Code:   int(qe.Code),
			Detail: qe.Detail,
			Phase:  phase,
		})
		return reported(WrapExitError(ExitFailure, "query failed", err))
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return reported(WrapExitError(ExitCommandError, "query failed", err))
}

// QueryErrorCode formats a statement error code: 10 is "Q010".
func QueryErrorCode(code ir.ErrorCode) string {
	return fmt.Sprintf("Q%03d", int(code))
}

func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// encode writes resp on one line. HTML escaping stays off so statements
// with < and > read as typed.
func (f *OutputFormatter) encode(resp CLIResponse) error {
	return f.write(resp, "")
}

func (f *OutputFormatter) encodeIndented(resp CLIResponse) error {
	return f.write(resp, "  ")
}

func (f *OutputFormatter) write(resp CLIResponse, indent string) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(resp)
}
