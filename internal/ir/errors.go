package ir

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a query failure category. Codes are stable and
// appear in CLI output and scenario files.
type ErrorCode int

const (
	// ErrOrderingType: order key is neither number nor string.
	ErrOrderingType ErrorCode = 0

	// ErrPropertyNotFound: a path did not resolve in strict context.
	ErrPropertyNotFound ErrorCode = 1

	// ErrDatasetShape: input is not an array of objects.
	ErrDatasetShape ErrorCode = 2

	// ErrIncompatibleExpression: operands cannot be combined by the operator.
	ErrIncompatibleExpression ErrorCode = 3

	// ErrUnknownFunction: call to a name outside the registry.
	ErrUnknownFunction ErrorCode = 4

	// ErrOrderByFailure: the order key could not be evaluated for some row.
	ErrOrderByFailure ErrorCode = 5

	// ErrLengthArgument: length() applied to something other than text or array.
	ErrLengthArgument ErrorCode = 6

	// ErrNonNumericAggregate: numeric aggregate over non-numbers or nothing.
	ErrNonNumericAggregate ErrorCode = 7

	// ErrArgumentCount: wrong number of function arguments.
	ErrArgumentCount ErrorCode = 8

	// ErrArgumentType: function argument of the wrong kind.
	ErrArgumentType ErrorCode = 9

	// ErrSyntax: statement does not follow the grammar.
	ErrSyntax ErrorCode = 10

	// ErrMalformedScope: projection list before ':' is malformed.
	ErrMalformedScope ErrorCode = 11

	// ErrProjectionEntry: projection entry is not a property path.
	ErrProjectionEntry ErrorCode = 12

	// ErrRowLimit: dataset exceeds the engine's row ceiling.
	ErrRowLimit ErrorCode = 13

	// ErrUnsupportedValue: host value has no Value equivalent.
	ErrUnsupportedValue ErrorCode = 14
)

var messages = map[ErrorCode]string{
	ErrOrderingType:           "Cannot order by types other than number or string. Please ensure orderby(.value) is either number or text.",
	ErrPropertyNotFound:       "Property error, cannot find property. Ensure property exists.",
	ErrDatasetShape:           "data provided is not an array of objects.",
	ErrIncompatibleExpression: "Incompatible expression, operands cannot be combined by this operator.",
	ErrUnknownFunction:        "Cannot interpret function call, function does not exist.",
	ErrOrderByFailure:         "orderby failed, the ordering expression could not be evaluated.",
	ErrLengthArgument:         "length() only accepts text or an array.",
	ErrNonNumericAggregate:    "Aggregate functions only accept numbers.",
	ErrArgumentCount:          "Wrong number of arguments for function.",
	ErrArgumentType:           "Wrong argument type for function.",
	ErrSyntax:                 "Syntax error.",
	ErrMalformedScope:         "Malformed scope, expected .property[, .property]* followed by ':'.",
	ErrProjectionEntry:        "Scope entries must be properties.",
	ErrRowLimit:               "Dataset exceeds the configured row limit.",
	ErrUnsupportedValue:       "Value cannot be represented in a query dataset.",
}

// Message returns the canonical message for code.
func (c ErrorCode) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return fmt.Sprintf("unknown error code %d", int(c))
}

// Fatal reports whether an error of this code aborts the whole query.
// Only property and expression errors are absorbed per row.
func (c ErrorCode) Fatal() bool {
	switch c {
	case ErrPropertyNotFound, ErrIncompatibleExpression:
		return false
	default:
		return true
	}
}

// QueryError is the single error type produced by lexing, parsing and
// interpretation.
type QueryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is the canonical message for Code.
	Message string

	// Detail carries the offending name, token or kind, when known.
	Detail string
}

// NewError creates a QueryError for code with a formatted detail.
func NewError(code ErrorCode, format string, args ...any) *QueryError {
	detail := format
	if len(args) > 0 {
		detail = fmt.Sprintf(format, args...)
	}
	return &QueryError{
		Code:    code,
		Message: code.Message(),
		Detail:  detail,
	}
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("equery error %d: %s (%s)", e.Code, e.Message, e.Detail)
	}
	return fmt.Sprintf("equery error %d: %s", e.Code, e.Message)
}

// Fatal reports whether the error aborts the whole query.
func (e *QueryError) Fatal() bool {
	return e.Code.Fatal()
}

// Is matches another *QueryError by code, so errors.Is(err, &QueryError{Code: c})
// works through wrapping.
func (e *QueryError) Is(target error) bool {
	var t *QueryError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf extracts the code from err. ok is false when err is not a QueryError.
func CodeOf(err error) (code ErrorCode, ok bool) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code, true
	}
	return 0, false
}

// HasCode reports whether err is a QueryError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code ErrorCode) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

// IsFatal reports whether err aborts a query. Errors that are not
// QueryErrors are always fatal.
func IsFatal(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Fatal()
	}
	return err != nil
}
