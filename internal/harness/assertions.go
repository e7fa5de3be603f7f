package harness

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/roach88/equery/internal/dataset"
	"github.com/roach88/equery/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Step     int        // Step index the assertion inspected
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Event    TraceEvent // The inspected step
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (step %d)\n", e.Type, e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nStep:\n  %s\n", e.Event.Query)
	if e.Event.Error != nil {
		fmt.Fprintf(&buf, "  error %d: %s\n", e.Event.Error.Code, e.Event.Error.Message)
	} else {
		for i, row := range e.Event.Rows {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, compactJSON(row))
		}
	}

	return buf.String()
}

func newAssertionError(a Assertion, event TraceEvent, expected, actual string) *AssertionError {
	return &AssertionError{
		Type:     a.Type,
		Step:     a.Step,
		Expected: expected,
		Actual:   actual,
		Event:    event,
	}
}

// requireRows fails the assertion when the step ended in an error.
func requireRows(a Assertion, event TraceEvent) error {
	if event.Error == nil {
		return nil
	}
	return newAssertionError(a, event, "rows", fmt.Sprintf("error %d: %s", event.Error.Code, event.Error.Message))
}

// assertResultCount checks the step returned exactly a.Count rows.
func assertResultCount(event TraceEvent, a Assertion) error {
	if err := requireRows(a, event); err != nil {
		return err
	}
	if len(event.Rows) != a.Count {
		return newAssertionError(a, event,
			fmt.Sprintf("%d rows", a.Count),
			fmt.Sprintf("%d rows", len(event.Rows)))
	}
	return nil
}

// assertResultContains checks that some row holds every field of a.Row
// (subset match, recursive through objects).
func assertResultContains(event TraceEvent, a Assertion) error {
	if err := requireRows(a, event); err != nil {
		return err
	}
	want, err := dataset.FromYAMLNode(&a.Row)
	if err != nil {
		return fmt.Errorf("assertion row: %w", err)
	}
	for _, row := range event.Rows {
		if matchSubset(row, want) {
			return nil
		}
	}
	return newAssertionError(a, event,
		fmt.Sprintf("a row containing %s", compactJSON(want)),
		"not found in result")
}

// assertResultOrder checks consecutive rows are sorted by a.Path. Rows must
// all hold a number or all hold a string at the path.
func assertResultOrder(event TraceEvent, a Assertion) error {
	if err := requireRows(a, event); err != nil {
		return err
	}
	path := ir.SplitPath(a.Path)
	desc := a.Direction == "desc"

	var prev ir.Value
	for i, row := range event.Rows {
		v, ok := ir.Lookup(path, row)
		if !ok {
			return newAssertionError(a, event,
				fmt.Sprintf("every row to have %s", a.Path),
				fmt.Sprintf("row %d is missing it", i+1))
		}
		if prev != nil {
			c, ok := compareOrdered(prev, v)
			if !ok {
				return newAssertionError(a, event,
					fmt.Sprintf("comparable values at %s", a.Path),
					fmt.Sprintf("row %d: %s vs %s", i+1, compactJSON(prev), compactJSON(v)))
			}
			if (desc && c < 0) || (!desc && c > 0) {
				return newAssertionError(a, event,
					fmt.Sprintf("rows sorted by %s %s", a.Path, direction(desc)),
					fmt.Sprintf("row %d (%s) after %s", i+1, compactJSON(v), compactJSON(prev)))
			}
		}
		prev = v
	}
	return nil
}

func direction(desc bool) string {
	if desc {
		return "desc"
	}
	return "asc"
}

func compareOrdered(a, b ir.Value) (int, bool) {
	switch av := a.(type) {
	case ir.Number:
		if bv, ok := b.(ir.Number); ok {
			return cmp.Compare(av, bv), true
		}
	case ir.String:
		if bv, ok := b.(ir.String); ok {
			return strings.Compare(string(av), string(bv)), true
		}
	}
	return 0, false
}

// assertErrorCode checks the step failed with a.Code.
func assertErrorCode(event TraceEvent, a Assertion) error {
	want := ir.ErrorCode(*a.Code)
	switch {
	case event.Error == nil:
		return newAssertionError(a, event,
			fmt.Sprintf("error %d", want),
			fmt.Sprintf("%d rows", len(event.Rows)))
	case event.Error.Code != want:
		return newAssertionError(a, event,
			fmt.Sprintf("error %d", want),
			fmt.Sprintf("error %d: %s", event.Error.Code, event.Error.Message))
	}
	return nil
}

// matchSubset reports whether actual contains expected. Objects match when
// every expected field matches; everything else must be equal.
func matchSubset(actual, expected ir.Value) bool {
	want, ok := expected.(ir.Object)
	if !ok {
		return ir.Equal(actual, expected)
	}
	got, ok := actual.(ir.Object)
	if !ok {
		return false
	}
	for _, f := range want {
		v, found := got.Get(f.Name)
		if !found || !matchSubset(v, f.Value) {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		event, ok := result.Step(assertion.Step)
		if !ok {
			errors = append(errors, fmt.Sprintf("assertion[%d]: step %d was not executed", i, assertion.Step))
			continue
		}

		var err error
		switch assertion.Type {
		case AssertResultCount:
			err = assertResultCount(event, assertion)
		case AssertResultContains:
			err = assertResultContains(event, assertion)
		case AssertResultOrder:
			err = assertResultOrder(event, assertion)
		case AssertErrorCode:
			err = assertErrorCode(event, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
