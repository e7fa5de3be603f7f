package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/equery/internal/ir"
)

// Snapshot renders a trace as an ordered object for golden comparison.
// Field order is fixed so the output is byte-stable across runs.
func Snapshot(scenarioName string, trace []TraceEvent) ir.Object {
	events := make(ir.Array, len(trace))
	for i, event := range trace {
		obj := ir.Object{
			ir.F("seq", ir.Number(event.Seq)),
			ir.F("query", ir.String(event.Query)),
		}
		if event.Collection != "" {
			obj = append(obj, ir.F("collection", ir.String(event.Collection)))
		}
		if event.Error != nil {
			obj = append(obj, ir.F("error", ir.Object{
				ir.F("code", ir.Number(event.Error.Code)),
				ir.F("message", ir.String(event.Error.Message)),
			}))
		} else {
			obj = append(obj,
				ir.F("execution_id", ir.String(event.ExecutionID)),
				ir.F("rows", event.Rows.Value()),
			)
		}
		events[i] = obj
	}
	return ir.Object{
		ir.F("scenario", ir.String(scenarioName)),
		ir.F("trace", events),
	}
}

// MarshalSnapshot renders Snapshot as indented JSON with a trailing newline.
func MarshalSnapshot(scenarioName string, trace []TraceEvent) ([]byte, error) {
	data, err := ir.MarshalIndent(Snapshot(scenarioName, trace), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalSnapshot(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
