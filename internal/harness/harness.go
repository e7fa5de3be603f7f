package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/equery/internal/dataset"
	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/store"
	"github.com/roach88/equery/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and execution IDs.
type Harness struct {
	engine *engine.Engine
	store  *store.Store
	base   ir.Dataset
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs on a fresh engine, and a fresh in-memory database when
// it names a collection. Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Load the scenario dataset
// 2. Import it into the store if the scenario names a collection
// 3. Execute steps and check their expect clauses
// 4. Evaluate assertions
//
// The returned error is reserved for problems with the scenario itself
// (unreadable datasets, store failures). Query failures are recorded in
// the trace.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, nil)
}

// RunContext is Run with a context and a logger. A nil logger discards
// output.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("scenario", scenario.Name)

	clock, err := scenarioClock(scenario)
	if err != nil {
		return nil, err
	}

	opts := []engine.EngineOption{
		engine.WithClock(clock),
		engine.WithIDGenerator(testutil.NewSequentialIDs(scenario.Name)),
		engine.WithLogger(logger),
		engine.WithWorkers(scenario.Options.Workers),
		engine.WithStrictProjection(scenario.Options.StrictProjection),
	}
	if scenario.Options.MaxRows > 0 {
		opts = append(opts, engine.WithMaxRows(scenario.Options.MaxRows))
	}
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	defer eng.Close()

	h := &Harness{engine: eng, logger: logger}

	h.base, err = loadRows(scenario.Dataset, &scenario.Rows)
	if err != nil {
		return nil, fmt.Errorf("scenario dataset: %w", err)
	}

	if scenario.Collection != "" {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		if _, err := st.Import(ctx, scenario.Collection, h.base); err != nil {
			return nil, fmt.Errorf("failed to import collection %s: %w", scenario.Collection, err)
		}
		h.store = st
	}

	result := NewResult()
	if err := h.executeSteps(ctx, scenario, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioClock(s *Scenario) (*testutil.StepClock, error) {
	var epoch time.Time
	if s.Now != "" {
		t, err := time.Parse(time.RFC3339, s.Now)
		if err != nil {
			return nil, fmt.Errorf("now: %w", err)
		}
		epoch = t
	}
	var step time.Duration
	if s.Options.ClockStep != "" {
		d, err := time.ParseDuration(s.Options.ClockStep)
		if err != nil {
			return nil, fmt.Errorf("options.clock_step: %w", err)
		}
		step = d
	}
	return testutil.NewStepClock(epoch, step), nil
}

// loadRows reads a dataset from a file path or an inline YAML node.
// Neither set yields a nil dataset.
func loadRows(path string, node *yaml.Node) (ir.Dataset, error) {
	switch {
	case path != "":
		return dataset.LoadFile(path)
	case present(node):
		v, err := dataset.FromYAMLNode(node)
		if err != nil {
			return nil, err
		}
		return ir.DatasetFromValue(v)
	default:
		return nil, nil
	}
}

// executeSteps runs all steps and validates their expect clauses.
func (h *Harness) executeSteps(ctx context.Context, s *Scenario, result *Result) error {
	for i, step := range s.Steps {
		event := TraceEvent{Seq: i + 1, Query: step.Query}

		rows, err := loadRows(step.Dataset, &step.Rows)
		if err != nil {
			return fmt.Errorf("steps[%d] dataset: %w", i, err)
		}

		var res *engine.Result
		switch {
		case rows != nil:
			res, err = h.engine.Query(ctx, step.Query, rows)
		case h.store != nil:
			event.Collection = s.Collection
			res, err = h.engine.QueryCollection(ctx, h.store, s.Collection, step.Query)
		default:
			res, err = h.engine.Query(ctx, step.Query, h.base)
		}

		if err != nil {
			var qe *ir.QueryError
			if !errors.As(err, &qe) {
				return fmt.Errorf("steps[%d]: %w", i, err)
			}
			event.Error = &TraceError{Code: qe.Code, Message: qe.Code.Message()}
		} else {
			event.ExecutionID = res.Stats.ExecutionID
			event.Rows = res.Rows
		}
		result.Trace = append(result.Trace, event)

		if step.Expect != nil {
			for _, msg := range checkExpect(i, event, step.Expect) {
				result.AddError(msg)
			}
		}

		h.logger.Debug("step completed",
			"step", i,
			"query", step.Query,
			"execution_id", event.ExecutionID,
			"failed", event.Failed(),
		)
	}
	return nil
}

// checkExpect compares a step's outcome with its expect clause.
func checkExpect(index int, event TraceEvent, expect *ExpectClause) []string {
	var errs []string
	prefix := fmt.Sprintf("steps[%d] %q", index, event.Query)

	if expect.Error != nil {
		switch {
		case event.Error == nil:
			errs = append(errs, fmt.Sprintf("%s: expected error %d, got %d rows", prefix, *expect.Error, len(event.Rows)))
		case int(event.Error.Code) != *expect.Error:
			errs = append(errs, fmt.Sprintf("%s: expected error %d, got %d (%s)", prefix, *expect.Error, event.Error.Code, event.Error.Message))
		}
		return errs
	}

	if event.Error != nil {
		return append(errs, fmt.Sprintf("%s: unexpected error %d (%s)", prefix, event.Error.Code, event.Error.Message))
	}

	if expect.Count != nil && len(event.Rows) != *expect.Count {
		errs = append(errs, fmt.Sprintf("%s: expected %d rows, got %d", prefix, *expect.Count, len(event.Rows)))
	}

	if present(&expect.Rows) {
		want, err := dataset.FromYAMLNode(&expect.Rows)
		if err != nil {
			return append(errs, fmt.Sprintf("%s: expected rows: %v", prefix, err))
		}
		got := event.Rows.Value()
		if !ir.Equal(got, want) {
			errs = append(errs, fmt.Sprintf("%s: rows mismatch\n  expected: %s\n  actual:   %s", prefix, compactJSON(want), compactJSON(got)))
		}
	}
	return errs
}

func compactJSON(v ir.Value) string {
	data, err := ir.MarshalValue(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
