package harness

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/equery/internal/ir"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src), "")
	require.NoError(t, err)
	return s
}

func TestRun_MinimalScenario(t *testing.T) {
	s := mustParse(t, `
name: minimal
description: "one step"
rows:
  - {likes: 10}
  - {likes: 20}
steps:
  - query: ".likes > 15"
    expect:
      rows:
        - {likes: 20}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 1)
	event := result.Trace[0]
	assert.Equal(t, 1, event.Seq)
	assert.Equal(t, "minimal-0001", event.ExecutionID)
	assert.False(t, event.Failed())
	assert.Equal(t, ir.Dataset{{ir.F("likes", ir.Number(20))}}, event.Rows)
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := mustParse(t, `
name: mismatch
description: "wrong expectation"
rows: [{likes: 10}, {likes: 20}]
steps:
  - query: ".likes > 5"
    expect:
      count: 1
      rows:
        - {likes: 10}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected 1 rows, got 2")
	assert.Contains(t, result.Errors[1], "rows mismatch")
}

func TestRun_ExpectedError(t *testing.T) {
	s := mustParse(t, `
name: errors
description: "coded failures"
rows: [{a: 1}]
steps:
  - query: ".a = nosuch(.a)"
    expect: {error: 4}
  - query: ".a = 1"
    expect: {error: 4}
  - query: ".a = 1 ~ orderby(.a) sideways"
    expect: {error: 3}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	require.Len(t, result.Trace, 3)
	require.NotNil(t, result.Trace[0].Error)
	assert.Equal(t, ir.ErrUnknownFunction, result.Trace[0].Error.Code)
	assert.Empty(t, result.Trace[0].ExecutionID)

	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "expected error 4, got 1 rows")
	assert.Contains(t, result.Errors[1], "expected error 3, got 10")
}

func TestRun_UnexpectedError(t *testing.T) {
	s := mustParse(t, `
name: unexpected
description: "error where rows were expected"
rows: [{a: 1}]
steps:
  - query: ".a >"
    expect: {count: 1}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error 10")
}

func TestRun_ExecutionIDsSkipFailedCompiles(t *testing.T) {
	s := mustParse(t, `
name: ids
description: "only executions consume IDs"
rows: [{a: 1}]
steps:
  - query: ".a = 1"
  - query: ".a >"
  - query: ".a = 1"
`)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 3)
	assert.Equal(t, "ids-0001", result.Trace[0].ExecutionID)
	assert.True(t, result.Trace[1].Failed())
	assert.Equal(t, "ids-0002", result.Trace[2].ExecutionID)
}

func TestRun_RowLimit(t *testing.T) {
	s := mustParse(t, `
name: limit
description: "row ceiling"
options: {max_rows: 2}
rows: [{a: 1}, {a: 2}, {a: 3}]
steps:
  - query: ".a > 0"
    expect: {error: 13}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StrictProjection(t *testing.T) {
	s := mustParse(t, `
name: strict
description: "strict projection reports missing scope properties"
options: {strict_projection: true}
rows: [{a: 1}]
steps:
  - query: ".b: .a = 1"
    expect: {error: 1}
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ParallelWorkersMatchSerial(t *testing.T) {
	rows := "rows:\n"
	for i := 0; i < 300; i++ {
		rows += "  - {n: " + strconv.Itoa(i) + "}\n"
	}
	src := `
name: parallel
description: "worker pool"
options: {workers: 4}
` + rows + `
steps:
  - query: ".n > 294 ~ orderby(.n) asc"
    expect:
      rows: [{n: 295}, {n: 296}, {n: 297}, {n: 298}, {n: 299}]
`
	result, err := Run(mustParse(t, src))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StepDatasetOverridesCollection(t *testing.T) {
	s := mustParse(t, `
name: override
description: "step rows bypass the store"
collection: people
rows: [{name: Lucas}]
steps:
  - query: ".name = \"Lucas\""
  - query: ".name = \"Amy\""
    rows: [{name: Amy}]
`)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "people", result.Trace[0].Collection)
	assert.Len(t, result.Trace[0].Rows, 1)
	assert.Empty(t, result.Trace[1].Collection)
	assert.Len(t, result.Trace[1].Rows, 1)
}

func TestRun_DatasetFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rows.yaml"), []byte("- {x: 3}\n- {x: 1}\n"), 0o644))
	s, err := ParseScenario([]byte(`
name: file
description: "yaml dataset file"
dataset: rows.yaml
steps:
  - query: "~ orderby(.x) asc"
    expect:
      rows: [{x: 1}, {x: 3}]
`), dir)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_BadInlineDataset(t *testing.T) {
	s := mustParse(t, `
name: bad
description: "rows that are not objects"
rows: [1, 2]
steps:
  - query: ".a"
`)

	_, err := Run(s)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrDatasetShape), "got %v", err)
}

func TestRun_ClockIsDeterministic(t *testing.T) {
	s := mustParse(t, `
name: clock
description: "each execution sees the next instant"
now: "2024-03-01T00:00:00Z"
options: {clock_step: 24h}
rows: [{a: 1}]
steps:
  - query: ".a = 1"
  - query: ".a = 1"
`)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}

func TestRunExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
