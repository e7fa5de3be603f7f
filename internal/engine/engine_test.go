package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

func mustDataset(t *testing.T, js string) ir.Dataset {
	t.Helper()
	ds, err := ir.UnmarshalDataset([]byte(js))
	require.NoError(t, err)
	return ds
}

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func asJSON(t *testing.T, ds ir.Dataset) string {
	t.Helper()
	out, err := ir.MarshalDataset(ds)
	require.NoError(t, err)
	return string(out)
}

func runQuery(t *testing.T, e *Engine, statement, js string) string {
	t.Helper()
	res, err := e.Query(context.Background(), statement, mustDataset(t, js))
	require.NoError(t, err)
	return asJSON(t, res.Rows)
}

func TestScenarioA_FilterAndOrderDescending(t *testing.T) {
	e := newTestEngine(t)
	got := runQuery(t, e, `.likes > 8 ~ orderby(.likes) desc`,
		`[{"likes":10},{"likes":20},{"likes":5}]`)
	assert.Equal(t, `[{"likes":20},{"likes":10}]`, got)
}

func TestScenarioB_ScalarFunctionWithProjection(t *testing.T) {
	e := newTestEngine(t)
	got := runQuery(t, e, `.name: length(.name) > 3`,
		`[{"name":"Lucas","age":30},{"name":"Amy","age":25}]`)
	assert.Equal(t, `[{"name":"Lucas"}]`, got)
}

func TestScenarioC_AggregateInCondition(t *testing.T) {
	e := newTestEngine(t)
	got := runQuery(t, e, `.likes = max(.likes)`,
		`[{"id":1,"likes":10},{"id":2,"likes":20},{"id":3,"likes":40}]`)
	assert.Equal(t, `[{"id":3,"likes":40}]`, got)
}

func TestScenarioD_OrderAscendingWithLimit(t *testing.T) {
	e := newTestEngine(t)
	got := runQuery(t, e, `.name: ~ orderby(.likes) asc limit(1)`,
		`[{"name":"a","likes":3},{"name":"b","likes":1},{"name":"c","likes":2}]`)
	assert.Equal(t, `[{"name":"b"}]`, got)
}

func TestScenarioE_MalformedScopeIsRejected(t *testing.T) {
	e := newTestEngine(t)
	res, err := e.Query(context.Background(), `.a .b:`, mustDataset(t, `[{"a":1,"b":2}]`))
	require.Error(t, err)
	assert.Nil(t, res, "no partial result")
	assert.True(t, ir.HasCode(err, ir.ErrMalformedScope))
	assert.True(t, ir.IsFatal(err))
}

func TestScenarioF_AggregateCacheIsPerExecution(t *testing.T) {
	e := newTestEngine(t)
	first := runQuery(t, e, `.likes = max(.likes)`, `[{"likes":10},{"likes":40},{"likes":20}]`)
	second := runQuery(t, e, `.likes = max(.likes)`, `[{"likes":7},{"likes":3}]`)

	assert.Equal(t, `[{"likes":40}]`, first)
	assert.Equal(t, `[{"likes":7}]`, second)
}

func TestScenarioF_SamePlanTwoDatasets(t *testing.T) {
	e := newTestEngine(t)
	plan, err := e.Compile(`.likes = max(.likes)`)
	require.NoError(t, err)

	a, err := e.Run(context.Background(), plan, mustDataset(t, `[{"likes":1},{"likes":2}]`))
	require.NoError(t, err)
	b, err := e.Run(context.Background(), plan, mustDataset(t, `[{"likes":9},{"likes":8}]`))
	require.NoError(t, err)

	assert.Equal(t, `[{"likes":2}]`, asJSON(t, a.Rows))
	assert.Equal(t, `[{"likes":9}]`, asJSON(t, b.Rows))
	assert.Equal(t, 1, a.Stats.Aggregates)
}

const people = `[
	{"name":"Lucas","age":31,"likes":12,"tags":["go","sql"],"user":{"id":1,"city":"Lyon"}},
	{"name":"Amy","age":25,"likes":40,"tags":[],"user":{"id":2,"city":"Oslo"}},
	{"name":"Zoe","age":31,"likes":12,"user":{"id":3}},
	{"name":"Bob","likes":3,"tags":["go"],"user":{"id":4,"city":"Lima"}},
	{"name":"Eve","age":44,"likes":0,"tags":["rust"]}
]`

// isSubsequence reports whether sub appears in ds in the same relative order.
func isSubsequence(sub, ds ir.Dataset) bool {
	j := 0
	for _, row := range ds {
		if j < len(sub) && ir.Equal(sub[j], row) {
			j++
		}
	}
	return j == len(sub)
}

func TestProperty_FilterIsOrderedSubset(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, people)
	for _, stmt := range []string{
		`.age > 30`,
		`.likes = 12`,
		`contains(.tags, "go")`,
		`.user.city > "L"`,
		`.likes < average(.likes) | .name = "Amy"`,
		`.missing`,
		`true`,
		`length(.name) > 3 & .age < 40`,
		`not(.tags)`,
	} {
		t.Run(stmt, func(t *testing.T) {
			res, err := e.Query(context.Background(), stmt, ds)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(res.Rows), len(ds))
			assert.True(t, isSubsequence(res.Rows, ds), "result must be an ordered subset")
		})
	}
}

func TestProperty_OrderingIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	for _, stmt := range []string{
		`~ orderby(.likes) desc`,
		`~ orderby(.age) asc`,
		`~ orderby(.name) desc`,
		`~ orderby(length(.name) + .likes) asc`,
		`~ orderby(.likes) asc limit(3)`,
	} {
		t.Run(stmt, func(t *testing.T) {
			once, err := e.Query(context.Background(), stmt, mustDataset(t, people))
			require.NoError(t, err)
			twice, err := e.Query(context.Background(), stmt, once.Rows)
			require.NoError(t, err)
			assert.Equal(t, asJSON(t, once.Rows), asJSON(t, twice.Rows))
		})
	}
}

func TestProperty_ProjectionIsStructuralSubset(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, people)
	plan, err := e.Compile(`.name, .user.city, .tags:`)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), plan, ds)
	require.NoError(t, err)
	require.Len(t, res.Rows, len(ds))

	for i, row := range res.Rows {
		for _, entry := range plan.Projection {
			path := entry.(queryir.PropertyPath).Segments
			got, inProjected := ir.Lookup(path, row)
			want, inOriginal := ir.Lookup(path, ds[i])
			assert.Equal(t, inOriginal, inProjected, "row %d path %v", i, path)
			if inOriginal {
				assert.True(t, ir.Equal(want, got), "row %d path %v", i, path)
			}
		}
	}
}

func TestProperty_Count(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, people)

	res, err := e.Query(context.Background(), `count() = 5`, ds)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5, "count() equals dataset length")

	res, err = e.Query(context.Background(), `count(.age) = 5`, ds)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5, "a missing path evaluates to false, not an error")

	res, err = e.Query(context.Background(), `count(.age > 30) = 4`, ds)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 5, "count(expr) counts rows where expr evaluates")

	res, err = e.Query(context.Background(), `count(.age) > 5`, ds)
	require.NoError(t, err)
	assert.Empty(t, res.Rows, "count(expr) never exceeds dataset length")
}

func TestRun_NoClausesReturnsCopy(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, `[{"a":1},{"a":2}]`)
	res, err := e.Run(context.Background(), &queryir.Plan{}, ds)
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1},{"a":2}]`, asJSON(t, res.Rows))

	res.Rows[0] = ir.Object{}
	assert.Equal(t, `[{"a":1},{"a":2}]`, asJSON(t, ds), "input slice is not shared")
}

func TestRun_EmptyDatasetAndEmptyResult(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, `[]`, runQuery(t, e, `.likes = max(.likes)`, `[]`))
	assert.Equal(t, `[]`, runQuery(t, e, `.likes > 100`, `[{"likes":1}]`))
}

func TestOrder_DoesNotReorderInput(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, `[{"k":3},{"k":1},{"k":2}]`)
	res, err := e.Query(context.Background(), `~ orderby(.k)`, ds)
	require.NoError(t, err)
	assert.Equal(t, `[{"k":1},{"k":2},{"k":3}]`, asJSON(t, res.Rows))
	assert.Equal(t, `[{"k":3},{"k":1},{"k":2}]`, asJSON(t, ds))
}

func TestOrder_StableForTies(t *testing.T) {
	e := newTestEngine(t)
	got := runQuery(t, e, `.id: ~ orderby(.k) desc`,
		`[{"id":1,"k":1},{"id":2,"k":2},{"id":3,"k":1},{"id":4,"k":2}]`)
	assert.Equal(t, `[{"id":2},{"id":4},{"id":1},{"id":3}]`, got)
}

func TestOrder_NonNumericKeysKeepInputOrder(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, `[{"s":"b"},{"s":"a"}]`, runQuery(t, e, `~ orderby(.s) asc`, `[{"s":"b"},{"s":"a"}]`))
	assert.Equal(t,
		`[{"name":"Lucas"},{"name":"Amy"},{"name":"Zoe"},{"name":"Bob"},{"name":"Eve"}]`,
		runQuery(t, e, `.name: ~ orderby(.name) desc`, people))
}

func TestOrder_LimitWithoutKeyKeepsInputOrder(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, `[{"a":3},{"a":1}]`, runQuery(t, e, `~ limit(2)`, `[{"a":3},{"a":1},{"a":2}]`))
	assert.Equal(t, `[]`, runQuery(t, e, `~ limit(0)`, `[{"a":3}]`))
	assert.Equal(t, `[{"a":3}]`, runQuery(t, e, `~ limit(10)`, `[{"a":3}]`))
}

func TestOrder_Errors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Query(context.Background(), `~ orderby(.tags)`, mustDataset(t, people))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrOrderingType))

	_, err = e.Query(context.Background(), `~ orderby(.name > 1)`, mustDataset(t, people))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrOrderByFailure), "a string never compares with a number")
	phase, ok := PhaseOf(err)
	require.True(t, ok)
	assert.Equal(t, PhaseOrder, phase)
}

func TestProjection_NestedPathsMerge(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, `[{"likes":1,"user":{"id":7,"name":"a","x":true}}]`)
	res, err := e.Query(context.Background(), `.user.name, .likes, .user.id:`, ds)
	require.NoError(t, err)

	assert.Equal(t, `[{"user":{"name":"a","id":7},"likes":1}]`, asJSON(t, res.Rows))
	assert.Equal(t, `[{"likes":1,"user":{"id":7,"name":"a","x":true}}]`, asJSON(t, ds))
}

func TestProjection_WholeObjectThenChild(t *testing.T) {
	e := newTestEngine(t)
	ds := mustDataset(t, `[{"user":{"id":7,"name":"a"},"n":1}]`)
	got, err := e.Query(context.Background(), `.user, .user.id:`, ds)
	require.NoError(t, err)

	assert.Equal(t, `[{"user":{"id":7,"name":"a"}}]`, asJSON(t, got.Rows))
	assert.Equal(t, `[{"user":{"id":7,"name":"a"},"n":1}]`, asJSON(t, ds))
}

func TestProjection_MissingPaths(t *testing.T) {
	lax := newTestEngine(t)
	assert.Equal(t, `[{"a":1},{}]`, runQuery(t, lax, `.a, .b.c:`, `[{"a":1},{"b":2}]`))

	strict := newTestEngine(t, WithStrictProjection(true))
	_, err := strict.Query(context.Background(), `.a, .b.c:`, mustDataset(t, `[{"a":1,"b":{"c":2}},{"a":1}]`))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrPropertyNotFound))
	assert.Contains(t, err.Error(), ".b.c")
	phase, _ := PhaseOf(err)
	assert.Equal(t, PhaseProjection, phase)
}

func TestProjection_NonPathEntryIsFatal(t *testing.T) {
	e := newTestEngine(t)
	plan := &queryir.Plan{Projection: []queryir.Expression{queryir.Literal{Value: ir.Number(1)}}}
	_, err := e.Run(context.Background(), plan, mustDataset(t, `[{"a":1}]`))
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrProjectionEntry))
	assert.True(t, ir.IsFatal(err))
}

func TestCondition_FatalErrorsAbort(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		stmt string
		code ir.ErrorCode
	}{
		{`.likes = max(.name)`, ir.ErrNonNumericAggregate},
		{`length(.age) > 1`, ir.ErrLengthArgument},
		{`uppercase(.likes) = "X"`, ir.ErrArgumentType},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			res, err := e.Query(context.Background(), tt.stmt, mustDataset(t, people))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, ir.HasCode(err, tt.code), "got %v", err)
			phase, ok := PhaseOf(err)
			require.True(t, ok)
			assert.Equal(t, PhaseCondition, phase)
		})
	}
}

func TestCondition_RowErrorsDropRows(t *testing.T) {
	e := newTestEngine(t)
	// Bob has no age; Eve has no user.
	assert.Equal(t,
		`[{"name":"Lucas"},{"name":"Zoe"},{"name":"Eve"}]`,
		runQuery(t, e, `.name: .age > 30`, people))
	assert.Equal(t,
		`[{"name":"Lucas"},{"name":"Amy"},{"name":"Bob"}]`,
		runQuery(t, e, `.name: .user.city > "L"`, people))
}

func TestCondition_MissingPathsInsideCalls(t *testing.T) {
	e := newTestEngine(t)
	rows := `[{"a":1,"b":2,"n":"x"}]`
	assert.Equal(t, rows, runQuery(t, e, `not(.missing)`, rows))
	assert.Equal(t, rows, runQuery(t, e, `not(.missing = true)`, rows))
	assert.Equal(t, rows, runQuery(t, e, `.missing = false`, rows))
	assert.Equal(t, rows, runQuery(t, e, `count(.missing) = 1`, rows))
	assert.Equal(t, `[]`, runQuery(t, e, `.missing`, rows))
}

func TestCondition_StringAddition(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, `[{"a":"1"}]`, runQuery(t, e, `.a: .a + .b = 3`, `[{"a":"1","b":"2"}]`))
	assert.Equal(t, `[]`, runQuery(t, e, `.a: .a + .b = "12"`, `[{"a":"1","b":"2"}]`))
	assert.Equal(t, `[{"a":"1"}]`, runQuery(t, e, `.a: .a + 2 = "12"`, `[{"a":"1"}]`))
}

func TestCondition_OnlyBooleanTrueKeepsRows(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, `[]`, runQuery(t, e, `.likes`, `[{"likes":1}]`))
	assert.Equal(t, `[]`, runQuery(t, e, `"yes"`, `[{"likes":1}]`))
	assert.Equal(t, `[{"ok":true}]`, runQuery(t, e, `.ok`, `[{"ok":true},{"ok":false}]`))
}

func TestCondition_MissingPropertyIsFalse(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, `[{"b":1}]`, runQuery(t, e, `.a = false`, `[{"b":1},{"a":1}]`))
}

func TestMaxRows(t *testing.T) {
	e := newTestEngine(t, WithMaxRows(2))
	_, err := e.Query(context.Background(), `.a > 0`, mustDataset(t, `[{"a":1},{"a":2},{"a":3}]`))
	require.Error(t, err)
	assert.True(t, IsRowLimitError(err))
	_, inPhase := PhaseOf(err)
	assert.False(t, inPhase, "rejected before filtering")

	got := runQuery(t, e, `.a > 1`, `[{"a":1},{"a":2}]`)
	assert.Equal(t, `[{"a":2}]`, got)
}

func TestContextCancellation(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Query(ctx, `.a > 0`, mustDataset(t, `[{"a":1}]`))
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	assert.False(t, IsCanceled(ir.NewError(ir.ErrSyntax, "x")))
}

func TestClockIsFrozenPerExecution(t *testing.T) {
	day := time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	e := newTestEngine(t, WithClock(functions.FixedClock(day)))
	got := runQuery(t, e, `.name: .born < today() & yearsfromdate(.born) > 17`,
		fmt.Sprintf(`[{"name":"kid","born":%d},{"name":"adult","born":%d}]`,
			time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()))
	assert.Equal(t, `[{"name":"adult"}]`, got)
}

func TestExecutionIDsAndSequence(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("exec-1", "exec-2")))
	ds := mustDataset(t, `[{"a":1}]`)

	first, err := e.Query(context.Background(), `.a = 1`, ds)
	require.NoError(t, err)
	second, err := e.Query(context.Background(), `.a = 2`, ds)
	require.NoError(t, err)

	assert.Equal(t, "exec-1", first.Stats.ExecutionID)
	assert.Equal(t, int64(1), first.Stats.Seq)
	assert.Equal(t, "exec-2", second.Stats.ExecutionID)
	assert.Equal(t, int64(2), second.Stats.Seq)
	assert.Equal(t, 1, first.Stats.MatchedRows)
	assert.Equal(t, 0, second.Stats.OutputRows)

	assert.Panics(t, func() {
		_, _ = e.Query(context.Background(), `.a = 1`, ds)
	})
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	assert.Len(t, id, 36)
	assert.Equal(t, "7", string(id[14]), "version nibble")
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

// recordingObserver collects observations for assertions.
type recordingObserver struct {
	mu     sync.Mutex
	stats  []Stats
	errs   []error
	hits   int
	misses int
}

func (o *recordingObserver) ObserveExecution(s Stats, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = append(o.stats, s)
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) ObservePlanCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func TestPlanCache(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, WithObserver(obs), WithPlanCacheSize(1))
	ds := mustDataset(t, `[{"a":1}]`)

	for _, stmt := range []string{`.a = 1`, `.a = 1`, `.a = 2`, `.a = 1`} {
		_, err := e.Query(context.Background(), stmt, ds)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, obs.hits)
	assert.Equal(t, 3, obs.misses, "size 1 evicts .a = 1 when .a = 2 is added")

	p1, err := e.Compile(`.a = 2`)
	require.NoError(t, err)
	p2, err := e.Compile(`.a = 2`)
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestPlanCacheDisabled(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, WithObserver(obs), WithPlanCacheSize(0))
	_, err := e.Compile(`.a = 1`)
	require.NoError(t, err)
	assert.Zero(t, obs.hits+obs.misses)
}

func TestObserverSeesFailures(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestEngine(t, WithObserver(obs))
	_, err := e.Query(context.Background(), `.a >`, ir.Dataset{})
	require.Error(t, err)
	_, err = e.Query(context.Background(), `.a > 1`, mustDataset(t, `[{"a":2}]`))
	require.NoError(t, err)

	require.Len(t, obs.errs, 2)
	assert.True(t, ir.HasCode(obs.errs[0], ir.ErrSyntax))
	assert.NoError(t, obs.errs[1])
	assert.Equal(t, 1, obs.stats[1].OutputRows)
}

func numbered(n int) ir.Dataset {
	ds := make(ir.Dataset, n)
	for i := range ds {
		ds[i] = ir.Object{ir.F("i", ir.Number(i)), ir.F("name", ir.String(fmt.Sprintf("row-%d", i)))}
	}
	return ds
}

func TestParallelConditionMatchesSerial(t *testing.T) {
	serial := newTestEngine(t)
	parallel := newTestEngine(t, WithWorkers(4))
	parallel.parallelMin = 1
	ds := numbered(1000)

	for _, stmt := range []string{
		`.i > 500 & .i < max(.i)`,
		`.i = 0 | .i > average(.i) + 400`,
		`contains(.name, "7")`,
	} {
		t.Run(stmt, func(t *testing.T) {
			want, err := serial.Query(context.Background(), stmt, ds)
			require.NoError(t, err)
			got, err := parallel.Query(context.Background(), stmt, ds)
			require.NoError(t, err)
			assert.Equal(t, asJSON(t, want.Rows), asJSON(t, got.Rows))
		})
	}
}

func TestParallelConditionFatalError(t *testing.T) {
	e := newTestEngine(t, WithWorkers(3))
	e.parallelMin = 1
	ds := numbered(300)
	ds[250] = ir.Object{ir.F("i", ir.Number(250)), ir.F("name", ir.Number(1))}

	_, err := e.Query(context.Background(), `length(.name) > 3`, ds)
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrLengthArgument))
}

func TestParallelConditionWorkerPanic(t *testing.T) {
	explode := &functions.Scalar{
		FuncName: "explode",
		Params:   []functions.Param{{Kind: functions.ParamNumber}},
		Impl: func(_ functions.Env, args []ir.Value) (ir.Value, error) {
			if args[0] == ir.Number(250) {
				panic("bad row")
			}
			return ir.Boolean(true), nil
		},
	}
	e := newTestEngine(t, WithWorkers(3), WithRegistry(functions.NewRegistry(explode)))
	e.parallelMin = 1

	res, err := e.Query(context.Background(), `explode(.i)`, numbered(300))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "panicked: bad row")
}

func TestCustomRegistry(t *testing.T) {
	shout := &functions.Scalar{
		FuncName: "shout",
		Params:   []functions.Param{{Kind: functions.ParamString}},
		Impl: func(_ functions.Env, args []ir.Value) (ir.Value, error) {
			return ir.String(strings.ToUpper(string(args[0].(ir.String))) + "!"), nil
		},
	}
	e := newTestEngine(t, WithRegistry(functions.NewRegistry(shout)))
	assert.Equal(t, `[{"w":"hi"}]`, runQuery(t, e, `shout(.w) = "HI!"`, `[{"w":"hi"},{"w":"yo"}]`))

	_, err := e.Query(context.Background(), `length(.w) > 1`, ir.Dataset{})
	assert.True(t, ir.HasCode(err, ir.ErrUnknownFunction))
	assert.Same(t, e.registry, e.Registry())
}

func TestRowQuota(t *testing.T) {
	assert.NoError(t, NewRowQuota(0).Check(1_000_000))
	assert.NoError(t, NewRowQuota(-5).Check(10))
	assert.Equal(t, 0, NewRowQuota(-5).Limit())

	q := NewRowQuota(3)
	assert.NoError(t, q.Check(3))
	err := q.Check(4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 rows > 3 limit")
}
