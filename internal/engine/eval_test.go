package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/equery/internal/compiler"
	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// evalCondition compiles statement and evaluates its condition against the
// single row in js.
func evalCondition(t *testing.T, statement, js string) (ir.Value, error) {
	t.Helper()
	plan, err := compiler.Compile(statement)
	require.NoError(t, err)
	require.NotNil(t, plan.Condition)

	e := newTestEngine(t, WithClock(functions.FixedClock(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))))
	ds := mustDataset(t, "["+js+"]")
	x := e.newExecution(ds)
	return x.eval(plan.Condition, ds[0])
}

func TestEval_Operators(t *testing.T) {
	tests := []struct {
		stmt string
		row  string
		want ir.Value
	}{
		// +
		{`.a + 1`, `{"a":2}`, ir.Number(3)},
		{`"x" + 1`, `{}`, ir.String("x1")},
		{`1.5 + "x"`, `{}`, ir.String("1.5x")},
		{`.s + .t`, `{"s":"1","t":"2"}`, ir.Number(3)},
		{`"1" + "2" = 3`, `{}`, ir.Boolean(true)},
		{`.s + 1`, `{"s":"1"}`, ir.String("11")},
		// - * /
		{`"6" - 1`, `{}`, ir.Number(5)},
		{`true * 3`, `{}`, ir.Number(3)},
		{`7 / 2`, `{}`, ir.Number(3.5)},
		{`-2 * 3`, `{}`, ir.Number(-6)},
		{`2 * 3 + 1`, `{}`, ir.Number(7)},
		{`1 + 2 * 3`, `{}`, ir.Number(7)},
		// =
		{`.a = 1`, `{"a":1}`, ir.Boolean(true)},
		{`.a = "1"`, `{"a":1}`, ir.Boolean(false)},
		{`.missing = false`, `{}`, ir.Boolean(true)},
		// > <
		{`.a < 1`, `{"a":0}`, ir.Boolean(true)},
		{`.a > 0`, `{"a":0}`, ir.Boolean(false)},
		{`"" < "a"`, `{}`, ir.Boolean(true)},
		{`"b" > "a"`, `{}`, ir.Boolean(true)},
		// & |
		{`.a & 0`, `{"a":1}`, ir.Boolean(false)},
		{`.a | 0`, `{"a":"x"}`, ir.Boolean(true)},
		{`.a > 1 & .a < 5`, `{"a":3}`, ir.Boolean(true)},
		// functions
		{`length(.tags)`, `{"tags":[1,2]}`, ir.Number(2)},
		{`contains(.tags, "go")`, `{"tags":["go"]}`, ir.Boolean(true)},
		{`not(.a)`, `{"a":0}`, ir.Boolean(true)},
		{`not(.missing)`, `{}`, ir.Boolean(true)},
		{`not(.missing = true)`, `{}`, ir.Boolean(true)},
		{`not(.a.b)`, `{"a":1}`, ir.Boolean(true)},
		{`contains(.tags, .missing)`, `{"tags":[false]}`, ir.Boolean(true)},
		{`uppercase(.s) = "AB"`, `{"s":"ab"}`, ir.Boolean(true)},
		{`ytoday()`, `{}`, ir.Number(2024)},
		{`max(.a) + count()`, `{"a":4}`, ir.Number(5)},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			got, err := evalCondition(t, tt.stmt, tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEval_Errors(t *testing.T) {
	tests := []struct {
		stmt string
		row  string
		code ir.ErrorCode
	}{
		{`true + 1`, `{}`, ir.ErrIncompatibleExpression},
		{`.s + .t`, `{"s":"a","t":"b"}`, ir.ErrIncompatibleExpression},
		{`.missing + 1`, `{}`, ir.ErrIncompatibleExpression},
		{`"abc" - 1`, `{}`, ir.ErrIncompatibleExpression},
		{`1 / 0`, `{}`, ir.ErrIncompatibleExpression},
		{`1 > "a"`, `{}`, ir.ErrIncompatibleExpression},
		{`.missing > 1`, `{}`, ir.ErrIncompatibleExpression},
		{`.tags`, `{"tags":[1]}`, ir.ErrIncompatibleExpression},
		{`.user = 1`, `{"user":{"id":1}}`, ir.ErrIncompatibleExpression},
		{`length(.missing)`, `{}`, ir.ErrLengthArgument},
		{`length(.missing) > 1`, `{}`, ir.ErrLengthArgument},
		{`length(.tags + 1)`, `{"tags":[1]}`, ir.ErrIncompatibleExpression},
		{`length(.n)`, `{"n":5}`, ir.ErrLengthArgument},
		{`length(.n) > 1`, `{"n":5}`, ir.ErrLengthArgument},
		{`uppercase(.n)`, `{"n":5}`, ir.ErrArgumentType},
		{`max(.s) > 1`, `{"s":"x"}`, ir.ErrNonNumericAggregate},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			_, err := evalCondition(t, tt.stmt, tt.row)
			require.Error(t, err)
			assert.True(t, ir.HasCode(err, tt.code), "want %d, got %v", tt.code, err)
			assert.Equal(t, tt.code.Fatal(), ir.IsFatal(err))
		})
	}
}

func TestEval_ArgumentPosition(t *testing.T) {
	e := newTestEngine(t)
	row := ir.Object{ir.F("tags", ir.Array{ir.String("a")}), ir.F("user", ir.Object{ir.F("id", ir.Number(1))})}
	x := e.newExecution(ir.Dataset{row})

	v, err := x.EvalArg(queryir.Path("tags"), row, false)
	require.NoError(t, err)
	assert.Equal(t, ir.Array{ir.String("a")}, v)

	v, err = x.EvalArg(queryir.Path("user"), row, true)
	require.NoError(t, err)
	assert.Equal(t, ir.Object{ir.F("id", ir.Number(1))}, v)

	v, err = x.EvalArg(queryir.Path("nope"), row, false)
	require.NoError(t, err)
	assert.Equal(t, ir.Boolean(false), v)

	_, err = x.EvalArg(queryir.Path("nope"), row, true)
	assert.True(t, ir.HasCode(err, ir.ErrPropertyNotFound))

	// Strict paths stop at the argument itself; operands keep condition rules.
	eq := queryir.BinaryOp{Op: queryir.OpEqual, Left: queryir.Path("nope"), Right: queryir.Literal{Value: ir.Boolean(false)}}
	v, err = x.EvalArg(eq, row, true)
	require.NoError(t, err)
	assert.Equal(t, ir.Boolean(true), v)

	_, err = x.eval(queryir.Path("tags"), row)
	assert.True(t, ir.HasCode(err, ir.ErrIncompatibleExpression))
}

func TestEval_PointerNodes(t *testing.T) {
	e := newTestEngine(t)
	row := ir.Object{ir.F("a", ir.Number(2))}
	x := e.newExecution(ir.Dataset{row})

	expr := &queryir.BinaryOp{
		Op:    queryir.OpMul,
		Left:  &queryir.PropertyPath{Segments: []string{"a"}},
		Right: &queryir.Literal{Value: ir.Number(5)},
	}
	v, err := x.eval(expr, row)
	require.NoError(t, err)
	assert.Equal(t, ir.Number(10), v)

	v, err = x.eval(&queryir.FunctionCall{Name: "sum", Args: []queryir.Expression{queryir.Path("a")}}, row)
	require.NoError(t, err)
	assert.Equal(t, ir.Number(2), v)
}

func TestEval_UnknownFunctionAtRunTime(t *testing.T) {
	e := newTestEngine(t)
	x := e.newExecution(ir.Dataset{{}})
	_, err := x.eval(queryir.FunctionCall{Name: "median"}, ir.Object{})
	require.Error(t, err)
	assert.True(t, ir.HasCode(err, ir.ErrUnknownFunction))
}

func TestAggregateCache(t *testing.T) {
	e := newTestEngine(t)
	ds := ir.Dataset{
		{ir.F("a", ir.Number(1))},
		{ir.F("a", ir.Number(5))},
	}
	x := e.newExecution(ds)
	call := queryir.FunctionCall{Name: "max", Args: []queryir.Expression{queryir.Path("a")}}

	v, err := x.eval(call, ds[0])
	require.NoError(t, err)
	assert.Equal(t, ir.Number(5), v)
	assert.Equal(t, ir.Number(5), x.aggregates["max(.a)"])

	// A poisoned entry proves later lookups hit the cache.
	x.aggregates["max(.a)"] = ir.Number(99)
	v, err = x.eval(call, ds[1])
	require.NoError(t, err)
	assert.Equal(t, ir.Number(99), v)

	fresh := e.newExecution(ds)
	assert.Empty(t, fresh.aggregates)
}

func TestNestedAggregate(t *testing.T) {
	e := newTestEngine(t)
	got := runQuery(t, e, `.a: .a - min(.a) = max(.a - min(.a))`,
		`[{"a":3},{"a":9},{"a":5}]`)
	assert.Equal(t, `[{"a":9}]`, got)
}
