package engine

import (
	"cmp"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// execution is the state of one Run. It is passed explicitly through every
// eval call and never outlives Run.
type execution struct {
	engine  *Engine
	id      string
	seq     int64
	clock   Clock
	dataset ir.Dataset
	matched int

	mu         sync.Mutex
	aggregates map[string]ir.Value
}

func (e *Engine) newExecution(ds ir.Dataset) *execution {
	return &execution{
		engine:     e,
		id:         e.ids.Generate(),
		seq:        e.seq.Add(1),
		clock:      freeze(e.clock),
		dataset:    ds,
		aggregates: make(map[string]ir.Value),
	}
}

func (x *execution) stats(out int, d time.Duration) Stats {
	x.mu.Lock()
	n := len(x.aggregates)
	x.mu.Unlock()
	return Stats{
		ExecutionID: x.id,
		Seq:         x.seq,
		InputRows:   len(x.dataset),
		MatchedRows: x.matched,
		OutputRows:  out,
		Aggregates:  n,
		Duration:    d,
	}
}

// EvalArg implements functions.RowEvaluator. At a direct argument
// position arrays and objects are values. With strictPaths a bare property
// path that does not resolve is ErrPropertyNotFound; anything deeper, such
// as the operands of a BinaryOp, is evaluated by the condition rules.
func (x *execution) EvalArg(expr queryir.Expression, row ir.Object, strictPaths bool) (ir.Value, error) {
	switch e := expr.(type) {
	case queryir.PropertyPath:
		return argPath(e, row, strictPaths)
	case *queryir.PropertyPath:
		return argPath(*e, row, strictPaths)
	case queryir.FunctionCall:
		return x.call(e, row)
	case *queryir.FunctionCall:
		return x.call(*e, row)
	default:
		return x.eval(expr, row)
	}
}

// eval evaluates expr against row as a condition, order key or operand.
// A missing path is Boolean(false); a path or function result holding an
// array or object is an incompatible expression.
func (x *execution) eval(expr queryir.Expression, row ir.Object) (ir.Value, error) {
	switch e := expr.(type) {
	case queryir.Literal:
		return e.Value, nil
	case *queryir.Literal:
		return e.Value, nil
	case queryir.PropertyPath:
		return resolve(e, row)
	case *queryir.PropertyPath:
		return resolve(*e, row)
	case queryir.FunctionCall:
		return x.scalarCall(e, row)
	case *queryir.FunctionCall:
		return x.scalarCall(*e, row)
	case queryir.BinaryOp:
		return x.binary(e, row)
	case *queryir.BinaryOp:
		return x.binary(*e, row)
	default:
		return nil, ir.NewError(ir.ErrSyntax, "unknown expression %T", expr)
	}
}

func resolve(p queryir.PropertyPath, row ir.Object) (ir.Value, error) {
	v := ir.ResolvePath(p.Segments, row)
	switch v.(type) {
	case ir.Array, ir.Object:
		return nil, ir.NewError(ir.ErrIncompatibleExpression, "%s is %s", p, v.Kind())
	}
	return v, nil
}

func argPath(p queryir.PropertyPath, row ir.Object, strict bool) (ir.Value, error) {
	v, ok := ir.Lookup(p.Segments, row)
	switch {
	case ok:
		return v, nil
	case strict:
		return nil, ir.NewError(ir.ErrPropertyNotFound, "%s", p)
	default:
		return ir.Boolean(false), nil
	}
}

func (x *execution) scalarCall(f queryir.FunctionCall, row ir.Object) (ir.Value, error) {
	v, err := x.call(f, row)
	if err != nil {
		return nil, err
	}
	switch v.(type) {
	case ir.Array, ir.Object:
		return nil, ir.NewError(ir.ErrIncompatibleExpression, "%s returned %s", f, v.Kind())
	}
	return v, nil
}

func (x *execution) call(f queryir.FunctionCall, row ir.Object) (ir.Value, error) {
	builtin, err := x.engine.registry.Resolve(f.Name)
	if err != nil {
		return nil, err
	}

	switch b := builtin.(type) {
	case *functions.Aggregate:
		return x.aggregate(f, b)
	case *functions.Scalar:
		args := make([]ir.Value, len(f.Args))
		for i, arg := range f.Args {
			args[i], err = x.EvalArg(arg, row, false)
			if err != nil {
				return nil, err
			}
		}
		return b.Call(x.clock, args)
	default:
		return nil, ir.NewError(ir.ErrUnknownFunction, "%s", f.Name)
	}
}

// aggregate returns the cached value for f, computing it over the whole
// pre-filter dataset on a miss. The lock is not held while computing:
// an aggregate argument may itself contain an aggregate.
func (x *execution) aggregate(f queryir.FunctionCall, agg *functions.Aggregate) (ir.Value, error) {
	key := f.String()
	x.mu.Lock()
	v, ok := x.aggregates[key]
	x.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := agg.Compute(x.dataset, f.Args, x)
	if err != nil {
		return nil, err
	}

	x.mu.Lock()
	x.aggregates[key] = v
	x.mu.Unlock()
	return v, nil
}

func (x *execution) binary(b queryir.BinaryOp, row ir.Object) (ir.Value, error) {
	left, err := x.eval(b.Left, row)
	if err != nil {
		return nil, operandError(b, err)
	}
	right, err := x.eval(b.Right, row)
	if err != nil {
		return nil, operandError(b, err)
	}
	return apply(b.Op, left, right)
}

// operandError turns a row-level operand failure into an incompatible
// expression. Fatal errors pass through unchanged.
func operandError(b queryir.BinaryOp, err error) error {
	if ir.IsFatal(err) {
		return err
	}
	return ir.NewError(ir.ErrIncompatibleExpression, "%s: %v", b, err)
}

// apply implements the binary operators on scalar values.
func apply(op queryir.Operator, l, r ir.Value) (ir.Value, error) {
	switch op {
	case queryir.OpAdd:
		return add(l, r)
	case queryir.OpSub, queryir.OpMul, queryir.OpDiv:
		return arithmetic(op, l, r)
	case queryir.OpEqual:
		return ir.Boolean(ir.Equal(l, r)), nil
	case queryir.OpLess, queryir.OpGreater:
		c, err := compareScalars(op, l, r)
		if err != nil {
			return nil, err
		}
		if op == queryir.OpLess {
			return ir.Boolean(c < 0), nil
		}
		return ir.Boolean(c > 0), nil
	case queryir.OpAnd:
		return ir.Boolean(ir.Truthy(l) && ir.Truthy(r)), nil
	case queryir.OpOr:
		return ir.Boolean(ir.Truthy(l) || ir.Truthy(r)), nil
	default:
		return nil, ir.NewError(ir.ErrIncompatibleExpression, "unknown operator %q", string(op))
	}
}

// add sums two values of the same kind after numeric coercion and joins
// the textual forms of a number and a string. Booleans never take part.
func add(l, r ir.Value) (ir.Value, error) {
	if l.Kind() == ir.KindBoolean || r.Kind() == ir.KindBoolean {
		return nil, incompatible("+", l, r)
	}
	if l.Kind() == r.Kind() {
		a, aok := toNumber(l)
		b, bok := toNumber(r)
		if !aok || !bok {
			return nil, incompatible("+", l, r)
		}
		return ir.Number(a + b), nil
	}
	switch l.(type) {
	case ir.Number, ir.String:
		switch r.(type) {
		case ir.Number, ir.String:
			return ir.String(ir.Text(l) + ir.Text(r)), nil
		}
	}
	return nil, incompatible("+", l, r)
}

func arithmetic(op queryir.Operator, l, r ir.Value) (ir.Value, error) {
	a, aok := toNumber(l)
	b, bok := toNumber(r)
	if !aok || !bok {
		return nil, incompatible(string(op), l, r)
	}
	switch op {
	case queryir.OpSub:
		return ir.Number(a - b), nil
	case queryir.OpMul:
		return ir.Number(a * b), nil
	default:
		if b == 0 {
			return nil, ir.NewError(ir.ErrIncompatibleExpression, "division by zero")
		}
		return ir.Number(a / b), nil
	}
}

// toNumber coerces numbers, numeric strings and booleans.
func toNumber(v ir.Value) (float64, bool) {
	switch val := v.(type) {
	case ir.Number:
		return float64(val), true
	case ir.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case ir.Boolean:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// compareScalars orders two numbers or two strings. Any other pairing is an
// incompatible expression; in particular 0 and "" compare like any other
// value.
func compareScalars(op queryir.Operator, l, r ir.Value) (int, error) {
	switch lv := l.(type) {
	case ir.Number:
		if rv, ok := r.(ir.Number); ok {
			return cmp.Compare(lv, rv), nil
		}
	case ir.String:
		if rv, ok := r.(ir.String); ok {
			return strings.Compare(string(lv), string(rv)), nil
		}
	}
	return 0, incompatible(string(op), l, r)
}

func incompatible(op string, l, r ir.Value) error {
	return ir.NewError(ir.ErrIncompatibleExpression, "%s %s %s", l.Kind(), op, r.Kind())
}
