package functions

import (
	"math"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// ReduceFunc folds the successfully mapped values of an aggregate. rows is
// the size of the dataset the aggregate ran over.
type ReduceFunc func(name string, values []ir.Value, rows int) (ir.Value, error)

// Aggregate is a dataset-wide function. Its argument is evaluated once per
// row of the pre-filter dataset; rows where that fails with a non-fatal
// error are left out and fatal errors abort.
type Aggregate struct {
	FuncName string
	MinArgs  int
	MaxArgs  int
	Reduce   ReduceFunc

	// StrictPaths skips rows where a bare path argument is missing, rather
	// than folding in Boolean(false).
	StrictPaths bool
}

func (*Aggregate) builtin() {}

// Name implements Builtin.
func (a *Aggregate) Name() string { return a.FuncName }

// CheckArity implements Builtin.
func (a *Aggregate) CheckArity(n int) error {
	if n < a.MinArgs || n > a.MaxArgs {
		return arityError(a.FuncName, a.MinArgs, a.MaxArgs, n)
	}
	return nil
}

// Signature implements Builtin.
func (a *Aggregate) Signature() string {
	if a.MaxArgs == 0 {
		return a.FuncName + "()"
	}
	if a.MinArgs == 0 {
		return a.FuncName + "(expr?)"
	}
	return a.FuncName + "(expr)"
}

// Compute maps args over ds with ev and reduces the surviving values.
func (a *Aggregate) Compute(ds ir.Dataset, args []queryir.Expression, ev RowEvaluator) (ir.Value, error) {
	if err := a.CheckArity(len(args)); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return a.Reduce(a.FuncName, nil, len(ds))
	}

	values := make([]ir.Value, 0, len(ds))
	for _, row := range ds {
		v, err := ev.EvalArg(args[0], row, a.StrictPaths)
		if err != nil {
			if ir.IsFatal(err) {
				return nil, err
			}
			continue
		}
		values = append(values, v)
	}
	return a.Reduce(a.FuncName, values, len(ds))
}

func aggregates() []Builtin {
	return []Builtin{
		&Aggregate{FuncName: "min", MinArgs: 1, MaxArgs: 1, Reduce: numeric(reduceMin), StrictPaths: true},
		&Aggregate{FuncName: "max", MinArgs: 1, MaxArgs: 1, Reduce: numeric(reduceMax), StrictPaths: true},
		&Aggregate{FuncName: "sum", MinArgs: 1, MaxArgs: 1, Reduce: numeric(reduceSum), StrictPaths: true},
		&Aggregate{FuncName: "average", MinArgs: 1, MaxArgs: 1, Reduce: numeric(reduceAverage), StrictPaths: true},
		&Aggregate{FuncName: "count", MinArgs: 0, MaxArgs: 1, Reduce: reduceCount},
	}
}

// numeric adapts a float fold into a ReduceFunc that rejects non-numbers.
func numeric(fold func(name string, xs []float64) (float64, error)) ReduceFunc {
	return func(name string, values []ir.Value, _ int) (ir.Value, error) {
		xs := make([]float64, len(values))
		for i, v := range values {
			n, ok := v.(ir.Number)
			if !ok {
				return nil, ir.NewError(ir.ErrNonNumericAggregate, "%s received %s", name, v.Kind())
			}
			xs[i] = float64(n)
		}
		f, err := fold(name, xs)
		if err != nil {
			return nil, err
		}
		return ir.Number(f), nil
	}
}

func emptyAggregate(name string) error {
	return ir.NewError(ir.ErrNonNumericAggregate, "%s over no numeric values", name)
}

func reduceMin(name string, xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, emptyAggregate(name)
	}
	m := math.Inf(1)
	for _, x := range xs {
		m = math.Min(m, x)
	}
	return m, nil
}

func reduceMax(name string, xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, emptyAggregate(name)
	}
	m := math.Inf(-1)
	for _, x := range xs {
		m = math.Max(m, x)
	}
	return m, nil
}

func reduceSum(_ string, xs []float64) (float64, error) {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s, nil
}

func reduceAverage(name string, xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, emptyAggregate(name)
	}
	s, _ := reduceSum(name, xs)
	return s / float64(len(xs)), nil
}

// reduceCount is the dataset size for count() and the number of rows whose
// expression evaluated for count(expr).
func reduceCount(_ string, values []ir.Value, rows int) (ir.Value, error) {
	if values == nil {
		return ir.Number(rows), nil
	}
	return ir.Number(len(values)), nil
}
