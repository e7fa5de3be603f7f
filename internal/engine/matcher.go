package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/equery/internal/functions"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// matches evaluates cond for one row. A row matches only when the result is
// exactly Boolean(true); truthy values such as 1 or "yes" do not count.
//
// Returns (false, nil) for rows dropped by a non-fatal error.
func (x *execution) matches(cond queryir.Expression, row ir.Object) (bool, error) {
	v, err := x.eval(cond, row)
	if err != nil {
		if ir.IsFatal(err) {
			return false, err
		}
		return false, nil
	}
	b, ok := v.(ir.Boolean)
	return ok && bool(b), nil
}

// filter runs the condition phase. Surviving rows keep their input order.
//
// Aggregates are computed up front, so a fatal aggregate error aborts the
// query no matter which rows fail before reaching it.
func (x *execution) filter(ctx context.Context, cond queryir.Expression) (ir.Dataset, error) {
	if len(x.dataset) == 0 {
		return ir.Dataset{}, nil
	}
	if err := x.prewarm(cond); err != nil {
		return nil, err
	}
	if x.engine.pool != nil && len(x.dataset) >= x.engine.parallelMin {
		return x.filterParallel(ctx, cond)
	}

	out := make(ir.Dataset, 0, len(x.dataset))
	for i, row := range x.dataset {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ok, err := x.matches(cond, row)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// filterParallel splits the dataset into contiguous chunks, one pool task
// per chunk. The cache is already warm, so workers only read it. When
// several chunks fail, the error from the lowest row wins. A panicking
// chunk fails the query.
func (x *execution) filterParallel(ctx context.Context, cond queryir.Expression) (ir.Dataset, error) {
	n := len(x.dataset)
	chunks := x.engine.workers * 4
	size := (n + chunks - 1) / chunks
	keep := make([]bool, n)
	errs := make([]error, chunks)

	var wg sync.WaitGroup
	for c := 0; c < chunks; c++ {
		lo := c * size
		if lo >= n {
			break
		}
		hi := min(lo+size, n)
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[c] = fmt.Errorf("condition worker for rows %d-%d panicked: %v", lo, hi-1, r)
				}
			}()
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					errs[c] = err
					return
				}
				ok, err := x.matches(cond, x.dataset[i])
				if err != nil {
					errs[c] = err
					return
				}
				keep[i] = ok
			}
		}
		if err := x.engine.pool.Submit(task); err != nil {
			wg.Done()
			wg.Wait()
			return nil, fmt.Errorf("submit condition chunk: %w", err)
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out := make(ir.Dataset, 0, n)
	for i, row := range x.dataset {
		if keep[i] {
			out = append(out, row)
		}
	}
	return out, nil
}

// prewarm computes every aggregate in expr serially. Only fatal errors are
// returned; anything else surfaces again per row.
func (x *execution) prewarm(expr queryir.Expression) error {
	var firstErr error
	queryir.Walk(expr, func(e queryir.Expression) bool {
		if firstErr != nil {
			return false
		}
		var call queryir.FunctionCall
		switch f := e.(type) {
		case queryir.FunctionCall:
			call = f
		case *queryir.FunctionCall:
			call = *f
		default:
			return true
		}
		b, ok := x.engine.registry.Lookup(call.Name)
		if !ok {
			return true
		}
		agg, ok := b.(*functions.Aggregate)
		if !ok {
			return true
		}
		if _, err := x.aggregate(call, agg); err != nil && ir.IsFatal(err) {
			firstErr = err
		}
		return false
	})
	return firstErr
}
