package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

type keyedRow struct {
	row ir.Object
	key ir.Value
}

// order runs the order phase: a stable sort on the key, then the limit.
//
// The key is evaluated once per row. Only two numeric keys compare; any
// other pair has no preference and keeps its relative order.
func (x *execution) order(rows ir.Dataset, o *queryir.Ordering) (ir.Dataset, error) {
	if o.Key != nil && len(rows) > 1 {
		items := make([]keyedRow, len(rows))
		for i, row := range rows {
			key, err := x.orderKey(o.Key, row)
			if err != nil {
				return nil, err
			}
			items[i] = keyedRow{row: row, key: key}
		}

		desc := o.Direction == queryir.Desc
		slices.SortStableFunc(items, func(a, b keyedRow) int {
			c := compareKeys(a.key, b.key)
			if desc {
				return -c
			}
			return c
		})
		for i := range items {
			rows[i] = items[i].row
		}
	}

	if o.Limit != nil && *o.Limit < len(rows) {
		rows = rows[:*o.Limit]
	}
	return rows, nil
}

// orderKey evaluates the key for one row. A path holding an array or
// object is ErrOrderingType; any other failure is ErrOrderByFailure.
func (x *execution) orderKey(key queryir.Expression, row ir.Object) (ir.Value, error) {
	var path queryir.PropertyPath
	switch p := key.(type) {
	case queryir.PropertyPath:
		path = p
	case *queryir.PropertyPath:
		path = *p
	}
	if path.Segments != nil {
		if v, ok := ir.Lookup(path.Segments, row); ok {
			switch v.(type) {
			case ir.Array, ir.Object:
				return nil, ir.NewError(ir.ErrOrderingType, "%s is %s", path, v.Kind())
			}
		}
	}

	v, err := x.eval(key, row)
	if err != nil {
		if ir.IsFatal(err) {
			return nil, err
		}
		return nil, ir.NewError(ir.ErrOrderByFailure, "%s: %v", key, err)
	}
	return v, nil
}

// compareKeys orders two numeric keys. Any other pairing has no
// preference, so the stable sort keeps those rows in input order.
func compareKeys(a, b ir.Value) int {
	av, aok := a.(ir.Number)
	bv, bok := b.(ir.Number)
	if !aok || !bok {
		return 0
	}
	return cmp.Compare(av, bv)
}
