package engine

import (
	"slices"

	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/queryir"
)

// project runs the projection phase. Each output row holds, in projection
// order, the requested paths rebuilt as nested objects: projecting .user.name
// and .user.id yields {"user": {"name": ..., "id": ...}}. Values are
// embedded as they are, objects included.
func (x *execution) project(rows ir.Dataset, entries []queryir.Expression) (ir.Dataset, error) {
	paths := make([][]string, len(entries))
	for i, entry := range entries {
		switch p := entry.(type) {
		case queryir.PropertyPath:
			paths[i] = p.Segments
		case *queryir.PropertyPath:
			paths[i] = p.Segments
		default:
			return nil, ir.NewError(ir.ErrProjectionEntry, "%s", entry)
		}
	}

	out := make(ir.Dataset, len(rows))
	for i, row := range rows {
		projected, err := projectRow(row, paths, x.engine.strictProjection)
		if err != nil {
			return nil, err
		}
		out[i] = projected
	}
	return out, nil
}

// projectRow builds one projected row. A path that does not resolve is
// left out, or is an ErrPropertyNotFound error when strict is set.
func projectRow(row ir.Object, paths [][]string, strict bool) (ir.Object, error) {
	out := make(ir.Object, 0, len(paths))
	for _, path := range paths {
		v, ok := ir.Lookup(path, row)
		if !ok {
			if strict {
				return nil, ir.NewError(ir.ErrPropertyNotFound, "%s", ir.JoinPath(path))
			}
			continue
		}
		out = insertPath(out, path, v)
	}
	return out, nil
}

// insertPath binds path to v inside obj, creating intermediate objects.
// Nested objects are copied before being written to, so values shared with
// the input row are never modified.
func insertPath(obj ir.Object, path []string, v ir.Value) ir.Object {
	if len(path) == 1 {
		return obj.Set(path[0], v)
	}
	var child ir.Object
	if existing, ok := obj.Get(path[0]); ok {
		if o, isObj := existing.(ir.Object); isObj {
			child = slices.Clone(o)
		}
	}
	return obj.Set(path[0], insertPath(child, path[1:], v))
}
