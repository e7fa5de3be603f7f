package dataset

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/equery/internal/ir"
)

// ParseCUE evaluates CUE source and converts the value at path (the whole
// file when path is empty) into a Value. The value must be concrete.
// Definitions, hidden and optional fields are not data and are skipped,
// so a file can declare a schema next to the rows it constrains:
//
//	#Row: {name!: string, likes: int}
//	rows: [...#Row] & [{name: "Lucas", likes: 12}]
func ParseCUE(src []byte, path string) (ir.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue: %w", err)
	}
	if path != "" {
		v = v.LookupPath(cue.ParsePath(path))
		if !v.Exists() {
			return nil, ir.NewError(ir.ErrDatasetShape, "cue path %s not found", path)
		}
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate cue: %w", err)
	}

	out, err := fromCUE(v, "")
	if errors.Is(err, errNull) {
		return nil, ir.NewError(ir.ErrUnsupportedValue, "null at top level")
	}
	return out, err
}

// LoadCUE parses CUE source and returns the dataset at path. A struct
// holding exactly one list field is unwrapped, so files of the form
// "rows: [...]" load without naming the field.
func LoadCUE(src []byte, path string) (ir.Dataset, error) {
	v, err := ParseCUE(src, path)
	if err != nil {
		return nil, err
	}
	if obj, ok := v.(ir.Object); ok && len(obj) == 1 {
		if arr, isArr := obj[0].Value.(ir.Array); isArr {
			v = arr
		}
	}
	return ir.DatasetFromValue(v)
}

func fromCUE(v cue.Value, at string) (ir.Value, error) {
	if d, ok := v.Default(); ok {
		v = d
	}
	switch v.Kind() {
	case cue.NullKind:
		return nil, errNull
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, fmt.Errorf("cue at %s: %w", where(at), err)
		}
		return ir.String(s), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, fmt.Errorf("cue at %s: %w", where(at), err)
		}
		return ir.Boolean(b), nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("cue at %s: %w", where(at), err)
		}
		return ir.Number(f), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, fmt.Errorf("cue at %s: %w", where(at), err)
		}
		arr := ir.Array{}
		for i := 0; iter.Next(); i++ {
			elem, err := fromCUE(iter.Value(), fmt.Sprintf("%s[%d]", at, i))
			if errors.Is(err, errNull) {
				return nil, ir.NewError(ir.ErrUnsupportedValue, "null at %s[%d]", where(at), i)
			}
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, fmt.Errorf("cue at %s: %w", where(at), err)
		}
		obj := ir.Object{}
		for iter.Next() {
			name := iter.Label()
			fv, err := fromCUE(iter.Value(), at+"."+name)
			if errors.Is(err, errNull) {
				continue
			}
			if err != nil {
				return nil, err
			}
			obj = append(obj, ir.F(name, fv))
		}
		return obj, nil
	}
	return nil, ir.NewError(ir.ErrUnsupportedValue, "cue %s at %s", v.Kind(), where(at))
}
