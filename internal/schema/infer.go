package schema

import "github.com/roach88/equery/internal/ir"

// Infer derives the row descriptor of a dataset by merging the descriptor
// of every row. A field is required only when every row has it and all of
// them agree on its class (string, number, boolean, array or object).
//
// An empty dataset infers to an object with no fields.
func Infer(ds ir.Dataset) ObjectOf {
	var acc Descriptor
	for _, row := range ds {
		acc = Merge(acc, describeObject(row))
	}
	obj, _ := acc.(ObjectOf)
	return obj
}

// Merge returns the narrowest descriptor covering both a and b. A nil
// descriptor means "nothing seen yet" and merges to the other side.
func Merge(a, b Descriptor) Descriptor {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}

	if ua, ok := a.(Union); ok {
		return mergeIntoUnion(ua, b)
	}
	if ub, ok := b.(Union); ok {
		return mergeIntoUnion(Union{Options: []Descriptor{a}}, ub)
	}

	if class(a) == class(b) {
		switch av := a.(type) {
		case Primitive:
			return av
		case ArrayOf:
			return ArrayOf{Elem: Merge(av.Elem, b.(ArrayOf).Elem)}
		case ObjectOf:
			return mergeObjects(av, b.(ObjectOf))
		}
	}
	return Union{Options: []Descriptor{a, b}}
}

// mergeIntoUnion adds each option of b to u, merging with the existing
// option of the same class when there is one.
func mergeIntoUnion(u Union, b Descriptor) Descriptor {
	incoming := []Descriptor{b}
	if ub, ok := b.(Union); ok {
		incoming = ub.Options
	}

	options := make([]Descriptor, len(u.Options), len(u.Options)+len(incoming))
	copy(options, u.Options)
	for _, in := range incoming {
		merged := false
		for i, o := range options {
			if class(o) == class(in) {
				options[i] = Merge(o, in)
				merged = true
				break
			}
		}
		if !merged {
			options = append(options, in)
		}
	}
	if len(options) == 1 {
		return options[0]
	}
	return Union{Options: options}
}

func mergeObjects(a, b ObjectOf) ObjectOf {
	fields := make([]FieldType, 0, len(a.Fields)+len(b.Fields))
	for _, fa := range a.Fields {
		fb, ok := b.Field(fa.Name)
		if !ok {
			fields = append(fields, FieldType{Name: fa.Name, Type: fa.Type})
			continue
		}
		fields = append(fields, FieldType{
			Name:     fa.Name,
			Type:     Merge(fa.Type, fb.Type),
			Required: fa.Required && fb.Required && consistent(fa.Type, fb.Type),
		})
	}
	for _, fb := range b.Fields {
		if _, ok := a.Field(fb.Name); !ok {
			fields = append(fields, FieldType{Name: fb.Name, Type: fb.Type})
		}
	}
	return ObjectOf{Fields: fields}
}

func consistent(a, b Descriptor) bool {
	ca := class(a)
	return ca != "" && ca == class(b)
}

// class is the coarse kind of a descriptor; unions have none.
func class(d Descriptor) string {
	switch v := d.(type) {
	case Primitive:
		return v.Kind.String()
	case ArrayOf:
		return "array"
	case ObjectOf:
		return "object"
	}
	return ""
}
