package schema

import (
	"strconv"
	"strings"

	"github.com/roach88/equery/internal/ir"
)

// Descriptor is a sealed interface describing the shape of a Value.
// Only Primitive, ArrayOf, ObjectOf and Union implement it.
type Descriptor interface {
	descriptor() // Sealed - only these types implement it

	// String renders the descriptor in a compact, Go-like notation.
	String() string
}

// Primitive describes a string, number or boolean.
type Primitive struct {
	Kind ir.Kind
}

func (Primitive) descriptor() {}

func (p Primitive) String() string { return p.Kind.String() }

// ArrayOf describes an array. A nil Elem means the element type is unknown,
// which is what an empty array infers to.
type ArrayOf struct {
	Elem Descriptor
}

func (ArrayOf) descriptor() {}

func (a ArrayOf) String() string {
	if a.Elem == nil {
		return "[]any"
	}
	return "[]" + a.Elem.String()
}

// FieldType is one property of an ObjectOf.
type FieldType struct {
	Name     string
	Type     Descriptor
	Required bool
}

// ObjectOf describes an object. Fields keep first-seen order. Objects are
// open: properties not listed are allowed.
type ObjectOf struct {
	Fields []FieldType
}

func (ObjectOf) descriptor() {}

// Field returns the named field.
func (o ObjectOf) Field(name string) (FieldType, bool) {
	for _, f := range o.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldType{}, false
}

func (o ObjectOf) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range o.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(label(f.Name))
		if !f.Required {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(f.Type.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Union describes a value matching any one of Options. Options never nest
// another Union and never hold two descriptors of the same class.
type Union struct {
	Options []Descriptor
}

func (Union) descriptor() {}

func (u Union) String() string {
	parts := make([]string, len(u.Options))
	for i, o := range u.Options {
		parts[i] = o.String()
	}
	return strings.Join(parts, " | ")
}

// Describe returns the exact descriptor of v. Object fields are all
// required; array elements are merged into one element descriptor.
func Describe(v ir.Value) Descriptor {
	switch val := v.(type) {
	case ir.String, ir.Number, ir.Boolean:
		return Primitive{Kind: v.Kind()}
	case ir.Array:
		var elem Descriptor
		for _, e := range val {
			elem = Merge(elem, Describe(e))
		}
		return ArrayOf{Elem: elem}
	case ir.Object:
		return describeObject(val)
	default:
		return nil
	}
}

func describeObject(obj ir.Object) ObjectOf {
	fields := make([]FieldType, len(obj))
	for i, f := range obj {
		fields[i] = FieldType{Name: f.Name, Type: Describe(f.Value), Required: true}
	}
	return ObjectOf{Fields: fields}
}

// Equal reports whether a and b describe the same shape. Field order is
// significant; union option order is not.
func Equal(a, b Descriptor) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Primitive:
		bv, ok := b.(Primitive)
		return ok && av.Kind == bv.Kind
	case ArrayOf:
		bv, ok := b.(ArrayOf)
		return ok && Equal(av.Elem, bv.Elem)
	case ObjectOf:
		bv, ok := b.(ObjectOf)
		if !ok || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for i := range av.Fields {
			fa, fb := av.Fields[i], bv.Fields[i]
			if fa.Name != fb.Name || fa.Required != fb.Required || !Equal(fa.Type, fb.Type) {
				return false
			}
		}
		return true
	case Union:
		bv, ok := b.(Union)
		if !ok || len(av.Options) != len(bv.Options) {
			return false
		}
		for _, o := range av.Options {
			if indexOfEqual(bv.Options, o) < 0 {
				return false
			}
		}
		return true
	}
	return false
}

func indexOfEqual(options []Descriptor, d Descriptor) int {
	for i, o := range options {
		if Equal(o, d) {
			return i
		}
	}
	return -1
}

// label quotes name unless it is a plain identifier.
func label(name string) string {
	if isIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
