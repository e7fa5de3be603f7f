package ir

import (
	"math"
	"strconv"
)

// Value is a sealed interface representing the JSON-like values a query
// operates on. Only String, Number, Boolean, Array and Object implement it.
//
// There is no null: absent data is either an omitted field or, for path
// resolution, Boolean(false).
type Value interface {
	value() // Sealed - only these types implement it

	// Kind reports the variant tag.
	Kind() Kind
}

// Kind tags a Value variant.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBoolean
	KindArray
	KindObject
)

// String returns the lowercase kind name used in error details.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// String is a text value.
type String string

func (String) value()     {}
func (String) Kind() Kind { return KindString }

// Number is a numeric value. All numbers are float64, matching JSON.
type Number float64

func (Number) value()     {}
func (Number) Kind() Kind { return KindNumber }

// Boolean is a truth value.
type Boolean bool

func (Boolean) value()     {}
func (Boolean) Kind() Kind { return KindBoolean }

// Array is an ordered sequence of values.
type Array []Value

func (Array) value()     {}
func (Array) Kind() Kind { return KindArray }

// Field is one named entry of an Object.
type Field struct {
	Name  string
	Value Value
}

// Object is an ordered list of named fields. Field order is insertion order
// and every transform in this module preserves it; names are unique.
type Object []Field

func (Object) value()     {}
func (Object) Kind() Kind { return KindObject }

// F is a shorthand Field constructor.
// Example: Object{F("name", String("ada")), F("age", Number(36))}
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Get returns the value stored under name.
func (o Object) Get(name string) (Value, bool) {
	for _, f := range o {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set returns o with name bound to v. An existing field keeps its position;
// a new field is appended.
func (o Object) Set(name string, v Value) Object {
	for i, f := range o {
		if f.Name == name {
			o[i].Value = v
			return o
		}
	}
	return append(o, Field{Name: name, Value: v})
}

// Names returns the field names in order.
func (o Object) Names() []string {
	names := make([]string, len(o))
	for i, f := range o {
		names[i] = f.Name
	}
	return names
}

// Truthy reports whether v counts as true in a logical context.
// false, 0, NaN and "" are falsy; arrays and objects are always truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case Boolean:
		return bool(val)
	case Number:
		f := float64(val)
		return f != 0 && !math.IsNaN(f)
	case String:
		return val != ""
	case Array, Object:
		return true
	default:
		return false
	}
}

// Equal reports strict equality: same kind and equal content.
// Object comparison is order-sensitive.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i].Name != bv[i].Name || !Equal(av[i].Value, bv[i].Value) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Text renders a scalar the way string concatenation sees it.
// Numbers use the shortest representation that round-trips.
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return FormatNumber(float64(val))
	case Boolean:
		return strconv.FormatBool(bool(val))
	default:
		b, err := MarshalValue(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// FormatNumber formats f without exponent for integral values in the safe
// integer range, and with the shortest round-trip form otherwise.
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
