package functions

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/equery/internal/ir"
)

// ParamKind is the value kind a scalar parameter accepts.
type ParamKind uint8

const (
	ParamAny ParamKind = iota
	ParamString
	ParamNumber
	ParamBoolean
	ParamArray
)

func (k ParamKind) String() string {
	switch k {
	case ParamString:
		return "string"
	case ParamNumber:
		return "number"
	case ParamBoolean:
		return "boolean"
	case ParamArray:
		return "array"
	default:
		return "any"
	}
}

func (k ParamKind) accepts(v ir.Value) bool {
	switch k {
	case ParamString:
		return v.Kind() == ir.KindString
	case ParamNumber:
		return v.Kind() == ir.KindNumber
	case ParamBoolean:
		return v.Kind() == ir.KindBoolean
	case ParamArray:
		return v.Kind() == ir.KindArray
	default:
		return true
	}
}

// Param describes one positional parameter. Optional parameters must
// follow every required one.
type Param struct {
	Kind     ParamKind
	Optional bool
}

// ScalarFunc computes a scalar result from checked arguments.
type ScalarFunc func(env Env, args []ir.Value) (ir.Value, error)

// Scalar is a per-row function with positional parameter checking.
type Scalar struct {
	FuncName string
	Params   []Param
	Impl     ScalarFunc
}

func (*Scalar) builtin() {}

// Name implements Builtin.
func (s *Scalar) Name() string { return s.FuncName }

func (s *Scalar) required() int {
	n := 0
	for _, p := range s.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}

// CheckArity implements Builtin.
func (s *Scalar) CheckArity(n int) error {
	if lo, hi := s.required(), len(s.Params); n < lo || n > hi {
		return arityError(s.FuncName, lo, hi, n)
	}
	return nil
}

// Signature implements Builtin.
func (s *Scalar) Signature() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.Kind.String()
		if p.Optional {
			parts[i] += "?"
		}
	}
	return s.FuncName + "(" + strings.Join(parts, ", ") + ")"
}

// Call checks argument count and kinds positionally, then runs Impl.
func (s *Scalar) Call(env Env, args []ir.Value) (ir.Value, error) {
	if err := s.CheckArity(len(args)); err != nil {
		return nil, err
	}
	for i, arg := range args {
		if p := s.Params[i]; !p.Kind.accepts(arg) {
			return nil, ir.NewError(ir.ErrArgumentType, "%s argument %d must be %s, got %s; expected %s",
				s.FuncName, i+1, p.Kind, arg.Kind(), s.Signature())
		}
	}
	return s.Impl(env, args)
}

func scalars() []Builtin {
	return []Builtin{
		&Scalar{FuncName: "length", Params: []Param{{Kind: ParamAny}}, Impl: fnLength},
		&Scalar{FuncName: "uppercase", Params: []Param{{Kind: ParamString}}, Impl: fnUppercase},
		&Scalar{FuncName: "lowercase", Params: []Param{{Kind: ParamString}}, Impl: fnLowercase},
		&Scalar{FuncName: "contains", Params: []Param{{Kind: ParamAny}, {Kind: ParamAny}}, Impl: fnContains},
		&Scalar{FuncName: "not", Params: []Param{{Kind: ParamAny}}, Impl: fnNot},
		&Scalar{FuncName: "ft", Params: []Param{{Kind: ParamNumber}}, Impl: fnFeet},
	}
}

// fnLength counts runes of text or elements of an array.
func fnLength(_ Env, args []ir.Value) (ir.Value, error) {
	switch v := args[0].(type) {
	case ir.String:
		return ir.Number(utf8.RuneCountInString(string(v))), nil
	case ir.Array:
		return ir.Number(len(v)), nil
	default:
		return nil, ir.NewError(ir.ErrLengthArgument, "got %s", v.Kind())
	}
}

// A cases.Caser is stateful, so each call builds its own.
func fnUppercase(_ Env, args []ir.Value) (ir.Value, error) {
	return ir.String(cases.Upper(language.Und).String(string(args[0].(ir.String)))), nil
}

func fnLowercase(_ Env, args []ir.Value) (ir.Value, error) {
	return ir.String(cases.Lower(language.Und).String(string(args[0].(ir.String)))), nil
}

// fnContains is substring search for text and membership for arrays.
func fnContains(_ Env, args []ir.Value) (ir.Value, error) {
	switch hay := args[0].(type) {
	case ir.String:
		needle, ok := args[1].(ir.String)
		if !ok {
			return nil, ir.NewError(ir.ErrArgumentType, "contains on text needs a string needle, got %s", args[1].Kind())
		}
		return ir.Boolean(strings.Contains(string(hay), string(needle))), nil
	case ir.Array:
		for _, elem := range hay {
			if ir.Equal(elem, args[1]) {
				return ir.Boolean(true), nil
			}
		}
		return ir.Boolean(false), nil
	default:
		return nil, ir.NewError(ir.ErrArgumentType, "contains needs a string or array, got %s", hay.Kind())
	}
}

func fnNot(_ Env, args []ir.Value) (ir.Value, error) {
	return ir.Boolean(!ir.Truthy(args[0])), nil
}

const millimetresPerFoot = 304.8

// fnFeet converts millimetres to feet.
func fnFeet(_ Env, args []ir.Value) (ir.Value, error) {
	return args[0].(ir.Number) / millimetresPerFoot, nil
}
