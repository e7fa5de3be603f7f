package schema

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/equery/internal/ir"
)

// RowDefinition is the CUE definition ToCUE emits and CompileCUE looks up.
const RowDefinition = "#Row"

// ToCUE exports d as CUE source declaring RowDefinition. Required fields
// use the "!" marker; every struct is left open with "...".
func ToCUE(d Descriptor) string {
	var b strings.Builder
	b.WriteString(RowDefinition)
	b.WriteString(": ")
	writeCUE(&b, d, 0)
	b.WriteByte('\n')
	return b.String()
}

func writeCUE(b *strings.Builder, d Descriptor, depth int) {
	switch v := d.(type) {
	case Primitive:
		b.WriteString(cueKind(v.Kind))
	case ArrayOf:
		if v.Elem == nil {
			b.WriteString("[...]")
			return
		}
		b.WriteString("[...")
		writeCUE(b, v.Elem, depth)
		b.WriteByte(']')
	case ObjectOf:
		indent := strings.Repeat("\t", depth+1)
		b.WriteString("{\n")
		for _, f := range v.Fields {
			b.WriteString(indent)
			b.WriteString(cueLabel(f.Name))
			if f.Required {
				b.WriteByte('!')
			} else {
				b.WriteByte('?')
			}
			b.WriteString(": ")
			writeCUE(b, f.Type, depth+1)
			b.WriteByte('\n')
		}
		b.WriteString(indent)
		b.WriteString("...\n")
		b.WriteString(strings.Repeat("\t", depth))
		b.WriteByte('}')
	case Union:
		for i, o := range v.Options {
			if i > 0 {
				b.WriteString(" | ")
			}
			writeCUE(b, o, depth)
		}
	default:
		b.WriteByte('_')
	}
}

// cueLabel quotes names CUE would read as hidden fields, definitions or
// keywords.
func cueLabel(name string) string {
	switch name {
	case "if", "for", "in", "let", "import", "package", "true", "false", "null":
		return strconv.Quote(name)
	}
	if !isIdentifier(name) || name[0] == '_' || name[0] == '$' {
		return strconv.Quote(name)
	}
	return name
}

func cueKind(k ir.Kind) string {
	if k == ir.KindBoolean {
		return "bool"
	}
	return k.String()
}

// CUESchema is a compiled CUE constraint that rows are unified with.
type CUESchema struct {
	ctx   *cue.Context
	value cue.Value
}

// CompileCUE compiles CUE source. When the source declares RowDefinition,
// rows are checked against it; otherwise against the whole file.
func CompileCUE(src string) (*CUESchema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile cue schema: %w", err)
	}
	if def := v.LookupPath(cue.ParsePath(RowDefinition)); def.Exists() {
		v = def
	}
	return &CUESchema{ctx: ctx, value: v}, nil
}

// NewCUESchema exports d and compiles the result.
func NewCUESchema(d Descriptor) (*CUESchema, error) {
	return CompileCUE(ToCUE(d))
}

// ValidateRow unifies row with the schema and returns the violations, or
// nil when the result is concrete and free of conflicts.
func (s *CUESchema) ValidateRow(row ir.Object) []Violation {
	data := s.ctx.Encode(cueHost(row))
	err := s.value.Unify(data).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var out []Violation
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		out = append(out, Violation{
			Path:    "." + strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(out) == 0 {
		out = append(out, Violation{Path: ".", Message: err.Error()})
	}
	return out
}

// ValidateDataset checks every row. The first failing row is returned as
// a *ValidationError.
func (s *CUESchema) ValidateDataset(ds ir.Dataset) error {
	for i, row := range ds {
		if vs := s.ValidateRow(row); len(vs) > 0 {
			return &ValidationError{Row: i, Violations: vs}
		}
	}
	return nil
}

// cueHost is ToHost with integral numbers as int64, so rows satisfy
// CUE's int as well as number.
func cueHost(v ir.Value) any {
	switch val := v.(type) {
	case ir.Number:
		f := float64(val)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case ir.Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = cueHost(elem)
		}
		return out
	case ir.Object:
		out := make(map[string]any, len(val))
		for _, f := range val {
			out[f.Name] = cueHost(f.Value)
		}
		return out
	default:
		return ir.ToHost(v)
	}
}
