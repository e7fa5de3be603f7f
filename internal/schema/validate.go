package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/equery/internal/ir"
)

// Violation is one place where a value does not follow a descriptor.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ValidationError carries every violation found in one row.
type ValidationError struct {
	Row        int
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(parts, "; "))
}

// Validate checks v against d and returns every violation, or nil.
// Paths use the query language's property syntax, with [i] for array
// elements; the root is ".".
func Validate(v ir.Value, d Descriptor) []Violation {
	var out []Violation
	validate(v, d, "", &out)
	return out
}

// ValidateDataset checks every row against d. The first failing row is
// returned as a *ValidationError.
func ValidateDataset(ds ir.Dataset, d Descriptor) error {
	for i, row := range ds {
		if vs := Validate(row, d); len(vs) > 0 {
			return &ValidationError{Row: i, Violations: vs}
		}
	}
	return nil
}

func validate(v ir.Value, d Descriptor, at string, out *[]Violation) {
	switch want := d.(type) {
	case nil:
		return
	case Primitive:
		if v.Kind() != want.Kind {
			*out = append(*out, mismatch(at, want, v))
		}
	case ArrayOf:
		arr, ok := v.(ir.Array)
		if !ok {
			*out = append(*out, mismatch(at, want, v))
			return
		}
		for i, elem := range arr {
			validate(elem, want.Elem, fmt.Sprintf("%s[%d]", at, i), out)
		}
	case ObjectOf:
		obj, ok := v.(ir.Object)
		if !ok {
			*out = append(*out, mismatch(at, want, v))
			return
		}
		for _, f := range want.Fields {
			fv, ok := obj.Get(f.Name)
			if !ok {
				if f.Required {
					*out = append(*out, Violation{Path: where(at + "." + f.Name), Message: "required property missing"})
				}
				continue
			}
			validate(fv, f.Type, at+"."+f.Name, out)
		}
	case Union:
		for _, o := range want.Options {
			if len(Validate(v, o)) == 0 {
				return
			}
		}
		*out = append(*out, mismatch(at, want, v))
	}
}

func mismatch(at string, want Descriptor, got ir.Value) Violation {
	return Violation{
		Path:    where(at),
		Message: fmt.Sprintf("expected %s, got %s", want, got.Kind()),
	}
}

func where(at string) string {
	if at == "" {
		return "."
	}
	return at
}
