package schema

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/roach88/equery/internal/ir"
)

// Draft is the JSON Schema dialect ToJSONSchema declares.
const Draft = "http://json-schema.org/draft-07/schema#"

// ToJSONSchema exports d as a JSON Schema document. The result is an
// ir.Object so property order survives MarshalIndent.
func ToJSONSchema(d Descriptor) ir.Object {
	doc := ir.Object{ir.F("$schema", ir.String(Draft))}
	return append(doc, jsonSchemaOf(d)...)
}

func jsonSchemaOf(d Descriptor) ir.Object {
	switch v := d.(type) {
	case Primitive:
		return ir.Object{ir.F("type", ir.String(v.Kind.String()))}
	case ArrayOf:
		out := ir.Object{ir.F("type", ir.String("array"))}
		if v.Elem != nil {
			out = append(out, ir.F("items", jsonSchemaOf(v.Elem)))
		}
		return out
	case ObjectOf:
		props := make(ir.Object, len(v.Fields))
		var required ir.Array
		for i, f := range v.Fields {
			props[i] = ir.F(f.Name, jsonSchemaOf(f.Type))
			if f.Required {
				required = append(required, ir.String(f.Name))
			}
		}
		out := ir.Object{ir.F("type", ir.String("object")), ir.F("properties", props)}
		if len(required) > 0 {
			out = append(out, ir.F("required", required))
		}
		return out
	case Union:
		options := make(ir.Array, len(v.Options))
		for i, o := range v.Options {
			options[i] = jsonSchemaOf(o)
		}
		return ir.Object{ir.F("anyOf", options)}
	default:
		return ir.Object{}
	}
}

// JSONSchema is a compiled JSON Schema that rows can be validated against.
type JSONSchema struct {
	schema *gojsonschema.Schema
}

// CompileJSONSchema compiles a JSON Schema document.
func CompileJSONSchema(doc []byte) (*JSONSchema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("compile json schema: %w", err)
	}
	return &JSONSchema{schema: s}, nil
}

// NewJSONSchema exports d and compiles the result.
func NewJSONSchema(d Descriptor) (*JSONSchema, error) {
	doc, err := ir.MarshalValue(ToJSONSchema(d))
	if err != nil {
		return nil, fmt.Errorf("export json schema: %w", err)
	}
	return CompileJSONSchema(doc)
}

// ValidateRow returns the violations of one row, or nil.
func (s *JSONSchema) ValidateRow(row ir.Object) ([]Violation, error) {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(ir.ToHost(row)))
	if err != nil {
		return nil, fmt.Errorf("validate row: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	var out []Violation
	for _, desc := range result.Errors() {
		out = append(out, Violation{Path: desc.Field(), Message: desc.Description()})
	}
	return out, nil
}

// ValidateDataset checks every row. The first failing row is returned as
// a *ValidationError.
func (s *JSONSchema) ValidateDataset(ds ir.Dataset) error {
	for i, row := range ds {
		vs, err := s.ValidateRow(row)
		if err != nil {
			return err
		}
		if len(vs) > 0 {
			return &ValidationError{Row: i, Violations: vs}
		}
	}
	return nil
}
