package dataset

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/equery/internal/ir"
)

var errNull = errors.New("null")

// ParseYAML decodes a single YAML document into a Value, keeping mapping
// keys in document order. Nulls follow the JSON rules: null mapping
// values are dropped and a null anywhere else is an ErrUnsupportedValue
// error. Merge keys ("<<") splice the referenced mappings in place.
func ParseYAML(data []byte) (ir.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if doc.Kind == 0 {
		return nil, ir.NewError(ir.ErrDatasetShape, "empty yaml document")
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts an already parsed node, such as a field of a
// struct decoded with yaml.v3, under the same rules as ParseYAML.
func FromYAMLNode(n *yaml.Node) (ir.Value, error) {
	v, err := fromYAML(n, "")
	if errors.Is(err, errNull) {
		return nil, ir.NewError(ir.ErrUnsupportedValue, "null at top level")
	}
	return v, err
}

func fromYAML(n *yaml.Node, at string) (ir.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, errNull
		}
		return fromYAML(n.Content[0], at)
	case yaml.AliasNode:
		return fromYAML(n.Alias, at)
	case yaml.SequenceNode:
		arr := make(ir.Array, 0, len(n.Content))
		for i, elem := range n.Content {
			v, err := fromYAML(elem, fmt.Sprintf("%s[%d]", at, i))
			if errors.Is(err, errNull) {
				return nil, ir.NewError(ir.ErrUnsupportedValue, "null at %s[%d]", where(at), i)
			}
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, nil
	case yaml.MappingNode:
		obj := make(ir.Object, 0, len(n.Content)/2)
		if err := appendMapping(&obj, n, at); err != nil {
			return nil, err
		}
		return obj, nil
	case yaml.ScalarNode:
		return fromScalar(n, at)
	}
	return nil, ir.NewError(ir.ErrUnsupportedValue, "yaml node kind %d at %s", n.Kind, where(at))
}

func appendMapping(obj *ir.Object, n *yaml.Node, at string) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.ShortTag() == "!!merge" {
			if err := mergeInto(obj, val, at); err != nil {
				return err
			}
			continue
		}
		if key.Kind != yaml.ScalarNode {
			return ir.NewError(ir.ErrUnsupportedValue, "non-scalar mapping key at %s", where(at))
		}
		v, err := fromYAML(val, at+"."+key.Value)
		if errors.Is(err, errNull) {
			continue
		}
		if err != nil {
			return err
		}
		*obj = obj.Set(key.Value, v)
	}
	return nil
}

// mergeInto handles "<<: *anchor" and "<<: [*a, *b]". Keys already
// present win over merged ones.
func mergeInto(obj *ir.Object, val *yaml.Node, at string) error {
	sources := []*yaml.Node{val}
	if val.Kind == yaml.SequenceNode {
		sources = val.Content
	}
	for _, src := range sources {
		if src.Kind == yaml.AliasNode {
			src = src.Alias
		}
		if src.Kind != yaml.MappingNode {
			return ir.NewError(ir.ErrUnsupportedValue, "merge of non-mapping at %s", where(at))
		}
		var merged ir.Object
		if err := appendMapping(&merged, src, at); err != nil {
			return err
		}
		for _, f := range merged {
			if _, exists := obj.Get(f.Name); !exists {
				*obj = append(*obj, f)
			}
		}
	}
	return nil
}

func fromScalar(n *yaml.Node, at string) (ir.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, errNull
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, fmt.Errorf("decode yaml at %s: %w", where(at), err)
		}
		return ir.Boolean(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("decode yaml at %s: %w", where(at), err)
		}
		return ir.Number(f), nil
	default:
		// !!str, !!timestamp, !!binary and custom tags keep their text.
		return ir.String(n.Value), nil
	}
}

func where(at string) string {
	if at == "" {
		return "top level"
	}
	return at
}
