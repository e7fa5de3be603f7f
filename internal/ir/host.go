package ir

import (
	"encoding/json"
	"reflect"
	"slices"
	"strings"
)

// ToValue converts a Go value into a Value.
//
// Conversion rules:
//   - Value passes through unchanged
//   - string, bool and every numeric kind map to String, Boolean, Number
//   - json.Number parses as Number
//   - slices and arrays become Array
//   - map[string]T becomes Object with keys in sorted order
//   - structs become Object in field declaration order, honouring json tags
//   - pointers and interfaces are followed
//
// nil and anything else (channels, funcs, non-string map keys) yield an
// ErrUnsupportedValue error.
func ToValue(host any) (Value, error) {
	if v, ok := host.(Value); ok {
		return v, nil
	}
	if n, ok := host.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return nil, NewError(ErrUnsupportedValue, "number %q", string(n))
		}
		return Number(f), nil
	}
	return fromReflect(reflect.ValueOf(host), "")
}

func fromReflect(rv reflect.Value, at string) (Value, error) {
	if !rv.IsValid() {
		return nil, NewError(ErrUnsupportedValue, "nil at %s", where(at))
	}
	if rv.CanInterface() {
		if v, ok := rv.Interface().(Value); ok && v != nil {
			return v, nil
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, NewError(ErrUnsupportedValue, "nil at %s", where(at))
		}
		return fromReflect(rv.Elem(), at)
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Boolean(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(float64(rv.Int())), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float()), nil
	case reflect.Slice:
		if rv.IsNil() {
			return Array{}, nil
		}
		return arrayFromReflect(rv, at)
	case reflect.Array:
		return arrayFromReflect(rv, at)
	case reflect.Map:
		return objectFromMap(rv, at)
	case reflect.Struct:
		return objectFromStruct(rv, at)
	default:
		return nil, NewError(ErrUnsupportedValue, "%s at %s", rv.Type(), where(at))
	}
}

func arrayFromReflect(rv reflect.Value, at string) (Value, error) {
	arr := make(Array, rv.Len())
	for i := range arr {
		elem, err := fromReflect(rv.Index(i), at+"["+itoa(i)+"]")
		if err != nil {
			return nil, err
		}
		arr[i] = elem
	}
	return arr, nil
}

func objectFromMap(rv reflect.Value, at string) (Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return nil, NewError(ErrUnsupportedValue, "map key type %s at %s", rv.Type().Key(), where(at))
	}
	keys := rv.MapKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	slices.Sort(names)

	obj := make(Object, 0, len(names))
	for _, name := range names {
		elem, err := fromReflect(rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key())), at+"."+name)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Field{Name: name, Value: elem})
	}
	return obj, nil
}

func objectFromStruct(rv reflect.Value, at string) (Value, error) {
	t := rv.Type()
	obj := make(Object, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(sf)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if (fv.Kind() == reflect.Pointer || fv.Kind() == reflect.Interface) && fv.IsNil() {
			// optional fields are absent rather than null
			continue
		}
		if omitEmpty && fv.IsZero() {
			continue
		}
		elem, err := fromReflect(fv, at+"."+name)
		if err != nil {
			return nil, err
		}
		obj = append(obj, Field{Name: name, Value: elem})
	}
	return obj, nil
}

func jsonName(sf reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := sf.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = sf.Name
	}
	return name, strings.Contains(opts, "omitempty"), false
}

func where(at string) string {
	if at == "" {
		return "top level"
	}
	return at
}

func itoa(i int) string {
	return FormatNumber(float64(i))
}

// ToHost converts a Value into plain Go data: string, float64, bool,
// []any and map[string]any. Object field order is lost in the map; use
// MarshalValue when order matters.
func ToHost(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Boolean:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToHost(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for _, f := range val {
			out[f.Name] = ToHost(f.Value)
		}
		return out
	default:
		return nil
	}
}

// DatasetToHost converts every row with ToHost.
func DatasetToHost(ds Dataset) []map[string]any {
	out := make([]map[string]any, len(ds))
	for i, row := range ds {
		out[i] = ToHost(row).(map[string]any)
	}
	return out
}
