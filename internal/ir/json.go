package ir

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// UnmarshalValue decodes one JSON document into a Value, keeping object
// keys in document order. JSON null has no Value equivalent: null object
// fields are dropped and a null anywhere else is an ErrUnsupportedValue error.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec, "")
	if errors.Is(err, errNull) {
		return nil, NewError(ErrUnsupportedValue, "null at top level")
	}
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode json: trailing data after top-level value")
	}
	return v, nil
}

// UnmarshalDataset decodes a JSON array of objects.
func UnmarshalDataset(data []byte) (Dataset, error) {
	v, err := UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	return DatasetFromValue(v)
}

// DecodeDataset reads a JSON array of objects from r.
func DecodeDataset(r io.Reader) (Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return UnmarshalDataset(data)
}

var errNull = errors.New("null")

func decodeValue(dec *json.Decoder, at string) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode json at %s: %w", where(at), err)
	}
	return decodeFrom(dec, tok, at)
}

func decodeFrom(dec *json.Decoder, tok json.Token, at string) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return nil, errNull
	case string:
		return String(t), nil
	case bool:
		return Boolean(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, NewError(ErrUnsupportedValue, "number %s at %s", t, where(at))
		}
		return Number(f), nil
	case json.Delim:
		switch t {
		case '[':
			arr := Array{}
			for i := 0; dec.More(); i++ {
				elemAt := at + "[" + itoa(i) + "]"
				elem, err := decodeValue(dec, elemAt)
				if errors.Is(err, errNull) {
					return nil, NewError(ErrUnsupportedValue, "null at %s", elemAt)
				}
				if err != nil {
					return nil, err
				}
				arr = append(arr, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("decode json at %s: %w", where(at), err)
			}
			return arr, nil
		case '{':
			obj := Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("decode json at %s: %w", where(at), err)
				}
				key, _ := keyTok.(string)
				elem, err := decodeValue(dec, at+"."+key)
				if errors.Is(err, errNull) {
					continue
				}
				if err != nil {
					return nil, err
				}
				obj = obj.Set(key, elem)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("decode json at %s: %w", where(at), err)
			}
			return obj, nil
		}
	}
	return nil, fmt.Errorf("decode json at %s: unexpected token %v", where(at), tok)
}

// MarshalValue encodes v as compact JSON, preserving object field order.
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Object with fields in order.
func (o Object) MarshalJSON() ([]byte, error) {
	return MarshalValue(o)
}

// MarshalJSON implements json.Marshaler for Array.
func (a Array) MarshalJSON() ([]byte, error) {
	return MarshalValue(a)
}

// MarshalJSON renders integral numbers without an exponent.
func (n Number) MarshalJSON() ([]byte, error) {
	return MarshalValue(n)
}

func writeJSON(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case String:
		if err := writeString(buf, string(val)); err != nil {
			return err
		}
	case Number:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot encode non-finite number %v", f)
		}
		buf.WriteString(FormatNumber(f))
	case Boolean:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Array:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, f := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, f.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, f.Value); err != nil {
				return fmt.Errorf("object[%q]: %w", f.Name, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown Value type: %T", v)
	}
	return nil
}

// writeString writes s as a JSON string without HTML escaping, so query
// text such as ".a > 1" stays readable in output.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// MarshalDataset encodes ds as a JSON array.
func MarshalDataset(ds Dataset) ([]byte, error) {
	return MarshalValue(ds.Value())
}

// MarshalIndent is MarshalValue followed by json.Indent.
func MarshalIndent(v Value, prefix, indent string) ([]byte, error) {
	raw, err := MarshalValue(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, prefix, indent); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
