package store

import (
	"fmt"

	"github.com/roach88/equery/internal/ir"
)

// marshalDocument converts a row to JSON TEXT for storage, plus its
// content hash.
//
// The stored text keeps field order (projection output depends on it), so
// it is NOT canonical JSON. The hash is computed over the canonical form and
// is the same for rows that differ only in field order.
func marshalDocument(row ir.Object) (data, hash string, err error) {
	b, err := ir.MarshalValue(row)
	if err != nil {
		return "", "", fmt.Errorf("marshal document: %w", err)
	}
	hash, err = ir.RowHash(row)
	if err != nil {
		return "", "", fmt.Errorf("marshal document: %w", err)
	}
	return string(b), hash, nil
}

// unmarshalDocument parses stored JSON TEXT back into a row.
func unmarshalDocument(data string) (ir.Object, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, ir.NewError(ir.ErrDatasetShape, "stored document is %s, not object", v.Kind())
	}
	return obj, nil
}
