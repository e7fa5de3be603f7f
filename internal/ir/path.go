package ir

import "strings"

// Lookup walks root by field name, one segment per step. ok is false when a
// segment is missing or a step lands on something other than an Object.
func Lookup(path []string, root Object) (Value, bool) {
	var cur Value = root
	for _, seg := range path {
		obj, isObj := cur.(Object)
		if !isObj {
			return nil, false
		}
		next, found := obj.Get(seg)
		if !found {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// ResolvePath returns the value at path, or Boolean(false) when the path
// does not resolve. Callers that must tell "missing" apart from a stored
// false use Lookup.
func ResolvePath(path []string, root Object) Value {
	v, ok := Lookup(path, root)
	if !ok {
		return Boolean(false)
	}
	return v
}

// SplitPath turns ".a.b" into ["a", "b"]. The leading dot is optional.
func SplitPath(text string) []string {
	text = strings.TrimPrefix(text, ".")
	if text == "" {
		return nil
	}
	return strings.Split(text, ".")
}

// JoinPath is the inverse of SplitPath.
func JoinPath(segments []string) string {
	return "." + strings.Join(segments, ".")
}
