// Package dataset reads datasets from JSON, YAML and CUE files.
//
// Every decoder keeps object keys in document order and applies the same
// null rules as ir.UnmarshalValue.
package dataset
