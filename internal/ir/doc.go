// Package ir provides the value model shared by every other package.
//
// This package contains the tagged-union Value, datasets, path resolution,
// host conversion, order-preserving JSON, canonical hashing and the
// QueryError taxonomy. ir imports nothing internal.
//
// Key design constraints:
//   - Object field order is insertion order and survives every transform
//   - There is no null; missing properties resolve to Boolean(false)
//   - All numbers are float64
package ir
