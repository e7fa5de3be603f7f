// Package queryir provides the compiled form of a statement.
//
// The parser produces a Plan; the engine executes it and the SQL compiler
// translates its row-local part into a storage prefilter:
//
//	[statement] → lexer → compiler → [Plan] → engine
//	                                        → querysql (prefilter only)
//
// A Plan has three optional parts, always applied in this order:
//
//	scope : condition ~ orderby(key) asc|desc limit(n)
//
//   - Condition filters rows (kept only when it evaluates to true)
//   - Ordering sorts the survivors and truncates to the limit
//   - Projection rebuilds each row from the listed property paths
//
// SEALED INTERFACES:
//
// Expression is a sealed interface using the marker method pattern.
// Only types in this package implement it. Backends use exhaustive type
// switches and handle both value and pointer forms.
//
// IMMUTABILITY:
//
// Plans are built once per statement and never mutated. They can be cached
// and shared across goroutines and datasets.
package queryir
