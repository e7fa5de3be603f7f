// Package engine executes compiled plans against datasets.
//
// An execution runs three phases in a fixed order:
//
//  1. Condition: keep the rows for which the condition evaluates to true.
//  2. Order: stable sort by the key expression, then apply the limit.
//  3. Projection: rebuild each row from the requested property paths.
//
// Projection runs last so filtering and ordering see whole rows, including
// fields the projection drops.
//
// EXECUTION STATE:
//
// Every Run creates a fresh execution holding the pre-filter dataset and the
// aggregate cache. The cache maps an aggregate call (name plus serialized
// argument) to its computed value and is discarded when Run returns. Nothing
// computed for one dataset is ever reused for another.
//
// FAILURE POLICY:
//
// Non-fatal errors (property not found, incompatible expression) raised
// while evaluating the condition for a row drop that row. Every other error
// aborts the execution and no rows are returned.
//
// CONCURRENCY:
//
// Engine is safe for concurrent use. With WithWorkers(n > 1) the condition
// phase fans out over an ants pool; aggregates are computed serially before
// fan-out and results are gathered by row index, so output order never
// depends on scheduling.
package engine
