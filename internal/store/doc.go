// Package store provides SQLite-backed storage for named collections of
// JSON documents.
//
// # Layout
//
//   - collections: one row per collection with its row count and dataset
//     fingerprint
//   - documents: one row per document, keyed by (collection, seq), holding
//     the JSON text and its content hash
//
// # Critical Patterns
//
// Logical order
//   - Collection rows are always read ORDER BY seq ASC
//   - seq is assigned 1..n on Import and continues on Append
//
// Order-preserving storage
//   - Document text keeps field order; hashes use canonical JSON
//   - Fingerprints come from ir.Fingerprint, so an identical re-import is
//     detected without rewriting rows
//
// Pushdown
//   - QueryDocuments runs SQL produced by querysql, whose WHERE clause
//     filters on json_extract(data, ...) with bound parameters
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Documents are removed with their collection
package store
