package engine

import (
	"github.com/roach88/equery/internal/ir"
)

// RowQuota enforces the row ceiling. The ceiling is checked once per
// execution, before filtering, so an oversized dataset is rejected without
// evaluating a single row.
//
// Thread-safety: RowQuota is immutable and safe for concurrent use.
type RowQuota struct {
	maxRows int
}

// NewRowQuota creates a quota. maxRows <= 0 means unlimited.
func NewRowQuota(maxRows int) *RowQuota {
	if maxRows < 0 {
		maxRows = 0
	}
	return &RowQuota{maxRows: maxRows}
}

// Check returns an ErrRowLimit error when rows exceeds the ceiling.
func (q *RowQuota) Check(rows int) error {
	if q.maxRows > 0 && rows > q.maxRows {
		return ir.NewError(ir.ErrRowLimit, "%d rows > %d limit", rows, q.maxRows)
	}
	return nil
}

// Limit returns the ceiling, 0 when unlimited.
func (q *RowQuota) Limit() int {
	return q.maxRows
}
