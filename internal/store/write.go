package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/equery/internal/ir"
)

// ImportResult reports what Import did.
type ImportResult struct {
	Collection CollectionInfo
	// Unchanged is set when the stored collection already had the same
	// fingerprint; nothing was written.
	Unchanged bool
}

// Import replaces the contents of a collection with ds, creating the
// collection if needed. Rows get seq 1..len(ds) in dataset order.
//
// Re-importing an identical dataset is a no-op, detected by fingerprint.
func (s *Store) Import(ctx context.Context, collection string, ds ir.Dataset) (ImportResult, error) {
	fp, err := ir.Fingerprint(ds)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", collection, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("import %s: begin tx: %w", collection, err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT fingerprint FROM collections WHERE name = ?`, collection).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return ImportResult{}, fmt.Errorf("import %s: read fingerprint: %w", collection, err)
	case existing == fp:
		info := CollectionInfo{Name: collection, Rows: len(ds), Fingerprint: fp}
		return ImportResult{Collection: info, Unchanged: true}, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: clear: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, row_count, fingerprint)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET row_count = excluded.row_count, fingerprint = excluded.fingerprint
	`, collection, len(ds), fp); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: upsert collection: %w", collection, err)
	}
	if err := insertDocuments(ctx, tx, collection, 1, ds); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: %w", collection, err)
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, fmt.Errorf("import %s: commit: %w", collection, err)
	}
	return ImportResult{Collection: CollectionInfo{Name: collection, Rows: len(ds), Fingerprint: fp}}, nil
}

// Append adds rows after the last row of a collection, creating the
// collection if needed. The fingerprint is recomputed over the whole
// collection.
func (s *Store) Append(ctx context.Context, collection string, rows ir.Dataset) (CollectionInfo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: begin tx: %w", collection, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO collections (name, row_count, fingerprint) VALUES (?, 0, '')
		ON CONFLICT(name) DO NOTHING
	`, collection); err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: create collection: %w", collection, err)
	}

	var last int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM documents WHERE collection = ?`, collection,
	).Scan(&last); err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: max seq: %w", collection, err)
	}

	if err := insertDocuments(ctx, tx, collection, last+1, rows); err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: %w", collection, err)
	}

	all, err := loadDocuments(ctx, tx, collection)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: %w", collection, err)
	}
	fp, err := ir.Fingerprint(all)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: %w", collection, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE collections SET row_count = ?, fingerprint = ? WHERE name = ?`,
		len(all), fp, collection,
	); err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: update collection: %w", collection, err)
	}

	if err := tx.Commit(); err != nil {
		return CollectionInfo{}, fmt.Errorf("append %s: commit: %w", collection, err)
	}
	return CollectionInfo{Name: collection, Rows: len(all), Fingerprint: fp}, nil
}

// Drop deletes a collection and its documents. Returns false when the
// collection did not exist.
func (s *Store) Drop(ctx context.Context, collection string) (bool, error) {
	// documents go with it via ON DELETE CASCADE
	result, err := s.db.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection)
	if err != nil {
		return false, fmt.Errorf("drop %s: %w", collection, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("drop %s: rows affected: %w", collection, err)
	}
	return n > 0, nil
}

func insertDocuments(ctx context.Context, tx *sql.Tx, collection string, firstSeq int64, rows ir.Dataset) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (collection, seq, hash, data) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		data, hash, err := marshalDocument(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, firstSeq+int64(i), hash, data); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	return nil
}
