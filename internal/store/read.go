package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/equery/internal/ir"
)

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name        string `json:"name"`
	Rows        int    `json:"rows"`
	Fingerprint string `json:"fingerprint"`
}

// Location is where a document is stored.
type Location struct {
	Collection string `json:"collection"`
	Seq        int64  `json:"seq"`
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Load returns every row of a collection in seq order.
// Returns an empty dataset (not nil) for an unknown or empty collection.
func (s *Store) Load(ctx context.Context, collection string) (ir.Dataset, error) {
	return loadDocuments(ctx, s.db, collection)
}

// QueryDocuments runs a query whose only column is the document text, as
// produced by querysql.CompileSelect, and decodes each row.
//
// CRITICAL: query must be parameterized. Values go in args, never in the
// SQL text.
func (s *Store) QueryDocuments(ctx context.Context, query string, args ...any) (ir.Dataset, error) {
	return scanDocuments(ctx, s.db, query, args...)
}

// Collections lists stored collections ordered by name.
func (s *Store) Collections(ctx context.Context) ([]CollectionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, row_count, fingerprint
		FROM collections
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	out := []CollectionInfo{}
	for rows.Next() {
		var info CollectionInfo
		if err := rows.Scan(&info.Name, &info.Rows, &info.Fingerprint); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}
	return out, nil
}

// Collection returns one collection's info.
// Returns sql.ErrNoRows if not found.
func (s *Store) Collection(ctx context.Context, name string) (CollectionInfo, error) {
	info := CollectionInfo{Name: name}
	err := s.db.QueryRowContext(ctx,
		`SELECT row_count, fingerprint FROM collections WHERE name = ?`, name,
	).Scan(&info.Rows, &info.Fingerprint)
	if err != nil {
		return CollectionInfo{}, err
	}
	return info, nil
}

// Locate finds every stored copy of row. Field order does not matter.
func (s *Store) Locate(ctx context.Context, row ir.Object) ([]Location, error) {
	hash, err := ir.RowHash(row)
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT collection, seq
		FROM documents
		WHERE hash = ?
		ORDER BY collection COLLATE BINARY ASC, seq ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("locate: %w", err)
	}
	defer rows.Close()

	out := []Location{}
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.Collection, &loc.Seq); err != nil {
			return nil, fmt.Errorf("locate: scan: %w", err)
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("locate: iterate: %w", err)
	}
	return out, nil
}

func loadDocuments(ctx context.Context, q queryer, collection string) (ir.Dataset, error) {
	return scanDocuments(ctx, q, `
		SELECT data FROM documents WHERE collection = ? ORDER BY seq ASC
	`, collection)
}

func scanDocuments(ctx context.Context, q queryer, query string, args ...any) (ir.Dataset, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	ds := ir.Dataset{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		row, err := unmarshalDocument(data)
		if err != nil {
			return nil, err
		}
		ds = append(ds, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return ds, nil
}
