package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/equery/internal/engine"
	"github.com/roach88/equery/internal/ir"
	"github.com/roach88/equery/internal/store"
)

// Queries run against a stored collection, with the SQL prefilter, return
// the same rows as the same queries run on the dataset in memory.
func TestRunCollection_MatchesInMemory(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	ds, err := ir.UnmarshalDataset([]byte(`[
		{"name":"Lucas","likes":12,"tags":["go"],"user":{"city":"Oslo"}},
		{"name":"Amy","likes":4,"tags":[]},
		{"name":"Zoe","likes":9,"user":{"city":"Rome"}},
		{"name":"Bob","likes":"many"},
		{"name":"Eve","likes":9,"active":true}
	]`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Import(ctx, "people", ds); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}

	e, err := engine.New()
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	queries := []string{
		`.name: .likes > 8 ~ orderby(.likes) desc`,
		`.likes > 8 & .user.city = "Rome"`,
		`.likes = 9 | .name = "Amy"`,
		`.active = true`,
		`.name < "C"`,
		`.likes = max(.likes)`,
		`length(.name) > 3 & .likes > 5`,
		`.user.city: ~ limit(2)`,
		``,
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			want, err := e.Query(ctx, q, ds)
			if err != nil {
				t.Fatalf("Query() failed: %v", err)
			}
			got, err := e.QueryCollection(ctx, s, "people", q)
			if err != nil {
				t.Fatalf("QueryCollection() failed: %v", err)
			}

			wantJSON, _ := ir.MarshalDataset(want.Rows)
			gotJSON, _ := ir.MarshalDataset(got.Rows)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("QueryCollection() = %s\nwant %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestRunCollection_UnknownCollectionIsEmpty(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	e, err := engine.New()
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	res, err := e.QueryCollection(ctx, s, "missing", `.a > 1`)
	if err != nil {
		t.Fatalf("QueryCollection() failed: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(res.Rows))
	}
}
