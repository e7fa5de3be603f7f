package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/equery/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// mustDataset parses a JSON array of objects.
func mustDataset(t *testing.T, js string) ir.Dataset {
	t.Helper()
	ds, err := ir.UnmarshalDataset([]byte(js))
	if err != nil {
		t.Fatalf("UnmarshalDataset() failed: %v", err)
	}
	return ds
}

// mustJSON renders a dataset as compact JSON.
func mustJSON(t *testing.T, ds ir.Dataset) string {
	t.Helper()
	data, err := ir.MarshalDataset(ds)
	if err != nil {
		t.Fatalf("MarshalDataset() failed: %v", err)
	}
	return string(data)
}

const peopleJSON = `[
	{"name":"Lucas","likes":12,"tags":["go"],"user":{"city":"Oslo"}},
	{"name":"Amy","likes":4,"tags":[]},
	{"name":"Zoe","likes":9,"user":{"city":"Rome"}},
	{"name":"Bob","likes":"many"},
	{"name":"Eve","likes":9,"active":true}
]`
