package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/equery/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"collections", "documents"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tests := []struct{ name, want string }{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(ctx, tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	if err := s.verifyPragma(context.Background(), "foreign_keys", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("Open() accepted a database from a newer version")
	}
}

func TestImportAndLoad(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ds := mustDataset(t, peopleJSON)

	res, err := s.Import(ctx, "people", ds)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	if res.Unchanged {
		t.Error("first import reported unchanged")
	}
	if res.Collection.Rows != 5 {
		t.Errorf("Rows = %d, want 5", res.Collection.Rows)
	}
	if res.Collection.Fingerprint != ir.MustFingerprint(ds) {
		t.Errorf("Fingerprint = %q, want dataset fingerprint", res.Collection.Fingerprint)
	}

	got, err := s.Load(ctx, "people")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if mustJSON(t, got) != mustJSON(t, ds) {
		t.Errorf("Load() = %s\nwant %s", mustJSON(t, got), mustJSON(t, ds))
	}
}

func TestImport_PreservesFieldOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ds := mustDataset(t, `[{"z":1,"a":{"y":2,"b":3}}]`)

	if _, err := s.Import(ctx, "c", ds); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	got, err := s.Load(ctx, "c")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if want := `[{"z":1,"a":{"y":2,"b":3}}]`; mustJSON(t, got) != want {
		t.Errorf("Load() = %s, want %s", mustJSON(t, got), want)
	}
}

func TestImport_UnchangedIsNoop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ds := mustDataset(t, peopleJSON)

	if _, err := s.Import(ctx, "people", ds); err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	var before int64
	if err := s.db.QueryRow("SELECT total_changes()").Scan(&before); err != nil {
		t.Fatal(err)
	}

	res, err := s.Import(ctx, "people", ds)
	if err != nil {
		t.Fatalf("second Import() failed: %v", err)
	}
	if !res.Unchanged {
		t.Error("identical re-import should be unchanged")
	}

	var after int64
	if err := s.db.QueryRow("SELECT total_changes()").Scan(&after); err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("rows written on re-import: total_changes %d -> %d", before, after)
	}
}

func TestImport_Replaces(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Import(ctx, "c", mustDataset(t, `[{"a":1},{"a":2},{"a":3}]`)); err != nil {
		t.Fatal(err)
	}
	res, err := s.Import(ctx, "c", mustDataset(t, `[{"a":9}]`))
	if err != nil {
		t.Fatal(err)
	}
	if res.Unchanged || res.Collection.Rows != 1 {
		t.Errorf("Import() = %+v, want 1 changed row", res)
	}

	got, err := s.Load(ctx, "c")
	if err != nil {
		t.Fatal(err)
	}
	if want := `[{"a":9}]`; mustJSON(t, got) != want {
		t.Errorf("Load() = %s, want %s", mustJSON(t, got), want)
	}
}

func TestAppend(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	info, err := s.Append(ctx, "log", mustDataset(t, `[{"n":1}]`))
	if err != nil {
		t.Fatalf("Append() on new collection failed: %v", err)
	}
	if info.Rows != 1 {
		t.Errorf("Rows = %d, want 1", info.Rows)
	}

	info, err = s.Append(ctx, "log", mustDataset(t, `[{"n":2},{"n":3}]`))
	if err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	all := mustDataset(t, `[{"n":1},{"n":2},{"n":3}]`)
	if info.Rows != 3 || info.Fingerprint != ir.MustFingerprint(all) {
		t.Errorf("Append() = %+v, want 3 rows with full fingerprint", info)
	}

	got, err := s.Load(ctx, "log")
	if err != nil {
		t.Fatal(err)
	}
	if mustJSON(t, got) != mustJSON(t, all) {
		t.Errorf("Load() = %s, want %s", mustJSON(t, got), mustJSON(t, all))
	}

	// An import of the appended content is recognised as unchanged.
	res, err := s.Import(ctx, "log", all)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Unchanged {
		t.Error("Import() after Append() of same rows should be unchanged")
	}
}

func TestCollectionsAndDrop(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	list, err := s.Collections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("Collections() on empty store = %v, want empty", list)
	}

	for _, name := range []string{"zeta", "alpha"} {
		if _, err := s.Import(ctx, name, mustDataset(t, `[{"a":1}]`)); err != nil {
			t.Fatal(err)
		}
	}

	list, err = s.Collections(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Errorf("Collections() = %+v, want alpha, zeta", list)
	}

	dropped, err := s.Drop(ctx, "alpha")
	if err != nil || !dropped {
		t.Fatalf("Drop(alpha) = %v, %v", dropped, err)
	}
	dropped, err = s.Drop(ctx, "alpha")
	if err != nil || dropped {
		t.Errorf("second Drop(alpha) = %v, %v; want false, nil", dropped, err)
	}

	if _, err := s.Collection(ctx, "alpha"); err != sql.ErrNoRows {
		t.Errorf("Collection(alpha) error = %v, want sql.ErrNoRows", err)
	}
	var orphans int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM documents WHERE collection = 'alpha'").Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("%d documents left after Drop", orphans)
	}
}

func TestLoad_UnknownCollection(t *testing.T) {
	s := createTestStore(t)
	got, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load(nope) = %#v, want empty non-nil dataset", got)
	}
}

func TestLocate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Import(ctx, "a", mustDataset(t, `[{"x":1,"y":2},{"x":3}]`)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Import(ctx, "b", mustDataset(t, `[{"q":0},{"y":2,"x":1}]`)); err != nil {
		t.Fatal(err)
	}

	locs, err := s.Locate(ctx, ir.Object{ir.F("x", ir.Number(1)), ir.F("y", ir.Number(2))})
	if err != nil {
		t.Fatal(err)
	}
	want := []Location{{Collection: "a", Seq: 1}, {Collection: "b", Seq: 2}}
	if len(locs) != len(want) {
		t.Fatalf("Locate() = %v, want %v", locs, want)
	}
	for i := range want {
		if locs[i] != want[i] {
			t.Errorf("Locate()[%d] = %v, want %v", i, locs[i], want[i])
		}
	}
}

func TestQueryDocuments_Parameterized(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	if _, err := s.Import(ctx, "people", mustDataset(t, peopleJSON)); err != nil {
		t.Fatal(err)
	}

	got, err := s.QueryDocuments(ctx, `
		SELECT data FROM documents
		WHERE collection = ? AND json_extract(data, ?) > ?
		ORDER BY seq ASC
	`, "people", `$."likes"`, 8.0)
	if err != nil {
		t.Fatal(err)
	}

	// SQLite orders TEXT after numbers, so "many" is kept too.
	var names []string
	for _, row := range got {
		names = append(names, ir.Text(ir.ResolvePath([]string{"name"}, row)))
	}
	want := []string{"Lucas", "Zoe", "Bob", "Eve"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
