package migrate

import (
	"database/sql"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
)

func TestApplyRunsInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/2_add_word.sql": {Data: []byte(`
PRAGMA user_version = 2;
CREATE TABLE word (id INTEGER PRIMARY KEY, word TEXT);
`)},
		"migrations/1_add_language.sql": {Data: []byte(`
PRAGMA user_version = 1;
CREATE TABLE language (id TEXT PRIMARY KEY, code TEXT);
`)},
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := Apply(db, fsys, "migrations"); err != nil {
		t.Fatal(err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("user_version = %d, want 2 (last migration's PRAGMA wins)", version)
	}

	for _, table := range []string{"language", "word"} {
		var name string
		if err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestApplySkipsAlreadyAppliedVersions(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/1_add_language.sql": {Data: []byte(`
PRAGMA user_version = 1;
CREATE TABLE language (id TEXT PRIMARY KEY);
`)},
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatal(err)
	}

	if err := Apply(db, fsys, "migrations"); err != nil {
		t.Fatal(err)
	}

	var name string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='language'").Scan(&name)
	if err == nil {
		t.Fatal("expected language table to be absent since migration was skipped as already applied")
	}
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/3_bad.sql": {Data: []byte("PRAGMA user_version = 4;\n")},
	}
	if _, err := Load(fsys, "migrations"); err == nil {
		t.Fatal("expected an error for mismatched filename/embedded version")
	}
}
