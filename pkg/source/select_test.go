package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonlPath := filepath.Join(dir, "tasks.jsonl")
	if err := os.WriteFile(jsonlPath, []byte(`{"id":"t1","title":"A"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(jsonlPath)
	if err != nil {
		t.Fatalf("Open(jsonl) error = %v", err)
	}
	if _, ok := s.(*JSONLStore); !ok {
		t.Errorf("Open(jsonl) returned %T", s)
	}

	dbPath := filepath.Join(dir, "tasks.db")
	db, err := InitSQLite(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()
	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("Open(db) error = %v", err)
	}
	if st, ok := s.(*SQLiteStore); !ok {
		t.Errorf("Open(db) returned %T", s)
	} else {
		st.Close()
	}

	if _, err := Open(filepath.Join(dir, "tasks.txt")); err == nil {
		t.Error("Open should reject unknown extensions")
	}
}

func TestDiscoverPrefersFresher(t *testing.T) {
	dir := t.TempDir()

	db, err := InitSQLite(filepath.Join(dir, "tasks.db"))
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	jsonlPath := filepath.Join(dir, "tasks.jsonl")
	if err := os.WriteFile(jsonlPath, []byte(`{"id":"t1","title":"A"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Make the JSONL clearly newer than the database.
	newer := time.Now().Add(time.Hour)
	if err := os.Chtimes(jsonlPath, newer, newer); err != nil {
		t.Fatal(err)
	}

	s, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if _, ok := s.(*JSONLStore); !ok {
		t.Errorf("Discover picked %T, want the fresher JSONL store", s)
	}
}

func TestDiscoverEmptyDir(t *testing.T) {
	if _, err := Discover(t.TempDir()); err == nil {
		t.Error("Discover on an empty directory should fail")
	}
}
