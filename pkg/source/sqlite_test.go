package source

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/x2605/taskgrid/pkg/model"
)

func newSQLite(t *testing.T, recs ...model.Record) *SQLiteStore {
	t.Helper()
	s, err := InitSQLite(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("InitSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	for _, rec := range recs {
		if err := s.Insert(rec); err != nil {
			t.Fatalf("Insert(%s) error = %v", rec.ID, err)
		}
	}
	return s
}

func TestSQLiteListOrder(t *testing.T) {
	s := newSQLite(t,
		model.Record{ID: "t1", Title: "first", Categories: []string{"Work"}},
		model.Record{ID: "t2", Title: "second"},
		model.Record{ID: "t3", Title: "third", Assignee: "alice"},
	)

	handles, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(handles) != 3 {
		t.Fatalf("List() returned %d handles, want 3", len(handles))
	}
	// Insert order is display order via the position column.
	for i, want := range []string{"t1", "t2", "t3"} {
		if handles[i].ID() != want {
			t.Errorf("handle %d id = %s, want %s", i, handles[i].ID(), want)
		}
	}
	rec, err := handles[0].Record()
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if len(rec.Categories) != 1 || rec.Categories[0] != "Work" {
		t.Errorf("categories = %v", rec.Categories)
	}
}

func TestSQLiteMutations(t *testing.T) {
	s := newSQLite(t,
		model.Record{ID: "t1", Title: "A"},
		model.Record{ID: "t2", Title: "B"},
	)

	due := time.Date(2026, time.October, 2, 0, 0, 0, 0, time.UTC)
	if err := s.Assign("t1", "carol"); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if err := s.Schedule("t1", due); err != nil {
		t.Fatalf("Schedule() error = %v", err)
	}
	if err := s.SetCompleted("t2", true); err != nil {
		t.Fatalf("SetCompleted() error = %v", err)
	}

	recs := mustRecords(t, s)
	if recs["t1"].Assignee != "carol" {
		t.Errorf("t1 assignee = %q", recs["t1"].Assignee)
	}
	if !recs["t1"].Due.Equal(due) {
		t.Errorf("t1 due = %v, want %v", recs["t1"].Due, due)
	}
	if !recs["t2"].Completed {
		t.Error("t2 should be completed")
	}

	if err := s.Delete("t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if recs := mustRecords(t, s); len(recs) != 1 {
		t.Errorf("after delete, %d records remain", len(recs))
	}

	if err := s.SetCompleted("ghost", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetCompleted(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteScheduleClear(t *testing.T) {
	s := newSQLite(t, model.Record{ID: "t1", Title: "A", Due: time.Now()})

	if err := s.Schedule("t1", time.Time{}); err != nil {
		t.Fatalf("Schedule(zero) error = %v", err)
	}
	recs := mustRecords(t, s)
	if !recs["t1"].Due.IsZero() {
		t.Errorf("due should be cleared, got %v", recs["t1"].Due)
	}
}

func TestSQLiteValid(t *testing.T) {
	s := newSQLite(t)
	if !s.Valid() {
		t.Error("freshly initialized store should be valid")
	}
	if err := s.Reacquire(); err != nil {
		t.Errorf("Reacquire() error = %v", err)
	}
	s.Close()
	if s.Valid() {
		t.Error("closed store should not be valid")
	}
}
