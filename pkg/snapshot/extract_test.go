package snapshot

import (
	"errors"
	"testing"

	"github.com/x2605/taskgrid/pkg/model"
	"github.com/x2605/taskgrid/pkg/source"
)

func TestExtract(t *testing.T) {
	store := source.NewMemoryStore(
		model.Record{ID: "t1", Title: "A", Assignee: "alice"},
		model.Record{ID: "t2", Title: "B", Completed: true},
	)
	ex := NewExtractor(store)

	snap, err := ex.Extract()
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if snap.Len() != 2 {
		t.Fatalf("snapshot has %d records, want 2", snap.Len())
	}
	lr, ok := snap.Records["t1"]
	if !ok {
		t.Fatal("t1 missing from snapshot")
	}
	if lr.AssigneeText != "alice" || lr.Completed {
		t.Errorf("unexpected light record: %+v", lr)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt must be set")
	}
}

func TestExtractSyntheticID(t *testing.T) {
	// A record without a source id participates under a positional id.
	store := source.NewMemoryStore(
		model.Record{ID: "t0", Title: "A"},
		model.Record{Title: "orphan"},
	)
	ex := NewExtractor(store)

	snap, err := ex.Extract()
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if _, ok := snap.Records["task-1"]; !ok {
		t.Errorf("expected synthetic id task-1, have %v", idsOf(snap))
	}
}

func TestExtractContainerLost(t *testing.T) {
	store := source.NewMemoryStore(model.Record{ID: "t1", Title: "A"})
	store.SetValid(false)
	ex := NewExtractor(store)

	if _, err := ex.Extract(); !errors.Is(err, ErrContainerLost) {
		t.Errorf("Extract() error = %v, want ErrContainerLost", err)
	}
	if _, err := ex.Full(); !errors.Is(err, ErrContainerLost) {
		t.Errorf("Full() error = %v, want ErrContainerLost", err)
	}
}

func TestFullSkipsBrokenRecords(t *testing.T) {
	store := &brokenStore{}
	ex := NewExtractor(store)

	recs, err := ex.Full()
	if err != nil {
		t.Fatalf("Full() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "good" {
		t.Errorf("Full() = %v, want just the good record", recs)
	}
}

// brokenStore returns one parseable handle and one whose full parse fails.
type brokenStore struct{}

func (b *brokenStore) Valid() bool      { return true }
func (b *brokenStore) Reacquire() error { return nil }
func (b *brokenStore) List() ([]source.Handle, error) {
	return []source.Handle{
		source.NewHandle(model.Record{ID: "good", Title: "ok"}),
		source.NewBrokenHandle(model.Record{ID: "bad"}, errors.New("mangled")),
	}, nil
}

func idsOf(s Snapshot) []string {
	ids := make([]string, 0, len(s.Records))
	for id := range s.Records {
		ids = append(ids, id)
	}
	return ids
}
