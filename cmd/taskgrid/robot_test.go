package main

import (
	"testing"

	"github.com/x2605/taskgrid/pkg/model"
	"github.com/x2605/taskgrid/pkg/snapshot"
	"github.com/x2605/taskgrid/pkg/source"
)

func extract(t *testing.T, store source.Store) snapshot.Snapshot {
	t.Helper()
	snap, err := snapshot.NewExtractor(store).Extract()
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	return snap
}

func TestDataHashStableAcrossOrder(t *testing.T) {
	a := source.NewMemoryStore(
		model.Record{ID: "t1", Title: "Alpha"},
		model.Record{ID: "t2", Title: "Beta"},
	)
	b := source.NewMemoryStore(
		model.Record{ID: "t2", Title: "Beta"},
		model.Record{ID: "t1", Title: "Alpha"},
	)

	if dataHash(extract(t, a)) != dataHash(extract(t, b)) {
		t.Error("data hash should not depend on record order")
	}
}

func TestDataHashChangesWithContent(t *testing.T) {
	a := source.NewMemoryStore(model.Record{ID: "t1", Title: "Alpha"})
	b := source.NewMemoryStore(model.Record{ID: "t1", Title: "Alpha!"})

	if dataHash(extract(t, a)) == dataHash(extract(t, b)) {
		t.Error("data hash should change when a title changes")
	}
}

func TestOpenStoreRejectsUnknownExtension(t *testing.T) {
	if _, _, err := openStore("/tmp/notes.txt"); err == nil {
		t.Error("unknown extension should fail")
	}
}
