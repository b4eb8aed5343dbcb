package detect

import (
	"fmt"
	"testing"
	"time"

	"github.com/x2605/taskgrid/pkg/model"
	"github.com/x2605/taskgrid/pkg/snapshot"
	"github.com/x2605/taskgrid/pkg/source"
)

func newDetector(t *testing.T, store source.Source, cfg Config) *Detector {
	t.Helper()
	d := New(snapshot.NewExtractor(store), cfg)
	if err := d.Prime(); err != nil {
		t.Fatalf("Prime() error = %v", err)
	}
	return d
}

func records(n int) []model.Record {
	recs := make([]model.Record, n)
	for i := range recs {
		recs[i] = model.Record{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("task %d", i)}
	}
	return recs
}

func TestDetectNone(t *testing.T) {
	store := source.NewMemoryStore(records(3)...)
	d := newDetector(t, store, DefaultConfig())

	res := d.Detect()
	if res.ChangeType != ChangeNone || res.HasChanges {
		t.Errorf("unchanged source: got %+v, want none", res)
	}
}

func TestDetectIncremental(t *testing.T) {
	recs := records(5)
	store := source.NewMemoryStore(recs...)
	d := newDetector(t, store, DefaultConfig())

	recs[2].Completed = true
	store.SetRecords(recs)

	res := d.Detect()
	if res.ChangeType != ChangeIncremental {
		t.Fatalf("ChangeType = %s, want incremental_update", res.ChangeType)
	}
	if res.Changes == nil || len(res.Changes.Modified) != 1 || res.Changes.Modified[0] != "t2" {
		t.Errorf("Changes = %+v, want modified [t2]", res.Changes)
	}
	if res.ShouldForceRefresh {
		t.Error("incremental update must not force a refresh")
	}
}

func TestDetectExtensiveChanges(t *testing.T) {
	store := source.NewMemoryStore(records(80)...)
	d := newDetector(t, store, Config{ForceRefreshAfter: time.Hour, MaxChangedRecords: 50})

	// 60 modified records exceeds the threshold of 50.
	recs := records(80)
	for i := 0; i < 60; i++ {
		recs[i].Completed = true
	}
	store.SetRecords(recs)

	res := d.Detect()
	if res.ChangeType != ChangeFullRefresh || res.Reason != ReasonExtensiveChanges {
		t.Errorf("got %s/%s, want full_refresh/extensive_changes", res.ChangeType, res.Reason)
	}
	if !res.ShouldForceRefresh {
		t.Error("extensive changes must force a refresh")
	}
}

func TestDetectTimeout(t *testing.T) {
	store := source.NewMemoryStore(records(2)...)
	d := newDetector(t, store, Config{ForceRefreshAfter: time.Minute, MaxChangedRecords: 50})

	d.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	res := d.Detect()
	if res.ChangeType != ChangeFullRefresh || res.Reason != ReasonTimeout {
		t.Errorf("got %s/%s, want full_refresh/timeout", res.ChangeType, res.Reason)
	}
}

func TestDetectSourceInvalid(t *testing.T) {
	store := source.NewMemoryStore(records(2)...)
	d := newDetector(t, store, DefaultConfig())

	store.SetValid(false)

	res := d.Detect()
	if res.ChangeType != ChangeFullRefresh || res.Reason != ReasonSourceInvalid {
		t.Errorf("got %s/%s, want full_refresh/source_invalid", res.ChangeType, res.Reason)
	}
	// MemoryStore.Reacquire restores validity, so Apply can re-capture.
	if err := d.Apply(res); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := d.Detect(); got.ChangeType != ChangeNone {
		t.Errorf("after Apply, ChangeType = %s, want none", got.ChangeType)
	}
}

func TestDetectEmptySourceTreatedAsInvalid(t *testing.T) {
	store := source.NewMemoryStore(records(3)...)
	d := newDetector(t, store, DefaultConfig())

	store.SetRecords(nil)

	res := d.Detect()
	if res.Reason != ReasonSourceInvalid {
		t.Errorf("empty listing should read as source_invalid, got %s", res.Reason)
	}
}

func TestDetectRecoversFromFault(t *testing.T) {
	store := source.NewMemoryStore(records(2)...)
	d := newDetector(t, store, DefaultConfig())

	store.ListErr = fmt.Errorf("transient read failure")

	res := d.Detect()
	if res.ChangeType != ChangeFullRefresh {
		t.Errorf("a detection fault must recommend full_refresh, got %s", res.ChangeType)
	}
	if !res.HasChanges {
		t.Error("fault recommendation must report HasChanges")
	}
}

func TestApplyIncrementalInstallsFreshSnapshot(t *testing.T) {
	recs := records(3)
	store := source.NewMemoryStore(recs...)
	d := newDetector(t, store, DefaultConfig())

	recs[0].Title = "renamed"
	store.SetRecords(recs)

	res := d.Detect()
	if res.ChangeType != ChangeIncremental {
		t.Fatalf("ChangeType = %s, want incremental_update", res.ChangeType)
	}
	if err := d.Apply(res); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got := d.Detect(); got.ChangeType != ChangeNone {
		t.Errorf("after Apply the same state must detect as none, got %s", got.ChangeType)
	}
}

func TestFirstDetectWithoutPrime(t *testing.T) {
	store := source.NewMemoryStore(records(3)...)
	d := New(snapshot.NewExtractor(store), DefaultConfig())

	res := d.Detect()
	if res.ChangeType != ChangeIncremental {
		t.Fatalf("unprimed detect = %s, want incremental_update (all added)", res.ChangeType)
	}
	if res.Changes == nil || len(res.Changes.Added) != 3 {
		t.Errorf("Changes = %+v, want 3 added", res.Changes)
	}
}
