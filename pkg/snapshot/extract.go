package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/metrics"
	"github.com/x2605/taskgrid/pkg/model"
	"github.com/x2605/taskgrid/pkg/source"
)

// ErrContainerLost means the external source's root container is entirely
// absent. Individual malformed records never cause this; they are skipped.
var ErrContainerLost = errors.New("external source container lost")

// Extractor turns the current external state into Snapshots and full record
// lists.
type Extractor struct {
	src source.Source
}

// NewExtractor creates an extractor over the given source.
func NewExtractor(src source.Source) *Extractor {
	return &Extractor{src: src}
}

// Extract captures a Snapshot of every task currently visible. A task whose
// handle yields an empty id gets a synthetic "task-{index}" id so it still
// participates in diffing. Synthetic ids are positional: a reorder without a
// content change will misattribute identity across those records.
func (e *Extractor) Extract() (Snapshot, error) {
	defer metrics.Timer(metrics.SnapshotExtract)()

	handles, err := e.list()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		Records:    make(map[string]LightRecord, len(handles)),
		CapturedAt: time.Now(),
	}
	for i, h := range handles {
		id := h.ID()
		if id == "" {
			id = fmt.Sprintf("task-%d", i)
		}
		snap.Records[id] = NewLightRecord(id, h.Title(), h.Completed(), h.DateText(), h.AssigneeText())
	}
	return snap, nil
}

// Full parses every visible task into a model.Record, applying the same
// synthetic-id rule as Extract. Records whose full parse fails are skipped
// and the rest of the extraction continues.
func (e *Extractor) Full() ([]model.Record, error) {
	handles, err := e.list()
	if err != nil {
		return nil, err
	}

	recs := make([]model.Record, 0, len(handles))
	for i, h := range handles {
		rec, err := h.Record()
		if err != nil {
			debug.Log("extract: skipping record %q: %v", h.ID(), err)
			continue
		}
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("task-%d", i)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func (e *Extractor) list() ([]source.Handle, error) {
	if !e.src.Valid() {
		return nil, ErrContainerLost
	}
	handles, err := e.src.List()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContainerLost, err)
	}
	return handles, nil
}

// Source returns the underlying source, for callers that need to reacquire
// it after a container loss.
func (e *Extractor) Source() source.Source { return e.src }
