package snapshot

import (
	"sort"

	"github.com/x2605/taskgrid/pkg/metrics"
)

// ChangeSet holds the ids that differ between two snapshots. The three
// slices are pairwise disjoint: Modified ids exist in both snapshots with
// different content hashes, Added only in the new one, Removed only in the
// old one.
type ChangeSet struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// HasChanges reports whether any id appears in the change set.
func (c ChangeSet) HasChanges() bool {
	return len(c.Added)+len(c.Removed)+len(c.Modified) > 0
}

// Total returns the number of changed ids across all three sets.
func (c ChangeSet) Total() int {
	return len(c.Added) + len(c.Removed) + len(c.Modified)
}

// Diff compares two snapshots. Output slices are sorted so the result is
// deterministic regardless of map iteration order.
func Diff(old, new Snapshot) ChangeSet {
	defer metrics.Timer(metrics.SnapshotDiff)()

	var cs ChangeSet
	for id, rec := range new.Records {
		prev, ok := old.Records[id]
		switch {
		case !ok:
			cs.Added = append(cs.Added, id)
		case prev.ContentHash != rec.ContentHash:
			cs.Modified = append(cs.Modified, id)
		}
	}
	for id := range old.Records {
		if _, ok := new.Records[id]; !ok {
			cs.Removed = append(cs.Removed, id)
		}
	}

	sort.Strings(cs.Added)
	sort.Strings(cs.Removed)
	sort.Strings(cs.Modified)
	return cs
}
