package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/x2605/taskgrid/pkg/layout"
	"github.com/x2605/taskgrid/pkg/model"
)

// AssertRecordCount verifies the expected number of records.
func AssertRecordCount(t *testing.T, recs []model.Record, expected int) {
	t.Helper()
	if len(recs) != expected {
		t.Errorf("expected %d records, got %d", expected, len(recs))
	}
}

// AssertNoDuplicateIDs verifies all record IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, recs []model.Record) {
	t.Helper()
	seen := make(map[string]bool)
	for _, rec := range recs {
		if seen[rec.ID] {
			t.Errorf("duplicate record ID: %s", rec.ID)
		}
		seen[rec.ID] = true
	}
}

// AssertAllValid verifies all records pass validation.
func AssertAllValid(t *testing.T, recs []model.Record) {
	t.Helper()
	for i, rec := range recs {
		if err := rec.Validate(); err != nil {
			t.Errorf("record %d (%s) invalid: %v", i, rec.ID, err)
		}
	}
}

// AssertRowOrder verifies the rendered rows carry the given record IDs in
// order.
func AssertRowOrder(t *testing.T, rows []layout.Row, ids ...string) {
	t.Helper()
	if len(rows) != len(ids) {
		t.Fatalf("expected %d rows, got %d", len(ids), len(rows))
	}
	for i, id := range ids {
		if rows[i].Record.ID != id {
			t.Errorf("row %d: got %s, want %s", i, rows[i].Record.ID, id)
		}
	}
}

// AssertSpansCover walks every column of the rendered rows and verifies the
// merge structure is well formed: every skipped cell is covered by exactly
// one preceding span, and every span covers exactly its declared rows.
func AssertSpansCover(t *testing.T, rows []layout.Row) {
	t.Helper()
	if len(rows) == 0 {
		return
	}
	levels := 0
	for lvl := range rows[0].Cells {
		if lvl+1 > levels {
			levels = lvl + 1
		}
	}
	for lvl := 0; lvl < levels; lvl++ {
		remaining := 0
		for i, row := range rows {
			cell := row.Cells[lvl]
			if cell.Skip {
				if remaining <= 0 {
					t.Errorf("level %d row %d: skip cell with no covering span", lvl, i)
				}
				remaining--
				continue
			}
			if remaining > 0 {
				t.Errorf("level %d row %d: plain cell inside a span run", lvl, i)
			}
			if cell.Span > 1 {
				remaining = cell.Span - 1
			}
		}
		if remaining != 0 {
			t.Errorf("level %d: span extends past the last row", lvl)
		}
	}
}

// WriteRecordsFile writes records as JSONL to a path, creating parents.
func WriteRecordsFile(t *testing.T, path string, recs []model.Record) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(ToJSONL(recs)), 0644); err != nil {
		t.Fatalf("failed to write records file: %v", err)
	}
}

// TempRecordsFile writes records to tasks.jsonl in a fresh temp dir and
// returns the file path.
func TempRecordsFile(t *testing.T, recs []model.Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.jsonl")
	WriteRecordsFile(t, path, recs)
	return path
}

// FindRecord returns the record with the given ID, or nil if not found.
func FindRecord(recs []model.Record, id string) *model.Record {
	for i := range recs {
		if recs[i].ID == id {
			return &recs[i]
		}
	}
	return nil
}

// IDs returns a slice of all record IDs.
func IDs(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		out[i] = rec.ID
	}
	return out
}
