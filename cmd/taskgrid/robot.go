package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/x2605/taskgrid/pkg/layout"
	"github.com/x2605/taskgrid/pkg/snapshot"
	"github.com/x2605/taskgrid/pkg/source"
)

// Robot output: stable JSON for scripts and agents driving taskgrid
// non-interactively. Every payload carries a data_hash so callers can skip
// reprocessing unchanged state.

type robotCell struct {
	Level int    `json:"level"`
	Text  string `json:"text,omitempty"`
	Span  int    `json:"span,omitempty"`
	Skip  bool   `json:"skip,omitempty"`
}

type robotRow struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Completed bool        `json:"completed"`
	Due       string      `json:"due,omitempty"`
	Assignee  string      `json:"assignee,omitempty"`
	Cells     []robotCell `json:"cells"`
}

type robotRowsPayload struct {
	GeneratedAt time.Time  `json:"generated_at"`
	Source      string     `json:"source"`
	DataHash    string     `json:"data_hash"`
	TaskCount   int        `json:"task_count"`
	MaxDepth    int        `json:"max_depth"`
	Rows        []robotRow `json:"rows"`
}

type robotSnapshotRecord struct {
	ID          string `json:"id"`
	ContentHash uint32 `json:"content_hash"`
}

type robotSnapshotPayload struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Source      string                `json:"source"`
	DataHash    string                `json:"data_hash"`
	CapturedAt  time.Time             `json:"captured_at"`
	Records     []robotSnapshotRecord `json:"records"`
}

// dataHash folds every record's id and content hash into one value, over
// ids in sorted order so the result is independent of extraction order.
func dataHash(snap snapshot.Snapshot) string {
	ids := make([]string, 0, len(snap.Records))
	for id := range snap.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var h uint32
	for _, id := range ids {
		h = h*31 + snapshot.Hash31(id)
		h = h*31 + snap.Records[id].ContentHash
	}
	return strconv.FormatUint(uint64(h), 16)
}

func printRobotRows(store source.Store, path string, maxDepth int, showCompleted bool) error {
	ex := snapshot.NewExtractor(store)
	snap, err := ex.Extract()
	if err != nil {
		return fmt.Errorf("extracting snapshot: %w", err)
	}
	recs, err := ex.Full()
	if err != nil {
		return fmt.Errorf("extracting records: %w", err)
	}
	if !showCompleted {
		kept := recs[:0]
		for _, r := range recs {
			if !r.Completed {
				kept = append(kept, r)
			}
		}
		recs = kept
	}

	rows := layout.Compute(recs, maxDepth)

	payload := robotRowsPayload{
		GeneratedAt: time.Now().UTC(),
		Source:      path,
		DataHash:    dataHash(snap),
		TaskCount:   len(rows),
		MaxDepth:    maxDepth,
		Rows:        make([]robotRow, 0, len(rows)),
	}
	for _, row := range rows {
		rr := robotRow{
			ID:        row.Record.ID,
			Title:     row.Record.Title,
			Completed: row.Record.Completed,
			Assignee:  row.Record.Assignee,
		}
		if !row.Record.Due.IsZero() {
			rr.Due = row.Record.Due.Format("2006-01-02")
		}
		for lvl := 0; lvl < maxDepth; lvl++ {
			cell := row.Cells[lvl]
			rr.Cells = append(rr.Cells, robotCell{
				Level: lvl,
				Text:  cell.Text,
				Span:  cell.Span,
				Skip:  cell.Skip,
			})
		}
		payload.Rows = append(payload.Rows, rr)
	}

	return writeJSON(payload)
}

func printRobotSnapshot(store source.Store, path string) error {
	ex := snapshot.NewExtractor(store)
	snap, err := ex.Extract()
	if err != nil {
		return fmt.Errorf("extracting snapshot: %w", err)
	}

	payload := robotSnapshotPayload{
		GeneratedAt: time.Now().UTC(),
		Source:      path,
		DataHash:    dataHash(snap),
		CapturedAt:  snap.CapturedAt,
		Records:     make([]robotSnapshotRecord, 0, len(snap.Records)),
	}
	for id, lr := range snap.Records {
		payload.Records = append(payload.Records, robotSnapshotRecord{ID: id, ContentHash: lr.ContentHash})
	}
	sort.Slice(payload.Records, func(i, j int) bool {
		return payload.Records[i].ID < payload.Records[j].ID
	})

	return writeJSON(payload)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
