// Package layout turns a flat record list into the ordered, merged-cell
// table structure the renderer consumes. Ordering and spans are recomputed
// from scratch on every call; nothing here is patched incrementally, which
// keeps the output a pure function of its input.
package layout

import (
	"strings"

	"github.com/x2605/taskgrid/pkg/metrics"
	"github.com/x2605/taskgrid/pkg/model"
)

// Cell is one category cell of a render row.
type Cell struct {
	// Text is the category label shown at this level, empty when the
	// record's path is shallower than the level.
	Text string `json:"text"`
	// Span is the number of rows this cell covers, including its own.
	// Zero means a plain unmerged cell.
	Span int `json:"span,omitempty"`
	// Skip marks a cell covered by an earlier row's span; the renderer
	// must not draw it.
	Skip bool `json:"skip,omitempty"`
}

// Row is one record plus its per-level category cells.
type Row struct {
	Record model.Record `json:"record"`
	// Cells is keyed by category level, 0-based, for every level up to
	// the layout depth.
	Cells map[int]Cell `json:"cells"`
}

// Compute orders the records and fills in span cells for maxDepth category
// levels. maxDepth <= 0 means render every level present in the input.
func Compute(records []model.Record, maxDepth int) []Row {
	defer metrics.Timer(metrics.LayoutCompute)()

	if maxDepth <= 0 {
		for _, r := range records {
			if len(r.Categories) > maxDepth {
				maxDepth = len(r.Categories)
			}
		}
	}

	ordered := Order(records)
	rows := make([]Row, len(ordered))
	for i, rec := range ordered {
		cells := make(map[int]Cell, maxDepth)
		for level := 0; level < maxDepth; level++ {
			cells[level] = Cell{Text: cellText(rec, level, maxDepth)}
		}
		rows[i] = Row{Record: rec, Cells: cells}
	}

	for level := 0; level < maxDepth; level++ {
		markSpans(rows, level, maxDepth)
	}
	return rows
}

// Order produces the total order the table renders in: uncategorized
// records first in their original relative order, then categorized records
// grouped recursively. At each level, distinct category values keep the
// order in which they were first encountered, and within one value the
// records ending at that level print before deeper descendants.
func Order(records []model.Record) []model.Record {
	var uncat, cat []model.Record
	for _, r := range records {
		if len(r.Categories) == 0 {
			uncat = append(uncat, r)
		} else {
			cat = append(cat, r)
		}
	}
	out := make([]model.Record, 0, len(records))
	out = append(out, uncat...)
	return append(out, orderLevel(cat, 0)...)
}

// orderLevel groups recs by their category value at the given level. Every
// record passed in is known to have a path deeper than level.
func orderLevel(recs []model.Record, level int) []model.Record {
	if len(recs) == 0 {
		return nil
	}

	var keys []string
	parts := make(map[string][]model.Record)
	for _, r := range recs {
		k := r.CategoryAt(level)
		if _, seen := parts[k]; !seen {
			keys = append(keys, k)
		}
		parts[k] = append(parts[k], r)
	}

	var out []model.Record
	for _, k := range keys {
		var leaves, deeper []model.Record
		for _, r := range parts[k] {
			if len(r.Categories) == level+1 {
				leaves = append(leaves, r)
			} else {
				deeper = append(deeper, r)
			}
		}
		out = append(out, leaves...)
		out = append(out, orderLevel(deeper, level+1)...)
	}
	return out
}

// cellText returns the label for one cell. Path segments deeper than the
// deepest rendered level collapse into that level's label.
func cellText(rec model.Record, level, maxDepth int) string {
	if level >= len(rec.Categories) {
		return ""
	}
	if level == maxDepth-1 && len(rec.Categories) > maxDepth {
		return strings.Join(rec.Categories[level:], " / ")
	}
	return rec.CategoryAt(level)
}

// markSpans walks the ordered rows once for a single level, finding maximal
// contiguous runs whose category paths agree through this level. A run of
// more than one row with a non-empty value gets one owning cell spanning the
// run and skip cells underneath.
func markSpans(rows []Row, level, maxDepth int) {
	for start := 0; start < len(rows); {
		end := start + 1
		key := runKey(rows[start].Record, level, maxDepth)
		for end < len(rows) && runKey(rows[end].Record, level, maxDepth) == key {
			end++
		}

		if n := end - start; n > 1 && rows[start].Record.CategoryAt(level) != "" {
			owner := rows[start].Cells[level]
			owner.Span = n
			rows[start].Cells[level] = owner

			for i := start + 1; i < end; i++ {
				cell := rows[i].Cells[level]
				cell.Skip = true
				rows[i].Cells[level] = cell
			}
		}
		start = end
	}
}

// runKey is the merge identity of a row at one level: the category path
// truncated past this level, except at the deepest rendered level where the
// whole remaining path counts (its cell text includes the collapsed tail,
// so differing tails must not merge).
func runKey(rec model.Record, level, maxDepth int) string {
	if rec.CategoryAt(level) == "" {
		// Shallower rows never merge; give each its own key.
		return "\x00empty\x00" + rec.ID
	}
	if level == maxDepth-1 {
		return rec.CategoryKey(len(rec.Categories))
	}
	return rec.CategoryKey(level + 1)
}
