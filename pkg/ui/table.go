package ui

import (
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/x2605/taskgrid/pkg/layout"
)

// Column width limits for the category levels. Wide paths truncate rather
// than starving the title column.
const (
	minCategoryWidth = 4
	maxCategoryWidth = 18
	dueWidth         = 12
	assigneeWidth    = 10
	doneWidth        = 2
)

// tableGeometry holds the computed column widths for one render.
type tableGeometry struct {
	levels   []int // one width per category level, 0 = level unused
	title    int
	due      int
	assignee int
}

// computeGeometry sizes the category columns to their widest visible cell
// and gives the title whatever remains.
func computeGeometry(rows []layout.Row, maxDepth, totalWidth int) tableGeometry {
	g := tableGeometry{levels: make([]int, maxDepth)}
	for lvl := 0; lvl < maxDepth; lvl++ {
		for _, row := range rows {
			cell := row.Cells[lvl]
			if cell.Skip || cell.Text == "" {
				continue
			}
			if w := runewidth.StringWidth(cell.Text); w > g.levels[lvl] {
				g.levels[lvl] = w
			}
		}
		if g.levels[lvl] > 0 {
			if g.levels[lvl] < minCategoryWidth {
				g.levels[lvl] = minCategoryWidth
			}
			if g.levels[lvl] > maxCategoryWidth {
				g.levels[lvl] = maxCategoryWidth
			}
		}
	}

	g.due = dueWidth
	g.assignee = assigneeWidth

	used := doneWidth
	for _, w := range g.levels {
		if w > 0 {
			used += w + 1 // separator
		}
	}
	used += g.due + 1 + g.assignee + 1

	g.title = totalWidth - used - 2
	if g.title < 10 {
		g.title = 10
	}
	return g
}

// renderTable renders grouped rows as a grid with vertically merged
// category cells. A span owner prints its value once; covered rows print a
// continuation blank so the group reads as one tall cell.
func renderTable(rows []layout.Row, maxDepth, totalWidth, cursor int, th Theme, now time.Time) string {
	if len(rows) == 0 {
		return th.MutedText.Render("  no tasks")
	}

	g := computeGeometry(rows, maxDepth, totalWidth)
	sep := th.MutedText.Render("│")

	var sb strings.Builder
	sb.WriteString(renderHeader(g, th))
	sb.WriteByte('\n')

	for i, row := range rows {
		selected := i == cursor
		var line strings.Builder

		for lvl := 0; lvl < maxDepth; lvl++ {
			w := g.levels[lvl]
			if w == 0 {
				continue
			}
			cell := row.Cells[lvl]
			text := ""
			if !cell.Skip {
				text = truncateCells(cell.Text, w)
			}
			padded := padCells(text, w)
			if !cell.Skip && text != "" {
				padded = th.CategoryCell.Render(padded)
			}
			line.WriteString(padded)
			line.WriteString(sep)
		}

		rec := row.Record

		mark := "○"
		if rec.Completed {
			mark = th.DoneText.Render("✓")
		}
		line.WriteString(mark)
		line.WriteString(" ")

		title := padCells(truncateCells(rec.Title, g.title), g.title)
		if rec.Completed {
			title = th.MutedText.Render(title)
		} else if selected {
			title = th.Selected.Render(title)
		}
		line.WriteString(title)
		line.WriteString(sep)

		due := padCells(truncateCells(dueDisplay(rec.Due, now), g.due), g.due)
		if !rec.Completed && overdue(rec.Due, now) {
			due = th.OverdueText.Render(due)
		} else {
			due = th.MutedText.Render(due)
		}
		line.WriteString(due)
		line.WriteString(sep)

		assignee := padCells(truncateCells(rec.Assignee, g.assignee), g.assignee)
		line.WriteString(th.Renderer.NewStyle().Foreground(th.Assignee).Render(assignee))

		if selected {
			sb.WriteString("▸ ")
		} else {
			sb.WriteString("  ")
		}
		sb.WriteString(line.String())
		if i < len(rows)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func renderHeader(g tableGeometry, th Theme) string {
	var sb strings.Builder
	sb.WriteString("  ")
	for lvl, w := range g.levels {
		if w == 0 {
			continue
		}
		label := "Category"
		if lvl > 0 {
			label = "Sub"
		}
		sb.WriteString(th.MutedText.Render(padCells(truncateCells(label, w), w)))
		sb.WriteString(" ")
	}
	sb.WriteString("  ")
	sb.WriteString(th.MutedText.Render(padCells("Title", g.title)))
	sb.WriteString(" ")
	sb.WriteString(th.MutedText.Render(padCells("Due", g.due)))
	sb.WriteString(" ")
	sb.WriteString(th.MutedText.Render(padCells("Assignee", g.assignee)))
	return sb.String()
}
