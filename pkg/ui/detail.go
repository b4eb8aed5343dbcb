package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/x2605/taskgrid/pkg/model"
)

// newMarkdownRenderer builds the glamour renderer for the detail pane.
func newMarkdownRenderer(wrap int) *glamour.TermRenderer {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	return r
}

// recordMarkdown formats one record as Markdown for the detail pane and
// for clipboard export.
func recordMarkdown(rec model.Record, now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", rec.Title)

	if len(rec.Categories) > 0 {
		fmt.Fprintf(&sb, "**Category:** %s\n\n", strings.Join(rec.Categories, " / "))
	}
	if rec.Assignee != "" {
		fmt.Fprintf(&sb, "**Assignee:** %s\n\n", rec.Assignee)
	}
	if !rec.Due.IsZero() {
		label := rec.DueLabel()
		if overdue(rec.Due, now) && !rec.Completed {
			label += " (overdue)"
		}
		fmt.Fprintf(&sb, "**Due:** %s\n\n", label)
	}
	if rec.Completed {
		sb.WriteString("**Status:** done\n\n")
	} else {
		sb.WriteString("**Status:** pending\n\n")
	}
	if rec.Description != "" {
		sb.WriteString("---\n\n")
		sb.WriteString(rec.Description)
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderDetail renders the detail pane content for one record. Falls back
// to plain Markdown if the renderer was not created.
func renderDetail(r *glamour.TermRenderer, rec model.Record, now time.Time) string {
	md := recordMarkdown(rec, now)
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
