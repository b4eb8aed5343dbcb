package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// truncateCells truncates a string to max visual width (cells), adding an
// ellipsis if needed. Uses go-runewidth to handle wide characters
// correctly.
func truncateCells(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return runewidth.Truncate(s, 1, "")
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}

// padCells pads s with spaces on the right to the given visual width.
func padCells(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// dueDisplay formats a due date relative to today. Same-day dates show
// "today" so the grid stays scannable.
func dueDisplay(due, now time.Time) string {
	if due.IsZero() {
		return ""
	}
	d := due.YearDay()
	n := now.YearDay()
	if due.Year() == now.Year() {
		switch {
		case d == n:
			return "today"
		case d == n+1:
			return "tomorrow"
		case d == n-1:
			return "yesterday"
		}
	}
	if due.Year() == now.Year() {
		return due.Format("Jan 2")
	}
	return due.Format("Jan 2, 2006")
}

// overdue reports whether a pending task's due date has passed.
func overdue(due, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	y1, m1, d1 := due.Date()
	y2, m2, d2 := now.Date()
	return time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC).
		Before(time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC))
}

// pluralize returns "n thing" or "n things".
func pluralize(n int, thing string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, thing)
	}
	return fmt.Sprintf("%d %ss", n, thing)
}
