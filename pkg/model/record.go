// Package model defines the task record types shared by the taskgrid engine.
//
// A Record is the full parse of one task as observed in the external source.
// Records are rebuilt wholesale on every full extraction; nothing in this
// package mutates a Record after construction.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Record is one fully-parsed task from the external source.
type Record struct {
	// ID is the opaque stable identifier assigned by the external source.
	ID string `json:"id"`
	// Title is the task title as displayed.
	Title string `json:"title"`
	// Description is the free-form task body, may contain markdown.
	Description string `json:"description,omitempty"`
	// Categories is the category path from root to leaf. Empty means
	// the task is uncategorized.
	Categories []string `json:"categories,omitempty"`
	// Completed reports whether the task is marked done.
	Completed bool `json:"completed"`
	// Due is the scheduled date, zero when unscheduled.
	Due time.Time `json:"due,omitempty"`
	// Assignee is the display name of the assigned user, empty when
	// unassigned.
	Assignee string `json:"assignee,omitempty"`
	// AssigneeIcon is the avatar URL or glyph for the assignee.
	AssigneeIcon string `json:"assignee_icon,omitempty"`
	// Color is an optional presentation color derived from the category,
	// carried through so renderers don't recompute it per row.
	Color string `json:"color,omitempty"`
}

// Validate checks structural invariants on the record.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record has empty id")
	}
	for i, c := range r.Categories {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("record %s: category level %d is blank", r.ID, i)
		}
	}
	return nil
}

// CategoryAt returns the category value at the given level, or "" when the
// path is shallower than level.
func (r Record) CategoryAt(level int) string {
	if level < 0 || level >= len(r.Categories) {
		return ""
	}
	return r.Categories[level]
}

// CategoryPrefix returns the category path truncated to n levels.
func (r Record) CategoryPrefix(n int) []string {
	if n >= len(r.Categories) {
		return r.Categories
	}
	if n < 0 {
		n = 0
	}
	return r.Categories[:n]
}

// CategoryKey returns a canonical string form of the category path, used for
// run comparisons in the layout engine.
func (r Record) CategoryKey(n int) string {
	return strings.Join(r.CategoryPrefix(n), "\x00")
}

// DueLabel formats the due date the way the source displays it. Zero time
// yields an empty label.
func (r Record) DueLabel() string {
	if r.Due.IsZero() {
		return ""
	}
	return r.Due.Format("Jan 2, 2006")
}

// PathEqual reports whether two category paths are identical.
func PathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
