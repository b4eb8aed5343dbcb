// Package snapshot captures lightweight, hashable views of the external
// task source and diffs successive captures. A Snapshot is immutable once
// taken; every extraction produces a fresh one, so a consumer holding an old
// snapshot is never corrupted by a later capture.
package snapshot

import (
	"strconv"
	"strings"
	"time"
)

// LightRecord is the minimum per-task data needed to detect whether anything
// visible changed, without a full parse.
type LightRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Completed    bool   `json:"completed"`
	DateText     string `json:"date_text"`
	AssigneeText string `json:"assignee_text"`
	// ContentHash folds the visible fields through a 32-bit multiplicative
	// hash. Identical visible fields always hash identically.
	ContentHash uint32 `json:"content_hash"`
}

// Snapshot is a captured map of LightRecords at one point in time.
type Snapshot struct {
	Records    map[string]LightRecord
	CapturedAt time.Time
}

// Len returns the number of records in the snapshot.
func (s Snapshot) Len() int { return len(s.Records) }

// Hash31 folds a string through the classic 31-multiplier 32-bit hash.
func Hash31(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

// ContentHash computes the hash of the visible fields. Field order and the
// "|" separator are part of the contract: two records hash equal exactly
// when all four visible fields are equal.
func ContentHash(title string, completed bool, dateText, assigneeText string) uint32 {
	var b strings.Builder
	b.Grow(len(title) + len(dateText) + len(assigneeText) + 8)
	b.WriteString(title)
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(completed))
	b.WriteByte('|')
	b.WriteString(dateText)
	b.WriteByte('|')
	b.WriteString(assigneeText)
	return Hash31(b.String())
}

// NewLightRecord builds a LightRecord with its content hash filled in.
func NewLightRecord(id, title string, completed bool, dateText, assigneeText string) LightRecord {
	return LightRecord{
		ID:           id,
		Title:        title,
		Completed:    completed,
		DateText:     dateText,
		AssigneeText: assigneeText,
		ContentHash:  ContentHash(title, completed, dateText, assigneeText),
	}
}
