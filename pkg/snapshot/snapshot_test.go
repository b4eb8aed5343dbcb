package snapshot

import (
	"testing"
)

func TestContentHashStability(t *testing.T) {
	a := ContentHash("Buy milk", false, "Mar 5, 2024", "alice")
	b := ContentHash("Buy milk", false, "Mar 5, 2024", "alice")
	if a != b {
		t.Errorf("identical fields must hash identically: %d != %d", a, b)
	}
}

func TestContentHashSensitivity(t *testing.T) {
	base := ContentHash("Buy milk", false, "Mar 5, 2024", "alice")
	tests := []struct {
		name string
		hash uint32
	}{
		{"title change", ContentHash("Buy eggs", false, "Mar 5, 2024", "alice")},
		{"completed change", ContentHash("Buy milk", true, "Mar 5, 2024", "alice")},
		{"date change", ContentHash("Buy milk", false, "Mar 6, 2024", "alice")},
		{"assignee change", ContentHash("Buy milk", false, "Mar 5, 2024", "bob")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.hash == base {
				t.Errorf("field change did not change hash (%d)", base)
			}
		})
	}
}

func TestHash31Empty(t *testing.T) {
	if got := Hash31(""); got != 0 {
		t.Errorf("Hash31(\"\") = %d, want 0", got)
	}
}

func TestNewLightRecord(t *testing.T) {
	lr := NewLightRecord("t1", "Buy milk", false, "", "alice")
	if lr.ContentHash != ContentHash("Buy milk", false, "", "alice") {
		t.Error("NewLightRecord must fill in the content hash")
	}
	if lr.ID != "t1" || lr.AssigneeText != "alice" {
		t.Errorf("unexpected record: %+v", lr)
	}
}
