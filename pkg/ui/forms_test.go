package ui

import (
	"testing"
	"time"
)

func TestParseDueInput(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{"empty_clears", "", time.Time{}, false},
		{"whitespace_clears", "   ", time.Time{}, false},
		{"iso", "2026-12-25", time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), false},
		{"long_form", "Jan 2 2027", time.Date(2027, 1, 2, 0, 0, 0, 0, time.UTC), false},
		{"short_form_gets_year", "Dec 25", time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), false},
		{"garbage", "not a date", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDueInput(tt.in, now)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDueInput(%q): %v", tt.in, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDueInput(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
