package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// dateLayouts are the accepted input formats for due dates, most specific
// first.
var dateLayouts = []string{
	"2006-01-02",
	"Jan 2 2006",
	"Jan 2",
}

// parseDueInput parses a user-typed due date. Layouts without a year get
// the current year.
func parseDueInput(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = t.AddDate(now.Year(), 0, 0)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (try 2006-01-02)", s)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// newAssignForm builds the assignee prompt for one task.
func newAssignForm(title string, value *string) *huh.Form {
	return newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Assign: " + title).
				Description("Leave empty to unassign").
				Value(value),
		),
	)
}

// newScheduleForm builds the due-date prompt for one task.
func newScheduleForm(title string, now time.Time, value *string) *huh.Form {
	return newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Due date: " + title).
				Description("YYYY-MM-DD, or empty to clear").
				Validate(func(s string) error {
					_, err := parseDueInput(s, now)
					return err
				}).
				Value(value),
		),
	)
}

// newDeleteForm builds the delete confirmation for one task.
func newDeleteForm(title string, confirmed *bool) *huh.Form {
	return newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete " + title + "?").
				Description("This cannot be undone").
				Value(confirmed).
				Affirmative("Delete").
				Negative("Keep"),
		),
	)
}
