// Package ui implements the terminal front end: a category grid with
// vertically merged cells, a Markdown detail pane, and modal forms for
// task mutations. All mutations run through the coordinator's verified
// operations; the grid locks while one is in flight.
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/x2605/taskgrid/pkg/debug"
	"github.com/x2605/taskgrid/pkg/layout"
	"github.com/x2605/taskgrid/pkg/metrics"
	"github.com/x2605/taskgrid/pkg/model"
)

// Ops the grid can run against the source.
type opKind int

const (
	opNone opKind = iota
	opAssign
	opSchedule
	opComplete
	opDelete
)

// rowsMsg delivers a freshly computed layout from the coordinator.
type rowsMsg []layout.Row

// opDoneMsg reports the outcome of a verified operation.
type opDoneMsg struct {
	label string
	err   error
}

// Mutator is the slice of the coordinator the UI drives.
type Mutator interface {
	Assign(ctx context.Context, id, assignee string) error
	Schedule(ctx context.Context, id string, due time.Time) error
	SetCompleted(ctx context.Context, id string, done bool) error
	Delete(ctx context.Context, id string) error
	SetShowCompleted(show bool)
	ShowCompleted() bool
	RequestRefresh()
}

// Option configures the Model.
type Option func(*Model)

// WithSourceLabel names the backing source in the header.
func WithSourceLabel(label string) Option {
	return func(m *Model) { m.sourceLabel = label }
}

// WithPrefsSink receives the show-completed toggle so it can be persisted.
func WithPrefsSink(fn func(showCompleted bool)) Option {
	return func(m *Model) { m.prefsSink = fn }
}

// WithNow overrides the clock, for deterministic rendering in tests.
func WithNow(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// Model is the root bubbletea model.
type Model struct {
	mut      Mutator
	rowsCh   chan []layout.Row
	theme    Theme
	maxDepth int

	width  int
	height int

	rows   []layout.Row
	cursor int

	spin      spinner.Model
	busy      bool
	statusMsg string

	showDetail bool
	detailVP   viewport.Model
	mdRenderer *glamour.TermRenderer

	form        *huh.Form
	formKind    opKind
	formValue   string
	formConfirm bool
	formTarget  model.Record

	sourceLabel string
	prefsSink   func(bool)
	now         func() time.Time
}

// New creates the root model. The returned model's PushRows method is the
// coordinator's render sink.
func New(mut Mutator, maxDepth int, opts ...Option) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		mut:        mut,
		rowsCh:     make(chan []layout.Row, 1),
		theme:      DefaultTheme(lipgloss.DefaultRenderer()),
		maxDepth:   maxDepth,
		spin:       sp,
		detailVP:   viewport.New(60, 20),
		mdRenderer: newMarkdownRenderer(60),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetMutator attaches the coordinator. The render sink and the mutator
// reference each other, so one side is wired after construction.
func (m *Model) SetMutator(mut Mutator) { m.mut = mut }

// PushRows hands a new layout to the UI. Called from the coordinator's
// goroutine; latest layout wins when the UI is behind.
func (m *Model) PushRows(rows []layout.Row) {
	for {
		select {
		case m.rowsCh <- rows:
			return
		default:
			select {
			case <-m.rowsCh:
			default:
			}
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return waitForRows(m.rowsCh)
}

func waitForRows(ch chan []layout.Row) tea.Cmd {
	return func() tea.Msg {
		return rowsMsg(<-ch)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Forms need to receive ALL message types, not just tea.KeyMsg, for
	// their internal navigation to work.
	if m.form != nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
			return m, tea.Quit
		}
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}
		cmds = append(cmds, cmd)

		switch m.form.State {
		case huh.StateCompleted:
			cmd := m.dispatchFormOp()
			m.form = nil
			if cmd != nil {
				m.busy = true
				cmds = append(cmds, cmd, m.spin.Tick)
			}
		case huh.StateAborted:
			m.form = nil
			m.statusMsg = "canceled"
		}
		return m, tea.Batch(cmds...)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		wrap := msg.Width - 8
		if wrap > 100 {
			wrap = 100
		}
		if wrap < 20 {
			wrap = 20
		}
		m.detailVP.Width = wrap + 4
		m.detailVP.Height = msg.Height - 6
		m.mdRenderer = newMarkdownRenderer(wrap)

	case rowsMsg:
		defer metrics.Timer(metrics.UIRender)()
		m.rows = msg
		if m.cursor >= len(m.rows) {
			m.cursor = len(m.rows) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		if m.showDetail {
			m.refreshDetail()
		}
		cmds = append(cmds, waitForRows(m.rowsCh))

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
		}

	case opDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("✗ %s: %v", msg.label, msg.err)
			debug.Log("ui: %s failed: %v", msg.label, msg.err)
		} else {
			m.statusMsg = "✓ " + msg.label
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeys(msg))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeys(msg tea.KeyMsg) tea.Cmd {
	if m.showDetail {
		switch msg.String() {
		case "esc", "enter", "q":
			m.showDetail = false
			return nil
		}
		var cmd tea.Cmd
		m.detailVP, cmd = m.detailVP.Update(msg)
		return cmd
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit

	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		if len(m.rows) > 0 {
			m.cursor = len(m.rows) - 1
		}

	case "enter":
		if len(m.rows) > 0 {
			m.showDetail = true
			m.refreshDetail()
		}

	case "r":
		m.mut.RequestRefresh()
		m.statusMsg = "refreshing…"

	case "c":
		show := !m.mut.ShowCompleted()
		m.mut.SetShowCompleted(show)
		if m.prefsSink != nil {
			m.prefsSink(show)
		}
		if show {
			m.statusMsg = "showing completed"
		} else {
			m.statusMsg = "hiding completed"
		}

	case "y":
		if rec, ok := m.selected(); ok {
			if err := clipboard.WriteAll(recordMarkdown(rec, m.now())); err != nil {
				m.statusMsg = fmt.Sprintf("✗ clipboard: %v", err)
			} else {
				m.statusMsg = "📋 copied " + rec.Title
			}
		}

	case "a":
		if rec, ok := m.selected(); ok && !m.busy {
			return m.openForm(opAssign, rec)
		}
	case "s":
		if rec, ok := m.selected(); ok && !m.busy {
			return m.openForm(opSchedule, rec)
		}
	case "x":
		if rec, ok := m.selected(); ok && !m.busy {
			return m.openForm(opDelete, rec)
		}

	case " ", "space":
		if rec, ok := m.selected(); ok && !m.busy {
			m.busy = true
			label := "complete " + rec.Title
			if rec.Completed {
				label = "reopen " + rec.Title
			}
			return tea.Batch(
				opCmd(label, func() error {
					return m.mut.SetCompleted(context.Background(), rec.ID, !rec.Completed)
				}),
				m.spin.Tick,
			)
		}
	}
	return nil
}

// openForm arms a modal form for the given operation.
func (m *Model) openForm(kind opKind, rec model.Record) tea.Cmd {
	m.formKind = kind
	m.formTarget = rec
	m.formConfirm = false
	switch kind {
	case opAssign:
		m.formValue = rec.Assignee
		m.form = newAssignForm(rec.Title, &m.formValue)
	case opSchedule:
		m.formValue = ""
		if !rec.Due.IsZero() {
			m.formValue = rec.Due.Format("2006-01-02")
		}
		m.form = newScheduleForm(rec.Title, m.now(), &m.formValue)
	case opDelete:
		m.form = newDeleteForm(rec.Title, &m.formConfirm)
	}
	if m.form == nil {
		return nil
	}
	return m.form.Init()
}

// dispatchFormOp converts a completed form into a verified operation.
func (m *Model) dispatchFormOp() tea.Cmd {
	rec := m.formTarget
	switch m.formKind {
	case opAssign:
		assignee := m.formValue
		return opCmd("assign "+rec.Title, func() error {
			return m.mut.Assign(context.Background(), rec.ID, assignee)
		})
	case opSchedule:
		due, err := parseDueInput(m.formValue, m.now())
		if err != nil {
			m.statusMsg = fmt.Sprintf("✗ %v", err)
			return nil
		}
		return opCmd("schedule "+rec.Title, func() error {
			return m.mut.Schedule(context.Background(), rec.ID, due)
		})
	case opDelete:
		if !m.formConfirm {
			m.statusMsg = "kept " + rec.Title
			return nil
		}
		return opCmd("delete "+rec.Title, func() error {
			return m.mut.Delete(context.Background(), rec.ID)
		})
	}
	return nil
}

func opCmd(label string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{label: label, err: fn()}
	}
}

// selected returns the record under the cursor.
func (m *Model) selected() (model.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return model.Record{}, false
	}
	return m.rows[m.cursor].Record, true
}

func (m *Model) refreshDetail() {
	if rec, ok := m.selected(); ok {
		m.detailVP.SetContent(renderDetail(m.mdRenderer, rec, m.now()))
		m.detailVP.GotoTop()
	}
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading…"
	}

	if m.form != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.form.View())
	}

	if m.showDetail {
		box := m.theme.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Primary).
			Padding(1, 2).
			Render(m.detailVP.View() + "\n" + m.theme.StatusBar.Render("esc: back • j/k: scroll"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Top, box)
	}

	header := m.renderHeaderBar()
	table := renderTable(m.rows, m.maxDepth, m.width, m.cursor, m.theme, m.now())
	status := m.renderStatusBar()

	return header + "\n" + table + "\n" + status
}

func (m *Model) renderHeaderBar() string {
	title := m.theme.Header.Render("taskgrid")
	label := m.sourceLabel
	if label == "" {
		label = "tasks"
	}
	info := m.theme.MutedText.Render(fmt.Sprintf(" %s · %s", label, pluralize(len(m.rows), "task")))
	if m.busy {
		info += " " + m.theme.Renderer.NewStyle().Foreground(m.theme.Primary).Render(m.spin.View()+"working…")
	}
	return title + info
}

func (m *Model) renderStatusBar() string {
	help := "j/k: move • enter: detail • space: done • a: assign • s: due • x: delete • c: completed • y: copy • r: refresh • q: quit"
	if m.busy {
		help = "operation in progress…"
	}
	bar := m.theme.StatusBar.Render(help)
	if m.statusMsg != "" {
		bar = m.theme.Base.Render(m.statusMsg) + "  " + bar
	}
	return bar
}
