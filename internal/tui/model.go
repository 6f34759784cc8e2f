// Package tui is a terminal front end for the paginated table.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	bt "github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/maruel/pagetable/internal/loader"
	"github.com/maruel/pagetable/internal/table"
)

// DefaultScrollThreshold is how close to the last row the cursor must be
// before the next page is requested.
const DefaultScrollThreshold = 5

const (
	maxCellWidth = 32
	actionsCell  = "[x]"
	// Lines used around the table: title, header border and help.
	chromeHeight = 6
)

// Options configures the model.
type Options struct {
	ScrollThreshold int
	// Height is the initial table height before the first WindowSizeMsg.
	Height int
}

// loadedMsg reports a finished load. Failures are reported through the
// Notifier.
type loadedMsg struct {
	res loader.Result
	err error
}

type clearedMsg struct {
	err error
}

// loadMoreMsg is emitted when the cursor gets near the end of the rows.
type loadMoreMsg struct{}

// errorMsg raises the blocking error banner.
type errorMsg struct {
	err error
}

// Notifier returns a loader.Notifier that raises the error banner through
// send, usually (*tea.Program).Send. The coordinator given to New must use
// it for load failures to be shown.
func Notifier(send func(tea.Msg)) loader.Notifier {
	return loader.NotifierFunc(func(_ context.Context, err error) {
		send(errorMsg{err: err})
	})
}

// Model is the bubbletea model.
type Model struct {
	ctx       context.Context
	co        *loader.Coordinator
	threshold int
	styles    Styles
	table     bt.Model
	view      table.View
	// requested is set between issuing a load command and its result, so the
	// table is shown as loading before the coordinator picks it up.
	requested bool
	err       error
	width     int
}

// New returns a model driving co. ctx bounds every load.
func New(ctx context.Context, co *loader.Coordinator, opts Options) Model {
	if opts.ScrollThreshold <= 0 {
		opts.ScrollThreshold = DefaultScrollThreshold
	}
	if opts.Height <= 0 {
		opts.Height = 15
	}
	s := DefaultStyles()
	t := bt.New(
		bt.WithFocused(true),
		bt.WithHeight(opts.Height),
	)
	t.SetStyles(s.Table)
	m := Model{
		ctx:       ctx,
		co:        co,
		threshold: opts.ScrollThreshold,
		styles:    s,
		table:     t,
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil
	case loadedMsg:
		m.requested = false
		m.refresh()
		return m, nil
	case errorMsg:
		m.err = msg.err
		return m, nil
	case clearedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		m.refresh()
		return m, nil
	case loadMoreMsg:
		// Dropped by the coordinator while another load is in flight.
		m.requested = true
		return m, m.load(m.co.OnScrollProximity)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.err != nil {
			// The banner blocks until dismissed.
			m.err = nil
			return m, nil
		}
		return m.handleKey(msg)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "c":
		return m, m.clear()
	case "d", "x":
		if i := m.table.Cursor(); i >= 0 && i < len(m.view.Rows) {
			m.co.State().RemoveAt(m.view.Rows[i].Index)
			m.refresh()
		}
		return m, nil
	}
	if !m.view.ShowTable {
		if key == "enter" || key == "g" {
			m.requested = true
			m.refresh()
			return m, m.load(m.co.InitialLoad)
		}
		return m, nil
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		if fields := m.co.State().Fields(); n <= len(fields) {
			m.co.State().SetSortField(fields[n-1])
			m.refresh()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	if rows := len(m.view.Rows); rows > 0 && m.table.Cursor() >= rows-1-m.threshold {
		return m, tea.Batch(cmd, loadMore)
	}
	return m, cmd
}

func loadMore() tea.Msg {
	return loadMoreMsg{}
}

func (m Model) load(fn func(context.Context) (loader.Result, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		res, err := fn(ctx)
		return loadedMsg{res: res, err: err}
	}
}

func (m Model) clear() tea.Cmd {
	ctx, co := m.ctx, m.co
	return func() tea.Msg {
		return clearedMsg{err: co.ClearAll(ctx)}
	}
}

// refresh rebuilds the bubbles table from the coordinator view.
func (m *Model) refresh() {
	v := m.co.View()
	v.Loading = v.Loading || m.requested
	v.ShowTable = len(v.Rows) > 0 || v.Loading
	m.view = v

	widths := make([]int, len(v.Columns))
	for i, c := range v.Columns {
		widths[i] = runewidth.StringWidth(c.Label())
	}
	cells := make([]bt.Row, len(v.Rows))
	for r, row := range v.Rows {
		line := make(bt.Row, len(v.Columns))
		for i, c := range v.Columns {
			s := actionsCell
			if !c.Action {
				s = runewidth.Truncate(row.Record.String(c.Name), maxCellWidth, "…")
			}
			line[i] = s
			widths[i] = max(widths[i], runewidth.StringWidth(s))
		}
		cells[r] = line
	}
	cols := make([]bt.Column, len(v.Columns))
	for i, c := range v.Columns {
		cols[i] = bt.Column{Title: c.Label(), Width: widths[i]}
	}
	// Rows must never have more cells than there are columns.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(cells)
	if n := len(cells); m.table.Cursor() >= n {
		m.table.SetCursor(max(n-1, 0))
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.err != nil {
		return m.styles.Banner.Render(m.err.Error()+"\n\n"+m.styles.Muted.Render("press any key")) + "\n"
	}
	if !m.view.ShowTable {
		return m.styles.Splash.Render(
			m.styles.Title.Render("pagetable")+"\n\n"+
				"No data loaded.\n"+
				m.styles.Muted.Render("enter: load data  q: quit"),
		) + "\n"
	}
	var b strings.Builder
	title := m.styles.Title.Render("pagetable")
	status := fmt.Sprintf("%d rows", len(m.view.Rows))
	if m.view.Sort.Field != "" {
		status += fmt.Sprintf("  sorted by %s %s", m.view.Sort.Field, m.view.Sort.Direction)
	}
	if m.view.Loading {
		status += "  loading…"
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", m.styles.Muted.Render(status)))
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(m.styles.Help.Render(m.help()))
	b.WriteString("\n")
	return b.String()
}

func (m Model) help() string {
	var sorts []string
	for i, c := range m.view.Columns {
		if c.Action || i >= 9 {
			continue
		}
		sorts = append(sorts, fmt.Sprintf("%d:%s", i+1, c.Name))
	}
	h := "↑/↓: move  x: remove row  c: clear  q: quit"
	if len(sorts) > 0 {
		h = "sort " + strings.Join(sorts, " ") + "\n" + h
	}
	return h
}
