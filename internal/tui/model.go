// Package tui is a terminal front end for the reading table.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/polyhouse/internal/export"
	"github.com/lox/polyhouse/internal/models"
	"github.com/lox/polyhouse/internal/viewer"
)

const exportTimeout = 30 * time.Second

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	searchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
)

type loadedMsg struct{ records []models.Record }

type loadFailedMsg struct{ err error }

// screen is what the view model renders into.
type screen struct {
	rows    []viewer.Row
	summary string
	prev    bool
	next    bool
	notice  string
}

func (s *screen) RenderRows(rows []viewer.Row) { s.rows = rows }
func (s *screen) SetSummary(text string)       { s.summary = text }
func (s *screen) Notify(msg string)            { s.notice = msg }

func (s *screen) SetNavigation(prev, next bool) {
	s.prev = prev
	s.next = next
}

// Model is the Bubble Tea model. The view model is only touched from Update.
type Model struct {
	vm     *viewer.ViewModel
	screen *screen
	src    viewer.Source
	sink   export.Sink

	loading   bool
	searching bool
	input     string
	status    string
}

func New(src viewer.Source, sink export.Sink, opts ...viewer.Option) Model {
	s := &screen{}
	return Model{
		vm:      viewer.New(s, opts...),
		screen:  s,
		src:     src,
		sink:    sink,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	src := m.src
	return func() tea.Msg {
		records, err := src.Fetch(context.Background())
		if err != nil {
			return loadFailedMsg{err: err}
		}
		return loadedMsg{records: records}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.screen.notice = ""
		m.vm.Replace(msg.records)
		m.status = fmt.Sprintf("Loaded %d readings", len(msg.records))
		return m, nil

	case loadFailedMsg:
		m.loading = false
		m.vm.LoadFailed(msg.err)
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "left", "h":
		m.vm.Prev()
	case "right", "l":
		m.vm.Next()
	case "+", "=":
		m.vm.CyclePageSize(1)
	case "-":
		m.vm.CyclePageSize(-1)
	case "/":
		m.searching = true
		m.input = m.vm.Search()
	case "e":
		m.export()
	case "r":
		if !m.loading {
			m.loading = true
			m.status = "Reloading..."
			return m, m.load()
		}
	}
	return m, nil
}

// updateSearch edits the search term, re-filtering on every keystroke.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.input = ""
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	default:
		return m, nil
	}
	m.vm.SetSearch(m.input)
	return m, nil
}

func (m *Model) export() {
	if m.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()

	m.screen.notice = ""
	name, err := m.vm.Export(ctx, m.sink)
	switch {
	case err == nil:
		m.status = "Exported " + m.describe(name)
	case m.screen.notice == viewer.NoticeNoData:
		m.status = ""
	default:
		m.screen.notice = "Export failed: " + err.Error()
	}
}

func (m Model) describe(name string) string {
	if fs, ok := m.sink.(export.FileSink); ok {
		return fs.Path(name)
	}
	return name
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Polyhouse Water Temperature"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-6s %-18s %-19s", "S.No", "Temperature (°C)", "Timestamp")))
	b.WriteString("\n")
	if m.loading && len(m.screen.rows) == 0 {
		b.WriteString(mutedStyle.Render("Loading..."))
		b.WriteString("\n")
	}
	for _, row := range m.screen.rows {
		fmt.Fprintf(&b, "%-6d %-18s %-19s\n", row.Index, row.Temperature, row.Timestamp)
	}
	b.WriteString("\n")

	prev, next := "← prev", "next →"
	if !m.screen.prev {
		prev = disabledStyle.Render(prev)
	}
	if !m.screen.next {
		next = disabledStyle.Render(next)
	}
	fmt.Fprintf(&b, "%s  %s  %s   %s\n", prev, m.screen.summary, next,
		mutedStyle.Render(fmt.Sprintf("%d per page", m.vm.PageSize())))

	if m.searching {
		b.WriteString(searchStyle.Render("Search: " + m.input + "█"))
		b.WriteString("\n")
	} else if term := m.vm.Search(); term != "" {
		b.WriteString(mutedStyle.Render("Filter: " + term))
		b.WriteString("\n")
	}

	if m.screen.notice != "" {
		b.WriteString(noticeStyle.Render(m.screen.notice))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render("h/l page • +/- size • / search • e export • r reload • q quit"))
	b.WriteString("\n")
	return b.String()
}
