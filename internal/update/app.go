package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/chewy/internal/storage"
	"github.com/sandeepkv93/chewy/internal/views"
)

func NewModel(ctx context.Context, backend Backend, from, to time.Time, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	m := Model{
		From:        from,
		To:          to,
		Keys:        DefaultKeyMap(),
		ShowSummary: true,
		backend:     backend,
		ctx:         ctx,
		loc:         loc,
	}
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "Day", Width: 10},
		{Title: "Start", Width: 6},
		{Title: "End", Width: 6},
		{Title: "Task", Width: 28},
		{Title: "Status", Width: 11},
		{Title: "ID", Width: 8},
	}
	m.agendaTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(14))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = ":"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.helpModel = help.New()
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) loadCmd() tea.Cmd {
	backend, ctx, from, to := m.backend, m.ctx, m.From, m.To
	return func() tea.Msg {
		entries, err := backend.Schedule(ctx, from, to)
		return ScheduleLoadedMsg{Entries: entries, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case ScheduleLoadedMsg:
		if typed.Err != nil {
			m.setError(typed.Err)
			return m, nil
		}
		m.setEntries(typed.Entries)
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}
		switch {
		case key.Matches(typed, m.Keys.Quit):
			m.Quitting = true
			return m, tea.Quit
		case key.Matches(typed, m.Keys.Palette):
			m.Palette = PaletteState{Active: true}
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command line active"}
			return m, nil
		case key.Matches(typed, m.Keys.Generate):
			return m.runCommand("generate"), nil
		case key.Matches(typed, m.Keys.Sync):
			return m.runCommand("sync"), nil
		case key.Matches(typed, m.Keys.Next):
			return m.runCommand("next"), nil
		case key.Matches(typed, m.Keys.Prev):
			return m.runCommand("prev"), nil
		case key.Matches(typed, m.Keys.Complete):
			if sel, ok := m.selectedEntry(); ok {
				return m.runCommand("complete " + sel.ID), nil
			}
			m.Status = StatusBar{Text: "nothing selected", IsError: true}
			return m, nil
		case key.Matches(typed, m.Keys.Summary):
			m.ShowSummary = !m.ShowSummary
			return m, nil
		}
		var cmd tea.Cmd
		m.agendaTable, cmd = m.agendaTable.Update(typed)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	summary := ""
	if m.ShowSummary {
		summary = views.RenderMarkdown(views.ScheduleMarkdown(m.From, m.To, m.Entries, m.LastResult, m.loc))
	}
	palette := ""
	if m.Palette.Active {
		palette = m.commandInput.View()
	}
	return views.RenderAgenda(views.AgendaData{
		Header:     fmt.Sprintf("chewy | %s to %s | %d blocks", m.From.In(m.loc).Format("Mon Jan 2"), m.To.In(m.loc).Format("Mon Jan 2"), len(m.Entries)),
		Table:      m.agendaTable.View(),
		Summary:    summary,
		Palette:    palette,
		StatusLine: m.Status.Text,
		IsError:    m.Status.IsError,
		Footer:     m.helpModel.View(m.Keys),
	})
}

func (m *Model) setEntries(entries []storage.ScheduleEntry) {
	m.Entries = entries
	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		start, end := e.Start.In(m.loc), e.End.In(m.loc)
		rows = append(rows, table.Row{
			start.Format("Mon 01-02"),
			start.Format("15:04"),
			end.Format("15:04"),
			e.Content,
			string(e.Status),
			views.ShortID(e.ID),
		})
	}
	m.agendaTable.SetRows(rows)
	if cursor := m.agendaTable.Cursor(); cursor >= len(rows) && len(rows) > 0 {
		m.agendaTable.SetCursor(len(rows) - 1)
	}
}

// reload refreshes the entries for the current window synchronously.
func (m *Model) reload() error {
	entries, err := m.backend.Schedule(m.ctx, m.From, m.To)
	if err != nil {
		return err
	}
	m.setEntries(entries)
	return nil
}

func (m *Model) setError(err error) {
	m.LastError = err
	m.Status = StatusBar{Text: err.Error(), IsError: true}
}

func (m Model) selectedEntry() (storage.ScheduleEntry, bool) {
	i := m.agendaTable.Cursor()
	if i < 0 || i >= len(m.Entries) {
		return storage.ScheduleEntry{}, false
	}
	return m.Entries[i], true
}

func (m Model) findByPrefix(prefix string) []storage.ScheduleEntry {
	prefix = strings.ToLower(prefix)
	var out []storage.ScheduleEntry
	for _, e := range m.Entries {
		if strings.HasPrefix(strings.ToLower(e.ID), prefix) {
			out = append(out, e)
		}
	}
	return out
}
