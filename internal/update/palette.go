package update

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/chewy/internal/commands"
	"github.com/sandeepkv93/chewy/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Palette = PaletteState{}
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command line closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.runCommand(m.Palette.Input)
		m.Palette = PaletteState{}
		m.commandInput.SetValue("")
		m.commandInput.Blur()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		m.commandInput, _ = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) runCommand(raw string) Model {
	cmd, err := commands.Parse(strings.TrimSpace(raw))
	if err != nil {
		m.setError(err)
		return m
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Generate: func() (commands.Result, error) {
			result, err := m.backend.Generate(m.ctx, m.From, m.To)
			if err != nil {
				return commands.Result{}, err
			}
			m.LastResult = &result
			if err := m.reload(); err != nil {
				return commands.Result{}, err
			}
			msg := fmt.Sprintf("generated %d block(s)", len(result.Placements))
			if n := len(result.Unplaced); n > 0 {
				msg += fmt.Sprintf(", %d unplaced", n)
			}
			return commands.Result{Message: msg}, nil
		},
		Sync: func() (commands.Result, error) {
			result, err := m.backend.Sync(m.ctx)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("synced %d event(s) from %d file(s), %d removed",
				result.EventsSynced, len(result.FilesProcessed), result.EventsDeleted)}, nil
		},
		Shift: func(a commands.ShiftArgs) (commands.Result, error) {
			span := m.To.Sub(m.From)
			m.From = m.From.Add(time.Duration(a.Windows) * span)
			m.To = m.To.Add(time.Duration(a.Windows) * span)
			m.LastResult = nil
			if err := m.reload(); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("window %s to %s", m.From.In(m.loc).Format("Jan 2"), m.To.In(m.loc).Format("Jan 2"))}, nil
		},
		Complete: func(a commands.CompleteArgs) (commands.Result, error) {
			matches := m.findByPrefix(a.Target)
			switch len(matches) {
			case 0:
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no scheduled task matches %q", a.Target)}
			case 1:
			default:
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%q matches %d scheduled tasks", a.Target, len(matches))}
			}
			if err := m.backend.CompleteScheduled(m.ctx, matches[0]); err != nil {
				return commands.Result{}, err
			}
			if err := m.reload(); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("completed %s", matches[0].Content)}, nil
		},
		Add: func(a commands.AddArgs) (commands.Result, error) {
			task, err := m.backend.CreateTask(m.ctx, model.Task{
				Content:         a.Content,
				DurationMinutes: a.Minutes,
				Kind:            model.TaskKindOneOff,
				Active:          true,
			})
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("added %q (%dm), run generate to place it", task.Content, task.DurationMinutes)}, nil
		},
	})
	if err != nil {
		m.setError(err)
		return m
	}
	m.Status = StatusBar{Text: res.Message}
	return m
}
