package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/chewy/internal/calsync"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/storage"
)

// Backend is what the agenda needs from the planner.
type Backend interface {
	Schedule(ctx context.Context, from, to time.Time) ([]storage.ScheduleEntry, error)
	Generate(ctx context.Context, from, to time.Time) (scheduler.Result, error)
	Sync(ctx context.Context) (calsync.Result, error)
	CompleteScheduled(ctx context.Context, entry storage.ScheduleEntry) error
	CreateTask(ctx context.Context, in model.Task) (model.Task, error)
}

type StatusBar struct {
	Text    string
	IsError bool
}

type PaletteState struct {
	Active bool
	Input  string
}

type KeyMap struct {
	Palette  key.Binding
	Generate key.Binding
	Sync     key.Binding
	Next     key.Binding
	Prev     key.Binding
	Complete key.Binding
	Summary  key.Binding
	Quit     key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Palette, k.Generate, k.Sync, k.Prev, k.Next, k.Complete, k.Summary, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Palette:  key.NewBinding(key.WithKeys(":", "/"), key.WithHelp(":", "command")),
		Generate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate")),
		Sync:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		Next:     key.NewBinding(key.WithKeys("n", "]"), key.WithHelp("n", "next")),
		Prev:     key.NewBinding(key.WithKeys("p", "["), key.WithHelp("p", "prev")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Summary:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "summary")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type Model struct {
	From        time.Time
	To          time.Time
	Entries     []storage.ScheduleEntry
	LastResult  *scheduler.Result
	Palette     PaletteState
	Status      StatusBar
	Keys        KeyMap
	ShowSummary bool
	Quitting    bool
	LastError   error

	backend      Backend
	ctx          context.Context
	loc          *time.Location
	agendaTable  table.Model
	commandInput textinput.Model
	helpModel    help.Model
}

type ScheduleLoadedMsg struct {
	Entries []storage.ScheduleEntry
	Err     error
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}
