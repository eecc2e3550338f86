package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/chewy/internal/calsync"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/storage"
	"github.com/sandeepkv93/chewy/internal/views"
)

type fakeBackend struct {
	entries   []storage.ScheduleEntry
	generated int
	synced    int
	completed []string
	created   []model.Task
	windows   [][2]time.Time
	failWith  error
}

func (f *fakeBackend) Schedule(_ context.Context, from, to time.Time) ([]storage.ScheduleEntry, error) {
	f.windows = append(f.windows, [2]time.Time{from, to})
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.entries, nil
}

func (f *fakeBackend) Generate(_ context.Context, from, to time.Time) (scheduler.Result, error) {
	f.generated++
	return scheduler.Result{
		Placements: []model.Placement{{TaskID: "t1", Start: from.Add(time.Hour), End: from.Add(2 * time.Hour)}},
		Unplaced:   []string{"t2"},
	}, nil
}

func (f *fakeBackend) Sync(context.Context) (calsync.Result, error) {
	f.synced++
	return calsync.Result{FilesProcessed: []string{"a.json"}, EventsSynced: 3, EventsDeleted: 1}, nil
}

func (f *fakeBackend) CompleteScheduled(_ context.Context, entry storage.ScheduleEntry) error {
	f.completed = append(f.completed, entry.ID)
	return nil
}

func (f *fakeBackend) CreateTask(_ context.Context, in model.Task) (model.Task, error) {
	in.ID = "new"
	f.created = append(f.created, in)
	return in, nil
}

func entry(id, content string, start time.Time) storage.ScheduleEntry {
	return storage.ScheduleEntry{
		ScheduledTask: model.ScheduledTask{
			ID:     id,
			TaskID: "task-" + id,
			Start:  start,
			End:    start.Add(30 * time.Minute),
			Status: model.StatusScheduled,
		},
		Content:         content,
		DurationMinutes: 30,
	}
}

var monday = time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

func loadedModel(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := NewModel(context.Background(), backend, monday, monday.AddDate(0, 0, 7), time.UTC)
	msg := m.Init()()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return updated.(Model)
}

func typeCommand(t *testing.T, m Model, line string) Model {
	t.Helper()
	m = press(t, m, ":")
	if !m.Palette.Active {
		t.Fatalf("expected palette to open")
	}
	for _, r := range line {
		m = press(t, m, string(r))
	}
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model)
}

func TestInitLoadsEntries(t *testing.T) {
	backend := &fakeBackend{entries: []storage.ScheduleEntry{
		entry("aaaa1111", "write report", monday.Add(9*time.Hour)),
		entry("bbbb2222", "review", monday.Add(10*time.Hour)),
	}}
	m := loadedModel(t, backend)
	if len(m.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m.Entries))
	}
	if len(backend.windows) != 1 || !backend.windows[0][0].Equal(monday) {
		t.Fatalf("unexpected load window: %v", backend.windows)
	}
	if view := m.View(); !strings.Contains(view, "write report") {
		t.Fatalf("expected view to list entry, got %q", view)
	}
}

func TestLoadErrorSetsStatus(t *testing.T) {
	backend := &fakeBackend{failWith: errors.New("db gone")}
	m := loadedModel(t, backend)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "db gone") {
		t.Fatalf("expected error status, got %+v", m.Status)
	}
	if m.LastError == nil {
		t.Fatalf("expected LastError")
	}
}

func TestGenerateKeyRunsPlannerAndReloads(t *testing.T) {
	backend := &fakeBackend{}
	m := loadedModel(t, backend)
	m = press(t, m, "g")
	if backend.generated != 1 {
		t.Fatalf("expected one generate call, got %d", backend.generated)
	}
	if len(backend.windows) != 2 {
		t.Fatalf("expected reload after generate, got %d loads", len(backend.windows))
	}
	if m.LastResult == nil || len(m.LastResult.Placements) != 1 {
		t.Fatalf("expected last result to be kept, got %+v", m.LastResult)
	}
	if m.Status.Text != "generated 1 block(s), 1 unplaced" {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestSyncKey(t *testing.T) {
	backend := &fakeBackend{}
	m := loadedModel(t, backend)
	m = press(t, m, "s")
	if backend.synced != 1 {
		t.Fatalf("expected sync call")
	}
	if !strings.Contains(m.Status.Text, "synced 3 event(s) from 1 file(s), 1 removed") {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestNextAndPrevShiftWindow(t *testing.T) {
	backend := &fakeBackend{}
	m := loadedModel(t, backend)
	m = press(t, m, "n")
	if !m.From.Equal(monday.AddDate(0, 0, 7)) || !m.To.Equal(monday.AddDate(0, 0, 14)) {
		t.Fatalf("unexpected window after next: %s - %s", m.From, m.To)
	}
	m = press(t, m, "p")
	m = press(t, m, "p")
	if !m.From.Equal(monday.AddDate(0, 0, -7)) {
		t.Fatalf("unexpected window after prev: %s", m.From)
	}
	if len(backend.windows) != 4 {
		t.Fatalf("expected a reload per shift, got %d loads", len(backend.windows))
	}
}

func TestPaletteShiftByCount(t *testing.T) {
	backend := &fakeBackend{}
	m := loadedModel(t, backend)
	m = typeCommand(t, m, "next 2")
	if !m.From.Equal(monday.AddDate(0, 0, 14)) {
		t.Fatalf("unexpected window: %s", m.From)
	}
	if m.Palette.Active {
		t.Fatalf("expected palette to close after enter")
	}
}

func TestCompleteSelectedRow(t *testing.T) {
	backend := &fakeBackend{entries: []storage.ScheduleEntry{
		entry("aaaa1111", "write report", monday.Add(9*time.Hour)),
		entry("bbbb2222", "review", monday.Add(10*time.Hour)),
	}}
	m := loadedModel(t, backend)
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	m = press(t, m, "c")
	if len(backend.completed) != 1 || backend.completed[0] != "bbbb2222" {
		t.Fatalf("expected second row completed, got %v", backend.completed)
	}
	if m.Status.Text != "completed review" {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestCompleteByPrefix(t *testing.T) {
	backend := &fakeBackend{entries: []storage.ScheduleEntry{
		entry("abcd1111", "one", monday.Add(9*time.Hour)),
		entry("abce2222", "two", monday.Add(10*time.Hour)),
	}}
	m := loadedModel(t, backend)

	m = typeCommand(t, m, "complete abc")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "matches 2") {
		t.Fatalf("expected ambiguity error, got %+v", m.Status)
	}
	m = typeCommand(t, m, "complete zzz")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "no scheduled task") {
		t.Fatalf("expected no-match error, got %+v", m.Status)
	}
	m = typeCommand(t, m, "complete ABCE")
	if m.Status.IsError || len(backend.completed) != 1 || backend.completed[0] != "abce2222" {
		t.Fatalf("expected prefix completion, got %+v %v", m.Status, backend.completed)
	}
}

func TestCompleteWithNothingSelected(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	m = press(t, m, "c")
	if !m.Status.IsError {
		t.Fatalf("expected error status")
	}
}

func TestAddCreatesOneOffTask(t *testing.T) {
	backend := &fakeBackend{}
	m := loadedModel(t, backend)
	m = typeCommand(t, m, "add 45m call the bank")
	if len(backend.created) != 1 {
		t.Fatalf("expected task creation")
	}
	got := backend.created[0]
	if got.Content != "call the bank" || got.DurationMinutes != 45 || got.Kind != model.TaskKindOneOff || !got.Active {
		t.Fatalf("unexpected task: %+v", got)
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error: %s", m.Status.Text)
	}
}

func TestPaletteUnknownCommand(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	m = typeCommand(t, m, "explode")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unsupported command") {
		t.Fatalf("expected unknown command error, got %+v", m.Status)
	}
}

func TestPaletteEscCloses(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	m = press(t, m, ":")
	m = press(t, m, "g")
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	if m.Palette.Active {
		t.Fatalf("expected palette closed")
	}
	if m.LastResult != nil {
		t.Fatalf("typing in palette must not trigger shortcuts")
	}
}

func TestStatusMessages(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	updated, _ := m.Update(SetStatusMsg{Text: "hello", IsError: true})
	m = updated.(Model)
	if m.Status.Text != "hello" || !m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	updated, _ = m.Update(ClearStatusMsg{})
	m = updated.(Model)
	if m.Status.Text != "" {
		t.Fatalf("expected cleared status")
	}
}

func TestSummaryToggleAndQuit(t *testing.T) {
	m := loadedModel(t, &fakeBackend{})
	if !m.ShowSummary {
		t.Fatalf("summary shown by default")
	}
	m = press(t, m, "?")
	if m.ShowSummary {
		t.Fatalf("expected summary hidden")
	}
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	m = updated.(Model)
	if !m.Quitting || cmd == nil {
		t.Fatalf("expected quit")
	}
	if m.View() != "" {
		t.Fatalf("expected empty view after quit")
	}
}

func TestViewUsesModelLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*60*60)
	backend := &fakeBackend{entries: []storage.ScheduleEntry{
		entry("aaaa1111", "write report", time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)),
	}}
	m := NewModel(context.Background(), backend, monday, monday.AddDate(0, 0, 7), est)
	updated, _ := m.Update(m.Init()())
	m = updated.(Model)

	summary := views.ScheduleMarkdown(m.From, m.To, m.Entries, m.LastResult, est)
	if !strings.Contains(summary, "- 08:00-08:30 write report") {
		t.Fatalf("expected summary in EST, got:\n%s", summary)
	}
	if view := m.View(); !strings.Contains(view, "08:00") {
		t.Fatalf("expected local start time in view, got %q", view)
	}
}
