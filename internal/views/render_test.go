package views

import (
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/chewy/internal/deps"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/storage"
)

func entry(id, content string, start time.Time, minutes int, status model.ScheduleStatus) storage.ScheduleEntry {
	return storage.ScheduleEntry{
		ScheduledTask: model.ScheduledTask{
			ID:     id,
			TaskID: "t-" + id,
			Start:  start,
			End:    start.Add(time.Duration(minutes) * time.Minute),
			Status: status,
		},
		Content:         content,
		DurationMinutes: minutes,
	}
}

func TestScheduleMarkdown(t *testing.T) {
	mon := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	entries := []storage.ScheduleEntry{
		entry("a", "Design", mon, 60, model.StatusScheduled),
		entry("b", "Review", mon.Add(2*time.Hour), 30, model.StatusCompleted),
		entry("c", "Ship", mon.AddDate(0, 0, 1), 45, model.StatusScheduled),
	}
	res := &scheduler.Result{
		Unplaced:    []string{"huge"},
		Diagnostics: []deps.Diagnostic{{TaskID: "loop", Reason: deps.ReasonCycle}},
	}

	md := ScheduleMarkdown(mon, mon.AddDate(0, 0, 7), entries, res, time.UTC)
	for _, want := range []string{
		"**3** blocks, 2h15m booked",
		"**Unplaced:** huge",
		"_forced_ `loop` (cycle)",
		"### Monday, Feb 9",
		"### Tuesday, Feb 10",
		"- 10:00-10:30 Review _(completed)_",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in markdown:\n%s", want, md)
		}
	}
}

func TestScheduleMarkdownEmpty(t *testing.T) {
	mon := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	md := ScheduleMarkdown(mon, mon.AddDate(0, 0, 1), nil, nil, time.UTC)
	if !strings.Contains(md, "_Nothing scheduled._") || !strings.Contains(md, "**0** blocks, 0m booked") {
		t.Fatalf("unexpected empty markdown:\n%s", md)
	}
}

func TestScheduleText(t *testing.T) {
	mon := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	out := ScheduleText([]storage.ScheduleEntry{entry("0123456789", "Design", mon, 60, model.StatusScheduled)}, time.UTC)
	if !strings.Contains(out, "Mon 2026-02-09  08:00-09:00") || !strings.Contains(out, "[01234567]") {
		t.Fatalf("unexpected text output: %q", out)
	}
	if ScheduleText(nil, time.UTC) != "nothing scheduled\n" {
		t.Fatal("expected empty marker")
	}
}

func TestScheduleRendersInLocation(t *testing.T) {
	ny := time.FixedZone("EST", -5*60*60)
	// Stored rows come back in UTC; 13:00Z is 08:00 in New York.
	start := time.Date(2026, 2, 9, 13, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 10, 2, 0, 0, 0, time.UTC)
	entries := []storage.ScheduleEntry{
		entry("a", "Design", start, 60, model.StatusScheduled),
		entry("b", "Late", late, 30, model.StatusScheduled),
	}

	out := ScheduleText(entries, ny)
	if !strings.Contains(out, "Mon 2026-02-09  08:00-09:00") {
		t.Fatalf("expected local times in text output: %q", out)
	}
	if strings.Contains(out, "13:00") {
		t.Fatalf("expected no UTC times in text output: %q", out)
	}

	md := ScheduleMarkdown(start, start.AddDate(0, 0, 1), entries, nil, ny)
	for _, want := range []string{"## Schedule Mon Feb 9 08:00", "- 08:00-09:00 Design", "- 21:00-21:30 Late"} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in markdown:\n%s", want, md)
		}
	}
	if strings.Contains(md, "Tuesday") {
		t.Fatalf("late entry belongs to Monday in New York:\n%s", md)
	}
}

func TestRenderAgendaShowsErrorsAndPalette(t *testing.T) {
	out := RenderAgenda(AgendaData{
		Header:     "chewy",
		Table:      "rows",
		Palette:    ":generate",
		StatusLine: "boom",
		IsError:    true,
		Footer:     "keys",
	})
	for _, want := range []string{"chewy", "rows", ":generate", "error: boom", "keys"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in render output:\n%s", want, out)
		}
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if RenderMarkdown("   ") != "" {
		t.Fatal("expected empty render for blank markdown")
	}
}
