package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/storage"
)

type AgendaData struct {
	Header     string
	Table      string
	Summary    string
	Palette    string
	StatusLine string
	IsError    bool
	Footer     string
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func RenderAgenda(data AgendaData) string {
	row := panelStyle.Render(data.Table)
	if strings.TrimSpace(data.Summary) != "" {
		row = lipgloss.JoinHorizontal(lipgloss.Top, row, panelStyle.Width(48).Render(data.Summary))
	}

	lines := []string{
		headerStyle.Render(data.Header),
		row,
	}
	if data.Palette != "" {
		lines = append(lines, data.Palette)
	}
	if data.StatusLine != "" {
		if data.IsError {
			lines = append(lines, errorStyle.Render("error: "+data.StatusLine))
		} else {
			lines = append(lines, statusStyle.Render(data.StatusLine))
		}
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// ScheduleMarkdown summarises a stored schedule and, when given, the run
// that produced it. Times and day headings are shown in loc.
func ScheduleMarkdown(from, to time.Time, entries []storage.ScheduleEntry, res *scheduler.Result, loc *time.Location) string {
	loc = orLocal(loc)
	var b strings.Builder
	fmt.Fprintf(&b, "## Schedule %s to %s\n\n", from.In(loc).Format("Mon Jan 2 15:04"), to.In(loc).Format("Mon Jan 2 15:04"))

	minutes := 0
	for _, e := range entries {
		minutes += int(e.End.Sub(e.Start) / time.Minute)
	}
	fmt.Fprintf(&b, "- **%d** blocks, %s booked\n", len(entries), formatMinutes(minutes))

	if res != nil {
		if len(res.Unplaced) > 0 {
			fmt.Fprintf(&b, "- **Unplaced:** %s\n", strings.Join(res.Unplaced, ", "))
		}
		if len(res.Missed) > 0 {
			fmt.Fprintf(&b, "- **Missed occurrences:** %d\n", len(res.Missed))
		}
		for _, d := range res.Diagnostics {
			fmt.Fprintf(&b, "- _forced_ `%s` (%s)\n", d.TaskID, d.Reason)
		}
	}

	if len(entries) == 0 {
		b.WriteString("\n_Nothing scheduled._\n")
		return b.String()
	}

	day := ""
	for _, e := range entries {
		start, end := e.Start.In(loc), e.End.In(loc)
		if d := start.Format("Monday, Jan 2"); d != day {
			day = d
			fmt.Fprintf(&b, "\n### %s\n\n", day)
		}
		fmt.Fprintf(&b, "- %s-%s %s", start.Format("15:04"), end.Format("15:04"), e.Content)
		if e.Status != "scheduled" {
			fmt.Fprintf(&b, " _(%s)_", e.Status)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ScheduleText is the plain, one block per line rendering used by the CLI.
func ScheduleText(entries []storage.ScheduleEntry, loc *time.Location) string {
	if len(entries) == 0 {
		return "nothing scheduled\n"
	}
	loc = orLocal(loc)
	var b strings.Builder
	for _, e := range entries {
		start, end := e.Start.In(loc), e.End.In(loc)
		fmt.Fprintf(&b, "%s  %s-%s  %-10s  %s  [%s]\n",
			start.Format("Mon 2006-01-02"), start.Format("15:04"), end.Format("15:04"),
			e.Status, e.Content, ShortID(e.ID))
	}
	return b.String()
}

func orLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}

func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	if m%60 == 0 {
		return fmt.Sprintf("%dh", m/60)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}
