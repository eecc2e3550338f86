package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/chewy/internal/calsync"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/storage"
)

type recurrenceDTO struct {
	Kind     string   `json:"kind"`
	Weekdays []string `json:"weekdays,omitempty"`
}

// taskRequest is used for both create and partial update; absent fields
// leave the task untouched.
type taskRequest struct {
	ID              *string        `json:"id"`
	Content         *string        `json:"content"`
	Duration        *int           `json:"duration"`
	TaskType        *string        `json:"task_type"`
	IsCompleted     *bool          `json:"is_completed"`
	DueBy           *string        `json:"due_by"`
	Dependencies    *[]string      `json:"dependencies"`
	Recurrence      *recurrenceDTO `json:"recurrence"`
	TimeWindowStart *string        `json:"time_window_start"`
	TimeWindowEnd   *string        `json:"time_window_end"`
	IsActive        *bool          `json:"is_active"`
}

func (req taskRequest) apply(t *model.Task, loc *time.Location) error {
	if req.Content != nil {
		t.Content = *req.Content
	}
	if req.Duration != nil {
		t.DurationMinutes = *req.Duration
	}
	if req.TaskType != nil {
		t.Kind = model.TaskKind(*req.TaskType)
	}
	if req.IsCompleted != nil {
		t.Completed = *req.IsCompleted
	}
	if req.IsActive != nil {
		t.Active = *req.IsActive
	}
	if req.DueBy != nil {
		if strings.TrimSpace(*req.DueBy) == "" {
			t.DueBy = nil
		} else {
			due, err := calsync.ParseTimestamp(*req.DueBy, loc)
			if err != nil {
				return err
			}
			t.DueBy = &due
		}
	}
	if req.Dependencies != nil {
		t.DependsOn = append([]string(nil), (*req.Dependencies)...)
	}
	if req.Recurrence != nil {
		rec := model.Recurrence{Kind: model.RecurrenceKind(req.Recurrence.Kind)}
		for _, name := range req.Recurrence.Weekdays {
			d, err := model.ParseWeekday(name)
			if err != nil {
				return err
			}
			rec.Weekdays = append(rec.Weekdays, d)
		}
		t.Recurrence = &rec
	}
	var err error
	if req.TimeWindowStart != nil {
		if t.Window.Start, err = optionalClock(*req.TimeWindowStart); err != nil {
			return err
		}
	}
	if req.TimeWindowEnd != nil {
		if t.Window.End, err = optionalClock(*req.TimeWindowEnd); err != nil {
			return err
		}
	}
	return nil
}

func optionalClock(v string) (*model.Clock, error) {
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	c, err := model.ParseClock(v)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type taskResponse struct {
	ID              string         `json:"id"`
	Content         string         `json:"content"`
	Duration        int            `json:"duration"`
	TaskType        string         `json:"task_type"`
	IsCompleted     bool           `json:"is_completed"`
	DueBy           *string        `json:"due_by"`
	Dependencies    []string       `json:"dependencies"`
	Recurrence      *recurrenceDTO `json:"recurrence,omitempty"`
	TimeWindowStart *string        `json:"time_window_start"`
	TimeWindowEnd   *string        `json:"time_window_end"`
	IsActive        bool           `json:"is_active"`
	CreatedAt       string         `json:"created_at"`
	UpdatedAt       string         `json:"updated_at"`
}

func toTaskResponse(t model.Task, loc *time.Location) taskResponse {
	out := taskResponse{
		ID:           t.ID,
		Content:      t.Content,
		Duration:     t.DurationMinutes,
		TaskType:     string(t.Kind),
		IsCompleted:  t.Completed,
		Dependencies: append([]string{}, t.DependsOn...),
		IsActive:     t.Active,
		CreatedAt:    formatTime(t.CreatedAt, loc),
		UpdatedAt:    formatTime(t.UpdatedAt, loc),
	}
	if t.DueBy != nil {
		due := formatTime(*t.DueBy, loc)
		out.DueBy = &due
	}
	if t.Recurrence != nil {
		out.Recurrence = &recurrenceDTO{Kind: string(t.Recurrence.Kind), Weekdays: model.FormatWeekdays(t.Recurrence.Weekdays)}
	}
	if t.Window.Start != nil {
		s := t.Window.Start.String()
		out.TimeWindowStart = &s
	}
	if t.Window.End != nil {
		s := t.Window.End.String()
		out.TimeWindowEnd = &s
	}
	return out
}

type eventResponse struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	IsManaged  bool     `json:"is_managed"`
	Categories []string `json:"categories"`
	SourceFile string   `json:"source_file"`
}

func toEventResponse(ev model.CalendarEvent, loc *time.Location) eventResponse {
	cats := ev.Categories
	if cats == nil {
		cats = []string{}
	}
	return eventResponse{
		ID:         ev.ID,
		Subject:    ev.Subject,
		Start:      formatTime(ev.Start, loc),
		End:        formatTime(ev.End, loc),
		IsManaged:  ev.Managed,
		Categories: cats,
		SourceFile: ev.SourceFile,
	}
}

type eventPatchRequest struct {
	Subject *string `json:"subject"`
	Start   *string `json:"start"`
	End     *string `json:"end"`
}

type scheduleEntryResponse struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	TaskContent string `json:"task_content"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Status      string `json:"status"`
	Duration    int    `json:"duration"`
}

func toScheduleEntryResponse(e storage.ScheduleEntry, loc *time.Location) scheduleEntryResponse {
	return scheduleEntryResponse{
		ID:          e.ID,
		TaskID:      e.TaskID,
		TaskContent: e.Content,
		Start:       formatTime(e.Start, loc),
		End:         formatTime(e.End, loc),
		Status:      string(e.Status),
		Duration:    e.DurationMinutes,
	}
}

type generateRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type missedResponse struct {
	TaskID string `json:"task_id"`
	At     string `json:"at"`
}

type forcedResponse struct {
	TaskID string   `json:"task_id"`
	Reason string   `json:"reason"`
	Unmet  []string `json:"unmet"`
}

type generateResponse struct {
	Message        string           `json:"message"`
	TasksScheduled int              `json:"tasks_scheduled"`
	Unplaced       []string         `json:"unplaced"`
	Missed         []missedResponse `json:"missed"`
	Forced         []forcedResponse `json:"forced"`
}

func toGenerateResponse(res scheduler.Result, loc *time.Location) generateResponse {
	out := generateResponse{
		Message:        "Schedule generated successfully",
		TasksScheduled: len(res.Placements),
		Unplaced:       append([]string{}, res.Unplaced...),
		Missed:         make([]missedResponse, 0, len(res.Missed)),
		Forced:         make([]forcedResponse, 0, len(res.Diagnostics)),
	}
	for _, m := range res.Missed {
		out.Missed = append(out.Missed, missedResponse{TaskID: m.TaskID, At: formatTime(m.At, loc)})
	}
	for _, d := range res.Diagnostics {
		out.Forced = append(out.Forced, forcedResponse{TaskID: d.TaskID, Reason: string(d.Reason), Unmet: append([]string{}, d.Unmet...)})
	}
	return out
}

type scheduledTaskPatchRequest struct {
	Start  *string `json:"start"`
	End    *string `json:"end"`
	Status *string `json:"status"`
}

func formatTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.RFC3339)
}

func parseTimePtr(v *string, loc *time.Location) (*time.Time, error) {
	if v == nil {
		return nil, nil
	}
	t, err := calsync.ParseTimestamp(*v, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return &t, nil
}
