package storage

import (
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
)

type TaskListFilter struct {
	Kind      model.TaskKind
	Completed *bool
	Active    *bool
	DueBefore *time.Time
	Limit     int
	Offset    int
}

type EventListFilter struct {
	ManagedOnly bool
	Limit       int
	Offset      int
}

// ScheduleEntry is a scheduled task joined with the task it schedules.
type ScheduleEntry struct {
	model.ScheduledTask
	Content         string
	DurationMinutes int
}

type ScheduledTaskPatch struct {
	Start  *time.Time
	End    *time.Time
	Status *model.ScheduleStatus
}

type EventPatch struct {
	Subject *string
	Start   *time.Time
	End     *time.Time
}
