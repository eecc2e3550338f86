package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidStatus = errors.New("model: invalid schedule status")

type ScheduleStatus string

const (
	StatusScheduled   ScheduleStatus = "scheduled"
	StatusCompleted   ScheduleStatus = "completed"
	StatusRescheduled ScheduleStatus = "rescheduled"
)

func (s ScheduleStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusRescheduled:
		return true
	default:
		return false
	}
}

// Placement is one engine decision: TaskID occupies [Start, End).
type Placement struct {
	TaskID string
	Start  time.Time
	End    time.Time
}

func (p Placement) Minutes() int {
	return int(p.End.Sub(p.Start) / time.Minute)
}

// ScheduledTask is the persisted form of a Placement.
type ScheduledTask struct {
	ID     string
	TaskID string
	Start  time.Time
	End    time.Time
	Status ScheduleStatus
}

func (s ScheduledTask) Validate() error {
	if s.TaskID == "" {
		return errors.New("model: scheduled task requires task_id")
	}
	if !s.End.After(s.Start) {
		return fmt.Errorf("%w: scheduled task %s", ErrInvalidInterval, s.ID)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s.Status)
	}
	return nil
}
