package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidKind     = errors.New("model: invalid task kind")
	ErrInvalidDuration = errors.New("model: task duration must be positive")
)

type TaskKind string

const (
	TaskKindOneOff    TaskKind = "one-off"
	TaskKindRecurring TaskKind = "recurring"
)

func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindOneOff, TaskKindRecurring:
		return true
	default:
		return false
	}
}

// Task is a unit of work to schedule. DueBy and DependsOn only apply to
// one-off tasks; Recurrence, Active and Window only apply to recurring ones.
type Task struct {
	ID              string
	Content         string
	DurationMinutes int
	Completed       bool
	Kind            TaskKind

	DueBy     *time.Time
	DependsOn []string

	Recurrence *Recurrence
	Active     bool
	Window     TimeWindow

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t Task) Duration() time.Duration {
	return time.Duration(t.DurationMinutes) * time.Minute
}

func (t Task) IsOneOff() bool { return t.Kind == TaskKindOneOff }

func (t Task) IsRecurring() bool { return t.Kind == TaskKindRecurring }

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("model: task id is required")
	}
	if strings.TrimSpace(t.Content) == "" {
		return errors.New("model: task content is required")
	}
	if t.DurationMinutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, t.DurationMinutes)
	}
	switch t.Kind {
	case TaskKindOneOff:
		if t.Recurrence != nil {
			return errors.New("model: one-off task cannot carry a recurrence")
		}
	case TaskKindRecurring:
		if t.Recurrence == nil {
			return fmt.Errorf("%w: recurring task requires a recurrence", ErrInvalidRecurrence)
		}
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
		if len(t.DependsOn) > 0 {
			return errors.New("model: recurring task cannot have dependencies")
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	return t.Window.Validate()
}

// Dependency is a "TaskID depends on DependsOnID" edge.
type Dependency struct {
	TaskID      string
	DependsOnID string
}
