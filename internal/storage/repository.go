package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
)

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrEventNotManaged   = errors.New("storage: calendar event is not managed")
	ErrUnsupportedDriver = errors.New("storage: unsupported sqlite driver")
)

type Repository interface {
	CreateTask(ctx context.Context, in model.Task) error
	GetTask(ctx context.Context, id string) (model.Task, error)
	UpdateTask(ctx context.Context, in model.Task) error
	DeleteTask(ctx context.Context, id string) error
	CompleteTask(ctx context.Context, id string, at time.Time) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)
	ListDependencies(ctx context.Context) ([]model.Dependency, error)
	AddDependency(ctx context.Context, edge model.Dependency) error
	RemoveDependency(ctx context.Context, edge model.Dependency) error

	UpsertEvent(ctx context.Context, in model.CalendarEvent) error
	GetEvent(ctx context.Context, id string) (model.CalendarEvent, error)
	UpdateManagedEvent(ctx context.Context, id string, patch EventPatch) error
	ListEvents(ctx context.Context, filter EventListFilter) ([]model.CalendarEvent, error)
	ListEventsBetween(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error)
	DeleteEventsExcept(ctx context.Context, keep []string) (int, error)
	DeleteAllEvents(ctx context.Context) (int, error)

	ReplaceSchedule(ctx context.Context, start, end time.Time, items []model.ScheduledTask) error
	ListSchedule(ctx context.Context, start, end time.Time) ([]ScheduleEntry, error)
	UpdateScheduledTask(ctx context.Context, id string, patch ScheduledTaskPatch) error
}
