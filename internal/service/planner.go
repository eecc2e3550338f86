// Package service ties storage, calendar ingestion and the placement engine
// together.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/chewy/internal/calsync"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/scheduler"
	"github.com/sandeepkv93/chewy/internal/storage"
)

var (
	ErrInvalid         = errors.New("service: invalid input")
	ErrSyncUnavailable = errors.New("service: calendar sync is not configured")
)

type Syncer interface {
	Sync(ctx context.Context) (calsync.Result, error)
}

type Options struct {
	Syncer         Syncer
	SyncOnGenerate bool
	WindowDays     int
	Now            func() time.Time
	Logger         *slog.Logger
}

type Planner struct {
	repo           storage.Repository
	engine         *scheduler.Engine
	syncer         Syncer
	syncOnGenerate bool
	windowDays     int
	now            func() time.Time
	logger         *slog.Logger
}

func NewPlanner(repo storage.Repository, engine *scheduler.Engine, opts Options) *Planner {
	p := &Planner{
		repo:           repo,
		engine:         engine,
		syncer:         opts.Syncer,
		syncOnGenerate: opts.SyncOnGenerate,
		windowDays:     opts.WindowDays,
		now:            opts.Now,
		logger:         opts.Logger,
	}
	if p.windowDays <= 0 {
		p.windowDays = 7
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// DefaultWindow is [now, now+WindowDays).
func (p *Planner) DefaultWindow() (time.Time, time.Time) {
	return p.WindowFrom(p.now())
}

func (p *Planner) WindowFrom(start time.Time) (time.Time, time.Time) {
	return start, start.AddDate(0, 0, p.windowDays)
}

// Generate runs the engine over [from, to] and replaces every stored
// scheduled task that starts inside the window with the new placements.
func (p *Planner) Generate(ctx context.Context, from, to time.Time) (scheduler.Result, error) {
	if !to.After(from) {
		return scheduler.Result{}, fmt.Errorf("%w: %w: window %s..%s", scheduler.ErrRejectedInput, model.ErrInvalidInterval,
			from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	if p.syncOnGenerate && p.syncer != nil {
		if _, err := p.syncer.Sync(ctx); err != nil {
			return scheduler.Result{}, fmt.Errorf("sync before generate: %w", err)
		}
	}

	tasks, err := p.repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		return scheduler.Result{}, fmt.Errorf("load tasks: %w", err)
	}
	edges, err := p.repo.ListDependencies(ctx)
	if err != nil {
		return scheduler.Result{}, fmt.Errorf("load dependencies: %w", err)
	}
	events, err := p.repo.ListEventsBetween(ctx, from, to)
	if err != nil {
		return scheduler.Result{}, fmt.Errorf("load events: %w", err)
	}

	res, err := p.engine.GenerateSchedule(scheduler.Input{
		WindowStart:  from,
		WindowEnd:    to,
		Tasks:        tasks,
		Events:       events,
		Dependencies: edges,
	})
	if err != nil {
		return scheduler.Result{}, err
	}

	items := make([]model.ScheduledTask, 0, len(res.Placements))
	for _, pl := range res.Sorted() {
		items = append(items, model.ScheduledTask{
			ID:     uuid.NewString(),
			TaskID: pl.TaskID,
			Start:  pl.Start,
			End:    pl.End,
			Status: model.StatusScheduled,
		})
	}
	if err := p.repo.ReplaceSchedule(ctx, from, to, items); err != nil {
		return scheduler.Result{}, fmt.Errorf("store schedule: %w", err)
	}
	return res, nil
}

func (p *Planner) Schedule(ctx context.Context, from, to time.Time) ([]storage.ScheduleEntry, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end before start", ErrInvalid)
	}
	return p.repo.ListSchedule(ctx, from, to)
}

func (p *Planner) Sync(ctx context.Context) (calsync.Result, error) {
	if p.syncer == nil {
		return calsync.Result{}, ErrSyncUnavailable
	}
	return p.syncer.Sync(ctx)
}

// CreateTask assigns an ID when missing, stamps timestamps and checks that
// every dependency other than the task itself already exists.
func (p *Planner) CreateTask(ctx context.Context, in model.Task) (model.Task, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	now := p.now()
	in.CreatedAt = now
	in.UpdatedAt = now
	if err := p.checkTask(ctx, in); err != nil {
		return model.Task{}, err
	}
	if err := p.repo.CreateTask(ctx, in); err != nil {
		return model.Task{}, err
	}
	return in, nil
}

func (p *Planner) UpdateTask(ctx context.Context, in model.Task) (model.Task, error) {
	existing, err := p.repo.GetTask(ctx, in.ID)
	if err != nil {
		return model.Task{}, err
	}
	in.CreatedAt = existing.CreatedAt
	in.UpdatedAt = p.now()
	if err := p.checkTask(ctx, in); err != nil {
		return model.Task{}, err
	}
	if err := p.repo.UpdateTask(ctx, in); err != nil {
		return model.Task{}, err
	}
	return in, nil
}

func (p *Planner) CompleteTask(ctx context.Context, id string) error {
	return p.repo.CompleteTask(ctx, id, p.now())
}

// CompleteScheduled marks a scheduled task completed along with the task
// it places.
func (p *Planner) CompleteScheduled(ctx context.Context, entry storage.ScheduleEntry) error {
	status := model.StatusCompleted
	if err := p.repo.UpdateScheduledTask(ctx, entry.ID, storage.ScheduledTaskPatch{Status: &status}); err != nil {
		return err
	}
	return p.repo.CompleteTask(ctx, entry.TaskID, p.now())
}

func (p *Planner) checkTask(ctx context.Context, in model.Task) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	for _, dep := range in.DependsOn {
		if dep == in.ID {
			continue
		}
		if _, err := p.repo.GetTask(ctx, dep); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("%w: unknown dependency %q", ErrInvalid, dep)
			}
			return err
		}
	}
	return nil
}
