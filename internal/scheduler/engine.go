package scheduler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/sandeepkv93/chewy/internal/availability"
	"github.com/sandeepkv93/chewy/internal/deps"
	"github.com/sandeepkv93/chewy/internal/interval"
	"github.com/sandeepkv93/chewy/internal/model"
	"github.com/sandeepkv93/chewy/internal/recurrence"
)

var ErrRejectedInput = errors.New("scheduler: rejected input")

type Input struct {
	WindowStart  time.Time
	WindowEnd    time.Time
	Tasks        []model.Task
	Events       []model.CalendarEvent
	Dependencies []model.Dependency
}

// MissedOccurrence is a recurring occurrence that had no room.
type MissedOccurrence struct {
	TaskID string
	At     time.Time
}

// Result lists placements in discovery order: one-off tasks first, then
// recurring occurrences. It is not globally sorted by start.
type Result struct {
	Placements  []model.Placement
	Unplaced    []string
	Missed      []MissedOccurrence
	Diagnostics []deps.Diagnostic
}

// Sorted returns the placements ordered by start time.
func (r Result) Sorted() []model.Placement {
	out := make([]model.Placement, len(r.Placements))
	copy(out, r.Placements)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

type Engine struct {
	calendar availability.WorkCalendar
	expander *recurrence.Expander
	resolver *deps.Resolver
	logger   *slog.Logger
}

func NewEngine(calendar availability.WorkCalendar, opts recurrence.Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		calendar: calendar,
		expander: recurrence.NewExpander(opts),
		resolver: deps.NewResolver(logger),
		logger:   logger,
	}
}

// NewDefaultEngine uses the 08:00-16:00 Monday-Friday workday and a 09:00
// recurrence anchor.
func NewDefaultEngine(logger *slog.Logger) *Engine {
	return NewEngine(availability.DefaultWorkCalendar(), recurrence.DefaultOptions(), logger)
}

// GenerateSchedule places tasks into the free time of [WindowStart,
// WindowEnd]. One-off tasks go first, in dependency order, each into the
// first free slot large enough for it. Active recurring tasks then claim
// the slot containing each of their occurrences. A task or occurrence that
// does not fit is reported but is not an error.
func (e *Engine) GenerateSchedule(in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}

	busy := make([]interval.Interval, 0, len(in.Events))
	for _, ev := range in.Events {
		busy = append(busy, interval.Interval{Start: ev.Start, End: ev.End})
	}
	free, err := e.calendar.FreeSlots(in.WindowStart, in.WindowEnd, busy)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRejectedInput, err)
	}
	slots := interval.NewSlotSet(free...)

	var res Result
	slots = e.placeOneOffs(in, slots, &res)
	e.placeRecurring(in, slots, &res)

	e.logger.Info("schedule generated",
		slog.Time("window_start", in.WindowStart),
		slog.Time("window_end", in.WindowEnd),
		slog.Int("placed", len(res.Placements)),
		slog.Int("unplaced", len(res.Unplaced)),
		slog.Int("missed_occurrences", len(res.Missed)),
		slog.Int("forced", len(res.Diagnostics)),
	)
	return res, nil
}

func (e *Engine) placeOneOffs(in Input, slots interval.SlotSet, res *Result) interval.SlotSet {
	candidates := PendingOneOffs(in.Tasks, in.WindowEnd)
	resolution := e.resolver.Resolve(candidates, in.Dependencies)
	res.Diagnostics = resolution.Forced

	requires := deps.Requirements(candidates, in.Dependencies)
	placedEnd := make(map[string]time.Time, len(candidates))

	for _, task := range resolution.Order {
		// A task may not start before any of its already placed dependencies
		// ends. Dependencies still pending (cycles) impose no bound.
		var notBefore time.Time
		for _, dep := range requires[task.ID] {
			if end, ok := placedEnd[dep]; ok && end.After(notBefore) {
				notBefore = end
			}
		}
		block, ok := slots.FirstFit(task.Duration(), notBefore)
		if !ok {
			res.Unplaced = append(res.Unplaced, task.ID)
			continue
		}
		next, err := slots.Reserve(block)
		if err != nil {
			res.Unplaced = append(res.Unplaced, task.ID)
			continue
		}
		slots = next
		placedEnd[task.ID] = block.End
		res.Placements = append(res.Placements, model.Placement{TaskID: task.ID, Start: block.Start, End: block.End})
	}
	return slots
}

func (e *Engine) placeRecurring(in Input, slots interval.SlotSet, res *Result) {
	for _, task := range in.Tasks {
		if !task.IsRecurring() || !task.Active || task.Completed || task.Recurrence == nil {
			continue
		}
		if !e.expander.Supports(task.Recurrence.Kind) {
			e.logger.Warn("skipping recurring task with unsupported recurrence",
				slog.String("task_id", task.ID),
				slog.String("kind", string(task.Recurrence.Kind)),
			)
			continue
		}
		for occ := range e.expander.Expand(task, in.WindowStart, in.WindowEnd) {
			block := interval.Interval{Start: occ, End: occ.Add(task.Duration())}
			slot, ok := slots.Containing(occ)
			if !ok || !slot.Covers(block) {
				res.Missed = append(res.Missed, MissedOccurrence{TaskID: task.ID, At: occ})
				continue
			}
			next, err := slots.Reserve(block)
			if err != nil {
				res.Missed = append(res.Missed, MissedOccurrence{TaskID: task.ID, At: occ})
				continue
			}
			slots = next
			res.Placements = append(res.Placements, model.Placement{TaskID: task.ID, Start: block.Start, End: block.End})
		}
	}
}

// PendingOneOffs returns the incomplete one-off tasks due no later than
// windowEnd (or undated), ordered by due date with undated tasks last.
func PendingOneOffs(tasks []model.Task, windowEnd time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsOneOff() || t.Completed {
			continue
		}
		if t.DueBy != nil && t.DueBy.After(windowEnd) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].DueBy, out[j].DueBy
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}

func validate(in Input) error {
	if !in.WindowEnd.After(in.WindowStart) {
		return fmt.Errorf("%w: window: %w", ErrRejectedInput, model.ErrInvalidInterval)
	}
	for _, ev := range in.Events {
		if !ev.End.After(ev.Start) {
			return fmt.Errorf("%w: calendar event %q: %w", ErrRejectedInput, ev.ID, model.ErrInvalidInterval)
		}
	}
	for _, t := range in.Tasks {
		if t.DurationMinutes <= 0 {
			return fmt.Errorf("%w: task %q: %w", ErrRejectedInput, t.ID, model.ErrInvalidDuration)
		}
	}
	return nil
}
