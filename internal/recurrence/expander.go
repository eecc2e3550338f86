// Package recurrence expands recurring task definitions into candidate
// occurrence instants.
package recurrence

import (
	"iter"
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
)

type Options struct {
	// DefaultAnchor is the time of day used when a task has no window start.
	DefaultAnchor model.Clock
	// Location decides calendar-day boundaries. Nil uses the window start's.
	Location *time.Location
}

func DefaultOptions() Options {
	return Options{DefaultAnchor: model.MustClock(9, 0)}
}

// dayRule decides whether a calendar day carries an occurrence.
type dayRule func(day time.Time) bool

type ruleFactory func(r model.Recurrence) dayRule

// Expander dispatches on Recurrence.Kind. Adding a cadence means adding an
// entry to rules.
type Expander struct {
	opts  Options
	rules map[model.RecurrenceKind]ruleFactory
}

func NewExpander(opts Options) *Expander {
	return &Expander{
		opts: opts,
		rules: map[model.RecurrenceKind]ruleFactory{
			model.RecurrenceDaily:  daily,
			model.RecurrenceWeekly: weekly,
		},
	}
}

// Supports reports whether kind has an expansion rule.
func (e *Expander) Supports(kind model.RecurrenceKind) bool {
	_, ok := e.rules[kind]
	return ok
}

// Expand yields occurrence instants for task inside [start, end), at most one
// per calendar day, anchored at the task's window start (or DefaultAnchor).
// Occurrences outside the task's time window are skipped. The sequence holds
// no state between iterations and may be ranged over any number of times.
func (e *Expander) Expand(task model.Task, start, end time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if task.Recurrence == nil || !end.After(start) {
			return
		}
		factory, ok := e.rules[task.Recurrence.Kind]
		if !ok {
			return
		}
		matches := factory(*task.Recurrence)

		anchor := e.opts.DefaultAnchor
		if task.Window.Start != nil {
			anchor = *task.Window.Start
		}
		loc := e.opts.Location
		if loc == nil {
			loc = start.Location()
		}

		y, m, d := start.In(loc).Date()
		for day := time.Date(y, m, d, 0, 0, 0, 0, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
			occ := anchor.On(day, loc)
			if occ.Before(start) {
				continue
			}
			if !occ.Before(end) {
				return
			}
			if !matches(day) || !task.Window.Allows(model.ClockOf(occ)) {
				continue
			}
			if !yield(occ) {
				return
			}
		}
	}
}

func daily(model.Recurrence) dayRule {
	return func(time.Time) bool { return true }
}

func weekly(r model.Recurrence) dayRule {
	allowed := r.WeekdaySet()
	return func(day time.Time) bool { return allowed[day.Weekday()] }
}
