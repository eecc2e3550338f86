// Package availability turns a work calendar and a set of busy blocks into
// the free time available for scheduling.
package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/chewy/internal/interval"
	"github.com/sandeepkv93/chewy/internal/model"
)

var ErrInvalidCalendar = errors.New("availability: invalid work calendar")

// WorkCalendar is the daily working window. Only days listed in Weekdays
// contribute availability, and each contributes exactly [DayStart, DayEnd).
// A nil Location means "the location of the requested window start".
type WorkCalendar struct {
	DayStart model.Clock
	DayEnd   model.Clock
	Weekdays []time.Weekday
	Location *time.Location
}

func DefaultWorkCalendar() WorkCalendar {
	return WorkCalendar{
		DayStart: model.MustClock(8, 0),
		DayEnd:   model.MustClock(16, 0),
		Weekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
}

func (c WorkCalendar) Validate() error {
	if err := c.DayStart.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}
	if err := c.DayEnd.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}
	if !c.DayStart.Before(c.DayEnd) {
		return fmt.Errorf("%w: day end %s is not after day start %s", ErrInvalidCalendar, c.DayEnd, c.DayStart)
	}
	if len(c.Weekdays) == 0 {
		return fmt.Errorf("%w: no working weekdays", ErrInvalidCalendar)
	}
	return nil
}

// IsWorkday reports whether the calendar day of t (in the calendar's
// location) is a working day.
func (c WorkCalendar) IsWorkday(t time.Time) bool {
	wd := t.In(c.location(t)).Weekday()
	for _, d := range c.Weekdays {
		if d == wd {
			return true
		}
	}
	return false
}

// Workday returns the working interval on the calendar day of t.
func (c WorkCalendar) Workday(t time.Time) interval.Interval {
	loc := c.location(t)
	return interval.Interval{Start: c.DayStart.On(t, loc), End: c.DayEnd.On(t, loc)}
}

// FreeSlots computes the ordered free intervals inside [start, end]. Every
// working day contributes its workday clipped to the window, minus every
// busy interval overlapping it. Non-working days and hours outside the
// workday never appear.
func (c WorkCalendar) FreeSlots(start, end time.Time, busy []interval.Interval) ([]interval.Interval, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	window, err := interval.New(start, end)
	if err != nil {
		return nil, fmt.Errorf("availability: window: %w", err)
	}

	sorted := make([]interval.Interval, len(busy))
	copy(sorted, busy)
	interval.SortByStart(sorted)

	loc := c.location(start)
	out := make([]interval.Interval, 0)
	for day := startOfDay(start, loc); !day.After(end); day = day.AddDate(0, 0, 1) {
		if !c.IsWorkday(day) {
			continue
		}
		clipped, ok := c.Workday(day).Intersect(window)
		if !ok {
			continue
		}
		out = append(out, interval.Subtract(clipped, sorted)...)
	}
	return out, nil
}

func (c WorkCalendar) location(t time.Time) *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return t.Location()
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
