package model

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidClock = errors.New("model: invalid time of day")

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

func NewClock(hour, minute int) (Clock, error) {
	c := Clock{Hour: hour, Minute: minute}
	if err := c.Validate(); err != nil {
		return Clock{}, err
	}
	return c, nil
}

func MustClock(hour, minute int) Clock {
	c, err := NewClock(hour, minute)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseClock accepts "HH:MM" and "HH:MM:SS" (seconds are dropped).
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if tm, err := time.Parse(layout, s); err == nil {
			return Clock{Hour: tm.Hour(), Minute: tm.Minute()}, nil
		}
	}
	return Clock{}, fmt.Errorf("%w: %q", ErrInvalidClock, s)
}

func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

func (c Clock) Validate() error {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidClock, c.Hour, c.Minute)
	}
	return nil
}

func (c Clock) Minutes() int { return c.Hour*60 + c.Minute }

func (c Clock) Before(other Clock) bool { return c.Minutes() < other.Minutes() }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// On returns the instant at this clock time on the calendar day of date,
// evaluated in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, loc)
}

// TimeWindow optionally constrains the part of a day a recurring task may
// occupy. Either bound may be absent.
type TimeWindow struct {
	Start *Clock
	End   *Clock
}

func (w TimeWindow) Validate() error {
	if w.Start != nil {
		if err := w.Start.Validate(); err != nil {
			return err
		}
	}
	if w.End != nil {
		if err := w.End.Validate(); err != nil {
			return err
		}
	}
	if w.Start != nil && w.End != nil && w.End.Before(*w.Start) {
		return errors.New("model: time window end is before start")
	}
	return nil
}

// Allows reports whether c falls inside the window. Bounds are inclusive and
// the check only applies when both bounds are set.
func (w TimeWindow) Allows(c Clock) bool {
	if w.Start == nil || w.End == nil {
		return true
	}
	return !c.Before(*w.Start) && !w.End.Before(c)
}
