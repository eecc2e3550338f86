package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

type RecurrenceKind string

const (
	RecurrenceDaily  RecurrenceKind = "daily"
	RecurrenceWeekly RecurrenceKind = "weekly"
)

var ErrInvalidRecurrence = errors.New("model: invalid recurrence")

func (k RecurrenceKind) IsValid() bool {
	switch k {
	case RecurrenceDaily, RecurrenceWeekly:
		return true
	default:
		return false
	}
}

// Recurrence describes the cadence of a recurring task. Weekdays is only
// meaningful for RecurrenceWeekly.
type Recurrence struct {
	Kind     RecurrenceKind
	Weekdays []time.Weekday
}

func Daily() Recurrence { return Recurrence{Kind: RecurrenceDaily} }

func Weekly(days ...time.Weekday) Recurrence {
	return Recurrence{Kind: RecurrenceWeekly, Weekdays: days}
}

func (r Recurrence) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrence, r.Kind)
	}
	if r.Kind == RecurrenceWeekly && len(r.Weekdays) == 0 {
		return fmt.Errorf("%w: weekly recurrence needs at least one weekday", ErrInvalidRecurrence)
	}
	s := make([]int, 0, len(r.Weekdays))
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRecurrence, d)
		}
		s = append(s, int(d))
	}
	sort.Ints(s)
	for i := 1; i < len(s); i++ {
		if s[i] == s[i-1] {
			return fmt.Errorf("%w: duplicate weekday %s", ErrInvalidRecurrence, time.Weekday(s[i]))
		}
	}
	return nil
}

// WeekdaySet returns Weekdays as a lookup table.
func (r Recurrence) WeekdaySet() map[time.Weekday]bool {
	m := make(map[time.Weekday]bool, len(r.Weekdays))
	for _, w := range r.Weekdays {
		m[w] = true
	}
	return m
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if len(key) >= 3 {
		if d, ok := weekdayNames[key[:3]]; ok {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRecurrence, s)
}

func FormatWeekdays(days []time.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, strings.ToLower(d.String()[:3]))
	}
	return out
}
