// Package interval implements half-open time intervals and the set
// operations the scheduler needs on them.
package interval

import (
	"sort"
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
)

// Interval is the half-open range [Start, End). A valid Interval always has
// Start < End.
type Interval struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, model.ErrInvalidInterval
	}
	return Interval{Start: start, End: end}, nil
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

func (iv Interval) Minutes() int {
	return int(iv.Duration() / time.Minute)
}

func (iv Interval) IsEmpty() bool {
	return !iv.End.After(iv.Start)
}

// Contains reports whether t falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Covers reports whether other lies entirely inside iv.
func (iv Interval) Covers(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Intersect returns the overlap of iv and other. The boolean is false when
// the overlap would be empty.
func (iv Interval) Intersect(other Interval) (Interval, bool) {
	start := iv.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// Fits reports whether iv is at least durationMinutes long.
func Fits(iv Interval, durationMinutes int) bool {
	return FitsDuration(iv, time.Duration(durationMinutes)*time.Minute)
}

func FitsDuration(iv Interval, d time.Duration) bool {
	return iv.Duration() >= d
}

// Subtract removes every busy interval from free and returns the remaining
// fragments in ascending order. Busy intervals that do not touch free are
// ignored; overlapping or adjacent busy intervals are merged by advancing a
// cursor through them in start order.
func Subtract(free Interval, busy []Interval) []Interval {
	if free.IsEmpty() {
		return nil
	}
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	SortByStart(sorted)

	out := make([]Interval, 0, 2)
	cursor := free.Start
	for _, b := range sorted {
		if !b.End.After(free.Start) || !b.Start.Before(free.End) {
			continue
		}
		if cursor.Before(b.Start) {
			out = append(out, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(free.End) {
			return out
		}
	}
	if cursor.Before(free.End) {
		out = append(out, Interval{Start: cursor, End: free.End})
	}
	return out
}

// SortByStart orders intervals by start, breaking ties on end.
func SortByStart(items []Interval) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Start.Equal(items[j].Start) {
			return items[i].End.Before(items[j].End)
		}
		return items[i].Start.Before(items[j].Start)
	})
}

func (iv Interval) Equal(other Interval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}
