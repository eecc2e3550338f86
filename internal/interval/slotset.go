package interval

import (
	"errors"
	"sort"
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
)

var ErrNotFree = errors.New("interval: reservation is not inside a free slot")

// SlotSet is an immutable, start-ordered collection of disjoint free
// intervals. Every mutating operation returns a new SlotSet and leaves the
// receiver untouched.
type SlotSet struct {
	slots []Interval
}

func NewSlotSet(slots ...Interval) SlotSet {
	out := make([]Interval, 0, len(slots))
	for _, s := range slots {
		if !s.IsEmpty() {
			out = append(out, s)
		}
	}
	SortByStart(out)
	return SlotSet{slots: out}
}

func (s SlotSet) Len() int { return len(s.slots) }

func (s SlotSet) Slots() []Interval {
	out := make([]Interval, len(s.slots))
	copy(out, s.slots)
	return out
}

// FirstFit returns the earliest start at which a block of d fits, not
// earlier than notBefore. A zero notBefore imposes no lower bound.
func (s SlotSet) FirstFit(d time.Duration, notBefore time.Time) (Interval, bool) {
	for _, slot := range s.slots {
		start := slot.Start
		if notBefore.After(start) {
			start = notBefore
		}
		if !start.Before(slot.End) {
			continue
		}
		if FitsDuration(Interval{Start: start, End: slot.End}, d) {
			return Interval{Start: start, End: start.Add(d)}, true
		}
	}
	return Interval{}, false
}

// Containing returns the slot that contains t.
func (s SlotSet) Containing(t time.Time) (Interval, bool) {
	i := s.indexContaining(t)
	if i < 0 {
		return Interval{}, false
	}
	return s.slots[i], true
}

// Reserve removes r from the slot that covers it, keeping the fragments
// before and after r as new free slots.
func (s SlotSet) Reserve(r Interval) (SlotSet, error) {
	if r.IsEmpty() {
		return s, model.ErrInvalidInterval
	}
	i := s.indexContaining(r.Start)
	if i < 0 || !s.slots[i].Covers(r) {
		return s, ErrNotFree
	}
	slot := s.slots[i]
	out := make([]Interval, 0, len(s.slots)+1)
	out = append(out, s.slots[:i]...)
	if slot.Start.Before(r.Start) {
		out = append(out, Interval{Start: slot.Start, End: r.Start})
	}
	if r.End.Before(slot.End) {
		out = append(out, Interval{Start: r.End, End: slot.End})
	}
	out = append(out, s.slots[i+1:]...)
	return SlotSet{slots: out}, nil
}

func (s SlotSet) indexContaining(t time.Time) int {
	// first slot whose end is after t
	i := sort.Search(len(s.slots), func(i int) bool {
		return s.slots[i].End.After(t)
	})
	if i < len(s.slots) && s.slots[i].Contains(t) {
		return i
	}
	return -1
}
