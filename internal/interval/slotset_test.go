package interval

import (
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/chewy/internal/model"
)

func TestSlotSetSortsInput(t *testing.T) {
	set := NewSlotSet(
		span(t, "2026-02-10 08:00", "2026-02-10 16:00"),
		span(t, "2026-02-09 08:00", "2026-02-09 16:00"),
	)
	slots := set.Slots()
	if !slots[0].Start.Before(slots[1].Start) {
		t.Fatalf("expected ascending slots, got %v", slots)
	}
}

func TestSlotSetFirstFitSkipsSmallSlots(t *testing.T) {
	set := NewSlotSet(
		span(t, "2026-02-09 08:00", "2026-02-09 08:30"),
		span(t, "2026-02-09 10:00", "2026-02-09 12:00"),
	)
	got, ok := set.FirstFit(time.Hour, time.Time{})
	if !ok || !got.Equal(span(t, "2026-02-09 10:00", "2026-02-09 11:00")) {
		t.Fatalf("unexpected first fit: %v ok=%v", got, ok)
	}
	if _, ok := set.FirstFit(3*time.Hour, time.Time{}); ok {
		t.Fatal("expected no fit for three hours")
	}
}

func TestSlotSetFirstFitHonorsNotBefore(t *testing.T) {
	set := NewSlotSet(span(t, "2026-02-09 08:00", "2026-02-09 12:00"))
	got, ok := set.FirstFit(30*time.Minute, at(t, "2026-02-09 09:15"))
	if !ok || !got.Equal(span(t, "2026-02-09 09:15", "2026-02-09 09:45")) {
		t.Fatalf("unexpected first fit: %v ok=%v", got, ok)
	}
	if _, ok := set.FirstFit(time.Hour, at(t, "2026-02-09 11:30")); ok {
		t.Fatal("expected no fit after 11:30")
	}
}

func TestSlotSetFirstFitExactSlot(t *testing.T) {
	slot := span(t, "2026-02-09 10:00", "2026-02-09 11:00")
	set := NewSlotSet(slot)
	if !Fits(slot, 60) {
		t.Fatal("expected a 60 minute block to fit a one hour slot")
	}
	got, ok := set.FirstFit(time.Hour, time.Time{})
	if !ok || !got.Equal(slot) {
		t.Fatalf("expected exact fit %v, got %v ok=%v", slot, got, ok)
	}
	if Fits(slot, 61) {
		t.Fatal("expected 61 minutes not to fit")
	}
	if _, ok := set.FirstFit(61*time.Minute, time.Time{}); ok {
		t.Fatal("expected FirstFit to agree with Fits for 61 minutes")
	}
}

func TestSlotSetReserveEmptyInterval(t *testing.T) {
	set := NewSlotSet(span(t, "2026-02-09 08:00", "2026-02-09 12:00"))
	instant := at(t, "2026-02-09 09:00")
	if _, err := set.Reserve(Interval{Start: instant, End: instant}); !errors.Is(err, model.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestSlotSetReserveSplitsBothSides(t *testing.T) {
	set := NewSlotSet(span(t, "2026-02-09 08:00", "2026-02-09 16:00"))
	next, err := set.Reserve(span(t, "2026-02-09 09:00", "2026-02-09 09:30"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertIntervals(t, next.Slots(), []Interval{
		span(t, "2026-02-09 08:00", "2026-02-09 09:00"),
		span(t, "2026-02-09 09:30", "2026-02-09 16:00"),
	})
	if set.Len() != 1 {
		t.Fatalf("reserve must not mutate the receiver, got %v", set.Slots())
	}
}

func TestSlotSetReserveWholeSlot(t *testing.T) {
	set := NewSlotSet(
		span(t, "2026-02-09 08:00", "2026-02-09 09:00"),
		span(t, "2026-02-09 10:00", "2026-02-09 11:00"),
	)
	next, err := set.Reserve(span(t, "2026-02-09 08:00", "2026-02-09 09:00"))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertIntervals(t, next.Slots(), []Interval{span(t, "2026-02-09 10:00", "2026-02-09 11:00")})
}

func TestSlotSetReserveOutsideFails(t *testing.T) {
	set := NewSlotSet(span(t, "2026-02-09 08:00", "2026-02-09 09:00"))
	_, err := set.Reserve(span(t, "2026-02-09 08:30", "2026-02-09 09:30"))
	if !errors.Is(err, ErrNotFree) {
		t.Fatalf("expected ErrNotFree, got %v", err)
	}
}

func TestSlotSetContaining(t *testing.T) {
	set := NewSlotSet(
		span(t, "2026-02-09 08:00", "2026-02-09 09:00"),
		span(t, "2026-02-09 10:00", "2026-02-09 11:00"),
	)
	slot, ok := set.Containing(at(t, "2026-02-09 10:30"))
	if !ok || !slot.Equal(span(t, "2026-02-09 10:00", "2026-02-09 11:00")) {
		t.Fatalf("unexpected containing slot: %v ok=%v", slot, ok)
	}
	if _, ok := set.Containing(at(t, "2026-02-09 09:00")); ok {
		t.Fatal("slot end is exclusive")
	}
}
