package slotgrid

import (
	"testing"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

func morningGrid(t *testing.T) (time.Time, []Slot) {
	t.Helper()
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	ranges := []model.TemplateRange{
		{StartMinute: 600, EndMinute: 720, Period: model.PeriodMorning},
	}
	slots := Generate(day, time.UTC, ranges, 15)
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	return day, slots
}

func TestOverlay_BookedSlotTaken(t *testing.T) {
	day, slots := morningGrid(t)
	booked := []time.Time{day.Add(10*time.Hour + 30*time.Minute)}
	now := day.Add(8 * time.Hour)

	view := Overlay(slots, booked, now)
	if view.AvailableSlots != 7 {
		t.Fatalf("expected 7 available, got %d", view.AvailableSlots)
	}
	if view.AvailableMorning != 7 {
		t.Fatalf("expected 7 available morning, got %d", view.AvailableMorning)
	}

	var taken int
	for _, s := range view.Slots {
		if s.Status == SlotTaken {
			taken++
			if !s.Start.Equal(booked[0]) {
				t.Fatalf("wrong slot taken: %s", s.Start.Format(time.RFC3339))
			}
		}
	}
	if taken != 1 {
		t.Fatalf("expected exactly 1 taken slot, got %d", taken)
	}
}

func TestOverlay_PastSlotsExcluded(t *testing.T) {
	day, slots := morningGrid(t)
	booked := []time.Time{day.Add(10*time.Hour + 30*time.Minute)}
	now := day.Add(11 * time.Hour)

	view := Overlay(slots, booked, now)

	// 10:00 through 10:45 have started; the 10:30 booking is among them and
	// reports passed, not taken.
	var passed, available int
	for _, s := range view.Slots {
		switch s.Status {
		case SlotPassed:
			passed++
		case SlotAvailable:
			available++
		case SlotTaken:
			t.Fatalf("no future slot is booked, got taken at %s", s.Start.Format(time.RFC3339))
		}
	}
	if passed != 4 {
		t.Fatalf("expected 4 passed slots, got %d", passed)
	}
	if available != 4 || view.AvailableSlots != 4 {
		t.Fatalf("expected 4 available, got %d (counter %d)", available, view.AvailableSlots)
	}
}

func TestOverlay_SlotStartingNowIsNotPassed(t *testing.T) {
	day, slots := morningGrid(t)
	now := day.Add(10 * time.Hour)

	view := Overlay(slots, nil, now)
	if view.Slots[0].Status != SlotAvailable {
		t.Fatalf("slot starting exactly now should be available, got %q", view.Slots[0].Status)
	}
	if view.AvailableSlots != 8 {
		t.Fatalf("expected 8 available, got %d", view.AvailableSlots)
	}
}

func TestOverlay_PeriodCountersConserved(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	ranges := []model.TemplateRange{
		{StartMinute: 600, EndMinute: 660, Period: model.PeriodMorning},
		{StartMinute: 840, EndMinute: 900, Period: model.PeriodAfternoon},
		{StartMinute: 1080, EndMinute: 1140, Period: model.PeriodEvening},
	}
	slots := Generate(day, time.UTC, ranges, 30)
	booked := []time.Time{day.Add(14 * time.Hour)}

	view := Overlay(slots, booked, day)
	sum := view.AvailableMorning + view.AvailableAfternoon + view.AvailableEvening
	if sum != view.AvailableSlots {
		t.Fatalf("period counters (%d) do not sum to total (%d)", sum, view.AvailableSlots)
	}
	if view.AvailableAfternoon != 1 {
		t.Fatalf("expected 1 available afternoon slot, got %d", view.AvailableAfternoon)
	}
}

func TestOverlay_BookedWithSeconds(t *testing.T) {
	day, slots := morningGrid(t)
	// Booked instants compare at minute granularity.
	booked := []time.Time{day.Add(10*time.Hour + 15*time.Minute + 42*time.Second)}

	view := Overlay(slots, booked, day)
	if view.Slots[1].Status != SlotTaken {
		t.Fatalf("expected 10:15 taken, got %q", view.Slots[1].Status)
	}
}
