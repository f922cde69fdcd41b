package slotgrid

import (
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

const (
	SlotAvailable = "available"
	SlotTaken     = "taken"
	SlotPassed    = "passed"
)

// ViewSlot is one entry of the reconciled slot view.
type ViewSlot struct {
	Start  time.Time
	Status string
	Period string
}

// View is the fully reconciled availability for one provider and date.
// Counters are plain return values recomputed per call; nothing here is
// shared between requests.
type View struct {
	Slots              []ViewSlot
	AvailableSlots     int
	AvailableMorning   int
	AvailableAfternoon int
	AvailableEvening   int
}

// Overlay reconciles generated slots against booked appointment instants and
// the wall clock. A slot whose start matches a booked instant (minute
// granularity) is taken; a slot whose start is before now is passed and
// excluded from every availability counter, booked or not. Passed slots are
// still returned so clients can render the full day.
func Overlay(slots []Slot, booked []time.Time, now time.Time) View {
	taken := make(map[int64]struct{}, len(booked))
	for _, b := range booked {
		taken[b.Truncate(time.Minute).Unix()] = struct{}{}
	}

	var view View
	view.Slots = make([]ViewSlot, 0, len(slots))
	for _, s := range slots {
		entry := ViewSlot{Start: s.Start, Period: s.Period}
		switch {
		case s.Start.Before(now):
			entry.Status = SlotPassed
		case hasKey(taken, s.Start):
			entry.Status = SlotTaken
		default:
			entry.Status = SlotAvailable
			view.AvailableSlots++
			switch s.Period {
			case model.PeriodMorning:
				view.AvailableMorning++
			case model.PeriodAfternoon:
				view.AvailableAfternoon++
			case model.PeriodEvening:
				view.AvailableEvening++
			}
		}
		view.Slots = append(view.Slots, entry)
	}
	return view
}

func hasKey(set map[int64]struct{}, t time.Time) bool {
	_, ok := set[t.Truncate(time.Minute).Unix()]
	return ok
}
