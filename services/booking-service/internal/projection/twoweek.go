// Package projection computes the two-week remaining-capacity summary.
//
// This is a deliberate approximation: it counts whole slots per configured
// range and subtracts booked appointments without checking that the booked
// instants align to slot boundaries. It exists because running the full slot
// overlay for fourteen days costs fourteen grid reconciliations, while this
// needs one count query per day.
package projection

import (
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
	"github.com/medibook-health/medibook/services/booking-service/internal/slotgrid"
)

const Days = 14

// DayProjection is remaining capacity for one calendar date.
type DayProjection struct {
	Date      time.Time // midnight in the provider zone
	Remaining int
}

// Project computes remaining capacity for the next Days calendar days.
// bookedCount reports non-cancelled, non-rescheduled appointments per day
// offset. Day zero is today in loc; slots already past on day zero are not
// counted as remaining. Remaining never goes below zero.
func Project(t *model.WeeklyTemplate, loc *time.Location, now time.Time, bookedCount func(dayStart, dayEnd time.Time) (int, error)) ([]DayProjection, error) {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	out := make([]DayProjection, 0, Days)
	for i := 0; i < Days; i++ {
		dayStart := today.AddDate(0, 0, i)
		dayEnd := dayStart.AddDate(0, 0, 1)

		total := 0
		for _, rng := range t.RangesFor(dayStart.Weekday()) {
			count := slotgrid.RangeSlotCount(rng, t.SlotMinutes)
			if i == 0 {
				count -= passedSlots(rng, t.SlotMinutes, count, local)
			}
			if count > 0 {
				total += count
			}
		}

		if total > 0 {
			booked, err := bookedCount(dayStart, dayEnd)
			if err != nil {
				return nil, err
			}
			total -= booked
		}
		if total < 0 {
			total = 0
		}
		out = append(out, DayProjection{Date: dayStart, Remaining: total})
	}
	return out, nil
}

// passedSlots counts slot starts in the range that are strictly before now
// (local wall clock on day zero), capped at the range's slot count.
func passedSlots(rng model.TemplateRange, slotMinutes, rangeCount int, local time.Time) int {
	nowMinute := local.Hour()*60 + local.Minute()
	if nowMinute < rng.StartMinute {
		return 0
	}
	passed := (nowMinute-rng.StartMinute+slotMinutes-1)/slotMinutes
	if local.Second() > 0 || local.Nanosecond() > 0 {
		// A slot starting exactly this minute has already begun.
		if (nowMinute-rng.StartMinute)%slotMinutes == 0 {
			passed++
		}
	}
	if passed > rangeCount {
		passed = rangeCount
	}
	return passed
}
