package slotgrid

import (
	"sort"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

// Slot is one candidate bookable unit on a concrete date.
type Slot struct {
	Start  time.Time
	Period string
}

// Generate expands one day's ranges into candidate slot starts for the given
// calendar date in loc. Starts run from each range's start (inclusive) up to
// its end (exclusive) in slotMinutes steps.
//
// Malformed ranges (end <= start) produce no slots but do not fail the day.
// Overlapping ranges are tolerated: a start instant is emitted once, with the
// first range's period label winning.
func Generate(date time.Time, loc *time.Location, ranges []model.TemplateRange, slotMinutes int) []Slot {
	if slotMinutes <= 0 || loc == nil {
		return nil
	}

	midnight := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	step := time.Duration(slotMinutes) * time.Minute

	var slots []Slot
	seen := make(map[int64]struct{})
	for _, rng := range ranges {
		if rng.EndMinute <= rng.StartMinute {
			continue
		}
		start := midnight.Add(time.Duration(rng.StartMinute) * time.Minute)
		end := midnight.Add(time.Duration(rng.EndMinute) * time.Minute)
		for t := start; t.Before(end); t = t.Add(step) {
			key := t.Unix()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			slots = append(slots, Slot{Start: t, Period: rng.Period})
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}

// RangeSlotCount returns how many whole slots fit in a range, the figure the
// two-week projection sums per weekday.
func RangeSlotCount(rng model.TemplateRange, slotMinutes int) int {
	if slotMinutes <= 0 || rng.EndMinute <= rng.StartMinute {
		return 0
	}
	return (rng.EndMinute - rng.StartMinute) / slotMinutes
}
