package model

import "time"

// Day periods. A period is authored on each range rather than inferred from
// range position, so a template with a single evening shift labels its slots
// correctly.
const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
)

// TemplateRange is one working-hour range on a weekday, expressed as local
// minutes of day in the provider's timezone. End is exclusive.
type TemplateRange struct {
	StartMinute int
	EndMinute   int
	Period      string
}

// WeeklyTemplate is the recurring weekly availability for one
// doctor+establishment pairing. Days is indexed by time.Weekday (Sunday=0);
// a weekday with no ranges is a day off.
type WeeklyTemplate struct {
	DoctorID        string
	EstablishmentID string
	SlotMinutes     int
	Days            [7][]TemplateRange
}

// RangesFor returns the ranges configured for the given weekday, ordered by
// start minute. Missing days normalize to an empty slice.
func (t *WeeklyTemplate) RangesFor(day time.Weekday) []TemplateRange {
	return t.Days[int(day)]
}
