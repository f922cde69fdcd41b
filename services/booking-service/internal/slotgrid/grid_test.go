package slotgrid

import (
	"testing"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

func TestGenerate_MorningBlock(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
	ranges := []model.TemplateRange{
		{StartMinute: 600, EndMinute: 720, Period: model.PeriodMorning}, // 10:00-12:00
	}

	slots := Generate(day, loc, ranges, 15)
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	if !slots[0].Start.Equal(day.Add(10 * time.Hour)) {
		t.Fatalf("expected first slot 10:00, got %s", slots[0].Start.Format(time.RFC3339))
	}
	last := slots[len(slots)-1]
	if !last.Start.Equal(day.Add(11*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected last slot 11:45, got %s", last.Start.Format(time.RFC3339))
	}
	for _, s := range slots {
		if s.Period != model.PeriodMorning {
			t.Fatalf("expected morning period, got %q", s.Period)
		}
	}
}

func TestGenerate_OverlapDedup(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	ranges := []model.TemplateRange{
		{StartMinute: 600, EndMinute: 660, Period: model.PeriodMorning},
		{StartMinute: 630, EndMinute: 690, Period: model.PeriodAfternoon},
	}

	// 10:00, 10:30 from the first range, 11:00 only from the second.
	slots := Generate(day, time.UTC, ranges, 30)
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if slots[1].Period != model.PeriodMorning {
		t.Fatalf("first range's period should win at 10:30, got %q", slots[1].Period)
	}
	if slots[2].Period != model.PeriodAfternoon {
		t.Fatalf("expected afternoon at 11:00, got %q", slots[2].Period)
	}
}

func TestGenerate_MalformedRangeSkipped(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	ranges := []model.TemplateRange{
		{StartMinute: 720, EndMinute: 600, Period: model.PeriodMorning},
		{StartMinute: 540, EndMinute: 570, Period: model.PeriodMorning},
	}

	slots := Generate(day, time.UTC, ranges, 15)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots from valid range only, got %d", len(slots))
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	ranges := []model.TemplateRange{{StartMinute: 600, EndMinute: 660, Period: model.PeriodMorning}}
	if got := Generate(day, time.UTC, ranges, 0); got != nil {
		t.Fatalf("expected nil for zero slot size, got %v", got)
	}
	if got := Generate(day, nil, ranges, 15); got != nil {
		t.Fatalf("expected nil for nil location, got %v", got)
	}
}

func TestRangeSlotCount(t *testing.T) {
	tests := []struct {
		name string
		rng  model.TemplateRange
		slot int
		want int
	}{
		{"two hours of quarter slots", model.TemplateRange{StartMinute: 600, EndMinute: 720}, 15, 8},
		{"partial trailing slot dropped", model.TemplateRange{StartMinute: 600, EndMinute: 690}, 60, 1},
		{"empty range", model.TemplateRange{StartMinute: 600, EndMinute: 600}, 15, 0},
		{"inverted range", model.TemplateRange{StartMinute: 700, EndMinute: 600}, 15, 0},
	}
	for _, tc := range tests {
		if got := RangeSlotCount(tc.rng, tc.slot); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}
