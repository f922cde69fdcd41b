package projection

import (
	"errors"
	"testing"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

// mondayTemplate has a single 10:00-12:00 block on Mondays, 15-minute slots,
// so each Monday carries 8 slots and every other day carries none.
func mondayTemplate() *model.WeeklyTemplate {
	var t model.WeeklyTemplate
	t.SlotMinutes = 15
	t.Days[time.Monday] = []model.TemplateRange{
		{StartMinute: 600, EndMinute: 720, Period: model.PeriodMorning},
	}
	return &t
}

func noBookings(_, _ time.Time) (int, error) { return 0, nil }

func TestProject_FourteenDays(t *testing.T) {
	// Sunday noon; the window covers two Mondays.
	now := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	firstMonday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	days, err := Project(mondayTemplate(), time.UTC, now, func(dayStart, _ time.Time) (int, error) {
		if dayStart.Equal(firstMonday) {
			return 3, nil
		}
		return 0, nil
	})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if len(days) != Days {
		t.Fatalf("expected %d days, got %d", Days, len(days))
	}
	if !days[0].Date.Equal(time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day zero should be today, got %s", days[0].Date.Format("2006-01-02"))
	}
	for i, d := range days {
		want := 0
		switch i {
		case 1:
			want = 5 // 8 slots minus 3 booked
		case 8:
			want = 8
		}
		if d.Remaining != want {
			t.Fatalf("day %d (%s): expected %d remaining, got %d", i, d.Date.Format("2006-01-02"), want, d.Remaining)
		}
	}
}

func TestProject_DayZeroPassedSlots(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before the block", time.Date(2026, 9, 7, 8, 0, 0, 0, time.UTC), 8},
		{"mid-slot", time.Date(2026, 9, 7, 10, 31, 0, 0, time.UTC), 5},
		{"exact slot boundary", time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC), 6},
		{"seconds past a boundary", time.Date(2026, 9, 7, 10, 30, 5, 0, time.UTC), 5},
		{"after the block", time.Date(2026, 9, 7, 13, 0, 0, 0, time.UTC), 0},
	}
	for _, tc := range tests {
		days, err := Project(mondayTemplate(), time.UTC, tc.now, noBookings)
		if err != nil {
			t.Fatalf("%s: Project failed: %v", tc.name, err)
		}
		if days[0].Remaining != tc.want {
			t.Fatalf("%s: expected %d remaining on day zero, got %d", tc.name, tc.want, days[0].Remaining)
		}
	}
}

func TestProject_NeverNegative(t *testing.T) {
	now := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	days, err := Project(mondayTemplate(), time.UTC, now, func(_, _ time.Time) (int, error) {
		return 100, nil
	})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	for i, d := range days {
		if d.Remaining < 0 {
			t.Fatalf("day %d went negative: %d", i, d.Remaining)
		}
	}
}

func TestProject_CountErrorPropagates(t *testing.T) {
	now := time.Date(2026, 9, 6, 12, 0, 0, 0, time.UTC)
	boom := errors.New("db down")
	_, err := Project(mondayTemplate(), time.UTC, now, func(_, _ time.Time) (int, error) {
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected count error to propagate, got %v", err)
	}
}
