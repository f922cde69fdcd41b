package booking

import (
	"errors"
	"testing"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

func TestCanCancel(t *testing.T) {
	if err := CanCancel(model.StatusBooked); err != nil {
		t.Fatalf("booked should be cancellable: %v", err)
	}
	for _, status := range []string{model.StatusCancelled, model.StatusRescheduled, model.StatusCompleted} {
		err := CanCancel(status)
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("cancel from %q should be ErrInvalidState, got %v", status, err)
		}
	}
}

func TestCanReschedule(t *testing.T) {
	if err := CanReschedule(model.StatusBooked); err != nil {
		t.Fatalf("booked should be reschedulable: %v", err)
	}
	for _, status := range []string{model.StatusCancelled, model.StatusRescheduled, model.StatusCompleted} {
		err := CanReschedule(status)
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("reschedule from %q should be ErrInvalidState, got %v", status, err)
		}
	}
}

func TestCanComplete(t *testing.T) {
	// Cancelled and rescheduled rows may still be closed out after the fact.
	for _, status := range []string{model.StatusBooked, model.StatusCancelled, model.StatusRescheduled} {
		if err := CanComplete(status); err != nil {
			t.Fatalf("complete from %q should be allowed: %v", status, err)
		}
	}
	if err := CanComplete(model.StatusCompleted); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double completion should be ErrInvalidState, got %v", err)
	}
}

func TestActiveStatuses(t *testing.T) {
	active := model.ActiveStatuses()
	if len(active) != 2 {
		t.Fatalf("expected 2 active statuses, got %v", active)
	}
	for _, status := range active {
		if status == model.StatusCancelled || status == model.StatusRescheduled {
			t.Fatalf("%q must not occupy a slot", status)
		}
	}
}
