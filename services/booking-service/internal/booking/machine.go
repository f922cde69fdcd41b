package booking

import (
	"fmt"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

// Lifecycle rules for a single appointment row. Cancel and reschedule are
// only legal from booked; complete is refused only when the row is already
// completed. Nothing outside this package decides transitions.

func CanCancel(status string) error {
	if status != model.StatusBooked {
		return fmt.Errorf("%w: cannot cancel appointment with status %q", ErrInvalidState, status)
	}
	return nil
}

func CanReschedule(status string) error {
	if status != model.StatusBooked {
		return fmt.Errorf("%w: cannot reschedule appointment with status %q", ErrInvalidState, status)
	}
	return nil
}

func CanComplete(status string) error {
	if status == model.StatusCompleted {
		return fmt.Errorf("%w: appointment already completed", ErrInvalidState)
	}
	return nil
}
