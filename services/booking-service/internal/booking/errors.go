package booking

import "errors"

var (
	// ErrNotFound covers missing appointments, patients, providers and
	// soft-deleted templates.
	ErrNotFound = errors.New("not found")
	// ErrProviderInactive is kept distinct from ErrNotFound so the API can
	// tell callers the provider exists but is deactivated.
	ErrProviderInactive = errors.New("provider inactive")
	// ErrInvalidState signals a lifecycle transition not permitted from the
	// appointment's current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrSlotConflict signals the at-most-one-booked-slot guard tripped.
	ErrSlotConflict = errors.New("slot already booked")
	// ErrValidation covers malformed input (dates, enums, identifiers).
	ErrValidation = errors.New("validation failed")
)
