// Package directory defines the read-side interfaces the scheduling engine
// consumes. Provider and patient administration happen elsewhere; the engine
// only ever reads these records.
package directory

import (
	"context"
	"errors"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

// ErrNotFound is returned for missing or soft-deleted directory records.
var ErrNotFound = errors.New("directory: not found")

type Providers interface {
	// GetProvider resolves a doctor+establishment pairing.
	GetProvider(ctx context.Context, doctorID, establishmentID string) (model.Provider, error)
	// GetWeeklyTemplate returns the provider's recurring availability, or
	// ErrNotFound when no template exists or it has been soft-deleted.
	GetWeeklyTemplate(ctx context.Context, doctorID, establishmentID string) (model.WeeklyTemplate, error)
}

type Patients interface {
	GetPatient(ctx context.Context, patientID string) (model.Patient, error)
}
