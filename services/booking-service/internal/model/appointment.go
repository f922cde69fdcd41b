package model

import "time"

// Appointment statuses. An appointment leaves "booked" exactly once; the
// other three states are terminal for the row.
const (
	StatusBooked      = "booked"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
	StatusCompleted   = "completed"
)

// ActiveStatuses are the statuses that occupy a slot. Cancelled and
// rescheduled-away rows never block a grid slot or count against capacity;
// repository queries filter on this list.
func ActiveStatuses() []string {
	return []string{StatusBooked, StatusCompleted}
}

const (
	ConsultationVideo    = "video"
	ConsultationInClinic = "in_clinic"
)

type Appointment struct {
	ID               string
	DoctorID         string
	EstablishmentID  string
	PatientID        string
	StartTime        time.Time // always UTC in the store
	Status           string
	ConsultationType string
	Reason           string
	Notes            string
	Fees             string
	CancelledAt      *time.Time
	CancelReason     string
	CancelledBy      string
	PreviousID       string // lineage: the appointment this one replaced on reschedule
	CreatedAt        time.Time
}
