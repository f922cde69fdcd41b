package model

// Provider is a doctor practicing at an establishment, the unit availability
// is computed against. Timezone is the establishment's IANA zone; slot
// instants are stored UTC and only formatted in this zone.
type Provider struct {
	DoctorID        string
	EstablishmentID string
	DoctorName      string
	Establishment   string
	Timezone        string
	Fees            string
	IsActive        bool
	IsVerified      bool
}

type Patient struct {
	ID       string
	FullName string
	Phone    string
	Email    string
}
