package storage

import (
	"context"

	"github.com/medibook-health/medibook/libs/db"
)

// Notification is one delivery attempt, recorded whether or not the send
// succeeded.
type Notification struct {
	AppointmentID string
	EventType     string
	Audience      string
	Channel       string
	Recipient     string
	Subject       string
	Body          string
	Status        string
	FailureReason string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (appointment_id, event_type, audience, channel, recipient, subject, body, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, n.AppointmentID, n.EventType, n.Audience, n.Channel, n.Recipient, n.Subject, n.Body, n.Status, n.FailureReason)
	return err
}
