// Package inbox deduplicates consumed events. Kafka delivery is
// at-least-once; the unique event_id insert makes processing effectively
// once per event.
package inbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medibook-health/medibook/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record claims an event. It returns false when another consumer already
// processed the same event_id.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}
