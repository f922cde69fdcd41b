package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medibook-health/medibook/libs/db"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

// ErrNoTemplate is returned when deleting a template that does not exist.
var ErrNoTemplate = errors.New("no active template")

// TemplateRepository is the write side of weekly availability templates,
// driven by the provider-profile authoring API.
type TemplateRepository struct {
	pool *db.Pool
}

func NewTemplateRepository(pool *db.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

// Upsert replaces the provider's template atomically: the template row is
// created or revived, then its ranges are rewritten. Readers either see the
// old template or the new one, never a mix.
func (r *TemplateRepository) Upsert(ctx context.Context, t *model.WeeklyTemplate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var templateID string
	err = tx.QueryRow(ctx, `
		INSERT INTO availability_templates (id, doctor_id, establishment_id, slot_minutes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, establishment_id) DO UPDATE
		SET slot_minutes = EXCLUDED.slot_minutes,
			deleted_at = NULL,
			updated_at = now()
		RETURNING id::text
	`, uuid.NewString(), t.DoctorID, t.EstablishmentID, t.SlotMinutes).Scan(&templateID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_ranges WHERE template_id = $1`, templateID); err != nil {
		return err
	}
	for weekday := range t.Days {
		for _, rng := range t.Days[weekday] {
			if _, err := tx.Exec(ctx, `
				INSERT INTO availability_ranges (template_id, weekday, start_minute, end_minute, period)
				VALUES ($1, $2, $3, $4, $5)
			`, templateID, weekday, rng.StartMinute, rng.EndMinute, rng.Period); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// Delete soft-deletes the template; resolvers treat it as absent afterwards.
func (r *TemplateRepository) Delete(ctx context.Context, doctorID, establishmentID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE availability_templates
		SET deleted_at = now()
		WHERE doctor_id = $1 AND establishment_id = $2 AND deleted_at IS NULL
	`, doctorID, establishmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoTemplate
	}
	return nil
}
