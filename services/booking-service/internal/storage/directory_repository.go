package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/medibook-health/medibook/libs/db"
	"github.com/medibook-health/medibook/services/booking-service/internal/directory"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

// DirectoryRepository is the Postgres-backed read side of the provider and
// patient directories. The rows themselves are administered by profile and
// master-data flows outside this service.
type DirectoryRepository struct {
	pool *db.Pool
}

func NewDirectoryRepository(pool *db.Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

var _ directory.Providers = (*DirectoryRepository)(nil)
var _ directory.Patients = (*DirectoryRepository)(nil)

func (r *DirectoryRepository) GetProvider(ctx context.Context, doctorID, establishmentID string) (model.Provider, error) {
	var p model.Provider
	err := r.pool.QueryRow(ctx, `
		SELECT d.id::text, e.id::text, d.full_name, e.name, e.timezone,
			COALESCE(de.fees::text, ''),
			(d.is_active AND e.is_active), d.is_verified
		FROM doctor_establishments de
		JOIN doctors d ON d.id = de.doctor_id
		JOIN establishments e ON e.id = de.establishment_id
		WHERE de.doctor_id = $1 AND de.establishment_id = $2
	`, doctorID, establishmentID).Scan(
		&p.DoctorID,
		&p.EstablishmentID,
		&p.DoctorName,
		&p.Establishment,
		&p.Timezone,
		&p.Fees,
		&p.IsActive,
		&p.IsVerified,
	)
	if err == pgx.ErrNoRows {
		return model.Provider{}, directory.ErrNotFound
	}
	if err != nil {
		return model.Provider{}, err
	}
	return p, nil
}

func (r *DirectoryRepository) GetPatient(ctx context.Context, patientID string) (model.Patient, error) {
	var p model.Patient
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, full_name, COALESCE(phone, ''), COALESCE(email, '')
		FROM patients
		WHERE id = $1
	`, patientID).Scan(&p.ID, &p.FullName, &p.Phone, &p.Email)
	if err == pgx.ErrNoRows {
		return model.Patient{}, directory.ErrNotFound
	}
	if err != nil {
		return model.Patient{}, err
	}
	return p, nil
}

func (r *DirectoryRepository) GetWeeklyTemplate(ctx context.Context, doctorID, establishmentID string) (model.WeeklyTemplate, error) {
	var templateID string
	tmpl := model.WeeklyTemplate{DoctorID: doctorID, EstablishmentID: establishmentID}
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, slot_minutes
		FROM availability_templates
		WHERE doctor_id = $1 AND establishment_id = $2 AND deleted_at IS NULL
	`, doctorID, establishmentID).Scan(&templateID, &tmpl.SlotMinutes)
	if err == pgx.ErrNoRows {
		return model.WeeklyTemplate{}, directory.ErrNotFound
	}
	if err != nil {
		return model.WeeklyTemplate{}, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute, period
		FROM availability_ranges
		WHERE template_id = $1
		ORDER BY weekday ASC, start_minute ASC
	`, templateID)
	if err != nil {
		return model.WeeklyTemplate{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var weekday int
		var rng model.TemplateRange
		if err := rows.Scan(&weekday, &rng.StartMinute, &rng.EndMinute, &rng.Period); err != nil {
			return model.WeeklyTemplate{}, err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		tmpl.Days[weekday] = append(tmpl.Days[weekday], rng)
	}
	if rows.Err() != nil {
		return model.WeeklyTemplate{}, rows.Err()
	}
	return tmpl, nil
}
