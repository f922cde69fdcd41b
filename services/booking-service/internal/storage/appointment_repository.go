package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medibook-health/medibook/libs/db"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

const appointmentColumns = `
	id::text, doctor_id::text, establishment_id::text, patient_id::text,
	start_time, status, consultation_type,
	COALESCE(reason, ''), COALESCE(notes, ''), COALESCE(fees::text, ''),
	cancelled_at, COALESCE(cancel_reason, ''), COALESCE(cancelled_by, ''),
	COALESCE(previous_appointment_id::text, ''), created_at`

type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Insert creates a booked row. The partial unique index on
// (doctor_id, establishment_id, start_time) WHERE status = 'booked' is the
// conflict guard: of two concurrent inserts for the same instant exactly one
// commits, the other fails with a unique violation (see IsConflict).
func (r *AppointmentRepository) Insert(ctx context.Context, tx pgx.Tx, appt *model.Appointment) error {
	var prev any
	if appt.PreviousID != "" {
		prev = appt.PreviousID
	}
	return tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, doctor_id, establishment_id, patient_id, start_time, status,
			 consultation_type, reason, notes, fees, previous_appointment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11)
		RETURNING created_at
	`, appt.ID, appt.DoctorID, appt.EstablishmentID, appt.PatientID, appt.StartTime, appt.Status,
		appt.ConsultationType, appt.Reason, appt.Notes, nullIfEmpty(appt.Fees), prev).Scan(&appt.CreatedAt)
}

// GetForUpdate locks the row for the span of the transaction so the status
// check and the transition update cannot interleave with another writer.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID)
	return scanAppointment(row)
}

func (r *AppointmentRepository) MarkCancelled(ctx context.Context, tx pgx.Tx, appointmentID, reason, cancelledBy string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
			cancelled_at = now(),
			cancel_reason = $3,
			cancelled_by = $4
		WHERE id = $1
		RETURNING cancelled_at
	`, appointmentID, model.StatusCancelled, reason, cancelledBy).Scan(&cancelledAt)
	return cancelledAt, err
}

func (r *AppointmentRepository) MarkRescheduled(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
	`, appointmentID, model.StatusRescheduled)
	return err
}

func (r *AppointmentRepository) MarkCompleted(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
	`, appointmentID, model.StatusCompleted)
	return err
}

// ListActiveStarts returns start instants of appointments that occupy slots
// in [from, to). Cancelled and rescheduled-away rows never occupy a slot.
func (r *AppointmentRepository) ListActiveStarts(ctx context.Context, doctorID, establishmentID string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_time
		FROM appointments
		WHERE doctor_id = $1
			AND establishment_id = $2
			AND status = ANY($3)
			AND start_time >= $4
			AND start_time < $5
		ORDER BY start_time ASC
	`, doctorID, establishmentID, model.ActiveStatuses(), from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starts []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		starts = append(starts, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return starts, nil
}

// CountActive backs the two-week projection: one aggregate per day instead
// of a slot-by-slot join.
func (r *AppointmentRepository) CountActive(ctx context.Context, doctorID, establishmentID string, from, to time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM appointments
		WHERE doctor_id = $1
			AND establishment_id = $2
			AND status = ANY($3)
			AND start_time >= $4
			AND start_time < $5
	`, doctorID, establishmentID, model.ActiveStatuses(), from, to).Scan(&n)
	return n, err
}

type ListFilter struct {
	PatientID       string
	DoctorID        string
	EstablishmentID string
	Limit           int
}

func (r *AppointmentRepository) List(ctx context.Context, f ListFilter) ([]model.Appointment, error) {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1 = '' OR patient_id::text = $1)
			AND ($2 = '' OR doctor_id::text = $2)
			AND ($3 = '' OR establishment_id::text = $3)
		ORDER BY start_time DESC
		LIMIT $4
	`, f.PatientID, f.DoctorID, f.EstablishmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := row.Scan(
		&appt.ID,
		&appt.DoctorID,
		&appt.EstablishmentID,
		&appt.PatientID,
		&appt.StartTime,
		&appt.Status,
		&appt.ConsultationType,
		&appt.Reason,
		&appt.Notes,
		&appt.Fees,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CancelledBy,
		&appt.PreviousID,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// IsConflict reports whether err is the booked-slot uniqueness guard firing
// (unique or exclusion violation).
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01")
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
