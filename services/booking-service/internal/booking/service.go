package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medibook-health/medibook/services/booking-service/internal/directory"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
	"github.com/medibook-health/medibook/services/booking-service/internal/projection"
	"github.com/medibook-health/medibook/services/booking-service/internal/slotgrid"
	"github.com/medibook-health/medibook/services/booking-service/internal/storage"
	"github.com/medibook-health/medibook/services/booking-service/internal/template"
)

// DefaultDisplayZone is the presentation zone used when an establishment
// carries no timezone of its own.
const DefaultDisplayZone = "Asia/Kolkata"

// SlotView is the reconciled availability for one provider and date. Times
// are in the provider's zone; counters are recomputed on every call.
type SlotView struct {
	Date               time.Time
	Slots              []slotgrid.ViewSlot
	AvailableSlots     int
	AvailableMorning   int
	AvailableAfternoon int
	AvailableEvening   int
}

type CreateInput struct {
	DoctorID         string
	EstablishmentID  string
	PatientID        string
	Start            time.Time
	ConsultationType string
	Reason           string
	Notes            string
}

// AppointmentStore is the slice of the appointment repository the lifecycle
// needs. Fakes stand in for it in tests; storage.AppointmentRepository
// satisfies it in production.
type AppointmentStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Insert(ctx context.Context, tx pgx.Tx, appt *model.Appointment) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error)
	MarkCancelled(ctx context.Context, tx pgx.Tx, appointmentID, reason, cancelledBy string) (time.Time, error)
	MarkRescheduled(ctx context.Context, tx pgx.Tx, appointmentID string) error
	MarkCompleted(ctx context.Context, tx pgx.Tx, appointmentID string) error
	ListActiveStarts(ctx context.Context, doctorID, establishmentID string, from, to time.Time) ([]time.Time, error)
	CountActive(ctx context.Context, doctorID, establishmentID string, from, to time.Time) (int, error)
	List(ctx context.Context, f storage.ListFilter) ([]model.Appointment, error)
}

// TemplateStore persists authored weekly templates.
type TemplateStore interface {
	Upsert(ctx context.Context, t *model.WeeklyTemplate) error
	Delete(ctx context.Context, doctorID, establishmentID string) error
}

// TemplateResolver resolves providers and their effective weekly template.
type TemplateResolver interface {
	Resolve(ctx context.Context, doctorID, establishmentID string) (model.WeeklyTemplate, model.Provider, error)
	Provider(ctx context.Context, doctorID, establishmentID string) (model.Provider, error)
}

// Service owns the appointment lifecycle. It is the only code path that
// writes status or start_time on an appointment row.
type Service struct {
	repo      AppointmentStore
	templates TemplateStore
	resolver  TemplateResolver
	patients  directory.Patients
	emitter   *Emitter
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(
	repo AppointmentStore,
	templates TemplateStore,
	resolver TemplateResolver,
	patients directory.Patients,
	emitter *Emitter,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:      repo,
		templates: templates,
		resolver:  resolver,
		patients:  patients,
		emitter:   emitter,
		logger:    logger,
		now:       time.Now,
	}
}

// SlotView builds the exact per-slot availability for one date. The grid is
// regenerated and reconciled on every call so it always reflects the live
// appointment set; nothing is cached or materialized.
func (s *Service) SlotView(ctx context.Context, doctorID, establishmentID, date string) (SlotView, error) {
	tmpl, provider, err := s.resolveTemplate(ctx, doctorID, establishmentID)
	if err != nil {
		return SlotView{}, err
	}

	loc := s.location(provider)
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return SlotView{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	slots := slotgrid.Generate(day, loc, tmpl.RangesFor(day.Weekday()), tmpl.SlotMinutes)
	booked, err := s.repo.ListActiveStarts(ctx, doctorID, establishmentID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return SlotView{}, err
	}

	view := slotgrid.Overlay(slots, booked, s.now())
	return SlotView{
		Date:               day,
		Slots:              view.Slots,
		AvailableSlots:     view.AvailableSlots,
		AvailableMorning:   view.AvailableMorning,
		AvailableAfternoon: view.AvailableAfternoon,
		AvailableEvening:   view.AvailableEvening,
	}, nil
}

// TwoWeekProjection is the summary-calendar companion to SlotView: one
// remaining-capacity integer per day for the next fourteen days. It shares
// the template's slot duration with the full view and is a coarse estimate
// by design (see the projection package).
func (s *Service) TwoWeekProjection(ctx context.Context, doctorID, establishmentID string) ([]projection.DayProjection, error) {
	tmpl, provider, err := s.resolveTemplate(ctx, doctorID, establishmentID)
	if err != nil {
		return nil, err
	}

	loc := s.location(provider)
	return projection.Project(&tmpl, loc, s.now(), func(dayStart, dayEnd time.Time) (int, error) {
		return s.repo.CountActive(ctx, doctorID, establishmentID, dayStart, dayEnd)
	})
}

// Create books a slot. The conflict guard is the store's partial unique
// index, so two concurrent creates for the same instant cannot both commit.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Appointment, error) {
	if in.ConsultationType != model.ConsultationVideo && in.ConsultationType != model.ConsultationInClinic {
		return model.Appointment{}, fmt.Errorf("%w: consultation_type must be %q or %q",
			ErrValidation, model.ConsultationVideo, model.ConsultationInClinic)
	}
	if in.Start.IsZero() {
		return model.Appointment{}, fmt.Errorf("%w: start time is required", ErrValidation)
	}

	provider, err := s.provider(ctx, in.DoctorID, in.EstablishmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	patient, err := s.patients.GetPatient(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return model.Appointment{}, fmt.Errorf("%w: patient %s", ErrNotFound, in.PatientID)
		}
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		ID:               uuid.NewString(),
		DoctorID:         in.DoctorID,
		EstablishmentID:  in.EstablishmentID,
		PatientID:        in.PatientID,
		StartTime:        in.Start.UTC().Truncate(time.Minute),
		Status:           model.StatusBooked,
		ConsultationType: in.ConsultationType,
		Reason:           in.Reason,
		Notes:            in.Notes,
		Fees:             provider.Fees,
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.repo.Insert(ctx, tx, &appt); err != nil {
		if storage.IsConflict(err) {
			return model.Appointment{}, ErrSlotConflict
		}
		return model.Appointment{}, err
	}

	s.emitter.Booked(ctx, tx, appt, provider, patient)

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Cancel moves a booked appointment to cancelled and notifies the doctor
// and establishment. cancelledBy records which party cancelled.
func (s *Service) Cancel(ctx context.Context, appointmentID, reason, cancelledBy string) (model.Appointment, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.repo.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
		}
		return model.Appointment{}, err
	}
	if err := CanCancel(appt.Status); err != nil {
		return model.Appointment{}, err
	}

	cancelledAt, err := s.repo.MarkCancelled(ctx, tx, appt.ID, reason, cancelledBy)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCancelled
	appt.CancelledAt = &cancelledAt
	appt.CancelReason = reason
	appt.CancelledBy = cancelledBy

	provider, patient := s.lookupParties(ctx, appt)
	s.emitter.Cancelled(ctx, tx, appt, provider, patient)

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// Reschedule is the only code path that chains appointment rows. The old
// row moves to rescheduled, a new booked row copies its booking fields with
// the new instant and a previous_appointment_id pointing back. Both writes
// share one transaction; the unique index arbitrates the new instant.
func (s *Service) Reschedule(ctx context.Context, appointmentID string, newStart time.Time) (model.Appointment, error) {
	if newStart.IsZero() {
		return model.Appointment{}, fmt.Errorf("%w: new start time is required", ErrValidation)
	}

	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	old, err := s.repo.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
		}
		return model.Appointment{}, err
	}
	if err := CanReschedule(old.Status); err != nil {
		return model.Appointment{}, err
	}

	if err := s.repo.MarkRescheduled(ctx, tx, old.ID); err != nil {
		return model.Appointment{}, err
	}

	replacement := model.Appointment{
		ID:               uuid.NewString(),
		DoctorID:         old.DoctorID,
		EstablishmentID:  old.EstablishmentID,
		PatientID:        old.PatientID,
		StartTime:        newStart.UTC().Truncate(time.Minute),
		Status:           model.StatusBooked,
		ConsultationType: old.ConsultationType,
		Reason:           old.Reason,
		Notes:            old.Notes,
		Fees:             old.Fees,
		PreviousID:       old.ID,
	}
	if err := s.repo.Insert(ctx, tx, &replacement); err != nil {
		if storage.IsConflict(err) {
			return model.Appointment{}, ErrSlotConflict
		}
		return model.Appointment{}, err
	}

	provider, patient := s.lookupParties(ctx, replacement)
	s.emitter.Rescheduled(ctx, tx, old, replacement, provider, patient)

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return replacement, nil
}

// Complete marks the consultation done and prompts the patient for feedback.
func (s *Service) Complete(ctx context.Context, appointmentID string) (model.Appointment, error) {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := s.repo.GetForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
		}
		return model.Appointment{}, err
	}
	if err := CanComplete(appt.Status); err != nil {
		return model.Appointment{}, err
	}

	if err := s.repo.MarkCompleted(ctx, tx, appt.ID); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = model.StatusCompleted

	provider, patient := s.lookupParties(ctx, appt)
	s.emitter.Completed(ctx, tx, appt, provider, patient)

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, f storage.ListFilter) ([]model.Appointment, error) {
	return s.repo.List(ctx, f)
}

// UpsertTemplate validates and stores a provider's weekly template.
// Validation runs before normalization so authored mistakes are rejected
// rather than silently dropped.
func (s *Service) UpsertTemplate(ctx context.Context, t *model.WeeklyTemplate) error {
	if _, err := s.provider(ctx, t.DoctorID, t.EstablishmentID); err != nil {
		return err
	}
	if err := template.Validate(t); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, err)
	}
	template.Normalize(t)
	return s.templates.Upsert(ctx, t)
}

// DeleteTemplate soft-deletes a provider's template, taking them off the
// bookable grid without touching existing appointments.
func (s *Service) DeleteTemplate(ctx context.Context, doctorID, establishmentID string) error {
	if _, err := s.provider(ctx, doctorID, establishmentID); err != nil {
		return err
	}
	err := s.templates.Delete(ctx, doctorID, establishmentID)
	if errors.Is(err, storage.ErrNoTemplate) {
		return fmt.Errorf("%w: template", ErrNotFound)
	}
	return err
}

func (s *Service) resolveTemplate(ctx context.Context, doctorID, establishmentID string) (model.WeeklyTemplate, model.Provider, error) {
	tmpl, provider, err := s.resolver.Resolve(ctx, doctorID, establishmentID)
	switch {
	case errors.Is(err, template.ErrProviderInactive):
		return model.WeeklyTemplate{}, provider, ErrProviderInactive
	case errors.Is(err, template.ErrNotFound):
		return model.WeeklyTemplate{}, provider, fmt.Errorf("%w: provider or template", ErrNotFound)
	case err != nil:
		return model.WeeklyTemplate{}, provider, err
	}
	return tmpl, provider, nil
}

func (s *Service) provider(ctx context.Context, doctorID, establishmentID string) (model.Provider, error) {
	provider, err := s.resolver.Provider(ctx, doctorID, establishmentID)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		return model.Provider{}, fmt.Errorf("%w: provider %s at %s", ErrNotFound, doctorID, establishmentID)
	case err != nil:
		return model.Provider{}, err
	}
	if !provider.IsActive {
		return model.Provider{}, ErrProviderInactive
	}
	return provider, nil
}

// lookupParties loads notification addressees. Failures here degrade the
// message content, never the transition itself.
func (s *Service) lookupParties(ctx context.Context, appt model.Appointment) (model.Provider, model.Patient) {
	provider, err := s.resolver.Provider(ctx, appt.DoctorID, appt.EstablishmentID)
	if err != nil {
		s.logger.Warn("provider lookup for notification failed", "err", err, "doctor_id", appt.DoctorID)
	}
	patient, err := s.patients.GetPatient(ctx, appt.PatientID)
	if err != nil {
		s.logger.Warn("patient lookup for notification failed", "err", err, "patient_id", appt.PatientID)
	}
	return provider, patient
}

func (s *Service) location(provider model.Provider) *time.Location {
	zone := provider.Timezone
	if zone == "" {
		zone = DefaultDisplayZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		s.logger.Warn("invalid provider timezone, using default", "zone", zone)
		loc, err = time.LoadLocation(DefaultDisplayZone)
		if err != nil {
			return time.UTC
		}
	}
	return loc
}
