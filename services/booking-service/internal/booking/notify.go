package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medibook-health/medibook/services/booking-service/internal/model"
	"github.com/medibook-health/medibook/services/booking-service/internal/outbox"
)

// AppointmentEvent is the payload carried on every lifecycle topic. Times
// are sent both as RFC 3339 UTC instants and pre-formatted strings in the
// establishment's zone, so downstream renderers never re-derive zones.
type AppointmentEvent struct {
	AppointmentID    string `json:"appointmentId"`
	PreviousID       string `json:"previousAppointmentId,omitempty"`
	DoctorID         string `json:"doctorId"`
	DoctorName       string `json:"doctorName,omitempty"`
	EstablishmentID  string `json:"establishmentId"`
	Establishment    string `json:"establishmentName,omitempty"`
	PatientID        string `json:"patientId"`
	PatientName      string `json:"patientName,omitempty"`
	PatientPhone     string `json:"patientPhone,omitempty"`
	PatientEmail     string `json:"patientEmail,omitempty"`
	StartTime        string `json:"startTime"`
	LocalDate        string `json:"localDate"`
	LocalTime        string `json:"localTime"`
	Timezone         string `json:"timezone"`
	ConsultationType string `json:"consultationType"`
	Fees             string `json:"fees,omitempty"`
	CancelReason     string `json:"cancelReason,omitempty"`
	CancelledBy      string `json:"cancelledBy,omitempty"`
	OldStartTime     string `json:"oldStartTime,omitempty"`
	OldLocalDate     string `json:"oldLocalDate,omitempty"`
	OldLocalTime     string `json:"oldLocalTime,omitempty"`
}

// EventSink receives emitted lifecycle events. In production it is the
// outbox repository; tests substitute an in-memory sink.
type EventSink interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// Emitter writes lifecycle events into the outbox inside the caller's
// transaction. A failed write is logged and swallowed: notification loss is
// acceptable, a blocked state transition is not.
type Emitter struct {
	outbox EventSink
	logger *slog.Logger
}

func NewEmitter(ob EventSink, logger *slog.Logger) *Emitter {
	return &Emitter{outbox: ob, logger: logger}
}

func (e *Emitter) Booked(ctx context.Context, tx pgx.Tx, appt model.Appointment, provider model.Provider, patient model.Patient) {
	e.emit(ctx, tx, outbox.TopicBooked, appt.ID, buildEvent(appt, provider, patient))
}

func (e *Emitter) Cancelled(ctx context.Context, tx pgx.Tx, appt model.Appointment, provider model.Provider, patient model.Patient) {
	evt := buildEvent(appt, provider, patient)
	evt.CancelReason = appt.CancelReason
	evt.CancelledBy = appt.CancelledBy
	e.emit(ctx, tx, outbox.TopicCancelled, appt.ID, evt)
}

func (e *Emitter) Rescheduled(ctx context.Context, tx pgx.Tx, old, replacement model.Appointment, provider model.Provider, patient model.Patient) {
	evt := buildEvent(replacement, provider, patient)
	loc := displayLocation(provider)
	oldLocal := old.StartTime.In(loc)
	evt.OldStartTime = old.StartTime.Format(time.RFC3339)
	evt.OldLocalDate = oldLocal.Format("Monday, 2 January 2006")
	evt.OldLocalTime = oldLocal.Format("3:04 PM")
	e.emit(ctx, tx, outbox.TopicRescheduled, replacement.ID, evt)
}

func (e *Emitter) Completed(ctx context.Context, tx pgx.Tx, appt model.Appointment, provider model.Provider, patient model.Patient) {
	e.emit(ctx, tx, outbox.TopicCompleted, appt.ID, buildEvent(appt, provider, patient))
}

func (e *Emitter) emit(ctx context.Context, tx pgx.Tx, topic, appointmentID string, evt AppointmentEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		e.logger.Error("marshal appointment event", "err", err, "topic", topic, "appointment_id", appointmentID)
		return
	}
	err = e.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appointmentID,
		EventType:     topic,
		Payload:       payload,
	})
	if err != nil {
		e.logger.Error("enqueue appointment event", "err", err, "topic", topic, "appointment_id", appointmentID)
	}
}

func buildEvent(appt model.Appointment, provider model.Provider, patient model.Patient) AppointmentEvent {
	loc := displayLocation(provider)
	local := appt.StartTime.In(loc)
	return AppointmentEvent{
		AppointmentID:    appt.ID,
		PreviousID:       appt.PreviousID,
		DoctorID:         appt.DoctorID,
		DoctorName:       provider.DoctorName,
		EstablishmentID:  appt.EstablishmentID,
		Establishment:    provider.Establishment,
		PatientID:        appt.PatientID,
		PatientName:      patient.FullName,
		PatientPhone:     patient.Phone,
		PatientEmail:     patient.Email,
		StartTime:        appt.StartTime.Format(time.RFC3339),
		LocalDate:        local.Format("Monday, 2 January 2006"),
		LocalTime:        local.Format("3:04 PM"),
		Timezone:         loc.String(),
		ConsultationType: appt.ConsultationType,
		Fees:             appt.Fees,
	}
}

func displayLocation(provider model.Provider) *time.Location {
	zone := provider.Timezone
	if zone == "" {
		zone = DefaultDisplayZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC
	}
	return loc
}
