package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/medibook-health/medibook/libs/httpx"
	"github.com/medibook-health/medibook/services/booking-service/internal/booking"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
	"github.com/medibook-health/medibook/services/booking-service/internal/projection"
	"github.com/medibook-health/medibook/services/booking-service/internal/storage"
)

// Service is the scheduling engine surface the HTTP layer depends on.
type Service interface {
	SlotView(ctx context.Context, doctorID, establishmentID, date string) (booking.SlotView, error)
	TwoWeekProjection(ctx context.Context, doctorID, establishmentID string) ([]projection.DayProjection, error)
	Create(ctx context.Context, in booking.CreateInput) (model.Appointment, error)
	Cancel(ctx context.Context, appointmentID, reason, cancelledBy string) (model.Appointment, error)
	Reschedule(ctx context.Context, appointmentID string, newStart time.Time) (model.Appointment, error)
	Complete(ctx context.Context, appointmentID string) (model.Appointment, error)
	List(ctx context.Context, f storage.ListFilter) ([]model.Appointment, error)
	UpsertTemplate(ctx context.Context, t *model.WeeklyTemplate) error
	DeleteTemplate(ctx context.Context, doctorID, establishmentID string) error
}

type BookingHandler struct {
	svc    Service
	logger *slog.Logger
}

func NewBookingHandler(svc Service, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	Period    string `json:"period"`
	Status    string `json:"status"`
}

type slotViewResponse struct {
	Date               string     `json:"date"`
	Slots              []slotItem `json:"slots"`
	AvailableSlots     int        `json:"available_slots"`
	AvailableMorning   int        `json:"available_morning"`
	AvailableAfternoon int        `json:"available_afternoon"`
	AvailableEvening   int        `json:"available_evening"`
}

type availabilityDayItem struct {
	Date           string `json:"date"`
	AvailableSlots int    `json:"available_slots"`
}

type bookRequest struct {
	DoctorID         string `json:"doctor_id"`
	EstablishmentID  string `json:"establishment_id"`
	PatientID        string `json:"patient_id"`
	StartTime        string `json:"start_time"`
	ConsultationType string `json:"consultation_type"`
	Reason           string `json:"reason"`
	Notes            string `json:"notes"`
}

type appointmentResponse struct {
	AppointmentID    string `json:"appointment_id"`
	PreviousID       string `json:"previous_appointment_id,omitempty"`
	DoctorID         string `json:"doctor_id"`
	EstablishmentID  string `json:"establishment_id"`
	PatientID        string `json:"patient_id"`
	StartTime        string `json:"start_time"`
	Status           string `json:"status"`
	ConsultationType string `json:"consultation_type"`
	Fees             string `json:"fees,omitempty"`
	CancelledAt      string `json:"cancelled_at,omitempty"`
	CancelReason     string `json:"cancel_reason,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
	CancelledBy   string `json:"cancelled_by"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
}

type completeRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type templateRangeItem struct {
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
	Period      string `json:"period"`
}

type templateRequest struct {
	DoctorID        string                         `json:"doctor_id"`
	EstablishmentID string                         `json:"establishment_id"`
	SlotMinutes     int                            `json:"slot_minutes"`
	Days            map[string][]templateRangeItem `json:"days"`
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Slots serves the full per-slot view for one provider and date.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	establishmentID := strings.TrimSpace(r.URL.Query().Get("establishment_id"))
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if doctorID == "" || establishmentID == "" || date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "doctor_id, establishment_id and date are required")
		return
	}

	view, err := h.svc.SlotView(r.Context(), doctorID, establishmentID, date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := slotViewResponse{
		Date:               view.Date.Format("2006-01-02"),
		Slots:              make([]slotItem, 0, len(view.Slots)),
		AvailableSlots:     view.AvailableSlots,
		AvailableMorning:   view.AvailableMorning,
		AvailableAfternoon: view.AvailableAfternoon,
		AvailableEvening:   view.AvailableEvening,
	}
	for _, s := range view.Slots {
		resp.Slots = append(resp.Slots, slotItem{
			StartTime: s.Start.Format(time.RFC3339),
			Period:    s.Period,
			Status:    s.Status,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Availability serves the fourteen-day remaining-capacity summary.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	establishmentID := strings.TrimSpace(r.URL.Query().Get("establishment_id"))
	if doctorID == "" || establishmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "doctor_id and establishment_id are required")
		return
	}

	days, err := h.svc.TwoWeekProjection(r.Context(), doctorID, establishmentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]availabilityDayItem, 0, len(days))
	for _, d := range days {
		items = append(items, availabilityDayItem{
			Date:           d.Date.Format("2006-01-02"),
			AvailableSlots: d.Remaining,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.EstablishmentID = strings.TrimSpace(req.EstablishmentID)
	req.PatientID = strings.TrimSpace(req.PatientID)
	if req.DoctorID == "" || req.EstablishmentID == "" || req.PatientID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "doctor_id, establishment_id and patient_id are required")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "start_time must be RFC 3339")
		return
	}

	appt, err := h.svc.Create(r.Context(), booking.CreateInput{
		DoctorID:         req.DoctorID,
		EstablishmentID:  req.EstablishmentID,
		PatientID:        req.PatientID,
		Start:            start,
		ConsultationType: strings.TrimSpace(req.ConsultationType),
		Reason:           strings.TrimSpace(req.Reason),
		Notes:            strings.TrimSpace(req.Notes),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "appointment_id is required")
		return
	}

	appt, err := h.svc.Cancel(r.Context(), req.AppointmentID, strings.TrimSpace(req.Reason), strings.TrimSpace(req.CancelledBy))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "appointment_id is required")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "start_time must be RFC 3339")
		return
	}

	appt, err := h.svc.Reschedule(r.Context(), req.AppointmentID, start)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "appointment_id is required")
		return
	}

	appt, err := h.svc.Complete(r.Context(), req.AppointmentID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	filter := storage.ListFilter{
		PatientID:       strings.TrimSpace(r.URL.Query().Get("patient_id")),
		DoctorID:        strings.TrimSpace(r.URL.Query().Get("doctor_id")),
		EstablishmentID: strings.TrimSpace(r.URL.Query().Get("establishment_id")),
		Limit:           50,
	}
	if filter.PatientID == "" && filter.DoctorID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "patient_id or doctor_id is required")
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			filter.Limit = n
		}
	}

	appts, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toAppointmentResponse(appt))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// Templates stores or removes a provider's weekly availability template.
// PUT upserts (days keyed by lowercase weekday name; absent days mean no
// availability), DELETE soft-deletes.
func (h *BookingHandler) Templates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
	case http.MethodDelete:
		doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
		establishmentID := strings.TrimSpace(r.URL.Query().Get("establishment_id"))
		if doctorID == "" || establishmentID == "" {
			httpx.WriteError(w, http.StatusBadRequest, "validation", "doctor_id and establishment_id are required")
			return
		}
		if err := h.svc.DeleteTemplate(r.Context(), doctorID, establishmentID); err != nil {
			h.writeServiceError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		return
	default:
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "invalid json body")
		return
	}
	req.DoctorID = strings.TrimSpace(req.DoctorID)
	req.EstablishmentID = strings.TrimSpace(req.EstablishmentID)
	if req.DoctorID == "" || req.EstablishmentID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "validation", "doctor_id and establishment_id are required")
		return
	}

	tmpl := model.WeeklyTemplate{
		DoctorID:        req.DoctorID,
		EstablishmentID: req.EstablishmentID,
		SlotMinutes:     req.SlotMinutes,
	}
	for name, ranges := range req.Days {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			httpx.WriteError(w, http.StatusBadRequest, "validation", "unknown weekday "+name)
			return
		}
		for _, rng := range ranges {
			tmpl.Days[day] = append(tmpl.Days[day], model.TemplateRange{
				StartMinute: rng.StartMinute,
				EndMinute:   rng.EndMinute,
				Period:      strings.TrimSpace(rng.Period),
			})
		}
	}

	if err := h.svc.UpsertTemplate(r.Context(), &tmpl); err != nil {
		h.writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID:    appt.ID,
		PreviousID:       appt.PreviousID,
		DoctorID:         appt.DoctorID,
		EstablishmentID:  appt.EstablishmentID,
		PatientID:        appt.PatientID,
		StartTime:        appt.StartTime.UTC().Format(time.RFC3339),
		Status:           appt.Status,
		ConsultationType: appt.ConsultationType,
		Fees:             appt.Fees,
		CancelReason:     appt.CancelReason,
	}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	if !appt.CreatedAt.IsZero() {
		resp.CreatedAt = appt.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *BookingHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, booking.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, booking.ErrProviderInactive):
		httpx.WriteError(w, http.StatusForbidden, "provider_inactive", "provider is not accepting appointments")
	case errors.Is(err, booking.ErrSlotConflict):
		httpx.WriteError(w, http.StatusConflict, "slot_conflict", "slot is already booked")
	case errors.Is(err, booking.ErrInvalidState):
		httpx.WriteError(w, http.StatusConflict, "invalid_state", err.Error())
	default:
		h.logger.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
