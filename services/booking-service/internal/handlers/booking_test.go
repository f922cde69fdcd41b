package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/booking"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
	"github.com/medibook-health/medibook/services/booking-service/internal/projection"
	"github.com/medibook-health/medibook/services/booking-service/internal/storage"
)

type fakeService struct {
	slotView   booking.SlotView
	days       []projection.DayProjection
	appt       model.Appointment
	appts      []model.Appointment
	err        error
	gotCreate  booking.CreateInput
	gotCancel  string
	gotNewTime time.Time
}

func (f *fakeService) SlotView(_ context.Context, _, _, _ string) (booking.SlotView, error) {
	return f.slotView, f.err
}

func (f *fakeService) TwoWeekProjection(_ context.Context, _, _ string) ([]projection.DayProjection, error) {
	return f.days, f.err
}

func (f *fakeService) Create(_ context.Context, in booking.CreateInput) (model.Appointment, error) {
	f.gotCreate = in
	return f.appt, f.err
}

func (f *fakeService) Cancel(_ context.Context, appointmentID, _, _ string) (model.Appointment, error) {
	f.gotCancel = appointmentID
	return f.appt, f.err
}

func (f *fakeService) Reschedule(_ context.Context, _ string, newStart time.Time) (model.Appointment, error) {
	f.gotNewTime = newStart
	return f.appt, f.err
}

func (f *fakeService) Complete(_ context.Context, _ string) (model.Appointment, error) {
	return f.appt, f.err
}

func (f *fakeService) List(_ context.Context, _ storage.ListFilter) ([]model.Appointment, error) {
	return f.appts, f.err
}

func (f *fakeService) UpsertTemplate(_ context.Context, _ *model.WeeklyTemplate) error {
	return f.err
}

func (f *fakeService) DeleteTemplate(_ context.Context, _, _ string) error {
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSlots_MissingParams(t *testing.T) {
	h := NewBookingHandler(&fakeService{}, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?doctor_id=doc-1", nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rw.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if body["error"] != "validation" {
		t.Fatalf("expected validation error code, got %q", body["error"])
	}
}

func TestSlots_OK(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)
	svc := &fakeService{slotView: booking.SlotView{
		Date:           start,
		AvailableSlots: 1,
	}}
	h := NewBookingHandler(svc, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?doctor_id=doc-1&establishment_id=est-1&date=2026-09-07", nil)
	rw := httptest.NewRecorder()
	h.Slots(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	var resp slotViewResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Date != "2026-09-07" || resp.AvailableSlots != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestAvailability_OK(t *testing.T) {
	svc := &fakeService{days: []projection.DayProjection{
		{Date: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), Remaining: 8},
	}}
	h := NewBookingHandler(svc, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/availability?doctor_id=doc-1&establishment_id=est-1", nil)
	rw := httptest.NewRecorder()
	h.Availability(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var resp []availabilityDayItem
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 || resp[0].AvailableSlots != 8 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBook_Created(t *testing.T) {
	svc := &fakeService{appt: model.Appointment{
		ID:        "appt-1",
		Status:    model.StatusBooked,
		StartTime: time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC),
	}}
	h := NewBookingHandler(svc, testLogger())

	body := `{"doctor_id":"doc-1","establishment_id":"est-1","patient_id":"pat-1","start_time":"2026-09-07T10:00:00Z","consultation_type":"in_clinic"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Book(rw, req)
	if rw.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rw.Code, rw.Body.String())
	}
	if svc.gotCreate.DoctorID != "doc-1" || svc.gotCreate.ConsultationType != "in_clinic" {
		t.Fatalf("unexpected create input: %+v", svc.gotCreate)
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.AppointmentID != "appt-1" || resp.Status != model.StatusBooked {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestBook_BadStartTime(t *testing.T) {
	h := NewBookingHandler(&fakeService{}, testLogger())
	body := `{"doctor_id":"doc-1","establishment_id":"est-1","patient_id":"pat-1","start_time":"tomorrow"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/public/book", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Book(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{booking.ErrValidation, http.StatusBadRequest},
		{booking.ErrNotFound, http.StatusNotFound},
		{booking.ErrProviderInactive, http.StatusForbidden},
		{booking.ErrSlotConflict, http.StatusConflict},
		{booking.ErrInvalidState, http.StatusConflict},
	}
	for _, tc := range tests {
		h := NewBookingHandler(&fakeService{err: tc.err}, testLogger())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/cancel",
			strings.NewReader(`{"appointment_id":"appt-1"}`))
		rw := httptest.NewRecorder()
		h.Cancel(rw, req)
		if rw.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rw.Code)
		}
	}
}

func TestReschedule_OK(t *testing.T) {
	svc := &fakeService{appt: model.Appointment{
		ID:         "appt-2",
		PreviousID: "appt-1",
		Status:     model.StatusBooked,
		StartTime:  time.Date(2026, 9, 8, 11, 0, 0, 0, time.UTC),
	}}
	h := NewBookingHandler(svc, testLogger())

	body := `{"appointment_id":"appt-1","start_time":"2026-09-08T11:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/reschedule", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Reschedule(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	var resp appointmentResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.PreviousID != "appt-1" {
		t.Fatalf("response should carry the predecessor id, got %+v", resp)
	}
	if !svc.gotNewTime.Equal(time.Date(2026, 9, 8, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected new start: %s", svc.gotNewTime)
	}
}

func TestList_RequiresFilter(t *testing.T) {
	h := NewBookingHandler(&fakeService{}, testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rw := httptest.NewRecorder()
	h.List(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestUpsertTemplate_UnknownWeekday(t *testing.T) {
	h := NewBookingHandler(&fakeService{}, testLogger())
	body := `{"doctor_id":"doc-1","establishment_id":"est-1","slot_minutes":15,"days":{"caturday":[]}}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/providers/templates", strings.NewReader(body))
	rw := httptest.NewRecorder()
	h.Templates(rw, req)
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestTemplates_Delete(t *testing.T) {
	h := NewBookingHandler(&fakeService{}, testLogger())
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/providers/templates?doctor_id=doc-1&establishment_id=est-1", nil)
	rw := httptest.NewRecorder()
	h.Templates(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewBookingHandler(&fakeService{}, testLogger())
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/public/book", nil)
	rw := httptest.NewRecorder()
	h.Book(rw, req)
	if rw.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rw.Code)
	}
}
