package template

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/directory"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

type fakeProviders struct {
	provider model.Provider
	template model.WeeklyTemplate
	err      error
	tmplErr  error
}

func (f *fakeProviders) GetProvider(_ context.Context, _, _ string) (model.Provider, error) {
	return f.provider, f.err
}

func (f *fakeProviders) GetWeeklyTemplate(_ context.Context, _, _ string) (model.WeeklyTemplate, error) {
	return f.template, f.tmplErr
}

func activeProvider() model.Provider {
	return model.Provider{
		DoctorID:        "doc-1",
		EstablishmentID: "est-1",
		IsActive:        true,
		IsVerified:      true,
	}
}

func TestResolve_HappyPath(t *testing.T) {
	var tmpl model.WeeklyTemplate
	tmpl.SlotMinutes = 15
	tmpl.Days[time.Monday] = []model.TemplateRange{
		{StartMinute: 840, EndMinute: 900, Period: model.PeriodAfternoon},
		{StartMinute: 600, EndMinute: 720, Period: model.PeriodMorning},
	}

	r := NewResolver(&fakeProviders{provider: activeProvider(), template: tmpl})
	got, provider, err := r.Resolve(context.Background(), "doc-1", "est-1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if provider.DoctorID != "doc-1" {
		t.Fatalf("unexpected provider: %+v", provider)
	}
	ranges := got.Days[time.Monday]
	if len(ranges) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(ranges))
	}
	if ranges[0].StartMinute != 600 {
		t.Fatalf("ranges should be sorted by start minute, got %d first", ranges[0].StartMinute)
	}
}

func TestResolve_InactiveProvider(t *testing.T) {
	p := activeProvider()
	p.IsActive = false
	r := NewResolver(&fakeProviders{provider: p})
	_, _, err := r.Resolve(context.Background(), "doc-1", "est-1")
	if !errors.Is(err, ErrProviderInactive) {
		t.Fatalf("expected ErrProviderInactive, got %v", err)
	}
}

func TestResolve_UnverifiedProvider(t *testing.T) {
	p := activeProvider()
	p.IsVerified = false
	r := NewResolver(&fakeProviders{provider: p})
	_, _, err := r.Resolve(context.Background(), "doc-1", "est-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_MissingProvider(t *testing.T) {
	r := NewResolver(&fakeProviders{err: directory.ErrNotFound})
	_, _, err := r.Resolve(context.Background(), "doc-x", "est-x")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_MissingTemplate(t *testing.T) {
	r := NewResolver(&fakeProviders{provider: activeProvider(), tmplErr: directory.ErrNotFound})
	_, _, err := r.Resolve(context.Background(), "doc-1", "est-1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalize_DropsInvalidRanges(t *testing.T) {
	var tmpl model.WeeklyTemplate
	// Inverted, negative start, past midnight, unknown period. Only the
	// last range survives, with its period defaulted.
	tmpl.Days[time.Tuesday] = []model.TemplateRange{
		{StartMinute: 660, EndMinute: 600, Period: model.PeriodMorning},
		{StartMinute: -10, EndMinute: 60, Period: model.PeriodMorning},
		{StartMinute: 1400, EndMinute: 1500, Period: model.PeriodEvening},
		{StartMinute: 600, EndMinute: 660, Period: "brunch"},
	}

	Normalize(&tmpl)
	kept := tmpl.Days[time.Tuesday]
	if len(kept) != 1 {
		t.Fatalf("expected 1 surviving range, got %d", len(kept))
	}
	if kept[0].Period != model.PeriodMorning {
		t.Fatalf("unknown period should default to morning, got %q", kept[0].Period)
	}
}

func TestValidate(t *testing.T) {
	var tmpl model.WeeklyTemplate
	tmpl.SlotMinutes = 15
	tmpl.Days[time.Friday] = []model.TemplateRange{
		{StartMinute: 600, EndMinute: 720, Period: model.PeriodMorning},
	}
	if err := Validate(&tmpl); err != nil {
		t.Fatalf("valid template rejected: %v", err)
	}

	tmpl.SlotMinutes = 0
	if err := Validate(&tmpl); err == nil {
		t.Fatal("zero slot_minutes should be rejected")
	}

	tmpl.SlotMinutes = 15
	tmpl.Days[time.Friday][0].Period = "brunch"
	if err := Validate(&tmpl); err == nil {
		t.Fatal("unknown period should be rejected")
	}

	tmpl.Days[time.Friday][0] = model.TemplateRange{StartMinute: 720, EndMinute: 600, Period: model.PeriodMorning}
	if err := Validate(&tmpl); err == nil {
		t.Fatal("inverted range should be rejected")
	}
}
