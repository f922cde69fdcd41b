// Package template resolves and validates weekly availability templates.
package template

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/medibook-health/medibook/services/booking-service/internal/directory"
	"github.com/medibook-health/medibook/services/booking-service/internal/model"
)

var (
	// ErrProviderInactive distinguishes a deactivated provider from a
	// missing one so callers can message differently.
	ErrProviderInactive = errors.New("template: provider inactive")
	ErrNotFound         = errors.New("template: not found")
)

const minutesPerDay = 24 * 60

// Resolver turns a provider pairing into a normalized weekly template plus
// the provider record itself. Pure read; no side effects.
type Resolver struct {
	providers directory.Providers
}

func NewResolver(providers directory.Providers) *Resolver {
	return &Resolver{providers: providers}
}

// Resolve loads the provider and its template. An inactive provider yields
// ErrProviderInactive; a missing or unverified provider, or an absent
// template, yields ErrNotFound. A verified, active provider with a template
// always gets back all seven day buckets, each ordered by start minute.
func (r *Resolver) Resolve(ctx context.Context, doctorID, establishmentID string) (model.WeeklyTemplate, model.Provider, error) {
	provider, err := r.providers.GetProvider(ctx, doctorID, establishmentID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return model.WeeklyTemplate{}, model.Provider{}, ErrNotFound
		}
		return model.WeeklyTemplate{}, model.Provider{}, err
	}
	if !provider.IsActive {
		return model.WeeklyTemplate{}, provider, ErrProviderInactive
	}
	if !provider.IsVerified {
		return model.WeeklyTemplate{}, provider, ErrNotFound
	}

	tmpl, err := r.providers.GetWeeklyTemplate(ctx, doctorID, establishmentID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return model.WeeklyTemplate{}, provider, ErrNotFound
		}
		return model.WeeklyTemplate{}, provider, err
	}

	Normalize(&tmpl)
	return tmpl, provider, nil
}

// Provider loads just the provider record, without its template.
func (r *Resolver) Provider(ctx context.Context, doctorID, establishmentID string) (model.Provider, error) {
	return r.providers.GetProvider(ctx, doctorID, establishmentID)
}

// Normalize orders each day's ranges by start minute and drops ranges the
// grid generator could not use. Missing days are already empty slices.
func Normalize(t *model.WeeklyTemplate) {
	for day := range t.Days {
		kept := t.Days[day][:0]
		for _, rng := range t.Days[day] {
			if rng.EndMinute <= rng.StartMinute {
				continue
			}
			if rng.StartMinute < 0 || rng.EndMinute > minutesPerDay {
				continue
			}
			if !validPeriod(rng.Period) {
				rng.Period = model.PeriodMorning
			}
			kept = append(kept, rng)
		}
		sort.Slice(kept, func(i, j int) bool { return kept[i].StartMinute < kept[j].StartMinute })
		t.Days[day] = kept
	}
}

// Validate checks a template submitted through the authoring API.
func Validate(t *model.WeeklyTemplate) error {
	if t.SlotMinutes <= 0 || t.SlotMinutes > minutesPerDay {
		return fmt.Errorf("slot_minutes must be between 1 and %d", minutesPerDay)
	}
	for day := range t.Days {
		for _, rng := range t.Days[day] {
			if rng.StartMinute < 0 || rng.EndMinute > minutesPerDay || rng.EndMinute <= rng.StartMinute {
				return fmt.Errorf("%s: range %d:%02d-%d:%02d is not a valid window",
					time.Weekday(day), rng.StartMinute/60, rng.StartMinute%60, rng.EndMinute/60, rng.EndMinute%60)
			}
			if !validPeriod(rng.Period) {
				return fmt.Errorf("%s: period %q must be morning, afternoon or evening", time.Weekday(day), rng.Period)
			}
		}
	}
	return nil
}

func validPeriod(p string) bool {
	switch p {
	case model.PeriodMorning, model.PeriodAfternoon, model.PeriodEvening:
		return true
	}
	return false
}
