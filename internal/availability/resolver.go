package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/observability/metrics"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

var availabilityTracer = otel.Tracer("clippr.internal.availability")

// ErrInvalidInterval rejects zero or negative length requests at the
// boundary; they never reach the conflict scan.
var ErrInvalidInterval = errors.New("availability: requested interval must have positive length")

// Store is the read surface the resolver needs.
type Store interface {
	LoadAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error)
	LoadWorkingHours(ctx context.Context, providerID uuid.UUID) (schedule.WorkingHoursConfig, error)
}

// Sweeper purges lapsed pending holds before an availability read, so stale
// holds never block a slot.
type Sweeper interface {
	SweepExpired(ctx context.Context, providerID uuid.UUID) (int, error)
}

// Result is the engine's verdict on a requested interval. When the interval
// is blocked by an appointment, ConflictingAppointmentID names the earliest-
// scheduled one; a request outside open hours is simply unavailable with no
// conflicting id.
type Result struct {
	Available                bool       `json:"available"`
	ConflictingAppointmentID *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
}

// Resolver composes calendar math and appointment exclusions into per-slot
// verdicts.
type Resolver struct {
	store   Store
	sweeper Sweeper
	buffer  appointments.TravelBufferPolicy
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewResolver constructs an availability resolver. buffer is the process-wide
// default travel buffer; appointments may carry their own override.
func NewResolver(store Store, sweeper Sweeper, buffer appointments.TravelBufferPolicy, m *metrics.BookingMetrics, logger *logging.Logger) *Resolver {
	if store == nil {
		panic("availability: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, sweeper: sweeper, buffer: buffer, metrics: m, logger: logger}
}

// Check reports whether the requested interval is bookable for the provider.
// The interval must lie entirely within the provider's open hours and must
// not intersect any live appointment's exclusion interval. Intervals are
// half-open, so touching a buffer boundary exactly is not a conflict.
func (r *Resolver) Check(ctx context.Context, providerID uuid.UUID, requested schedule.Interval) (Result, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.check")
	defer span.End()
	span.SetAttributes(attribute.String("clippr.provider_id", providerID.String()))

	started := time.Now()
	defer func() {
		r.metrics.ObserveAvailabilityLatency(time.Since(started).Seconds())
	}()

	if !requested.IsValid() {
		return Result{}, ErrInvalidInterval
	}

	if r.sweeper != nil {
		if _, err := r.sweeper.SweepExpired(ctx, providerID); err != nil {
			span.RecordError(err)
			return Result{}, fmt.Errorf("availability: pre-check sweep: %w", err)
		}
	}

	open, err := r.openIntervals(ctx, providerID, requested)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if !schedule.WithinAny(requested, open) {
		return Result{Available: false}, nil
	}

	conflict, err := r.firstConflict(ctx, providerID, requested)
	if err != nil {
		span.RecordError(err)
		return Result{}, err
	}
	if conflict != nil {
		id := conflict.ID
		return Result{Available: false, ConflictingAppointmentID: &id}, nil
	}
	return Result{Available: true}, nil
}

// FreeIntervals returns the provider's bookable spans of at least minDuration
// on the calendar day containing date, with live appointment exclusions
// already subtracted.
func (r *Resolver) FreeIntervals(ctx context.Context, providerID uuid.UUID, date time.Time, minDuration time.Duration) ([]schedule.Interval, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.free_intervals")
	defer span.End()
	span.SetAttributes(attribute.String("clippr.provider_id", providerID.String()))

	if minDuration <= 0 {
		return nil, ErrInvalidInterval
	}

	if r.sweeper != nil {
		if _, err := r.sweeper.SweepExpired(ctx, providerID); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("availability: pre-check sweep: %w", err)
		}
	}

	cfg, err := r.loadWorkingHours(ctx, providerID)
	if err != nil {
		return nil, err
	}
	opens, err := schedule.OpenIntervals(cfg, date)
	if err != nil {
		return nil, err
	}
	if len(opens) == 0 {
		return nil, nil
	}

	from := opens[0].Start.AddDate(0, 0, -1)
	to := opens[len(opens)-1].End.AddDate(0, 0, 1)
	live, err := r.store.LoadAppointments(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: load appointments: %w", err)
	}

	exclusions := make([]schedule.Interval, 0, len(live))
	for _, appt := range live {
		exclusions = append(exclusions, appointments.ExclusionInterval(appt, r.buffer))
	}

	var free []schedule.Interval
	for _, open := range opens {
		for _, iv := range schedule.Subtract(open, exclusions) {
			if iv.Duration() >= minDuration {
				free = append(free, iv)
			}
		}
	}
	return free, nil
}

// DiscretizeStarts expands free intervals into bookable start times on a
// fixed grid. Purely a presentation concern; the engine itself operates on
// continuous instants.
func DiscretizeStarts(free []schedule.Interval, duration, step time.Duration) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	var starts []time.Time
	for _, iv := range free {
		for t := iv.Start; !t.Add(duration).After(iv.End); t = t.Add(step) {
			starts = append(starts, t)
		}
	}
	return starts
}

func (r *Resolver) loadWorkingHours(ctx context.Context, providerID uuid.UUID) (schedule.WorkingHoursConfig, error) {
	cfg, err := r.store.LoadWorkingHours(ctx, providerID)
	if errors.Is(err, appointments.ErrNotFound) {
		// No configuration means no open hours, not a failure.
		return schedule.WorkingHoursConfig{}, nil
	}
	if err != nil {
		return schedule.WorkingHoursConfig{}, fmt.Errorf("availability: load working hours: %w", err)
	}
	if warnings := cfg.Validate(); len(warnings) > 0 {
		r.logger.Warn("working hours config has closed-day anomalies",
			"provider_id", providerID,
			"warnings", warnings,
		)
	}
	return cfg, nil
}

// openIntervals gathers the open spans for every calendar day the requested
// interval touches and merges adjacent ones, so a span crossing midnight is
// judged against the union.
func (r *Resolver) openIntervals(ctx context.Context, providerID uuid.UUID, requested schedule.Interval) ([]schedule.Interval, error) {
	cfg, err := r.loadWorkingHours(ctx, providerID)
	if err != nil {
		return nil, err
	}
	var opens []schedule.Interval
	for d := requested.Start; d.Before(requested.End.Add(24 * time.Hour)); d = d.AddDate(0, 0, 1) {
		dayOpens, err := schedule.OpenIntervals(cfg, d)
		if err != nil {
			return nil, err
		}
		opens = append(opens, dayOpens...)
	}
	return schedule.Merge(opens), nil
}

func (r *Resolver) firstConflict(ctx context.Context, providerID uuid.UUID, requested schedule.Interval) (*appointments.Appointment, error) {
	// Pad to whole days so buffered exclusions at the edges are never
	// clipped by the load range.
	from := requested.Start.AddDate(0, 0, -1)
	to := requested.End.AddDate(0, 0, 1)
	live, err := r.store.LoadAppointments(ctx, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("availability: load appointments: %w", err)
	}

	sort.Slice(live, func(i, j int) bool { return live[i].ScheduledAt.Before(live[j].ScheduledAt) })
	for i := range live {
		if appointments.ExclusionInterval(live[i], r.buffer).Overlaps(requested) {
			return &live[i], nil
		}
	}
	return nil, nil
}
