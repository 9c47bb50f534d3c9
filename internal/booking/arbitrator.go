package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/availability"
	"github.com/ryankall/clipprmobile-sub007/internal/observability/metrics"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

var bookingTracer = otel.Tracer("clippr.internal.booking")

// ErrLockTimeout means the provider's booking lock could not be acquired in
// time. The request was never evaluated; callers may retry.
var ErrLockTimeout = errors.New("booking: timed out waiting for provider lock")

// ErrInvalidRequest rejects malformed booking requests before any locking.
var ErrInvalidRequest = errors.New("booking: invalid request")

// ConflictReasonSlotTaken is the reason reported when the slot was checked
// inside the exclusive section and found occupied.
const ConflictReasonSlotTaken = "time slot is no longer available"

// AvailabilityChecker is the slot verdict the arbitrator consults inside the
// exclusive section.
type AvailabilityChecker interface {
	Check(ctx context.Context, providerID uuid.UUID, requested schedule.Interval) (availability.Result, error)
}

// HoldStore persists the pending hold a winning attempt creates.
type HoldStore interface {
	InsertPending(ctx context.Context, appt appointments.Appointment) error
}

// BookingRequest describes one attempt to claim a slot.
type BookingRequest struct {
	ProviderID      uuid.UUID
	ClientID        uuid.UUID
	Start           time.Time
	DurationMinutes int
	// Buffer overrides the provider default travel buffer when set.
	Buffer *appointments.TravelBufferPolicy
}

func (r BookingRequest) interval() schedule.Interval {
	return schedule.Interval{
		Start: r.Start,
		End:   r.Start.Add(time.Duration(r.DurationMinutes) * time.Minute),
	}
}

// BookingResult is the arbitrated outcome. Exactly one of Success or
// ConflictReason is meaningful; a successful attempt carries the id of the
// pending hold it created.
type BookingResult struct {
	Success                  bool       `json:"success"`
	AppointmentID            uuid.UUID  `json:"appointment_id,omitempty"`
	ExpiresAt                time.Time  `json:"expires_at,omitempty"`
	ConflictReason           string     `json:"conflict_reason,omitempty"`
	ConflictingAppointmentID *uuid.UUID `json:"conflicting_appointment_id,omitempty"`
}

// Arbitrator serializes booking attempts per provider. Checking availability
// and inserting the hold happen under the provider's lock, so when several
// clients race for one slot exactly one wins and the rest get a conflict.
type Arbitrator struct {
	locker     Locker
	checker    AvailabilityChecker
	store      HoldStore
	holdExpiry time.Duration
	lockWait   time.Duration
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger

	// Now is injectable for deterministic expiry stamping in tests.
	Now func() time.Time
}

// NewArbitrator constructs the booking arbitrator. holdExpiry is how long a
// pending hold stays reserved before it lapses; lockWait bounds how long an
// attempt waits for the provider lock.
func NewArbitrator(locker Locker, checker AvailabilityChecker, store HoldStore, holdExpiry, lockWait time.Duration, m *metrics.BookingMetrics, logger *logging.Logger) *Arbitrator {
	if locker == nil {
		panic("booking: locker required")
	}
	if checker == nil {
		panic("booking: availability checker required")
	}
	if store == nil {
		panic("booking: hold store required")
	}
	if holdExpiry <= 0 {
		holdExpiry = 30 * time.Minute
	}
	if lockWait <= 0 {
		lockWait = 5 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Arbitrator{
		locker:     locker,
		checker:    checker,
		store:      store,
		holdExpiry: holdExpiry,
		lockWait:   lockWait,
		metrics:    m,
		logger:     logger,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// AttemptBook claims the requested slot for the client. On success a pending
// hold exists with an expiry stamp; the client must confirm before it lapses.
func (a *Arbitrator) AttemptBook(ctx context.Context, req BookingRequest) (BookingResult, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.attempt")
	defer span.End()
	span.SetAttributes(
		attribute.String("clippr.provider_id", req.ProviderID.String()),
		attribute.String("clippr.client_id", req.ClientID.String()),
	)

	if req.DurationMinutes <= 0 {
		return BookingResult{}, fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	if req.ProviderID == uuid.Nil || req.ClientID == uuid.Nil {
		return BookingResult{}, fmt.Errorf("%w: provider and client ids required", ErrInvalidRequest)
	}

	lockCtx, cancel := context.WithTimeout(ctx, a.lockWait)
	defer cancel()
	release, err := a.locker.Acquire(lockCtx, req.ProviderID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			a.metrics.ObserveAttempt("lock_timeout")
			a.metrics.ObserveLockTimeout()
			a.logger.Warn("booking lock wait timed out", "provider_id", req.ProviderID)
			return BookingResult{}, ErrLockTimeout
		}
		span.RecordError(err)
		return BookingResult{}, fmt.Errorf("booking: acquire provider lock: %w", err)
	}
	defer release()

	// The verdict must come from inside the exclusive section; anything
	// checked before the lock could be stale by the time we insert.
	verdict, err := a.checker.Check(ctx, req.ProviderID, req.interval())
	if err != nil {
		span.RecordError(err)
		return BookingResult{}, fmt.Errorf("booking: availability check: %w", err)
	}
	if !verdict.Available {
		a.metrics.ObserveAttempt("conflict")
		a.metrics.ObserveConflict()
		return BookingResult{
			ConflictReason:           ConflictReasonSlotTaken,
			ConflictingAppointmentID: verdict.ConflictingAppointmentID,
		}, nil
	}

	now := a.Now()
	appt := appointments.Appointment{
		ID:              uuid.New(),
		ProviderID:      req.ProviderID,
		ClientID:        req.ClientID,
		ScheduledAt:     req.Start,
		DurationMinutes: req.DurationMinutes,
		Status:          appointments.StatusPending,
		CreatedAt:       now,
		ExpiresAt:       now.Add(a.holdExpiry),
		Buffer:          req.Buffer,
	}
	if err := a.store.InsertPending(ctx, appt); err != nil {
		span.RecordError(err)
		return BookingResult{}, fmt.Errorf("booking: insert pending hold: %w", err)
	}

	a.metrics.ObserveAttempt("accepted")
	a.metrics.ObserveTransition(string(appointments.StatusPending))
	a.logger.Info("booking hold created",
		"appointment_id", appt.ID,
		"provider_id", req.ProviderID,
		"scheduled_at", req.Start,
		"expires_at", appt.ExpiresAt,
	)
	span.SetAttributes(attribute.String("clippr.appointment_id", appt.ID.String()))
	return BookingResult{Success: true, AppointmentID: appt.ID, ExpiresAt: appt.ExpiresAt}, nil
}
