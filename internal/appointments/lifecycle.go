package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ryankall/clipprmobile-sub007/internal/events"
	"github.com/ryankall/clipprmobile-sub007/internal/observability/metrics"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

var lifecycleTracer = otel.Tracer("clippr.internal.appointments")

// ErrNotFound is returned when an appointment id is unknown.
var ErrNotFound = errors.New("appointments: not found")

// Store is the persistence surface the lifecycle needs. UpdateStatus is a
// conditional write: it applies the transition only while the row still holds
// the expected status, and reports whether it did.
type Store interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error)
	RecordConfirmReply(ctx context.Context, id uuid.UUID) (int, error)
	ExpireDue(ctx context.Context, providerID uuid.UUID, now time.Time) ([]Appointment, error)
}

// TransitionOutcome distinguishes a transition this call applied from one
// that had already happened.
type TransitionOutcome string

const (
	TransitionApplied          TransitionOutcome = "applied"
	TransitionAlreadyProcessed TransitionOutcome = "already_processed"
)

// ConfirmResult reports the authoritative state after a confirm attempt.
// Replies counts every confirmation signal ever received for the
// appointment, including duplicates.
type ConfirmResult struct {
	Outcome TransitionOutcome `json:"outcome"`
	Status  Status            `json:"status"`
	Replies int               `json:"replies"`
}

// CancelResult reports the authoritative state after a cancel attempt.
type CancelResult struct {
	Outcome TransitionOutcome `json:"outcome"`
	Status  Status            `json:"status"`
}

// Lifecycle manages the pending -> confirmed/cancelled/expired state machine.
// Every transition goes through a conditional status update, so concurrent
// actors cannot both win and duplicate external signals stay harmless.
type Lifecycle struct {
	store     Store
	publisher events.Publisher
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger

	// Now is injectable for deterministic expiry tests.
	Now func() time.Time
}

// NewLifecycle constructs the lifecycle service.
func NewLifecycle(store Store, publisher events.Publisher, m *metrics.BookingMetrics, logger *logging.Logger) *Lifecycle {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Lifecycle{
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Confirm applies Pending -> Confirmed when the hold is still live. Confirming
// a row that already reached a terminal state is a safe no-op reporting the
// current state, so duplicate SMS replies never surface as errors. Every call
// increments the reply count; only the first can cause a transition.
func (l *Lifecycle) Confirm(ctx context.Context, id uuid.UUID) (ConfirmResult, error) {
	ctx, span := lifecycleTracer.Start(ctx, "appointments.confirm")
	defer span.End()
	span.SetAttributes(attribute.String("clippr.appointment_id", id.String()))

	replies, err := l.store.RecordConfirmReply(ctx, id)
	if err != nil {
		span.RecordError(err)
		return ConfirmResult{}, err
	}

	appt, err := l.store.GetAppointment(ctx, id)
	if err != nil {
		span.RecordError(err)
		return ConfirmResult{}, err
	}

	if appt.Status == StatusPending {
		now := l.Now()
		if now.After(appt.ExpiresAt) {
			// The hold lapsed before anyone confirmed. Expire it here rather
			// than waiting for the sweep.
			if ok, err := l.store.UpdateStatus(ctx, id, StatusPending, StatusExpired); err != nil {
				span.RecordError(err)
				return ConfirmResult{}, err
			} else if ok {
				l.emit(ctx, *appt, StatusPending, StatusExpired)
				l.metrics.ObserveExpiredHolds(1)
			}
		} else {
			ok, err := l.store.UpdateStatus(ctx, id, StatusPending, StatusConfirmed)
			if err != nil {
				span.RecordError(err)
				return ConfirmResult{}, err
			}
			if ok {
				l.emit(ctx, *appt, StatusPending, StatusConfirmed)
				l.metrics.ObserveTransition(string(StatusConfirmed))
				l.logger.Info("appointment confirmed", "appointment_id", id, "replies", replies)
				return ConfirmResult{Outcome: TransitionApplied, Status: StatusConfirmed, Replies: replies}, nil
			}
		}
		// Lost a race against a concurrent transition; report whatever won.
		appt, err = l.store.GetAppointment(ctx, id)
		if err != nil {
			span.RecordError(err)
			return ConfirmResult{}, err
		}
	}

	l.logger.Info("appointment confirm was a no-op",
		"appointment_id", id,
		"status", appt.Status,
		"replies", replies,
	)
	return ConfirmResult{Outcome: TransitionAlreadyProcessed, Status: appt.Status, Replies: replies}, nil
}

// Cancel applies Pending -> Cancelled or Confirmed -> Cancelled. When a
// cancellation races a confirmation, the confirm commits Pending->Confirmed
// first and the second conditional write here still lands
// Confirmed->Cancelled, so cancellation always wins.
func (l *Lifecycle) Cancel(ctx context.Context, id uuid.UUID) (CancelResult, error) {
	ctx, span := lifecycleTracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("clippr.appointment_id", id.String()))

	for _, from := range []Status{StatusPending, StatusConfirmed} {
		ok, err := l.store.UpdateStatus(ctx, id, from, StatusCancelled)
		if err != nil {
			span.RecordError(err)
			return CancelResult{}, err
		}
		if ok {
			appt, err := l.store.GetAppointment(ctx, id)
			if err != nil {
				span.RecordError(err)
				return CancelResult{}, err
			}
			l.emit(ctx, *appt, from, StatusCancelled)
			l.metrics.ObserveTransition(string(StatusCancelled))
			l.logger.Info("appointment cancelled", "appointment_id", id, "was", from)
			return CancelResult{Outcome: TransitionApplied, Status: StatusCancelled}, nil
		}
	}

	appt, err := l.store.GetAppointment(ctx, id)
	if err != nil {
		span.RecordError(err)
		return CancelResult{}, err
	}
	return CancelResult{Outcome: TransitionAlreadyProcessed, Status: appt.Status}, nil
}

// SweepExpired transitions every lapsed pending hold for the provider to
// Expired. A zero provider id sweeps all providers. Idempotent: rows that a
// concurrent confirm or cancel already moved are skipped by the conditional
// update inside the store.
func (l *Lifecycle) SweepExpired(ctx context.Context, providerID uuid.UUID) (int, error) {
	expired, err := l.store.ExpireDue(ctx, providerID, l.Now())
	if err != nil {
		return 0, fmt.Errorf("appointments: expiry sweep: %w", err)
	}
	for _, appt := range expired {
		l.emit(ctx, appt, StatusPending, StatusExpired)
	}
	if len(expired) > 0 {
		l.metrics.ObserveExpiredHolds(len(expired))
		l.logger.Info("expired pending holds", "count", len(expired), "provider_id", providerID)
	}
	return len(expired), nil
}

func (l *Lifecycle) emit(ctx context.Context, appt Appointment, from, to Status) {
	if l.publisher == nil {
		return
	}
	l.publisher.Publish(ctx, events.AppointmentStatusChangedV1{
		EventID:       uuid.NewString(),
		AppointmentID: appt.ID.String(),
		ProviderID:    appt.ProviderID.String(),
		ClientID:      appt.ClientID.String(),
		OldStatus:     string(from),
		NewStatus:     string(to),
		ScheduledAt:   appt.ScheduledAt,
		OccurredAt:    l.Now(),
	})
}
