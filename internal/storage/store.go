package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
)

// Store is the durable collaborator behind the booking engine. The engine
// never owns appointment rows long-term; it reads and conditionally writes
// them here for the duration of a single decide-and-write transaction.
//
// UpdateStatus must be a conditional write (applied only while the row holds
// the expected status) — it is what makes confirm/cancel/expire races safe.
type Store interface {
	// LoadAppointments returns the pending and confirmed appointments for the
	// provider whose bare span intersects [from, to). Callers pad the range
	// to whole calendar days so buffered exclusions are never clipped.
	LoadAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error)
	InsertPending(ctx context.Context, appt appointments.Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next appointments.Status) (bool, error)
	RecordConfirmReply(ctx context.Context, id uuid.UUID) (int, error)

	// ExpireDue transitions every pending hold with expiresAt strictly before
	// now to expired and returns the transitioned rows. A zero provider id
	// sweeps all providers.
	ExpireDue(ctx context.Context, providerID uuid.UUID, now time.Time) ([]appointments.Appointment, error)

	LoadWorkingHours(ctx context.Context, providerID uuid.UUID) (schedule.WorkingHoursConfig, error)
	SaveWorkingHours(ctx context.Context, providerID uuid.UUID, cfg schedule.WorkingHoursConfig) error
}
