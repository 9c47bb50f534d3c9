package events

import (
	"context"
	"time"
)

// TypeAppointmentStatusChanged is the outbox type tag for lifecycle
// transitions.
const TypeAppointmentStatusChanged = "appointment.status_changed.v1"

// AppointmentStatusChangedV1 is emitted on every lifecycle transition
// (confirm, cancel, expire). Downstream messaging components may subscribe;
// the core never waits for delivery.
type AppointmentStatusChangedV1 struct {
	EventID       string    `json:"event_id"`
	AppointmentID string    `json:"appointment_id"`
	ProviderID    string    `json:"provider_id"`
	ClientID      string    `json:"client_id"`
	OldStatus     string    `json:"old_status"`
	NewStatus     string    `json:"new_status"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher accepts lifecycle events for asynchronous delivery. Publish must
// not block on downstream transports.
type Publisher interface {
	Publish(ctx context.Context, evt AppointmentStatusChangedV1)
}
