package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
)

// Status is the lifecycle state of an appointment. Confirmed, Cancelled and
// Expired are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusExpired
}

// TravelBufferPolicy is the padding reserved around an appointment for the
// barber's travel to and from the client.
type TravelBufferPolicy struct {
	PreTravelMinutes  int `json:"pre_travel_minutes"`
	PostTravelMinutes int `json:"post_travel_minutes"`
}

// Appointment is a client booking against a provider's calendar.
type Appointment struct {
	ID              uuid.UUID           `json:"id"`
	ProviderID      uuid.UUID           `json:"provider_id"`
	ClientID        uuid.UUID           `json:"client_id"`
	ScheduledAt     time.Time           `json:"scheduled_at"`
	DurationMinutes int                 `json:"duration_minutes"`
	Status          Status              `json:"status"`
	CreatedAt       time.Time           `json:"created_at"`
	ExpiresAt       time.Time           `json:"expires_at"`
	Buffer          *TravelBufferPolicy `json:"buffer,omitempty"`
	ConfirmReplies  int                 `json:"-"`
}

// End returns the instant the appointment itself finishes, excluding buffers.
func (a Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Span returns the bare appointment interval without travel buffers.
func (a Appointment) Span() schedule.Interval {
	return schedule.Interval{Start: a.ScheduledAt, End: a.End()}
}

// OccupiesCalendar reports whether the appointment blocks availability.
// Cancelled and Expired rows free their slot immediately and permanently.
func (a Appointment) OccupiesCalendar() bool {
	return a.Status == StatusPending || a.Status == StatusConfirmed
}

// ExpiredAt reports whether an unconfirmed hold has lapsed at the given
// instant. The boundary is strict: at exactly ExpiresAt the hold is still
// live.
func (a Appointment) ExpiredAt(now time.Time) bool {
	return a.Status == StatusPending && now.After(a.ExpiresAt)
}

// ExclusionInterval computes the full span an appointment removes from
// availability: pre-travel, the appointment itself, then post-travel. The
// appointment's own buffer override wins over the process default; zero
// buffers degenerate to the bare appointment span.
func ExclusionInterval(a Appointment, def TravelBufferPolicy) schedule.Interval {
	buf := def
	if a.Buffer != nil {
		buf = *a.Buffer
	}
	return schedule.Interval{
		Start: a.ScheduledAt.Add(-time.Duration(buf.PreTravelMinutes) * time.Minute),
		End:   a.End().Add(time.Duration(buf.PostTravelMinutes) * time.Minute),
	}
}
