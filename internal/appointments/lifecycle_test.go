package appointments_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/events"
	"github.com/ryankall/clipprmobile-sub007/internal/storage"
)

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type capturePublisher struct {
	mu   sync.Mutex
	seen []events.AppointmentStatusChangedV1
}

func (p *capturePublisher) Publish(ctx context.Context, evt events.AppointmentStatusChangedV1) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, evt)
}

func (p *capturePublisher) transitions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, evt := range p.seen {
		out = append(out, evt.OldStatus+"->"+evt.NewStatus)
	}
	return out
}

type fixture struct {
	store     *storage.MemoryStore
	lifecycle *appointments.Lifecycle
	publisher *capturePublisher
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     storage.NewMemoryStore(),
		publisher: &capturePublisher{},
		now:       day.Add(9 * time.Hour),
	}
	f.lifecycle = appointments.NewLifecycle(f.store, f.publisher, nil, nil)
	f.lifecycle.Now = func() time.Time { return f.now }
	return f
}

func (f *fixture) insertHold(t *testing.T, providerID uuid.UUID) uuid.UUID {
	t.Helper()
	appt := appointments.Appointment{
		ID:              uuid.New(),
		ProviderID:      providerID,
		ClientID:        uuid.New(),
		ScheduledAt:     f.now.Add(5 * time.Hour),
		DurationMinutes: 45,
		Status:          appointments.StatusPending,
		CreatedAt:       f.now,
		ExpiresAt:       f.now.Add(30 * time.Minute),
	}
	require.NoError(t, f.store.InsertPending(context.Background(), appt))
	return appt.ID
}

func TestConfirmPendingHold(t *testing.T) {
	f := newFixture(t)
	id := f.insertHold(t, uuid.New())

	result, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionApplied, result.Outcome)
	assert.Equal(t, appointments.StatusConfirmed, result.Status)
	assert.Equal(t, 1, result.Replies)
	assert.Equal(t, []string{"pending->confirmed"}, f.publisher.transitions())
}

func TestConfirmTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.insertHold(t, uuid.New())

	first, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionApplied, first.Outcome)

	second, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionAlreadyProcessed, second.Outcome)
	assert.Equal(t, appointments.StatusConfirmed, second.Status)
	assert.Equal(t, 2, second.Replies, "every reply is counted, only the first transitions")

	// Only one transition event emitted.
	assert.Equal(t, []string{"pending->confirmed"}, f.publisher.transitions())
}

func TestConfirmAfterExpiryWindowExpiresHold(t *testing.T) {
	f := newFixture(t)
	id := f.insertHold(t, uuid.New())

	f.now = f.now.Add(31 * time.Minute)
	result, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionAlreadyProcessed, result.Outcome)
	assert.Equal(t, appointments.StatusExpired, result.Status)
	assert.Equal(t, []string{"pending->expired"}, f.publisher.transitions())
}

func TestConfirmAtExactExpiryBoundarySucceeds(t *testing.T) {
	f := newFixture(t)
	id := f.insertHold(t, uuid.New())

	f.now = f.now.Add(30 * time.Minute)
	result, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionApplied, result.Outcome)
	assert.Equal(t, appointments.StatusConfirmed, result.Status)
}

func TestConfirmCancelledReportsCancelled(t *testing.T) {
	f := newFixture(t)
	id := f.insertHold(t, uuid.New())

	_, err := f.lifecycle.Cancel(context.Background(), id)
	require.NoError(t, err)

	result, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionAlreadyProcessed, result.Outcome)
	assert.Equal(t, appointments.StatusCancelled, result.Status, "confirming caller must learn the appointment was cancelled")
}

func TestConfirmUnknownAppointment(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.Confirm(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, appointments.ErrNotFound))
}

func TestCancelPendingAndConfirmed(t *testing.T) {
	f := newFixture(t)

	pendingID := f.insertHold(t, uuid.New())
	result, err := f.lifecycle.Cancel(context.Background(), pendingID)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionApplied, result.Outcome)
	assert.Equal(t, appointments.StatusCancelled, result.Status)

	confirmedID := f.insertHold(t, uuid.New())
	_, err = f.lifecycle.Confirm(context.Background(), confirmedID)
	require.NoError(t, err)
	result, err = f.lifecycle.Cancel(context.Background(), confirmedID)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionApplied, result.Outcome)
}

func TestCancelTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	id := f.insertHold(t, uuid.New())

	_, err := f.lifecycle.Cancel(context.Background(), id)
	require.NoError(t, err)

	result, err := f.lifecycle.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.TransitionAlreadyProcessed, result.Outcome)
	assert.Equal(t, appointments.StatusCancelled, result.Status)
}

// Cancellation precedence: when cancel and confirm race, the persisted state
// is cancelled no matter which one lands first.
func TestCancellationWinsOverConcurrentConfirm(t *testing.T) {
	for range 25 {
		f := newFixture(t)
		id := f.insertHold(t, uuid.New())

		var wg sync.WaitGroup
		var confirmResult appointments.ConfirmResult
		wg.Add(2)
		go func() {
			defer wg.Done()
			r, err := f.lifecycle.Confirm(context.Background(), id)
			require.NoError(t, err)
			confirmResult = r
		}()
		go func() {
			defer wg.Done()
			_, err := f.lifecycle.Cancel(context.Background(), id)
			require.NoError(t, err)
		}()
		wg.Wait()

		appt, err := f.store.GetAppointment(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, appointments.StatusCancelled, appt.Status)

		if confirmResult.Outcome == appointments.TransitionAlreadyProcessed {
			assert.Equal(t, appointments.StatusCancelled, confirmResult.Status,
				"a losing confirm must report the cancellation")
		}
	}
}

func TestSweepExpiredTransitionsOnlyLapsedHolds(t *testing.T) {
	f := newFixture(t)
	providerID := uuid.New()

	lapsed := f.insertHold(t, providerID)
	live := f.insertHold(t, providerID)

	f.now = f.now.Add(29 * time.Minute)
	count, err := f.lifecycle.SweepExpired(context.Background(), providerID)
	require.NoError(t, err)
	assert.Zero(t, count, "not expired at T+29min")

	f.now = f.now.Add(2 * time.Minute)
	count, err = f.lifecycle.SweepExpired(context.Background(), providerID)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "expired at T+31min")

	for _, id := range []uuid.UUID{lapsed, live} {
		got, err := f.store.GetAppointment(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, appointments.StatusExpired, got.Status)
	}

	// Sweeping again is a no-op.
	count, err = f.lifecycle.SweepExpired(context.Background(), providerID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSweepDoesNotTouchConfirmed(t *testing.T) {
	f := newFixture(t)
	providerID := uuid.New()
	id := f.insertHold(t, providerID)

	_, err := f.lifecycle.Confirm(context.Background(), id)
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Hour)
	count, err := f.lifecycle.SweepExpired(context.Background(), providerID)
	require.NoError(t, err)
	assert.Zero(t, count)

	appt, err := f.store.GetAppointment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, appointments.StatusConfirmed, appt.Status)
}
