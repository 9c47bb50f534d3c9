package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

func newMockOutbox(t *testing.T) (pgxmock.PgxPoolIface, *OutboxStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewOutboxStoreWithDB(mock, nil)
}

func TestOutboxPublishInsertsRow(t *testing.T) {
	mock, store := newMockOutbox(t)

	mock.ExpectExec(`INSERT INTO outbox`).
		WithArgs(pgxmock.AnyArg(), "provider-1", TypeAppointmentStatusChanged, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store.Publish(context.Background(), AppointmentStatusChangedV1{
		EventID:       uuid.NewString(),
		AppointmentID: uuid.NewString(),
		ProviderID:    "provider-1",
		OldStatus:     "pending",
		NewStatus:     "confirmed",
	})

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestOutboxFetchPending(t *testing.T) {
	mock, store := newMockOutbox(t)
	id := uuid.New()
	created := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, provider_id, type, payload, created_at\s+FROM outbox\s+WHERE delivered_at IS NULL`).
		WithArgs(int32(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "provider_id", "type", "payload", "created_at"}).
			AddRow(id, "provider-1", TypeAppointmentStatusChanged, []byte(`{"new_status":"confirmed"}`), created))

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchPending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("entries = %+v, want single row %s", entries, id)
	}
	if string(entries[0].Payload) != `{"new_status":"confirmed"}` {
		t.Errorf("payload = %s", entries[0].Payload)
	}
}

func TestOutboxMarkDeliveredIsConditional(t *testing.T) {
	mock, store := newMockOutbox(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE outbox\s+SET delivered_at = now\(\)`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if !ok {
		t.Error("expected first delivery to apply")
	}

	mock.ExpectExec(`UPDATE outbox\s+SET delivered_at = now\(\)`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}
	if ok {
		t.Error("expected repeat delivery to be a no-op")
	}
}
