package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// outboxDB is the subset of pgxpool.Pool the outbox uses. pgxmock satisfies
// it in tests.
type outboxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxEntry represents a pending event.
type OutboxEntry struct {
	ID         uuid.UUID
	ProviderID string
	Type       string
	Payload    json.RawMessage
	CreatedAt  time.Time
}

// DeliveryHandler emits events to downstream transports.
type DeliveryHandler interface {
	Handle(ctx context.Context, entry OutboxEntry) error
}

// OutboxStore persists events for reliable delivery. Rows are written in the
// same database as the appointments they describe, so a crash between state
// transition and notification loses nothing.
type OutboxStore struct {
	db     outboxDB
	logger *logging.Logger
}

func NewOutboxStore(pool *pgxpool.Pool, logger *logging.Logger) *OutboxStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return NewOutboxStoreWithDB(pool, logger)
}

// NewOutboxStoreWithDB allows injecting mocks for tests.
func NewOutboxStoreWithDB(db outboxDB, logger *logging.Logger) *OutboxStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &OutboxStore{db: db, logger: logger}
}

// Publish implements Publisher by inserting an outbox row. Insert failures
// are logged rather than returned; notification delivery is best-effort from
// the caller's point of view.
func (s *OutboxStore) Publish(ctx context.Context, evt AppointmentStatusChangedV1) {
	if _, err := s.Insert(ctx, evt.ProviderID, TypeAppointmentStatusChanged, evt); err != nil {
		s.logger.Error("events: outbox publish failed",
			"error", err,
			"appointment_id", evt.AppointmentID,
		)
	}
}

func (s *OutboxStore) Insert(ctx context.Context, providerID string, eventType string, payload any) (uuid.UUID, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	id := uuid.New()
	query := `
		INSERT INTO outbox (id, provider_id, type, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.Exec(ctx, query, id, providerID, eventType, data); err != nil {
		return uuid.Nil, fmt.Errorf("events: insert outbox: %w", err)
	}
	return id, nil
}

func (s *OutboxStore) FetchPending(ctx context.Context, limit int32) ([]OutboxEntry, error) {
	query := `
		SELECT id, provider_id, type, payload, created_at
		FROM outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var entry OutboxEntry
		var payload []byte
		if err := rows.Scan(&entry.ID, &entry.ProviderID, &entry.Type, &payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan outbox: %w", err)
		}
		entry.Payload = append([]byte(nil), payload...)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *OutboxStore) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

var _ Publisher = (*OutboxStore)(nil)

// Deliverer polls the outbox and invokes the handler.
type Deliverer struct {
	store     *OutboxStore
	handler   DeliveryHandler
	logger    *logging.Logger
	batchSize int32
	interval  time.Duration
}

func NewDeliverer(store *OutboxStore, handler DeliveryHandler, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		store:     store,
		handler:   handler,
		logger:    logger,
		batchSize: 25,
		interval:  2 * time.Second,
	}
}

func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// Run polls until the context is cancelled.
func (d *Deliverer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.deliverBatch(ctx)
		}
	}
}

func (d *Deliverer) deliverBatch(ctx context.Context) {
	entries, err := d.store.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("events: fetch pending failed", "error", err)
		return
	}
	for _, entry := range entries {
		if err := d.handler.Handle(ctx, entry); err != nil {
			d.logger.Error("events: delivery failed, will retry",
				"error", err,
				"outbox_id", entry.ID,
				"type", entry.Type,
			)
			continue
		}
		if _, err := d.store.MarkDelivered(ctx, entry.ID); err != nil {
			d.logger.Error("events: mark delivered failed", "error", err, "outbox_id", entry.ID)
		}
	}
}
