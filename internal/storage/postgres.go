package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
)

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies it in
// tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on top of pgx.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("storage: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting mocks for tests.
func NewPostgresStoreWithDB(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const appointmentColumns = `id, provider_id, client_id, scheduled_at, duration_minutes, status, created_at, expires_at, pre_travel_minutes, post_travel_minutes, confirm_replies`

func scanAppointment(row pgx.Row) (*appointments.Appointment, error) {
	var appt appointments.Appointment
	var pre, post *int
	err := row.Scan(
		&appt.ID,
		&appt.ProviderID,
		&appt.ClientID,
		&appt.ScheduledAt,
		&appt.DurationMinutes,
		&appt.Status,
		&appt.CreatedAt,
		&appt.ExpiresAt,
		&pre,
		&post,
		&appt.ConfirmReplies,
	)
	if err != nil {
		return nil, err
	}
	if pre != nil && post != nil {
		appt.Buffer = &appointments.TravelBufferPolicy{PreTravelMinutes: *pre, PostTravelMinutes: *post}
	}
	return &appt, nil
}

func (s *PostgresStore) LoadAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE provider_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND scheduled_at < $3
		  AND scheduled_at + make_interval(mins => duration_minutes) > $2
		ORDER BY scheduled_at
	`
	rows, err := s.db.Query(ctx, query, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("storage: load appointments: %w", err)
	}
	defer rows.Close()

	var result []appointments.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan appointment: %w", err)
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}

func (s *PostgresStore) GetAppointment(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("storage: get appointment %s: %w", id, appointments.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get appointment: %w", err)
	}
	return appt, nil
}

func (s *PostgresStore) InsertPending(ctx context.Context, appt appointments.Appointment) error {
	if appt.Status != appointments.StatusPending {
		return fmt.Errorf("storage: insert pending: status %q is not pending", appt.Status)
	}
	var pre, post *int
	if appt.Buffer != nil {
		pre, post = &appt.Buffer.PreTravelMinutes, &appt.Buffer.PostTravelMinutes
	}
	query := `
		INSERT INTO appointments (id, provider_id, client_id, scheduled_at, duration_minutes, status, created_at, expires_at, pre_travel_minutes, post_travel_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.Exec(ctx, query,
		appt.ID, appt.ProviderID, appt.ClientID,
		appt.ScheduledAt, appt.DurationMinutes, appt.Status,
		appt.CreatedAt, appt.ExpiresAt, pre, post,
	)
	if err != nil {
		return fmt.Errorf("storage: insert pending: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next appointments.Status) (bool, error) {
	query := `UPDATE appointments SET status = $3 WHERE id = $1 AND status = $2`
	ct, err := s.db.Exec(ctx, query, id, expected, next)
	if err != nil {
		return false, fmt.Errorf("storage: update status: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

func (s *PostgresStore) RecordConfirmReply(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE appointments SET confirm_replies = confirm_replies + 1 WHERE id = $1 RETURNING confirm_replies`
	var replies int
	err := s.db.QueryRow(ctx, query, id).Scan(&replies)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("storage: record confirm reply %s: %w", id, appointments.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("storage: record confirm reply: %w", err)
	}
	return replies, nil
}

func (s *PostgresStore) ExpireDue(ctx context.Context, providerID uuid.UUID, now time.Time) ([]appointments.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = 'expired'
		WHERE status = 'pending'
		  AND expires_at < $1
		  AND ($2::uuid = '00000000-0000-0000-0000-000000000000' OR provider_id = $2)
		RETURNING ` + appointmentColumns
	rows, err := s.db.Query(ctx, query, now, providerID)
	if err != nil {
		return nil, fmt.Errorf("storage: expire due: %w", err)
	}
	defer rows.Close()

	var expired []appointments.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan expired: %w", err)
		}
		expired = append(expired, *appt)
	}
	return expired, rows.Err()
}

func (s *PostgresStore) LoadWorkingHours(ctx context.Context, providerID uuid.UUID) (schedule.WorkingHoursConfig, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT config FROM working_hours WHERE provider_id = $1`, providerID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.WorkingHoursConfig{}, fmt.Errorf("storage: working hours for %s: %w", providerID, appointments.ErrNotFound)
	}
	if err != nil {
		return schedule.WorkingHoursConfig{}, fmt.Errorf("storage: load working hours: %w", err)
	}
	var cfg schedule.WorkingHoursConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return schedule.WorkingHoursConfig{}, fmt.Errorf("storage: decode working hours: %w", err)
	}
	return cfg, nil
}

func (s *PostgresStore) SaveWorkingHours(ctx context.Context, providerID uuid.UUID, cfg schedule.WorkingHoursConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("storage: encode working hours: %w", err)
	}
	query := `
		INSERT INTO working_hours (provider_id, config, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (provider_id) DO UPDATE SET config = EXCLUDED.config, updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, providerID, raw); err != nil {
		return fmt.Errorf("storage: save working hours: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)

// AdvisoryLocker serializes booking attempts per provider with Postgres
// advisory locks, so multiple processes sharing the database contend on the
// same exclusive section. The lock is held on a dedicated connection until
// released.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker creates a provider locker backed by pg advisory locks.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	if pool == nil {
		panic("storage: pgx pool required")
	}
	return &AdvisoryLocker{pool: pool}
}

// advisoryKey folds a provider id into the signed 64-bit keyspace Postgres
// advisory locks use. Every process must derive the same key for the same
// provider, which this does deterministically.
func advisoryKey(providerID uuid.UUID) int64 {
	b := providerID[:]
	return int64(binary.BigEndian.Uint64(b[:8]) ^ binary.BigEndian.Uint64(b[8:]))
}

// Acquire blocks until the provider's advisory lock is held or ctx expires.
// The returned release function must be called exactly once.
func (l *AdvisoryLocker) Acquire(ctx context.Context, providerID uuid.UUID) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: acquire conn: %w", err)
	}
	key := advisoryKey(providerID)
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		conn.Release()
		return nil, fmt.Errorf("storage: advisory lock: %w", err)
	}
	release := func() {
		// Unlock on a background context so a cancelled request still frees
		// the lock.
		_, err := conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		if err == nil {
			conn.Release()
			return
		}
		// The session lock dies with the connection.
		conn.Conn().Close(context.Background())
		conn.Release()
	}
	return release, nil
}
