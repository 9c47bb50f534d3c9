package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/schedule"
)

// MemoryStore is an in-memory Store for single-process deployments and
// tests. All reads return copies so callers can never mutate shared state.
type MemoryStore struct {
	mu           sync.RWMutex
	appts        map[uuid.UUID]*appointments.Appointment
	workingHours map[uuid.UUID]schedule.WorkingHoursConfig
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appts:        map[uuid.UUID]*appointments.Appointment{},
		workingHours: map[uuid.UUID]schedule.WorkingHoursConfig{},
	}
}

func (s *MemoryStore) LoadAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]appointments.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []appointments.Appointment
	for _, appt := range s.appts {
		if appt.ProviderID != providerID || !appt.OccupiesCalendar() {
			continue
		}
		if appt.ScheduledAt.Before(to) && appt.End().After(from) {
			result = append(result, *appt)
		}
	}
	return result, nil
}

func (s *MemoryStore) GetAppointment(ctx context.Context, id uuid.UUID) (*appointments.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, fmt.Errorf("storage: get appointment %s: %w", id, appointments.ErrNotFound)
	}
	clone := *appt
	return &clone, nil
}

func (s *MemoryStore) InsertPending(ctx context.Context, appt appointments.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.appts[appt.ID]; exists {
		return fmt.Errorf("storage: insert pending: appointment %s already exists", appt.ID)
	}
	if appt.Status != appointments.StatusPending {
		return fmt.Errorf("storage: insert pending: status %q is not pending", appt.Status)
	}
	clone := appt
	s.appts[appt.ID] = &clone
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id uuid.UUID, expected, next appointments.Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return false, fmt.Errorf("storage: update status %s: %w", id, appointments.ErrNotFound)
	}
	if appt.Status != expected {
		return false, nil
	}
	appt.Status = next
	return true, nil
}

func (s *MemoryStore) RecordConfirmReply(ctx context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return 0, fmt.Errorf("storage: record confirm reply %s: %w", id, appointments.ErrNotFound)
	}
	appt.ConfirmReplies++
	return appt.ConfirmReplies, nil
}

func (s *MemoryStore) ExpireDue(ctx context.Context, providerID uuid.UUID, now time.Time) ([]appointments.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []appointments.Appointment
	for _, appt := range s.appts {
		if providerID != uuid.Nil && appt.ProviderID != providerID {
			continue
		}
		if appt.Status == appointments.StatusPending && now.After(appt.ExpiresAt) {
			appt.Status = appointments.StatusExpired
			expired = append(expired, *appt)
		}
	}
	return expired, nil
}

func (s *MemoryStore) LoadWorkingHours(ctx context.Context, providerID uuid.UUID) (schedule.WorkingHoursConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.workingHours[providerID]
	if !ok {
		return schedule.WorkingHoursConfig{}, fmt.Errorf("storage: working hours for %s: %w", providerID, appointments.ErrNotFound)
	}
	return cfg, nil
}

func (s *MemoryStore) SaveWorkingHours(ctx context.Context, providerID uuid.UUID, cfg schedule.WorkingHoursConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workingHours[providerID] = cfg
	return nil
}

var _ Store = (*MemoryStore)(nil)
