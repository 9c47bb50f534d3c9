package notify

import (
	"context"
	"fmt"

	"github.com/ryankall/clipprmobile-sub007/internal/appointments"
	"github.com/ryankall/clipprmobile-sub007/internal/events"
	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// SMSSender sends SMS messages to clients.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// ClientDirectory resolves a client id to a reachable phone number.
type ClientDirectory interface {
	PhoneNumber(ctx context.Context, clientID string) (string, error)
}

// Service sends client-facing notifications for appointment lifecycle
// changes. It subscribes to the event bus; delivery failures are logged and
// never block the lifecycle.
type Service struct {
	sms       SMSSender
	directory ClientDirectory
	logger    *logging.Logger
}

// NewService creates a notification service.
func NewService(sms SMSSender, directory ClientDirectory, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{sms: sms, directory: directory, logger: logger}
}

// HandleStatusChange formats and sends an SMS for the transition. Implements
// events.Handler.
func (s *Service) HandleStatusChange(ctx context.Context, evt events.AppointmentStatusChangedV1) error {
	if s.sms == nil || s.directory == nil {
		s.logger.Debug("notify: sender not configured, skipping", "event_id", evt.EventID)
		return nil
	}

	body := messageFor(evt)
	if body == "" {
		return nil
	}

	phone, err := s.directory.PhoneNumber(ctx, evt.ClientID)
	if err != nil {
		return fmt.Errorf("notify: resolve client phone: %w", err)
	}
	if phone == "" {
		s.logger.Debug("notify: client has no phone on file", "client_id", evt.ClientID)
		return nil
	}

	if err := s.sms.SendSMS(ctx, phone, body); err != nil {
		return fmt.Errorf("notify: send sms: %w", err)
	}
	s.logger.Info("notification sent",
		"appointment_id", evt.AppointmentID,
		"status", evt.NewStatus,
	)
	return nil
}

func messageFor(evt events.AppointmentStatusChangedV1) string {
	when := evt.ScheduledAt.Format("Monday, January 2 at 3:04 PM")
	switch appointments.Status(evt.NewStatus) {
	case appointments.StatusConfirmed:
		return fmt.Sprintf("Your appointment on %s is confirmed. See you then!", when)
	case appointments.StatusCancelled:
		return fmt.Sprintf("Your appointment on %s has been cancelled.", when)
	case appointments.StatusExpired:
		return fmt.Sprintf("Your hold for %s expired before it was confirmed. The slot has been released; please book again.", when)
	default:
		return ""
	}
}

var _ events.Handler = (*Service)(nil)
