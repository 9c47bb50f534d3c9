package notify

import (
	"context"

	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// LogSender writes messages to the log instead of a carrier. Default sender
// for local development and tests.
type LogSender struct {
	logger *logging.Logger
}

// NewLogSender creates a log-backed SMS sender.
func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("sms (log sender)", "to", to, "body", body)
	return nil
}

var _ SMSSender = (*LogSender)(nil)

// EchoDirectory addresses messages by client id. Pairs with LogSender in
// deployments that have no client contact store wired yet.
type EchoDirectory struct{}

func (EchoDirectory) PhoneNumber(ctx context.Context, clientID string) (string, error) {
	return clientID, nil
}

var _ ClientDirectory = EchoDirectory{}
