package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// Sweeper periodically expires lapsed pending holds across all providers.
// The availability resolver also sweeps lazily per provider, so the
// background pass only bounds how long a stale hold can linger when nobody
// is querying.
type Sweeper struct {
	lifecycle *Lifecycle
	interval  time.Duration
	logger    *logging.Logger
}

// NewSweeper constructs a background sweeper.
func NewSweeper(lifecycle *Lifecycle, interval time.Duration, logger *logging.Logger) *Sweeper {
	if lifecycle == nil {
		panic("appointments: lifecycle required")
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{lifecycle: lifecycle, interval: interval, logger: logger}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiry sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.lifecycle.SweepExpired(ctx, uuid.Nil); err != nil {
				s.logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}
