package events

import (
	"context"
	"sync"

	"github.com/ryankall/clipprmobile-sub007/pkg/logging"
)

// Handler consumes a lifecycle event.
type Handler interface {
	HandleStatusChange(ctx context.Context, evt AppointmentStatusChangedV1) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt AppointmentStatusChangedV1) error

func (f HandlerFunc) HandleStatusChange(ctx context.Context, evt AppointmentStatusChangedV1) error {
	return f(ctx, evt)
}

// Bus is an in-process publisher that fans events out to subscribed handlers
// without blocking the caller. Suitable for single-process deployments; the
// outbox store covers durable delivery.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	wg       sync.WaitGroup
	logger   *logging.Logger
}

// NewBus creates an in-process event bus.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers a handler for future events.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish dispatches the event to every subscriber asynchronously. Handler
// errors are logged, never propagated to the publisher.
func (b *Bus) Publish(ctx context.Context, evt AppointmentStatusChangedV1) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			if err := h.HandleStatusChange(context.WithoutCancel(ctx), evt); err != nil {
				b.logger.Error("events: handler failed",
					"error", err,
					"event_id", evt.EventID,
					"appointment_id", evt.AppointmentID,
				)
			}
		}(h)
	}
}

// Wait blocks until all in-flight deliveries complete. Test helper and
// shutdown hook.
func (b *Bus) Wait() {
	b.wg.Wait()
}

var _ Publisher = (*Bus)(nil)
