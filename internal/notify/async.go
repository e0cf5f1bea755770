package notify

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("notifier closed")

// Async hands events to a background worker. Notify never blocks: when the
// buffer is full the event is dropped and logged.
type Async struct {
	next    Notifier
	events  chan Event
	timeout time.Duration
	logger  *logrus.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAsync(next Notifier, buffer int, timeout time.Duration, logger *logrus.Logger) *Async {
	if buffer < 1 {
		buffer = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	a := &Async{
		next:    next,
		events:  make(chan Event, buffer),
		timeout: timeout,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Notify(_ context.Context, event Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return ErrClosed
	}

	select {
	case a.events <- event:
	default:
		a.logger.WithFields(logrus.Fields{
			"event":      event.Type,
			"request_id": event.RequestID,
		}).Warn("notification buffer full, event dropped")
	}
	return nil
}

// Close stops accepting events and waits until the buffer is drained.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.events)
	}
	a.mu.Unlock()

	<-a.done
}

func (a *Async) run() {
	defer close(a.done)

	for event := range a.events {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.next.Notify(ctx, event); err != nil {
			a.logger.WithError(err).WithFields(logrus.Fields{
				"event":      event.Type,
				"request_id": event.RequestID,
			}).Warn("notification delivery failed")
		}
		cancel()
	}
}
