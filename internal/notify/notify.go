// Package notify delivers leave lifecycle events to chat and the event bus.
// Delivery is best effort: callers log failures and move on.
package notify

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	EventSubmitted    EventType = "leave.submitted"
	EventStepApproved EventType = "leave.step_approved"
	EventApproved     EventType = "leave.approved"
	EventRejected     EventType = "leave.rejected"
	EventProcessed    EventType = "leave.processed"
)

type Event struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"request_id"`
	EmployeeID uint      `json:"employee_id"`
	ActorID    uint      `json:"actor_id"`
	Status     string    `json:"status"`
	Category   string    `json:"category"`
	Days       int       `json:"days"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

// Multi fans an event out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
