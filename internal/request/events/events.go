// Package events carries request domain events between the request service
// and independent consumers such as the invoice cascade.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"expertdesk/internal/request/models"
)

// Type names an event for routing and for the outbox.
type Type string

const (
	TypeRequestPaid   Type = "request.paid"
	TypeInvoiceIssued Type = "invoice.issued"
)

// Event is published synchronously on the Bus.
type Event interface {
	EventType() Type
	AggregateID() uuid.UUID
}

// RequestPaid fires the first time a request enters the cascade trigger status.
type RequestPaid struct {
	Request    *models.Request
	OccurredAt time.Time
}

func (e RequestPaid) EventType() Type        { return TypeRequestPaid }
func (e RequestPaid) AggregateID() uuid.UUID { return e.Request.ID }

// InvoiceIssued fires after the cascade links an invoice to its request.
type InvoiceIssued struct {
	InvoiceID        uuid.UUID
	InvoiceDisplayID string
	RequestID        uuid.UUID
	ClientID         uuid.UUID
	Amount           string
	OccurredAt       time.Time
}

func (e InvoiceIssued) EventType() Type        { return TypeInvoiceIssued }
func (e InvoiceIssued) AggregateID() uuid.UUID { return e.RequestID }

// Handler consumes one event type.
type Handler func(ctx context.Context, event Event) error

// Bus dispatches events to registered handlers in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]Handler)}
}

// Register adds h for t.
func (b *Bus) Register(t Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[t] = append(b.handlers[t], h)
}

// Publish runs every handler for the event. All handlers run even when one
// fails; the failures are joined.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventType()]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
