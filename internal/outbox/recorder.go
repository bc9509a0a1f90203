package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"expertdesk/internal/request/events"
	"expertdesk/pkg/requestcontext"
)

// Store persists outbox entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Recorder turns domain events into outbox entries.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

type RecorderOption func(*Recorder)

func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// requestPaidPayload is the wire shape consumers of request.paid rely on.
type requestPaidPayload struct {
	RequestID   string `json:"requestId"`
	DisplayID   string `json:"displayId"`
	ClientID    string `json:"clientId"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	OccurredAt  string `json:"occurredAt"`
	CorrelateID string `json:"correlationId,omitempty"`
}

type invoiceIssuedPayload struct {
	InvoiceID        string `json:"invoiceId"`
	InvoiceDisplayID string `json:"invoiceDisplayId"`
	RequestID        string `json:"requestId"`
	ClientID         string `json:"clientId"`
	Amount           string `json:"amount"`
	OccurredAt       string `json:"occurredAt"`
	CorrelateID      string `json:"correlationId,omitempty"`
}

// Record appends event to the outbox. Inside a transaction carried by ctx the
// entry commits or rolls back with it.
func (r *Recorder) Record(ctx context.Context, event events.Event) error {
	payload, aggregateType, err := encode(ctx, event)
	if err != nil {
		return err
	}
	entry := &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   event.AggregateID().String(),
		EventType:     string(event.EventType()),
		Payload:       payload,
		CreatedAt:     requestcontext.Now(ctx),
	}
	if err := r.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append outbox entry: %w", err)
	}
	return nil
}

// Handle lets the recorder subscribe to the event bus. A failed append is
// logged and not returned: it must not read as a failure of the handlers
// sharing the event.
func (r *Recorder) Handle(ctx context.Context, event events.Event) error {
	if err := r.Record(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "failed to record outbox event",
			"request_id", requestcontext.RequestID(ctx),
			"event_type", string(event.EventType()),
			"aggregate_id", event.AggregateID().String(),
			"error", err,
		)
	}
	return nil
}

func encode(ctx context.Context, event events.Event) ([]byte, string, error) {
	correlationID := requestcontext.RequestID(ctx)
	var (
		v             any
		aggregateType string
	)
	switch e := event.(type) {
	case events.RequestPaid:
		aggregateType = "request"
		v = requestPaidPayload{
			RequestID:   e.Request.ID.String(),
			DisplayID:   e.Request.DisplayID,
			ClientID:    e.Request.ClientID.String(),
			Amount:      e.Request.Amount.String(),
			Status:      string(e.Request.Status),
			OccurredAt:  e.OccurredAt.UTC().Format(time.RFC3339Nano),
			CorrelateID: correlationID,
		}
	case events.InvoiceIssued:
		aggregateType = "invoice"
		v = invoiceIssuedPayload{
			InvoiceID:        e.InvoiceID.String(),
			InvoiceDisplayID: e.InvoiceDisplayID,
			RequestID:        e.RequestID.String(),
			ClientID:         e.ClientID.String(),
			Amount:           e.Amount,
			OccurredAt:       e.OccurredAt.UTC().Format(time.RFC3339Nano),
			CorrelateID:      correlationID,
		}
	default:
		return nil, "", fmt.Errorf("no outbox encoding for event %s", event.EventType())
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}
	return b, aggregateType, nil
}
