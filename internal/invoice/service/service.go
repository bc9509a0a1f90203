// Package service runs the invoice cascade: the first time a request is
// paid it derives an invoice, numbers it and links it back to the request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"expertdesk/internal/invoice/models"
	"expertdesk/internal/request/displayid"
	"expertdesk/internal/request/events"
	requestmodels "expertdesk/internal/request/models"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/sentinel"
	"expertdesk/pkg/requestcontext"
)

var tracer = otel.Tracer("expertdesk/invoice")

// Store persists invoices.
type Store interface {
	Create(ctx context.Context, inv *models.Invoice) (*models.Invoice, error)
	SetDisplayID(ctx context.Context, id uuid.UUID, displayID string) error
	FindByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Invoice, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invoice, error)
}

// RequestLinker writes the invoice display id back onto the request.
type RequestLinker interface {
	SetInvoiceDisplayID(ctx context.Context, requestID uuid.UUID, displayID string, now time.Time) error
}

// EventRecorder appends domain events to the outbox.
type EventRecorder interface {
	Record(ctx context.Context, event events.Event) error
}

// Metrics is the subset of platform metrics the cascade reports to.
type Metrics interface {
	IncrementInvoicesIssued()
}

type Service struct {
	store    Store
	requests RequestLinker
	recorder EventRecorder
	vatRate  decimal.Decimal
	logger   *slog.Logger
	metrics  Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEventRecorder(r EventRecorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

func WithVATRate(rate decimal.Decimal) Option {
	return func(s *Service) {
		s.vatRate = rate
	}
}

func New(store Store, requests RequestLinker, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("invoice store is required")
	}
	if requests == nil {
		return nil, fmt.Errorf("request linker is required")
	}
	svc := &Service{
		store:    store,
		requests: requests,
		vatRate:  models.DefaultVATRate,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// HandleRequestPaid is the events.Handler registered for TypeRequestPaid.
func (s *Service) HandleRequestPaid(ctx context.Context, event events.Event) error {
	paid, ok := event.(events.RequestPaid)
	if !ok || paid.Request == nil {
		return fmt.Errorf("unexpected event %T for %s", event, events.TypeRequestPaid)
	}
	_, err := s.IssueInvoice(ctx, paid.Request)
	return err
}

// IssueInvoice creates the invoice for r. Issuing again for the same request
// returns the existing invoice.
func (s *Service) IssueInvoice(ctx context.Context, r *requestmodels.Request) (*models.Invoice, error) {
	ctx, span := tracer.Start(ctx, "invoice.issue")
	defer span.End()
	span.SetAttributes(attribute.String("request.display_id", r.DisplayID))

	now := requestcontext.Now(ctx)

	existing, err := s.store.FindByRequestID(ctx, r.ID)
	switch {
	case err == nil:
		return s.complete(ctx, existing, now)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up invoice")
	}

	inv := models.NewInvoice(uuid.New(), r.ID, r.ClientID, r.Amount, s.vatRate, now)
	created, err := s.store.Create(ctx, inv)
	if err != nil {
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create invoice")
		}
		// a concurrent cascade won; converge on its invoice
		created, err = s.store.FindByRequestID(ctx, r.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load concurrent invoice")
		}
		return s.complete(ctx, created, now)
	}

	out, err := s.complete(ctx, created, now)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementInvoicesIssued()
	}
	s.logger.InfoContext(ctx, "invoice issued",
		"request_id", requestcontext.RequestID(ctx),
		"request_display_id", r.DisplayID,
		"invoice_display_id", out.DisplayID,
		"amount", out.Amount.String(),
	)
	if s.recorder != nil {
		event := events.InvoiceIssued{
			InvoiceID:        out.ID,
			InvoiceDisplayID: out.DisplayID,
			RequestID:        out.RequestID,
			ClientID:         out.ClientID,
			Amount:           out.Amount.String(),
			OccurredAt:       now,
		}
		if err := s.recorder.Record(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "failed to record invoice issued event",
				"invoice_display_id", out.DisplayID,
				"error", err,
			)
		}
	}
	return out, nil
}

// complete numbers the invoice if needed and links it to the request. Both
// writes are idempotent, so a cascade interrupted between them is repaired by
// the next issuance.
func (s *Service) complete(ctx context.Context, inv *models.Invoice, now time.Time) (*models.Invoice, error) {
	if inv.DisplayID == "" {
		displayID, err := displayid.Format(displayid.InvoicePrefix, displayid.InvoiceWidth, inv.SeqID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to number invoice")
		}
		if err := s.store.SetDisplayID(ctx, inv.ID, displayID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist invoice number")
		}
		inv.DisplayID = displayID
	}
	if err := s.requests.SetInvoiceDisplayID(ctx, inv.RequestID, inv.DisplayID, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link invoice to request")
	}
	return inv, nil
}

// ListForClient returns the client's invoices newest first.
func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invoice, error) {
	if clientID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "clientId is required")
	}
	list, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list invoices")
	}
	return list, nil
}

// FindForRequest returns the invoice of a request, or nil when none exists.
func (s *Service) FindForRequest(ctx context.Context, requestID uuid.UUID) (*models.Invoice, error) {
	inv, err := s.store.FindByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up invoice")
	}
	return inv, nil
}
