package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"expertdesk/internal/request/models"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/sentinel"
	"expertdesk/pkg/requestcontext"
)

// UpdateDetails carries the editable fields of a request; nil fields are left
// unchanged.
type UpdateDetails struct {
	Description *string
	Amount      *decimal.Decimal
}

// Transition moves the request to next along the lifecycle graph. Writing
// the current status again is accepted and persisted.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, next models.Status) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "request.transition")
	defer span.End()
	span.SetAttributes(attribute.String("request.status.to", string(next)))

	if _, err := models.ParseStatus(string(next)); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := r.Status
	if err := r.TransitionTo(next, requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidTransition, err.Error())
	}
	return s.save(ctx, prev, r)
}

// Cancel moves any non-completed request to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	return s.Transition(ctx, id, models.StatusCancelled)
}

// Reactivate returns a cancelled request to NEW.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := r.Status
	if err := r.Reactivate(requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidTransition, err.Error())
	}
	return s.save(ctx, prev, r)
}

// UpdateDetails edits the description and amount. The amount is frozen once
// an invoice has been issued for the request.
func (s *Service) UpdateDetails(ctx context.Context, id uuid.UUID, upd UpdateDetails) (*models.Request, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Description != nil {
		r.Description = *upd.Description
	}
	if upd.Amount != nil {
		if upd.Amount.IsNegative() {
			return nil, dErrors.New(dErrors.CodeValidation, "amount must not be negative")
		}
		if !upd.Amount.Equal(r.Amount) && r.HasInvoice() {
			return nil, dErrors.New(dErrors.CodeConflict, "amount is locked by invoice "+r.InvoiceDisplayID)
		}
		r.Amount = *upd.Amount
	}
	r.UpdatedAt = requestcontext.Now(ctx)
	return s.save(ctx, r.Status, r)
}

// AppendBatch adds a delivery batch to the request.
func (s *Service) AppendBatch(ctx context.Context, requestID uuid.UUID, nb models.NewBatch) (*models.Batch, error) {
	nb.Normalize()
	if err := nb.Validate(); err != nil {
		return nil, err
	}
	r, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.Status == models.StatusCancelled {
		return nil, dErrors.New(dErrors.CodeConflict, "cannot add a batch to a cancelled request")
	}
	batch := models.BuildBatch(uuid.New(), r.ID, nb, requestcontext.Now(ctx))
	if err := s.store.AppendBatch(ctx, batch); err != nil {
		return nil, s.translate(err, "failed to append batch")
	}
	return &batch, nil
}

// AppendFile records file metadata on a batch of the request.
func (s *Service) AppendFile(ctx context.Context, requestID, batchID uuid.UUID, nf models.NewFile) (*models.File, error) {
	nf.Name = trim(nf.Name)
	nf.URL = trim(nf.URL)
	if err := nf.Validate(); err != nil {
		return nil, err
	}
	r, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, ok := r.FindBatch(batchID); !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "batch not found")
	}
	file := models.BuildFile(uuid.New(), batchID, nf, requestcontext.Now(ctx))
	if err := s.store.AppendFile(ctx, r.ID, file); err != nil {
		return nil, s.translate(err, "failed to append file")
	}
	return &file, nil
}

// save persists r and runs the post-write hooks for a move from prev.
func (s *Service) save(ctx context.Context, prev models.Status, r *models.Request) (*models.Request, error) {
	if err := s.store.Update(ctx, r); err != nil {
		return nil, s.translate(err, "failed to update request")
	}
	if prev != r.Status {
		s.logger.InfoContext(ctx, "request status changed",
			"request_id", requestcontext.RequestID(ctx),
			"display_id", r.DisplayID,
			"from", prev,
			"to", r.Status,
		)
	}
	return s.afterWrite(ctx, prev, r), nil
}

// translate maps store facts to domain errors.
func (s *Service) translate(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "amount is locked by an issued invoice")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
