package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"expertdesk/internal/directory"
	"expertdesk/internal/request/models"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/sentinel"
	tags "expertdesk/pkg/platform/strings"
	"expertdesk/pkg/requestcontext"
)

// Assign binds the request privately to one expert.
func (s *Service) Assign(ctx context.Context, requestID, expertID uuid.UUID) (*models.Request, error) {
	if _, err := s.findExpert(ctx, expertID); err != nil {
		return nil, err
	}
	r, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	prev := r.Status
	if err := r.AssignTo(expertID, requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidTransition, err.Error())
	}
	return s.save(ctx, prev, r)
}

// PublishToPool opens the request to every expert holding one of skills.
func (s *Service) PublishToPool(ctx context.Context, requestID uuid.UUID, skills []string) (*models.Request, error) {
	normalized := tags.NormalizeTags(skills)
	if len(normalized) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one required skill is needed")
	}
	r, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := r.OpenToPool(normalized, requestcontext.Now(ctx)); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidTransition, err.Error())
	}
	return s.save(ctx, r.Status, r)
}

// AcceptFromPool lets a qualified expert claim an open request. Exactly one
// of any number of concurrent acceptances wins; the rest see already_assigned.
func (s *Service) AcceptFromPool(ctx context.Context, requestID, expertID uuid.UUID) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "request.accept")
	defer span.End()
	span.SetAttributes(attribute.String("expert.id", expertID.String()))

	expert, err := s.findExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	r, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !r.IsOpen() {
		return nil, s.acceptConflict(ctx, r)
	}
	if !tags.Intersects(expert.Specializations, r.RequiredSkills) {
		return nil, dErrors.New(dErrors.CodeForbidden,
			"expert lacks required skills: "+strings.Join(r.RequiredSkills, ", "))
	}

	prev := r.Status
	accepted, err := s.store.AcceptIfOpen(ctx, requestID, expertID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, s.acceptConflict(ctx, r)
		}
		return nil, s.translate(err, "failed to accept request")
	}
	s.logger.InfoContext(ctx, "request accepted from pool",
		"request_id", requestcontext.RequestID(ctx),
		"display_id", accepted.DisplayID,
		"expert_id", expertID,
	)
	return s.afterWrite(ctx, prev, accepted), nil
}

func (s *Service) acceptConflict(ctx context.Context, r *models.Request) error {
	if s.metrics != nil {
		s.metrics.IncrementPoolAcceptConflicts()
	}
	s.logger.InfoContext(ctx, "pool acceptance lost",
		"request_id", requestcontext.RequestID(ctx),
		"display_id", r.DisplayID,
	)
	return dErrors.Wrap(models.ErrAlreadyAssigned, dErrors.CodeAlreadyAssigned, "request already assigned")
}

// ListPool returns the open requests whose skills intersect the expert's.
func (s *Service) ListPool(ctx context.Context, expertID uuid.UUID) ([]*models.Request, error) {
	expert, err := s.findExpert(ctx, expertID)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListOpen(ctx, expert.Specializations)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pool")
	}
	return list, nil
}

func (s *Service) findExpert(ctx context.Context, id uuid.UUID) (*directory.Expert, error) {
	if id == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeValidation, "expertId is required")
	}
	expert, err := s.directory.FindExpert(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "expert not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load expert")
	}
	return expert, nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
