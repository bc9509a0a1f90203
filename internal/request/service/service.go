// Package service orchestrates the request lifecycle: creation with display
// id allocation and dedup, status transitions, routing to experts and the
// hand-off to the invoice cascade.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"expertdesk/internal/directory"
	invoicemodels "expertdesk/internal/invoice/models"
	"expertdesk/internal/request/displayid"
	"expertdesk/internal/request/events"
	"expertdesk/internal/request/models"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/sentinel"
	"expertdesk/pkg/requestcontext"
)

// DefaultDedupWindow collapses repeated submissions of the same order.
const DefaultDedupWindow = 10 * time.Second

var tracer = otel.Tracer("expertdesk/request")

// Store persists requests with their batches and files.
type Store interface {
	Insert(ctx context.Context, r *models.Request) error
	LatestDisplayID(ctx context.Context) (string, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Request, error)
	FindRecentByReference(ctx context.Context, clientID uuid.UUID, ref models.Reference, since time.Time) (*models.Request, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*models.Request, error)
	ListOpen(ctx context.Context, skills []string) ([]*models.Request, error)
	Update(ctx context.Context, r *models.Request) error
	AcceptIfOpen(ctx context.Context, id, expertID uuid.UUID, now time.Time) (*models.Request, error)
	AppendBatch(ctx context.Context, b models.Batch) error
	AppendFile(ctx context.Context, requestID uuid.UUID, f models.File) error
}

// Directory resolves the catalogue entities a request references.
type Directory interface {
	FindClient(ctx context.Context, id uuid.UUID) (*directory.Client, error)
	FindExpert(ctx context.Context, id uuid.UUID) (*directory.Expert, error)
	FindService(ctx context.Context, id uuid.UUID) (*directory.Service, error)
	FindPricingPlan(ctx context.Context, id uuid.UUID) (*directory.PricingPlan, error)
}

// Allocator assigns a unique display id by retrying insert on collision.
type Allocator interface {
	Allocate(ctx context.Context, latest displayid.LatestFunc, insert displayid.InsertFunc) (string, error)
}

// Publisher dispatches domain events to their consumers.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// InvoiceLookup finds the invoice issued for a request, nil when none exists.
type InvoiceLookup interface {
	FindForRequest(ctx context.Context, requestID uuid.UUID) (*invoicemodels.Invoice, error)
}

// Metrics is the subset of platform metrics the lifecycle reports to.
type Metrics interface {
	IncrementRequestsCreated()
	IncrementDedupHits()
	IncrementStatusTransitions(from, to string)
	IncrementCascadeFailures()
	IncrementPoolAcceptConflicts()
}

type Service struct {
	store         Store
	directory     Directory
	allocator     Allocator
	publisher     Publisher
	invoices      InvoiceLookup
	dedupWindow   time.Duration
	cascadeStatus models.Status
	inflight      singleflight.Group
	logger        *slog.Logger
	metrics       Metrics
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

func WithAllocator(a Allocator) Option {
	return func(s *Service) {
		s.allocator = a
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithInvoiceLookup(l InvoiceLookup) Option {
	return func(s *Service) {
		s.invoices = l
	}
}

// WithDedupWindow sets how far back a repeated order is collapsed. Zero
// disables deduplication.
func WithDedupWindow(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.dedupWindow = d
		}
	}
}

// WithCascadeStatus sets the status whose first entry publishes RequestPaid.
func WithCascadeStatus(status models.Status) Option {
	return func(s *Service) {
		s.cascadeStatus = status
	}
}

func New(store Store, dir Directory, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("request store is required")
	}
	if dir == nil {
		return nil, fmt.Errorf("directory is required")
	}
	svc := &Service{
		store:         store,
		directory:     dir,
		dedupWindow:   DefaultDedupWindow,
		cascadeStatus: models.StatusNew,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.allocator == nil {
		svc.allocator = displayid.NewRequestAllocator(displayid.WithLogger(svc.logger))
	}
	if _, err := models.ParseStatus(string(svc.cascadeStatus)); err != nil {
		return nil, fmt.Errorf("cascade status: %w", err)
	}
	return svc, nil
}

// Create validates cmd and persists a new request under a freshly allocated
// display id. A repeat of the same order within the dedup window returns the
// earlier request unchanged.
func (s *Service) Create(ctx context.Context, cmd *models.CreateRequest) (*models.Request, error) {
	ctx, span := tracer.Start(ctx, "request.create")
	defer span.End()

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := s.resolveReferences(ctx, cmd); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("request.reference", cmd.Reference().Key()))

	if s.dedupWindow == 0 {
		return s.create(ctx, cmd)
	}
	key := cmd.ClientID.String() + "|" + cmd.Reference().Key()
	// the flight outlives whichever caller started it
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.createUnlessDuplicate(shared, cmd)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Request).Clone(), nil
}

// resolveReferences checks the client and the catalogue item and fills the
// amount from the catalogue price when none was given.
func (s *Service) resolveReferences(ctx context.Context, cmd *models.CreateRequest) error {
	if _, err := s.directory.FindClient(ctx, cmd.ClientID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "client not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}

	var price = cmd.Amount
	switch {
	case cmd.PricingPlanID != nil:
		plan, err := s.directory.FindPricingPlan(ctx, *cmd.PricingPlanID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeBadRequest, "invalid pricing plan")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pricing plan")
		}
		price = plan.Price
	case cmd.ServiceID != nil:
		svc, err := s.directory.FindService(ctx, *cmd.ServiceID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeBadRequest, "invalid service")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load service")
		}
		price = svc.Price
	}
	if cmd.Amount.IsZero() {
		cmd.Amount = price
	}
	return nil
}

func (s *Service) createUnlessDuplicate(ctx context.Context, cmd *models.CreateRequest) (*models.Request, error) {
	since := requestcontext.Now(ctx).Add(-s.dedupWindow)
	existing, err := s.store.FindRecentByReference(ctx, cmd.ClientID, cmd.Reference(), since)
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.IncrementDedupHits()
		}
		s.logger.InfoContext(ctx, "duplicate request collapsed",
			"request_id", requestcontext.RequestID(ctx),
			"display_id", existing.DisplayID,
			"client_id", cmd.ClientID,
		)
		return existing, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for duplicates")
	}
	return s.create(ctx, cmd)
}

func (s *Service) create(ctx context.Context, cmd *models.CreateRequest) (*models.Request, error) {
	r := models.NewRequest(uuid.New(), cmd, requestcontext.Now(ctx))

	_, err := s.allocator.Allocate(ctx, s.store.LatestDisplayID, func(ctx context.Context, displayID string) error {
		r.DisplayID = displayID
		return s.store.Insert(ctx, r)
	})
	if err != nil {
		if errors.Is(err, displayid.ErrExhausted) {
			s.logger.ErrorContext(ctx, "display id allocation exhausted",
				"request_id", requestcontext.RequestID(ctx),
				"client_id", cmd.ClientID,
				"error", err,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeAllocationExhausted, "could not allocate a display id")
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "request creation timed out")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}

	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
	}
	s.logger.InfoContext(ctx, "request created",
		"request_id", requestcontext.RequestID(ctx),
		"display_id", r.DisplayID,
		"client_id", r.ClientID,
		"status", r.Status,
	)
	return s.afterWrite(ctx, "", r), nil
}

// Get returns one request with its references expanded.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*RequestView, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return newExpander(s).expand(ctx, r)
}

// ListForClient returns the client's requests newest first with their
// references expanded.
func (s *Service) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*RequestView, error) {
	if clientID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "clientId is required")
	}
	list, err := s.store.ListByClient(ctx, clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	exp := newExpander(s)
	views := make([]*RequestView, 0, len(list))
	for _, r := range list {
		view, err := exp.expand(ctx, r)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*models.Request, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load request")
	}
	return r, nil
}

// afterWrite records the status move and, on the first entry into the cascade
// status, publishes RequestPaid. Cascade failures never fail the write that
// triggered them.
func (s *Service) afterWrite(ctx context.Context, prev models.Status, r *models.Request) *models.Request {
	if prev != r.Status && s.metrics != nil {
		s.metrics.IncrementStatusTransitions(string(prev), string(r.Status))
	}
	if !s.triggersCascade(prev, r) || s.publisher == nil {
		return r
	}

	event := events.RequestPaid{Request: r.Clone(), OccurredAt: requestcontext.Now(ctx)}
	if err := s.publisher.Publish(ctx, event); err != nil {
		if s.metrics != nil {
			s.metrics.IncrementCascadeFailures()
		}
		s.logger.WarnContext(ctx, "invoice cascade failed",
			"request_id", requestcontext.RequestID(ctx),
			"display_id", r.DisplayID,
			"error", err,
		)
	}

	// a partly failed cascade may still have linked the invoice
	refreshed, err := s.store.FindByID(ctx, r.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload request after cascade",
			"display_id", r.DisplayID,
			"error", err,
		)
		return r
	}
	return refreshed
}

func (s *Service) triggersCascade(prev models.Status, r *models.Request) bool {
	return r.Status == s.cascadeStatus && prev != s.cascadeStatus && !r.HasInvoice()
}
