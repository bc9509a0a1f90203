package clientsync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"expertdesk/internal/request/handler"
	"expertdesk/internal/request/models"
)

// API is the slice of the request API the syncer needs.
type API interface {
	ListRequests(ctx context.Context, clientID uuid.UUID) ([]models.Request, error)
	CreateRequest(ctx context.Context, body *handler.CreateRequestBody) (*models.Request, error)
}

// SubmitError reports a create that was shown optimistically and then failed.
type SubmitError struct {
	LocalID uuid.UUID
	Err     error
}

func (e *SubmitError) Error() string {
	return "submit " + e.LocalID.String() + ": " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// Syncer keeps one client's Store consistent with the server.
type Syncer struct {
	api      API
	store    *Store
	clientID uuid.UUID
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	resync   singleflight.Group
	inflight sync.WaitGroup
	failures chan *SubmitError
}

type SyncerOption func(*Syncer)

func WithInterval(d time.Duration) SyncerOption {
	return func(s *Syncer) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithSyncLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = logger
	}
}

func NewSyncer(api API, store *Store, clientID uuid.UUID, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		api:      api,
		store:    store,
		clientID: clientID,
		interval: 30 * time.Second,
		logger:   slog.Default(),
		now:      time.Now,
		failures: make(chan *SubmitError, 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Failures delivers submits whose optimistic entry was discarded. Failures
// are dropped when nobody drains the channel.
func (s *Syncer) Failures() <-chan *SubmitError {
	return s.failures
}

// Resync fetches the client's requests and merges them into the store.
// Concurrent calls share one fetch.
func (s *Syncer) Resync(ctx context.Context) error {
	_, err, _ := s.resync.Do(s.clientID.String(), func() (any, error) {
		list, err := s.api.ListRequests(ctx, s.clientID)
		if err != nil {
			return nil, err
		}
		return nil, s.store.Merge(list)
	})
	return err
}

// Run resyncs immediately and then on every tick until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.Resync(ctx); err != nil && ctx.Err() == nil {
			s.logger.WarnContext(ctx, "client resync failed",
				"client_id", s.clientID,
				"error", err,
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Submit shows the new request immediately and persists it in the
// background. The returned entry carries a local id until the server
// acknowledges it.
func (s *Syncer) Submit(ctx context.Context, body *handler.CreateRequestBody) (Entry, error) {
	now := s.now()
	local := models.Request{
		ID:             uuid.New(),
		ClientID:       s.clientID,
		ServiceID:      body.ServiceID,
		PricingPlanID:  body.PricingPlanID,
		Amount:         body.Amount,
		Description:    body.Description,
		Status:         models.StatusPendingPayment,
		Visibility:     models.VisibilityAssigned,
		RequiredSkills: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
		Batches:        []models.Batch{},
	}
	entry, err := s.store.Create(local)
	if err != nil {
		return Entry{}, err
	}

	payload := *body
	payload.ClientID = s.clientID
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.persist(context.WithoutCancel(ctx), local.ID, &payload)
	}()
	return entry, nil
}

// Wait blocks until every background submit has settled.
func (s *Syncer) Wait() {
	s.inflight.Wait()
}

func (s *Syncer) persist(ctx context.Context, localID uuid.UUID, body *handler.CreateRequestBody) {
	created, err := s.api.CreateRequest(ctx, body)
	if err == nil {
		if ackErr := s.store.Acknowledge(localID, *created); ackErr != nil {
			s.logger.WarnContext(ctx, "acknowledge after close", "local_id", localID, "error", ackErr)
		}
		return
	}

	s.logger.WarnContext(ctx, "optimistic create failed",
		"client_id", s.clientID,
		"local_id", localID,
		"error", err,
	)
	_ = s.store.Discard(localID)
	select {
	case s.failures <- &SubmitError{LocalID: localID, Err: err}:
	default:
	}
}
