package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Publisher delivers relayed messages, e.g. to a Kafka topic.
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
}

// Metrics is the subset of platform metrics the relay reports to.
type Metrics interface {
	IncrementOutboxPublished(n int)
	IncrementOutboxPublishFailures()
}

// Transactor runs fn in a transaction carried by the ctx it receives.
type Transactor func(ctx context.Context, fn func(ctx context.Context) error) error

// Relay polls the outbox and publishes pending entries. Delivery is at least
// once: an entry is marked processed only after Publish succeeds.
type Relay struct {
	store     Store
	publisher Publisher
	interval  time.Duration
	batchSize int
	inTx      Transactor
	logger    *slog.Logger
	metrics   Metrics
}

type RelayOption func(*Relay)

func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func WithTransactor(t Transactor) RelayOption {
	return func(r *Relay) {
		r.inTx = t
	}
}

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

func NewRelay(store Store, publisher Publisher, opts ...RelayOption) *Relay {
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		inTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Publish failures are logged and retried
// on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					r.logger.WarnContext(ctx, "outbox relay failed", "error", err)
					break
				}
				if n < r.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries it relayed.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var relayed int
	err := r.inTx(ctx, func(ctx context.Context) error {
		entries, err := r.store.FetchUnprocessed(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			ids[i] = e.ID
			msgs[i] = Message{
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: map[string]string{
					"event_id":       e.ID.String(),
					"event_type":     e.EventType,
					"aggregate_type": e.AggregateType,
				},
			}
		}
		if err := r.publisher.Publish(ctx, msgs); err != nil {
			if r.metrics != nil {
				r.metrics.IncrementOutboxPublishFailures()
			}
			return fmt.Errorf("publish outbox batch: %w", err)
		}
		if err := r.store.MarkProcessed(ctx, ids, time.Now()); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if relayed > 0 && r.metrics != nil {
		r.metrics.IncrementOutboxPublished(relayed)
	}
	return relayed, nil
}
