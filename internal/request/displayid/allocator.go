package displayid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expertdesk/pkg/platform/sentinel"
)

// LatestFunc returns the greatest display id currently stored for the
// allocator's prefix, or "" when none exists.
type LatestFunc func(ctx context.Context) (string, error)

// InsertFunc persists the owning record under displayID. It must return an
// error wrapping sentinel.ErrAlreadyUsed when the uniqueness constraint
// rejects the value.
type InsertFunc func(ctx context.Context, displayID string) error

// Sequence is an atomic counter keyed by prefix.
type Sequence interface {
	Next(ctx context.Context, prefix string) (int64, error)
	// Advance raises the counter to at least n.
	Advance(ctx context.Context, prefix string, n int64) error
}

// Metrics is the subset of platform metrics the allocator reports to.
type Metrics interface {
	IncrementDisplayIDCollisions(prefix string)
	IncrementAllocationExhausted(prefix string)
	IncrementSequenceFallbacks(prefix string)
}

// Allocator produces unique display ids through read-compute-insert with a
// bounded retry. Uniqueness comes from the store constraint; ids are not
// guaranteed to be strictly monotonic under concurrency.
type Allocator struct {
	prefix      string
	width       int
	maxAttempts int
	seq         Sequence
	logger      *slog.Logger
	metrics     Metrics
}

type Option func(*Allocator)

func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// WithSequence makes the allocator try seq before falling back to the loop.
func WithSequence(seq Sequence) Option {
	return func(a *Allocator) {
		a.seq = seq
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Allocator) {
		a.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(a *Allocator) {
		a.metrics = m
	}
}

func New(prefix string, width int, opts ...Option) *Allocator {
	a := &Allocator{
		prefix:      prefix,
		width:       width,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewRequestAllocator returns an allocator for REQ-###### ids.
func NewRequestAllocator(opts ...Option) *Allocator {
	return New(RequestPrefix, RequestWidth, opts...)
}

func (a *Allocator) Prefix() string {
	return a.prefix
}

// Allocate runs the allocation algorithm and returns the id insert accepted.
// Every uniqueness violation, including one on the sequence candidate, counts
// toward maxAttempts. Other insert errors end the call immediately.
func (a *Allocator) Allocate(ctx context.Context, latest LatestFunc, insert InsertFunc) (string, error) {
	attempt := 1
	if a.seq != nil {
		id, ok, collided, err := a.fromSequence(ctx, insert)
		if err != nil || ok {
			return id, err
		}
		if collided {
			attempt++
		}
	}

	for ; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		current, err := latest(ctx)
		if err != nil {
			return "", fmt.Errorf("read latest %s display id: %w", a.prefix, err)
		}
		n, err := Parse(a.prefix, current)
		if err != nil {
			return "", err
		}
		candidate, err := Format(a.prefix, a.width, n+1)
		if err != nil {
			return "", err
		}

		err = insert(ctx, candidate)
		if err == nil {
			a.advance(ctx, n+1)
			return candidate, nil
		}
		if !errors.Is(err, sentinel.ErrAlreadyUsed) {
			return "", err
		}
		a.collision(ctx, candidate, attempt)
	}

	if a.metrics != nil {
		a.metrics.IncrementAllocationExhausted(a.prefix)
	}
	a.logger.ErrorContext(ctx, "display id allocation exhausted",
		"prefix", a.prefix,
		"attempts", a.maxAttempts,
	)
	return "", &ExhaustedError{Prefix: a.prefix, Attempts: a.maxAttempts}
}

// fromSequence tries the atomic sequence once. ok is false when the caller
// should fall back to the retry loop; collided reports that the candidate
// was spent on a uniqueness violation.
func (a *Allocator) fromSequence(ctx context.Context, insert InsertFunc) (id string, ok, collided bool, err error) {
	n, err := a.seq.Next(ctx, a.prefix)
	if err != nil {
		a.fallback(ctx, "sequence unavailable", err)
		return "", false, false, nil
	}
	candidate, err := Format(a.prefix, a.width, n)
	if err != nil {
		return "", false, false, err
	}
	err = insert(ctx, candidate)
	switch {
	case err == nil:
		return candidate, true, false, nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		a.collision(ctx, candidate, 1)
		a.fallback(ctx, "sequence value already used", err)
		return "", false, true, nil
	default:
		return "", false, false, err
	}
}

func (a *Allocator) collision(ctx context.Context, candidate string, attempt int) {
	if a.metrics != nil {
		a.metrics.IncrementDisplayIDCollisions(a.prefix)
	}
	a.logger.DebugContext(ctx, "display id collision",
		"prefix", a.prefix,
		"candidate", candidate,
		"attempt", attempt,
	)
}

func (a *Allocator) fallback(ctx context.Context, msg string, err error) {
	if a.metrics != nil {
		a.metrics.IncrementSequenceFallbacks(a.prefix)
	}
	a.logger.WarnContext(ctx, msg,
		"prefix", a.prefix,
		"error", err,
	)
}

// advance pulls the sequence forward after a loop allocation so the next
// sequence value starts past it.
func (a *Allocator) advance(ctx context.Context, n int64) {
	if a.seq == nil {
		return
	}
	if err := a.seq.Advance(ctx, a.prefix, n); err != nil {
		a.logger.WarnContext(ctx, "failed to advance display id sequence",
			"prefix", a.prefix,
			"error", err,
		)
	}
}
