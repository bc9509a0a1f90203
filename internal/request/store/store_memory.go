// Package store persists Requests with their Batches and Files.
//
// Stores are pure I/O: they report storage facts through the sentinel errors
// and leave lifecycle rules to the service. The only rules enforced here are
// the ones that must hold under concurrent writers: display id uniqueness,
// the open-pool acceptance guard and the invoiced-amount freeze.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"expertdesk/internal/request/models"
	"expertdesk/pkg/platform/sentinel"
	"expertdesk/pkg/platform/strings"
)

// InMemoryStore is a mutex-guarded map store. Every read and write copies, so
// callers never share memory with the store.
type InMemoryStore struct {
	mu         sync.RWMutex
	requests   map[uuid.UUID]*models.Request
	displayIDs map[string]uuid.UUID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		requests:   make(map[uuid.UUID]*models.Request),
		displayIDs: make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) Insert(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.displayIDs[r.DisplayID]; taken {
		return fmt.Errorf("display id %s: %w", r.DisplayID, sentinel.ErrAlreadyUsed)
	}
	if _, exists := s.requests[r.ID]; exists {
		return fmt.Errorf("request %s: %w", r.ID, sentinel.ErrAlreadyUsed)
	}
	s.requests[r.ID] = r.Clone()
	s.displayIDs[r.DisplayID] = r.ID
	return nil
}

// LatestDisplayID returns the lexically greatest display id. All ids share a
// prefix and width, so lexical order matches numeric order.
func (s *InMemoryStore) LatestDisplayID(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := ""
	for id := range s.displayIDs {
		if id > latest {
			latest = id
		}
	}
	return latest, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	return r.Clone(), nil
}

// FindRecentByReference returns the newest request from clientID for ref
// created at or after since.
func (s *InMemoryStore) FindRecentByReference(_ context.Context, clientID uuid.UUID, ref models.Reference, since time.Time) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.Request
	for _, r := range s.requests {
		if r.ClientID != clientID || !r.Reference().Matches(ref) || r.CreatedAt.Before(since) {
			continue
		}
		if found == nil || r.CreatedAt.After(found.CreatedAt) {
			found = r
		}
	}
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found.Clone(), nil
}

// ListByClient returns the client's requests newest first.
func (s *InMemoryStore) ListByClient(_ context.Context, clientID uuid.UUID) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range s.requests {
		if r.ClientID == clientID {
			out = append(out, r.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// ListOpen returns open, unassigned requests whose skills intersect skills.
func (s *InMemoryStore) ListOpen(_ context.Context, skills []string) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Request, 0)
	for _, r := range s.requests {
		if r.IsOpen() && strings.Intersects(r.RequiredSkills, skills) {
			out = append(out, r.Clone())
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// Update overwrites the mutable scalar fields of r. Batches and the invoice
// link have their own writes. The amount of an invoiced request cannot change:
// such an update fails with sentinel.ErrInvalidState.
func (s *InMemoryStore) Update(_ context.Context, r *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.requests[r.ID]
	if !ok {
		return fmt.Errorf("request %s: %w", r.ID, sentinel.ErrNotFound)
	}
	if current.HasInvoice() && !current.Amount.Equal(r.Amount) {
		return fmt.Errorf("amount of invoiced request %s: %w", r.ID, sentinel.ErrInvalidState)
	}
	next := r.Clone()
	next.DisplayID = current.DisplayID
	next.CreatedAt = current.CreatedAt
	next.InvoiceDisplayID = current.InvoiceDisplayID
	next.Batches = current.Batches
	s.requests[r.ID] = next
	return nil
}

// AcceptIfOpen assigns expertID only while the request is still open and
// unassigned. Losers get sentinel.ErrAlreadyUsed.
func (s *InMemoryStore) AcceptIfOpen(_ context.Context, id, expertID uuid.UUID, now time.Time) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %s: %w", id, sentinel.ErrNotFound)
	}
	if !r.IsOpen() {
		return nil, fmt.Errorf("request %s: %w", id, sentinel.ErrAlreadyUsed)
	}
	if err := r.AcceptFromPool(expertID, now); err != nil {
		return nil, fmt.Errorf("request %s: %w", id, sentinel.ErrAlreadyUsed)
	}
	return r.Clone(), nil
}

func (s *InMemoryStore) AppendBatch(_ context.Context, b models.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[b.RequestID]
	if !ok {
		return fmt.Errorf("request %s: %w", b.RequestID, sentinel.ErrNotFound)
	}
	r.Batches = append(r.Batches, b.Clone())
	return nil
}

func (s *InMemoryStore) AppendFile(_ context.Context, requestID uuid.UUID, f models.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	b, ok := r.FindBatch(f.BatchID)
	if !ok {
		return fmt.Errorf("batch %s: %w", f.BatchID, sentinel.ErrNotFound)
	}
	b.Files = append(b.Files, f)
	return nil
}

// SetInvoiceDisplayID links an invoice. Linking is write-once; a different
// id on an already linked request fails with sentinel.ErrAlreadyUsed.
func (s *InMemoryStore) SetInvoiceDisplayID(_ context.Context, requestID uuid.UUID, displayID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[requestID]
	if !ok {
		return fmt.Errorf("request %s: %w", requestID, sentinel.ErrNotFound)
	}
	if r.HasInvoice() {
		if r.InvoiceDisplayID == displayID {
			return nil
		}
		return fmt.Errorf("request %s invoice: %w", requestID, sentinel.ErrAlreadyUsed)
	}
	r.InvoiceDisplayID = displayID
	r.UpdatedAt = now
	return nil
}

func sortNewestFirst(rs []*models.Request) {
	slices.SortFunc(rs, func(a, b *models.Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		// equal timestamps fall back to display id so ordering is stable
		switch {
		case a.DisplayID > b.DisplayID:
			return -1
		case a.DisplayID < b.DisplayID:
			return 1
		}
		return 0
	})
}
