// Package store persists invoices. A request owns at most one invoice; the
// store enforces it and reports a second insert as sentinel.ErrAlreadyUsed.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"expertdesk/internal/invoice/models"
	"expertdesk/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	invoices  map[uuid.UUID]*models.Invoice
	byRequest map[uuid.UUID]uuid.UUID
	seq       int64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		invoices:  make(map[uuid.UUID]*models.Invoice),
		byRequest: make(map[uuid.UUID]uuid.UUID),
	}
}

// Create assigns the next SeqID and stores inv.
func (s *InMemoryStore) Create(_ context.Context, inv *models.Invoice) (*models.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byRequest[inv.RequestID]; exists {
		return nil, fmt.Errorf("invoice for request %s: %w", inv.RequestID, sentinel.ErrAlreadyUsed)
	}
	s.seq++
	stored := *inv
	stored.SeqID = s.seq
	s.invoices[stored.ID] = &stored
	s.byRequest[stored.RequestID] = stored.ID
	out := stored
	return &out, nil
}

func (s *InMemoryStore) SetDisplayID(_ context.Context, id uuid.UUID, displayID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %s: %w", id, sentinel.ErrNotFound)
	}
	inv.DisplayID = displayID
	return nil
}

func (s *InMemoryStore) FindByRequestID(_ context.Context, requestID uuid.UUID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRequest[requestID]
	if !ok {
		return nil, fmt.Errorf("invoice for request %s: %w", requestID, sentinel.ErrNotFound)
	}
	out := *s.invoices[id]
	return &out, nil
}

// ListByClient returns the client's invoices newest first.
func (s *InMemoryStore) ListByClient(_ context.Context, clientID uuid.UUID) ([]*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Invoice, 0)
	for _, inv := range s.invoices {
		if inv.ClientID == clientID {
			c := *inv
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.Invoice) int {
		return int(b.SeqID - a.SeqID)
	})
	return out, nil
}
