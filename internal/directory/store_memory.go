package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"expertdesk/pkg/platform/sentinel"
	"expertdesk/pkg/platform/strings"
)

// InMemoryStore is the directory used when no database is configured and in
// tests. Seed it with the Put* methods.
type InMemoryStore struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]Client
	experts  map[uuid.UUID]Expert
	services map[uuid.UUID]Service
	plans    map[uuid.UUID]PricingPlan
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		clients:  make(map[uuid.UUID]Client),
		experts:  make(map[uuid.UUID]Expert),
		services: make(map[uuid.UUID]Service),
		plans:    make(map[uuid.UUID]PricingPlan),
	}
}

func (s *InMemoryStore) PutClient(c Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ID] = c
}

func (s *InMemoryStore) PutExpert(e Expert) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Specializations = strings.NormalizeTags(e.Specializations)
	s.experts[e.ID] = e
}

func (s *InMemoryStore) PutService(svc Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *InMemoryStore) PutPricingPlan(p PricingPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

func (s *InMemoryStore) FindClient(_ context.Context, id uuid.UUID) (*Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, sentinel.ErrNotFound)
	}
	return &c, nil
}

func (s *InMemoryStore) FindExpert(_ context.Context, id uuid.UUID) (*Expert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.experts[id]
	if !ok {
		return nil, fmt.Errorf("expert %s: %w", id, sentinel.ErrNotFound)
	}
	e.Specializations = append([]string(nil), e.Specializations...)
	return &e, nil
}

func (s *InMemoryStore) FindService(_ context.Context, id uuid.UUID) (*Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.services[id]
	if !ok {
		return nil, fmt.Errorf("service %s: %w", id, sentinel.ErrNotFound)
	}
	return &svc, nil
}

func (s *InMemoryStore) FindPricingPlan(_ context.Context, id uuid.UUID) (*PricingPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("pricing plan %s: %w", id, sentinel.ErrNotFound)
	}
	return &p, nil
}
