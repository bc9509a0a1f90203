package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"expertdesk/internal/directory"
	invoicemodels "expertdesk/internal/invoice/models"
	"expertdesk/internal/request/models"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/sentinel"
)

// RequestView is a request with the entities it references expanded.
// References that no longer resolve are left nil.
type RequestView struct {
	*models.Request
	Service        *directory.Service       `json:"service,omitempty"`
	PricingPlan    *directory.PricingPlan   `json:"pricingPlan,omitempty"`
	Client         *directory.Client        `json:"client,omitempty"`
	AssignedExpert *directory.Expert        `json:"assignedExpert,omitempty"`
	Invoices       []*invoicemodels.Invoice `json:"invoices"`
}

// expander memoizes directory lookups across one listing.
type expander struct {
	svc      *Service
	services map[uuid.UUID]*directory.Service
	plans    map[uuid.UUID]*directory.PricingPlan
	clients  map[uuid.UUID]*directory.Client
	experts  map[uuid.UUID]*directory.Expert
}

func newExpander(svc *Service) *expander {
	return &expander{
		svc:      svc,
		services: make(map[uuid.UUID]*directory.Service),
		plans:    make(map[uuid.UUID]*directory.PricingPlan),
		clients:  make(map[uuid.UUID]*directory.Client),
		experts:  make(map[uuid.UUID]*directory.Expert),
	}
}

func (e *expander) expand(ctx context.Context, r *models.Request) (*RequestView, error) {
	dir := e.svc.directory
	view := &RequestView{Request: r, Invoices: []*invoicemodels.Invoice{}}
	var err error

	if view.Client, err = lookup(ctx, e.clients, r.ClientID, dir.FindClient); err != nil {
		return nil, err
	}
	if r.ServiceID != nil {
		if view.Service, err = lookup(ctx, e.services, *r.ServiceID, dir.FindService); err != nil {
			return nil, err
		}
	}
	if r.PricingPlanID != nil {
		if view.PricingPlan, err = lookup(ctx, e.plans, *r.PricingPlanID, dir.FindPricingPlan); err != nil {
			return nil, err
		}
	}
	if r.AssignedExpertID != nil {
		if view.AssignedExpert, err = lookup(ctx, e.experts, *r.AssignedExpertID, dir.FindExpert); err != nil {
			return nil, err
		}
	}
	if r.HasInvoice() && e.svc.invoices != nil {
		inv, err := e.svc.invoices.FindForRequest(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			view.Invoices = append(view.Invoices, inv)
		}
	}
	return view, nil
}

func lookup[T any](ctx context.Context, cache map[uuid.UUID]*T, id uuid.UUID, find func(context.Context, uuid.UUID) (*T, error)) (*T, error) {
	if v, ok := cache[id]; ok {
		return v, nil
	}
	v, err := find(ctx, id)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to expand request")
		}
		v = nil
	}
	cache[id] = v
	return v, nil
}
