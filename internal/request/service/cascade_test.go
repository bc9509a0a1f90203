package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertdesk/internal/directory"
	invoiceservice "expertdesk/internal/invoice/service"
	invoicestore "expertdesk/internal/invoice/store"
	"expertdesk/internal/outbox"
	"expertdesk/internal/request/events"
	"expertdesk/internal/request/models"
	"expertdesk/internal/request/service"
	"expertdesk/internal/request/store"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/requestcontext"
)

// A paid request gets exactly one invoice, however often it re-enters NEW.
func TestRequestPaidIssuesOneInvoice(t *testing.T) {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	requests := store.NewInMemory()
	invoices := invoicestore.NewInMemory()
	dir := directory.NewInMemoryStore()
	client := directory.Client{ID: uuid.New(), Name: "Acme"}
	offering := directory.Service{ID: uuid.New(), Name: "Tax review", Price: decimal.NewFromInt(500)}
	dir.PutClient(client)
	dir.PutService(offering)

	cascade, err := invoiceservice.New(invoices, requests)
	require.NoError(t, err)
	bus := events.NewBus()
	bus.Register(events.TypeRequestPaid, cascade.HandleRequestPaid)

	svc, err := service.New(requests, dir,
		service.WithPublisher(bus),
		service.WithInvoiceLookup(cascade),
	)
	require.NoError(t, err)

	svcID := offering.ID
	r, err := svc.Create(ctx, &models.CreateRequest{ClientID: client.ID, ServiceID: &svcID})
	require.NoError(t, err)
	assert.Empty(t, r.InvoiceDisplayID)

	paid, err := svc.Transition(ctx, r.ID, models.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, "INV-00000001", paid.InvoiceDisplayID)

	inv, err := invoices.FindByRequestID(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(500).Equal(inv.Subtotal))
	assert.True(t, decimal.NewFromInt(75).Equal(inv.VAT))
	assert.True(t, decimal.NewFromInt(575).Equal(inv.Amount))

	_, err = svc.Transition(ctx, r.ID, models.StatusNew)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, r.ID)
	require.NoError(t, err)
	reactivated, err := svc.Reactivate(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, reactivated.Status)
	assert.Equal(t, "INV-00000001", reactivated.InvoiceDisplayID)

	list, err := invoices.ListByClient(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	amount := decimal.NewFromInt(900)
	_, err = svc.UpdateDetails(ctx, r.ID, service.UpdateDetails{Amount: &amount})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	view, err := svc.Get(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, view.Invoices, 1)
	assert.Equal(t, "INV-00000001", view.Invoices[0].DisplayID)
	require.NotNil(t, view.Service)
	assert.Equal(t, "Tax review", view.Service.Name)
}

type cascadeCounter struct {
	failures int
}

func (*cascadeCounter) IncrementRequestsCreated() {}
func (*cascadeCounter) IncrementDedupHits() {}
func (*cascadeCounter) IncrementStatusTransitions(string, string) {}
func (c *cascadeCounter) IncrementCascadeFailures() { c.failures++ }
func (*cascadeCounter) IncrementPoolAcceptConflicts() {}

type lockedOutbox struct {
	*outbox.InMemoryStore
}

func (lockedOutbox) Append(context.Context, *outbox.Entry) error {
	return errors.New("outbox table locked")
}

// A failing subscriber after the cascade neither hides the issued invoice
// nor, for the outbox recorder, reads as a cascade failure.
func TestRequestPaidSurvivesFailingSubscribers(t *testing.T) {
	ctx := context.Background()
	requests := store.NewInMemory()
	dir := directory.NewInMemoryStore()
	client := directory.Client{ID: uuid.New(), Name: "Acme"}
	offering := directory.Service{ID: uuid.New(), Name: "Payroll", Price: decimal.NewFromInt(200)}
	dir.PutClient(client)
	dir.PutService(offering)

	cascade, err := invoiceservice.New(invoicestore.NewInMemory(), requests)
	require.NoError(t, err)
	bus := events.NewBus()
	bus.Register(events.TypeRequestPaid, cascade.HandleRequestPaid)
	recorder := outbox.NewRecorder(lockedOutbox{outbox.NewInMemoryStore()})
	bus.Register(events.TypeRequestPaid, recorder.Handle)

	counter := &cascadeCounter{}
	svc, err := service.New(requests, dir, service.WithPublisher(bus), service.WithMetrics(counter))
	require.NoError(t, err)

	svcID := offering.ID
	r, err := svc.Create(ctx, &models.CreateRequest{ClientID: client.ID, ServiceID: &svcID})
	require.NoError(t, err)

	paid, err := svc.Transition(ctx, r.ID, models.StatusNew)
	require.NoError(t, err)
	assert.Equal(t, "INV-00000001", paid.InvoiceDisplayID)
	assert.Zero(t, counter.failures)

	t.Run("erroring handler still returns the linked invoice", func(t *testing.T) {
		bus.Register(events.TypeRequestPaid, func(context.Context, events.Event) error {
			return errors.New("downstream unavailable")
		})
		other := directory.Client{ID: uuid.New(), Name: "Globex"}
		dir.PutClient(other)
		r2, err := svc.Create(ctx, &models.CreateRequest{ClientID: other.ID, ServiceID: &svcID})
		require.NoError(t, err)

		paid2, err := svc.Transition(ctx, r2.ID, models.StatusNew)
		require.NoError(t, err)
		assert.Equal(t, "INV-00000002", paid2.InvoiceDisplayID)
		assert.Equal(t, 1, counter.failures)
	})
}
