package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"expertdesk/internal/request/models"
	"expertdesk/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newRequest(displayID string, clientID uuid.UUID, createdAt time.Time) *models.Request {
	svc := uuid.New()
	return &models.Request{
		ID:             uuid.New(),
		DisplayID:      displayID,
		ClientID:       clientID,
		ServiceID:      &svc,
		Amount:         decimal.NewFromInt(500),
		Status:         models.StatusNew,
		Visibility:     models.VisibilityAssigned,
		RequiredSkills: []string{},
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
		Batches:        []models.Batch{},
	}
}

func (s *InMemoryStoreSuite) TestInsert() {
	s.Run("duplicate display id is already used", func() {
		r := s.newRequest("REQ-000001", uuid.New(), s.now)
		s.Require().NoError(s.store.Insert(s.ctx, r))

		dup := s.newRequest("REQ-000001", uuid.New(), s.now)
		err := s.store.Insert(s.ctx, dup)
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("latest display id is the greatest", func() {
		s.Require().NoError(s.store.Insert(s.ctx, s.newRequest("REQ-000010", uuid.New(), s.now)))
		s.Require().NoError(s.store.Insert(s.ctx, s.newRequest("REQ-000002", uuid.New(), s.now)))

		latest, err := s.store.LatestDisplayID(s.ctx)
		s.Require().NoError(err)
		s.Equal("REQ-000010", latest)
	})

	s.Run("stored copy is isolated from the caller", func() {
		r := s.newRequest("REQ-000100", uuid.New(), s.now)
		s.Require().NoError(s.store.Insert(s.ctx, r))
		r.Description = "mutated"

		got, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Empty(got.Description)
	})
}

func (s *InMemoryStoreSuite) TestFindRecentByReference() {
	client := uuid.New()
	old := s.newRequest("REQ-000001", client, s.now.Add(-time.Minute))
	recent := s.newRequest("REQ-000002", client, s.now.Add(-3*time.Second))
	recent.ServiceID = old.ServiceID
	s.Require().NoError(s.store.Insert(s.ctx, old))
	s.Require().NoError(s.store.Insert(s.ctx, recent))

	got, err := s.store.FindRecentByReference(s.ctx, client, old.Reference(), s.now.Add(-10*time.Second))
	s.Require().NoError(err)
	s.Equal(recent.ID, got.ID)

	_, err = s.store.FindRecentByReference(s.ctx, uuid.New(), old.Reference(), s.now.Add(-10*time.Second))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListByClientNewestFirst() {
	client := uuid.New()
	for i, id := range []string{"REQ-000001", "REQ-000002", "REQ-000003"} {
		s.Require().NoError(s.store.Insert(s.ctx, s.newRequest(id, client, s.now.Add(time.Duration(i)*time.Second))))
	}
	s.Require().NoError(s.store.Insert(s.ctx, s.newRequest("REQ-000004", uuid.New(), s.now)))

	list, err := s.store.ListByClient(s.ctx, client)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("REQ-000003", list[0].DisplayID)
	s.Equal("REQ-000001", list[2].DisplayID)
}

func (s *InMemoryStoreSuite) TestUpdateFreezesInvoicedAmount() {
	r := s.newRequest("REQ-000001", uuid.New(), s.now)
	s.Require().NoError(s.store.Insert(s.ctx, r))
	s.Require().NoError(s.store.SetInvoiceDisplayID(s.ctx, r.ID, "INV-00000001", s.now))

	r.Description = "new brief"
	s.Require().NoError(s.store.Update(s.ctx, r))

	r.Amount = decimal.NewFromInt(900)
	err := s.store.Update(s.ctx, r)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.True(got.Amount.Equal(decimal.NewFromInt(500)))
	s.Equal("new brief", got.Description)
	s.Equal("INV-00000001", got.InvoiceDisplayID)
}

func (s *InMemoryStoreSuite) TestSetInvoiceDisplayIDIsWriteOnce() {
	r := s.newRequest("REQ-000001", uuid.New(), s.now)
	s.Require().NoError(s.store.Insert(s.ctx, r))

	s.Require().NoError(s.store.SetInvoiceDisplayID(s.ctx, r.ID, "INV-00000001", s.now))
	s.Require().NoError(s.store.SetInvoiceDisplayID(s.ctx, r.ID, "INV-00000001", s.now))
	s.ErrorIs(s.store.SetInvoiceDisplayID(s.ctx, r.ID, "INV-00000002", s.now), sentinel.ErrAlreadyUsed)
}

func (s *InMemoryStoreSuite) TestBatchesAndFiles() {
	r := s.newRequest("REQ-000001", uuid.New(), s.now)
	s.Require().NoError(s.store.Insert(s.ctx, r))

	batch := models.Batch{ID: uuid.New(), RequestID: r.ID, Status: models.BatchStatusOpen, CreatedAt: s.now}
	s.Require().NoError(s.store.AppendBatch(s.ctx, batch))
	file := models.File{ID: uuid.New(), BatchID: batch.ID, Name: "report.pdf", URL: "s3://b/report.pdf", UploadedAt: s.now}
	s.Require().NoError(s.store.AppendFile(s.ctx, r.ID, file))

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Batches, 1)
	s.Require().Len(got.Batches[0].Files, 1)
	s.Equal("report.pdf", got.Batches[0].Files[0].Name)

	err = s.store.AppendFile(s.ctx, r.ID, models.File{ID: uuid.New(), BatchID: uuid.New()})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestListOpen() {
	open := s.newRequest("REQ-000001", uuid.New(), s.now)
	open.Visibility = models.VisibilityOpen
	open.RequiredSkills = []string{"tax", "audit"}
	closed := s.newRequest("REQ-000002", uuid.New(), s.now)
	s.Require().NoError(s.store.Insert(s.ctx, open))
	s.Require().NoError(s.store.Insert(s.ctx, closed))

	list, err := s.store.ListOpen(s.ctx, []string{"audit"})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(open.ID, list[0].ID)

	list, err = s.store.ListOpen(s.ctx, []string{"legal"})
	s.Require().NoError(err)
	s.Empty(list)
}

// Two experts accept the same open request concurrently; exactly one wins.
func (s *InMemoryStoreSuite) TestConcurrentAcceptIfOpen() {
	r := s.newRequest("REQ-000001", uuid.New(), s.now)
	r.Visibility = models.VisibilityOpen
	r.RequiredSkills = []string{"tax"}
	s.Require().NoError(s.store.Insert(s.ctx, r))

	const goroutines = 20
	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		losers  atomic.Int32
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.AcceptIfOpen(s.ctx, r.ID, uuid.New(), s.now)
			switch {
			case err == nil:
				winners.Add(1)
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				losers.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winners.Load())
	s.Equal(int32(goroutines-1), losers.Load())

	got, err := s.store.FindByID(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusMatched, got.Status)
	s.Equal(models.VisibilityAssigned, got.Visibility)
	s.NotNil(got.AssignedExpertID)
}
