package clientsync

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertdesk/internal/request/models"
)

func TestStoreOptimisticCreate(t *testing.T) {
	s := NewStore()
	defer s.Close()

	local := req(uuid.New(), "", models.StatusPendingPayment)

	t.Run("create shows a pending entry", func(t *testing.T) {
		e, err := s.Create(local)
		require.NoError(t, err)
		assert.True(t, e.Pending)

		snap, err := s.Snapshot()
		require.NoError(t, err)
		require.Len(t, snap, 1)
		assert.Equal(t, local.ID, snap[0].ID())
		assert.True(t, snap[0].Pending)
	})

	t.Run("acknowledge swaps in the server version", func(t *testing.T) {
		server := req(uuid.New(), "REQ-000001", models.StatusPendingPayment)
		require.NoError(t, s.Acknowledge(local.ID, server))

		snap, err := s.Snapshot()
		require.NoError(t, err)
		require.Len(t, snap, 1)
		assert.Equal(t, server.ID, snap[0].ID())
		assert.Equal(t, "REQ-000001", snap[0].Request.DisplayID)
		assert.False(t, snap[0].Pending)
	})
}

func TestStoreAcknowledgeAfterResync(t *testing.T) {
	s := NewStore()
	defer s.Close()

	local := req(uuid.New(), "", models.StatusPendingPayment)
	server := req(uuid.New(), "REQ-000007", models.StatusPendingPayment)
	_, err := s.Create(local)
	require.NoError(t, err)

	// the fetch landed before the create answered
	require.NoError(t, s.Merge([]models.Request{server}))
	require.NoError(t, s.Acknowledge(local.ID, server))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{server.ID}, ids(snap))
}

func TestStoreDiscard(t *testing.T) {
	s := NewStore()
	defer s.Close()

	kept := req(uuid.New(), "REQ-000001", models.StatusNew)
	require.NoError(t, s.Merge([]models.Request{kept}))
	local := req(uuid.New(), "", models.StatusPendingPayment)
	_, err := s.Create(local)
	require.NoError(t, err)

	require.NoError(t, s.Discard(local.ID))
	require.NoError(t, s.Discard(kept.ID))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{kept.ID}, ids(snap))
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	defer s.Close()

	r := req(uuid.New(), "REQ-000001", models.StatusNew)
	require.NoError(t, s.Merge([]models.Request{r}))

	r.Status = models.StatusMatched
	require.NoError(t, s.Update(r))
	require.NoError(t, s.Update(req(uuid.New(), "REQ-000404", models.StatusNew)))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, models.StatusMatched, snap[0].Request.Status)
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	defer s.Close()

	require.NoError(t, s.Merge([]models.Request{req(uuid.New(), "REQ-000001", models.StatusNew)}))
	snap, err := s.Snapshot()
	require.NoError(t, err)
	snap[0].Request.Status = models.StatusCancelled

	again, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, again[0].Request.Status)
}

func TestStoreSubscribe(t *testing.T) {
	s := NewStore()
	defer s.Close()

	ch, cancel, err := s.Subscribe()
	require.NoError(t, err)

	first := <-ch
	assert.Empty(t, first)

	r := req(uuid.New(), "REQ-000001", models.StatusNew)
	require.NoError(t, s.Merge([]models.Request{r}))

	select {
	case snap := <-ch:
		assert.Equal(t, []uuid.UUID{r.ID}, ids(snap))
	case <-time.After(time.Second):
		t.Fatal("no snapshot after merge")
	}

	t.Run("slow subscribers see only the latest snapshot", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, err := s.Create(req(uuid.New(), "", models.StatusPendingPayment))
			require.NoError(t, err)
		}
		snap := <-ch
		assert.Len(t, snap, 6)
	})

	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestStoreConcurrentCommands(t *testing.T) {
	s := NewStore()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(req(uuid.New(), "", models.StatusPendingPayment))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Len(t, snap, 50)
}

func TestStoreClose(t *testing.T) {
	s := NewStore()
	ch, _, err := s.Subscribe()
	require.NoError(t, err)
	<-ch

	s.Close()
	s.Close()

	_, open := <-ch
	assert.False(t, open)

	_, err = s.Create(req(uuid.New(), "", models.StatusPendingPayment))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Snapshot()
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = s.Subscribe()
	assert.ErrorIs(t, err, ErrClosed)
}
