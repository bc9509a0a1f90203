package clientsync

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"expertdesk/internal/request/models"
)

func req(id uuid.UUID, displayID string, status models.Status) models.Request {
	return models.Request{ID: id, DisplayID: displayID, Status: status}
}

func ids(entries []Entry) []uuid.UUID {
	out := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		out[i] = e.ID()
	}
	return out
}

func TestMerge(t *testing.T) {
	idA, idB, idC := uuid.New(), uuid.New(), uuid.New()
	a := req(idA, "REQ-000001", models.StatusMatched)
	b := req(idB, "REQ-000002", models.StatusNew)
	aLocal := req(idA, "REQ-000001", models.StatusNew)
	c := req(idC, "", models.StatusPendingPayment)

	t.Run("server wins and pending entries survive", func(t *testing.T) {
		got := Merge([]models.Request{a, b}, []Entry{{Request: aLocal}, {Request: c, Pending: true}})

		assert.Equal(t, []uuid.UUID{idA, idB, idC}, ids(got))
		assert.Equal(t, models.StatusMatched, got[0].Request.Status)
		assert.False(t, got[0].Pending)
		assert.True(t, got[2].Pending)
	})

	t.Run("acknowledged entries missing from the server are dropped", func(t *testing.T) {
		got := Merge([]models.Request{b}, []Entry{{Request: a}, {Request: c, Pending: true}})
		assert.Equal(t, []uuid.UUID{idB, idC}, ids(got))
	})

	t.Run("a pending entry echoed by the server is replaced", func(t *testing.T) {
		echoed := req(idC, "REQ-000003", models.StatusPendingPayment)
		got := Merge([]models.Request{echoed}, []Entry{{Request: c, Pending: true}})

		assert.Len(t, got, 1)
		assert.False(t, got[0].Pending)
		assert.Equal(t, "REQ-000003", got[0].Request.DisplayID)
	})

	t.Run("idempotent", func(t *testing.T) {
		server := []models.Request{a, b}
		once := Merge(server, []Entry{{Request: aLocal}, {Request: c, Pending: true}})
		twice := Merge(server, once)
		assert.Equal(t, once, twice)
	})

	t.Run("arrival order of acknowledged entries does not matter", func(t *testing.T) {
		server := []models.Request{a, b}
		first := Merge(server, []Entry{{Request: aLocal}, {Request: b}, {Request: c, Pending: true}})
		second := Merge(server, []Entry{{Request: c, Pending: true}, {Request: b}, {Request: aLocal}})
		assert.Equal(t, first, second)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, Merge(nil, nil))
		assert.Equal(t, []uuid.UUID{idC}, ids(Merge(nil, []Entry{{Request: c, Pending: true}})))
	})
}
