package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expertdesk/internal/directory"
	"expertdesk/internal/request/models"
	"expertdesk/internal/request/service"
	"expertdesk/internal/request/store"
	"expertdesk/pkg/platform/httputil"
)

type fixture struct {
	router   chi.Router
	client   directory.Client
	offering directory.Service
	expert   directory.Expert
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := directory.NewInMemoryStore()
	f := &fixture{
		client:   directory.Client{ID: uuid.New(), Name: "Acme"},
		offering: directory.Service{ID: uuid.New(), Name: "Tax review", Price: decimal.NewFromInt(500)},
		expert:   directory.Expert{ID: uuid.New(), Name: "Dana", Specializations: []string{"tax"}},
	}
	dir.PutClient(f.client)
	dir.PutService(f.offering)
	dir.PutExpert(f.expert)

	svc, err := service.New(store.NewInMemory(), dir)
	require.NoError(t, err)
	f.router = chi.NewRouter()
	New(svc, slog.Default()).Register(f.router)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, &buf))
	return w
}

func (f *fixture) create(t *testing.T) models.Request {
	t.Helper()
	w := f.do(t, http.MethodPost, "/requests", map[string]any{
		"clientId":    f.client.ID,
		"serviceId":   f.offering.ID,
		"description": "quarterly filing",
		"batches": []map[string]any{{
			"files": []map[string]any{{"name": "ledger.xlsx", "url": "s3://uploads/ledger.xlsx", "size": 2048}},
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r models.Request
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
	return r
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var resp httputil.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestHandleCreate(t *testing.T) {
	f := newFixture(t)

	t.Run("creates a request with a display id", func(t *testing.T) {
		r := f.create(t)
		assert.Equal(t, "REQ-000001", r.DisplayID)
		assert.Equal(t, models.StatusPendingPayment, r.Status)
		assert.True(t, decimal.NewFromInt(500).Equal(r.Amount))
		require.Len(t, r.Batches, 1)
		assert.Len(t, r.Batches[0].Files, 1)
	})

	t.Run("repeat within the window returns the same request", func(t *testing.T) {
		first := f.create(t)
		second := f.create(t)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("missing reference is a bad request", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/requests", map[string]any{"clientId": f.client.ID})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", decodeError(t, w).Error)
	})

	t.Run("unknown client is not found", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/requests", map[string]any{"clientId": uuid.New(), "serviceId": f.offering.ID})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown pricing plan is a bad request", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/requests", map[string]any{"clientId": f.client.ID, "pricingPlanId": uuid.New()})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid pricing plan", decodeError(t, w).Details)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/requests", bytes.NewBufferString("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListExpandsReferences(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)

	w := f.do(t, http.MethodGet, "/requests?clientId="+f.client.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, created.DisplayID, body[0]["displayId"])
	assert.Equal(t, "Tax review", body[0]["service"].(map[string]any)["name"])
	assert.Equal(t, "Acme", body[0]["client"].(map[string]any)["name"])
	assert.Len(t, body[0]["batches"], 1)
	assert.Empty(t, body[0]["invoices"])

	w = f.do(t, http.MethodGet, "/requests?clientId=nope", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleLifecycle(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	base := "/requests/" + created.ID.String()

	w := f.do(t, http.MethodPost, base+"/status", map[string]string{"status": "new"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, base+"/status", map[string]string{"status": "COMPLETED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, w).Error)

	w = f.do(t, http.MethodPost, base+"/status", map[string]string{"status": "ARCHIVED"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, base+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, base+"/reactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var r models.Request
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
	assert.Equal(t, models.StatusNew, r.Status)

	w = f.do(t, http.MethodPatch, base, map[string]any{"description": "annual filing"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
	assert.Equal(t, "annual filing", r.Description)

	w = f.do(t, http.MethodGet, "/requests/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/requests/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlePoolRouting(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	base := "/requests/" + created.ID.String()

	w := f.do(t, http.MethodPost, base+"/publish", map[string]any{"requiredSkills": []string{" TAX "}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/pool?expertId="+f.expert.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pool []models.Request
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pool))
	require.Len(t, pool, 1)

	w = f.do(t, http.MethodPost, base+"/accept", map[string]any{"expertId": f.expert.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, base+"/accept", map[string]any{"expertId": f.expert.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_assigned", decodeError(t, w).Error)

	w = f.do(t, http.MethodPost, base+"/assign", map[string]any{"expertId": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, base+"/assign", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBatchesAndFiles(t *testing.T) {
	f := newFixture(t)
	created := f.create(t)
	base := "/requests/" + created.ID.String()

	w := f.do(t, http.MethodPost, base+"/batches", map[string]any{})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var batch models.Batch
	require.NoError(t, json.NewDecoder(w.Body).Decode(&batch))
	assert.Equal(t, models.BatchStatusOpen, batch.Status)

	w = f.do(t, http.MethodPost, base+"/batches/"+batch.ID.String()+"/files",
		map[string]any{"name": "report.pdf", "url": "s3://uploads/report.pdf", "type": "application/pdf"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, base+"/batches/"+batch.ID.String()+"/files", map[string]any{"name": "report.pdf"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, base+"/batches/"+uuid.New().String()+"/files",
		map[string]any{"name": "report.pdf", "url": "s3://uploads/report.pdf"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
