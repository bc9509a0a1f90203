// Package handler exposes the request lifecycle over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"expertdesk/internal/request/models"
	"expertdesk/internal/request/service"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/httputil"
	"expertdesk/pkg/requestcontext"
)

// Service defines the lifecycle operations the handlers call.
type Service interface {
	Create(ctx context.Context, cmd *models.CreateRequest) (*models.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*service.RequestView, error)
	ListForClient(ctx context.Context, clientID uuid.UUID) ([]*service.RequestView, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, upd service.UpdateDetails) (*models.Request, error)
	Transition(ctx context.Context, id uuid.UUID, next models.Status) (*models.Request, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Request, error)
	Reactivate(ctx context.Context, id uuid.UUID) (*models.Request, error)
	Assign(ctx context.Context, requestID, expertID uuid.UUID) (*models.Request, error)
	PublishToPool(ctx context.Context, requestID uuid.UUID, skills []string) (*models.Request, error)
	AcceptFromPool(ctx context.Context, requestID, expertID uuid.UUID) (*models.Request, error)
	ListPool(ctx context.Context, expertID uuid.UUID) ([]*models.Request, error)
	AppendBatch(ctx context.Context, requestID uuid.UUID, nb models.NewBatch) (*models.Batch, error)
	AppendFile(ctx context.Context, requestID, batchID uuid.UUID, nf models.NewFile) (*models.File, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the request and pool routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Patch("/", h.handleUpdate)
			r.Post("/status", h.handleTransition)
			r.Post("/cancel", h.handleCancel)
			r.Post("/reactivate", h.handleReactivate)
			r.Post("/assign", h.handleAssign)
			r.Post("/publish", h.handlePublish)
			r.Post("/accept", h.handleAccept)
			r.Post("/batches", h.handleAppendBatch)
			r.Post("/batches/{batchId}/files", h.handleAppendFile)
		})
	})
	r.Get("/pool", h.handleListPool)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[CreateRequestBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	created, err := h.service.Create(ctx, body.ToCommand())
	if err != nil {
		h.fail(ctx, w, "failed to create request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID, err := uuid.Parse(r.URL.Query().Get("clientId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "clientId query parameter must be a UUID"))
		return
	}
	list, err := h.service.ListForClient(ctx, clientID)
	if err != nil {
		h.fail(ctx, w, "failed to list requests", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	view, err := h.service.Get(ctx, id)
	if err != nil {
		h.fail(ctx, w, "failed to get request", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[UpdateRequestBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.UpdateDetails(ctx, id, service.UpdateDetails{
		Description: body.Description,
		Amount:      body.Amount,
	})
	h.respond(ctx, w, "failed to update request", updated, err)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[TransitionBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.Transition(ctx, id, models.Status(body.Status))
	h.respond(ctx, w, "failed to change request status", updated, err)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	updated, err := h.service.Cancel(ctx, id)
	h.respond(ctx, w, "failed to cancel request", updated, err)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	updated, err := h.service.Reactivate(ctx, id)
	h.respond(ctx, w, "failed to reactivate request", updated, err)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[ExpertBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.Assign(ctx, id, body.ExpertID)
	h.respond(ctx, w, "failed to assign request", updated, err)
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[PublishBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.PublishToPool(ctx, id, body.RequiredSkills)
	h.respond(ctx, w, "failed to publish request", updated, err)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[ExpertBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	updated, err := h.service.AcceptFromPool(ctx, id, body.ExpertID)
	h.respond(ctx, w, "failed to accept request", updated, err)
}

func (h *Handler) handleAppendBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[BatchBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	batch, err := h.service.AppendBatch(ctx, id, body.toNewBatch())
	if err != nil {
		h.fail(ctx, w, "failed to append batch", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, batch)
}

func (h *Handler) handleAppendFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	batchID, ok := pathID(w, r, "batchId")
	if !ok {
		return
	}
	body, ok := httputil.DecodeAndPrepare[FileBody](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	file, err := h.service.AppendFile(ctx, id, batchID, body.toNewFile())
	if err != nil {
		h.fail(ctx, w, "failed to append file", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, file)
}

func (h *Handler) handleListPool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	expertID, err := uuid.Parse(r.URL.Query().Get("expertId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "expertId query parameter must be a UUID"))
		return
	}
	list, err := h.service.ListPool(ctx, expertID)
	if err != nil {
		h.fail(ctx, w, "failed to list pool", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) respond(ctx context.Context, w http.ResponseWriter, msg string, req *models.Request, err error) {
	if err != nil {
		h.fail(ctx, w, msg, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

// fail logs server-side failures at ERROR and client mistakes at WARN.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestcontext.RequestID(ctx), "error", err)
	}
	httputil.WriteError(w, err)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, param+" must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
