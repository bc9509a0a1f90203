package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"expertdesk/internal/invoice/models"
	dErrors "expertdesk/pkg/domain-errors"
	"expertdesk/pkg/platform/httputil"
	"expertdesk/pkg/requestcontext"
)

// Service defines the invoice reads exposed over HTTP. Invoices are never
// created by clients; the payment cascade issues them.
type Service interface {
	ListForClient(ctx context.Context, clientID uuid.UUID) ([]*models.Invoice, error)
}

type Handler struct {
	logger  *slog.Logger
	service Service
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, service: service}
}

// Register registers the invoice routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/invoices", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	clientID, err := uuid.Parse(r.URL.Query().Get("clientId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "clientId query parameter must be a UUID"))
		return
	}

	list, err := h.service.ListForClient(ctx, clientID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list invoices",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, list)
}
