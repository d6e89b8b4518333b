package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"namespaces/internal/admin"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/httputil"
	"namespaces/pkg/requestcontext"
)

type AdminService interface {
	Fund(ctx context.Context, owner domain.Identity, mint domain.MintID, amount uint64) (*admin.FundResponse, error)
	InvalidateTokenManager(ctx context.Context, id domain.RecordID) (*admin.TokenManagerResponse, error)
}

// AdminHandler exposes the sandbox custody controls behind the admin token.
type AdminHandler struct {
	service AdminService
	guard   func(http.Handler) http.Handler
	logger  *slog.Logger
}

func NewAdminHandler(service AdminService, guard func(http.Handler) http.Handler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{service: service, guard: guard, logger: logger}
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin/custody", func(r chi.Router) {
		r.Use(h.guard)
		r.Post("/fund", h.handleFund)
		r.Post("/token-managers/{id}/invalidate", h.handleInvalidate)
	})
}

func (h *AdminHandler) handleFund(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FundRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Fund(ctx, req.owner, req.mint, req.Amount)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fund account", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := domain.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.InvalidateTokenManager(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to invalidate token manager",
			"request_id", requestcontext.RequestID(ctx),
			"token_manager", id.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
