package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	claimservice "namespaces/internal/claim/service"
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/httputil"
	"namespaces/pkg/requestcontext"
)

type EntryService interface {
	Get(ctx context.Context, namespaceName, entryName string) (*models.Entry, error)
	List(ctx context.Context, namespaceName string) ([]*models.Entry, error)
	InvalidateExpired(ctx context.Context, namespaceName, entryName string) (*models.Entry, error)
	InvalidateTransferable(ctx context.Context, namespaceName, entryName string, tokenManagerID domain.RecordID) (*models.Entry, error)
	MigrateMint(ctx context.Context, namespaceName, entryName string, newMint domain.MintID) (*models.Entry, error)
}

type ClaimService interface {
	MigrateAndClaim(ctx context.Context, namespaceName, entryName string, params claimservice.Params) (*claimservice.Result, error)
}

// EntryHandler serves entry reads, claims and the invalidation flows.
type EntryHandler struct {
	entries EntryService
	claims  ClaimService
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func NewEntryHandler(entries EntryService, claims ClaimService, auth func(http.Handler) http.Handler, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		entries: entries,
		claims:  claims,
		auth:    auth,
		logger:  logger,
	}
}

func (h *EntryHandler) Register(r chi.Router) {
	r.Get("/namespaces/{namespace}/entries", h.handleList)
	r.Get("/namespaces/{namespace}/entries/{entry}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/namespaces/{namespace}/entries/{entry}/claim", h.handleClaim)
		r.Post("/namespaces/{namespace}/entries/{entry}/invalidate/expired", h.handleInvalidateExpired)
		r.Post("/namespaces/{namespace}/entries/{entry}/invalidate/transferable", h.handleInvalidateTransferable)
		r.Post("/namespaces/{namespace}/entries/{entry}/migrate", h.handleMigrate)
	})
}

func (h *EntryHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entries.Get(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "entry"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.entries.List(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EntryListResponse{Entries: list, Total: len(list)})
}

// handleClaim accepts an empty body for free, unbounded namespaces.
func (h *EntryHandler) handleClaim(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ns, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "entry")

	params := claimservice.Params{}
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[ClaimEntryRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		params.Duration = req.Duration
		params.PaymentMint = req.paymentMint
	}

	result, err := h.claims.MigrateAndClaim(ctx, ns, name, params)
	if err != nil {
		h.logger.WarnContext(ctx, "claim failed",
			"request_id", requestID,
			"namespace", ns,
			"entry", name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "entry claimed",
		"request_id", requestID,
		"namespace", ns,
		"entry", name,
		"mint", result.Mint.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *EntryHandler) handleInvalidateExpired(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ns, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "entry")

	entry, err := h.entries.InvalidateExpired(ctx, ns, name)
	if err != nil {
		h.logInvalidationFailure(ctx, "expired", ns, name, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) handleInvalidateTransferable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ns, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "entry")

	req, ok := httputil.DecodeAndPrepare[InvalidateTransferableRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.entries.InvalidateTransferable(ctx, ns, name, req.tokenManager)
	if err != nil {
		h.logInvalidationFailure(ctx, "transferable", ns, name, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) handleMigrate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ns, name := chi.URLParam(r, "namespace"), chi.URLParam(r, "entry")

	req, ok := httputil.DecodeAndPrepare[MigrateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	entry, err := h.entries.MigrateMint(ctx, ns, name, req.mint)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to migrate mint",
			"request_id", requestID,
			"namespace", ns,
			"entry", name,
			"mint", req.Mint,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) logInvalidationFailure(ctx context.Context, flow, ns, name string, err error) {
	h.logger.WarnContext(ctx, "invalidation failed",
		"request_id", requestcontext.RequestID(ctx),
		"flow", flow,
		"namespace", ns,
		"entry", name,
		"error", err,
	)
}
