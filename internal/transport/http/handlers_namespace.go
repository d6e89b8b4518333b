package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/httputil"
	"namespaces/pkg/requestcontext"
)

type NamespaceService interface {
	Create(ctx context.Context, name string, cfg models.NamespaceConfig) (*models.Namespace, error)
	Update(ctx context.Context, name string, cfg models.NamespaceConfig) (*models.Namespace, error)
	Get(ctx context.Context, name string) (*models.Namespace, error)
	List(ctx context.Context) ([]*models.Namespace, error)
}

type ClaimRequestService interface {
	CreatePending(ctx context.Context, namespaceName, entryName string) (*models.ClaimRequest, error)
	RequestOrApprove(ctx context.Context, namespaceName, entryName string, requestor domain.Identity, useTokenProof bool) (*models.ClaimRequest, error)
	Get(ctx context.Context, namespaceName, entryName string, requestor domain.Identity) (*models.ClaimRequest, error)
	List(ctx context.Context, namespaceName string, pendingOnly bool) ([]*models.ClaimRequest, error)
}

// NamespaceHandler serves namespace configuration and the claim request
// ledger.
type NamespaceHandler struct {
	namespaces NamespaceService
	requests   ClaimRequestService
	auth       func(http.Handler) http.Handler
	logger     *slog.Logger
}

func NewNamespaceHandler(namespaces NamespaceService, requests ClaimRequestService, auth func(http.Handler) http.Handler, logger *slog.Logger) *NamespaceHandler {
	return &NamespaceHandler{
		namespaces: namespaces,
		requests:   requests,
		auth:       auth,
		logger:     logger,
	}
}

func (h *NamespaceHandler) Register(r chi.Router) {
	r.Get("/namespaces", h.handleList)
	r.Get("/namespaces/{namespace}", h.handleGet)
	r.Get("/namespaces/{namespace}/requests", h.handleListRequests)
	r.Get("/namespaces/{namespace}/entries/{entry}/requests/{requestor}", h.handleGetRequest)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Post("/namespaces", h.handleCreate)
		r.Put("/namespaces/{namespace}", h.handleUpdate)
		r.Post("/namespaces/{namespace}/entries/{entry}/requests", h.handleCreateRequest)
		r.Post("/namespaces/{namespace}/entries/{entry}/requests/approve", h.handleApprove)
	})
}

func (h *NamespaceHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[NamespaceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ns, err := h.namespaces.Create(ctx, req.Name, req.Config())
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create namespace",
			"request_id", requestID,
			"namespace", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ns)
}

func (h *NamespaceHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	name := chi.URLParam(r, "namespace")

	req, ok := httputil.DecodeAndPrepare[NamespaceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ns, err := h.namespaces.Update(ctx, name, req.Config())
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update namespace",
			"request_id", requestID,
			"namespace", name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ns)
}

func (h *NamespaceHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	ns, err := h.namespaces.Get(r.Context(), chi.URLParam(r, "namespace"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ns)
}

func (h *NamespaceHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.namespaces.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, NamespaceListResponse{Namespaces: list, Total: len(list)})
}

func (h *NamespaceHandler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ns, entry := chi.URLParam(r, "namespace"), chi.URLParam(r, "entry")

	req, err := h.requests.CreatePending(ctx, ns, entry)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create claim request",
			"request_id", requestcontext.RequestID(ctx),
			"namespace", ns,
			"entry", entry,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, req)
}

func (h *NamespaceHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	ns, entry := chi.URLParam(r, "namespace"), chi.URLParam(r, "entry")

	body, ok := httputil.DecodeAndPrepare[ApproveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	req, err := h.requests.RequestOrApprove(ctx, ns, entry, body.requestor, body.UseTokenProof)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to approve claim request",
			"request_id", requestID,
			"namespace", ns,
			"entry", entry,
			"requestor", body.Requestor,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *NamespaceHandler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestor, err := domain.ParseIdentity(chi.URLParam(r, "requestor"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.requests.Get(r.Context(), chi.URLParam(r, "namespace"), chi.URLParam(r, "entry"), requestor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

func (h *NamespaceHandler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	pendingOnly := false
	if raw := r.URL.Query().Get("pending"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.WriteError(w, errInvalidQuery("pending"))
			return
		}
		pendingOnly = parsed
	}
	list, err := h.requests.List(r.Context(), chi.URLParam(r, "namespace"), pendingOnly)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ClaimRequestListResponse{Requests: list, Total: len(list)})
}
