package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/httputil"
	"namespaces/pkg/requestcontext"
)

type ReverseService interface {
	SetReverse(ctx context.Context, namespaceName, entryName string, proofID domain.RecordID) (*models.ReverseEntry, error)
	ClearReverse(ctx context.Context) error
	Get(ctx context.Context, identity domain.Identity) (*models.ReverseEntry, error)
}

type Resolver interface {
	Resolve(ctx context.Context, identity domain.Identity) (string, error)
}

// ReverseHandler serves the signer's reverse mapping and public lookups.
type ReverseHandler struct {
	reverse  ReverseService
	resolver Resolver
	auth     func(http.Handler) http.Handler
	logger   *slog.Logger
}

func NewReverseHandler(reverse ReverseService, resolver Resolver, auth func(http.Handler) http.Handler, logger *slog.Logger) *ReverseHandler {
	return &ReverseHandler{
		reverse:  reverse,
		resolver: resolver,
		auth:     auth,
		logger:   logger,
	}
}

func (h *ReverseHandler) Register(r chi.Router) {
	r.Get("/reverse/{identity}", h.handleGet)
	r.Get("/resolve/{identity}", h.handleResolve)

	r.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Put("/reverse", h.handleSet)
		r.Delete("/reverse", h.handleClear)
	})
}

func (h *ReverseHandler) handleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SetReverseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reverse, err := h.reverse.SetReverse(ctx, req.Namespace, req.Entry, req.proof)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to set reverse entry",
			"request_id", requestID,
			"namespace", req.Namespace,
			"entry", req.Entry,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reverse)
}

func (h *ReverseHandler) handleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.reverse.ClearReverse(ctx); err != nil {
		h.logger.WarnContext(ctx, "failed to clear reverse entry",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReverseHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reverse, err := h.reverse.Get(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reverse)
}

func (h *ReverseHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	identity, err := domain.ParseIdentity(chi.URLParam(r, "identity"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	name, err := h.resolver.Resolve(r.Context(), identity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResolveResponse{Identity: identity, DisplayName: name})
}
