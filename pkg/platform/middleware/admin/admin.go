package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/httputil"
	"namespaces/pkg/requestcontext"
)

// TokenHeader carries the operator token on custody routes.
const TokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator routes. With no configured token the
// routes answer 404 as if they were not mounted.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(expectedToken)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if len(expected) == 0 {
				httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "not found"))
				return
			}
			presented := r.Header.Get(TokenHeader)
			if subtle.ConstantTimeCompare([]byte(presented), expected) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
					"token_present", presented != "",
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
