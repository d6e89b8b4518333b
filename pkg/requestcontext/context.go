// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// Middleware sets these values and services read them, so services never
// import net/http.
//
// Usage in services (read values):
//
//	signer := requestcontext.Signer(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithSigners(ctx, authority, payer)
package requestcontext

import (
	"context"
	"slices"
	"time"

	"namespaces/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	signersKey     struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeySigners     = signersKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Signers
// -----------------------------------------------------------------------------

// Signers returns every identity that authorized the current request.
func Signers(ctx context.Context) []domain.Identity {
	if signers, ok := ctx.Value(ContextKeySigners).([]domain.Identity); ok {
		return signers
	}
	return nil
}

// Signer returns the primary signer (the fee payer), or the zero identity.
func Signer(ctx context.Context) domain.Identity {
	signers := Signers(ctx)
	if len(signers) == 0 {
		return ""
	}
	return signers[0]
}

// HasSigner reports whether identity authorized the current request.
func HasSigner(ctx context.Context, identity domain.Identity) bool {
	if identity.IsNil() {
		return false
	}
	return slices.Contains(Signers(ctx), identity)
}

// WithSigners injects the authorizing identities. The first one is the payer.
func WithSigners(ctx context.Context, signers ...domain.Identity) context.Context {
	return context.WithValue(ctx, ContextKeySigners, append([]domain.Identity(nil), signers...))
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Relays that need consistent time within a batch
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
