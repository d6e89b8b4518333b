// Package resolver turns identities into display names through their reverse
// mappings, with an optional read-through cache.
//
// The cache is advisory. Cache errors trip a circuit breaker and reads fall
// back to the registry; writes keep probing so the breaker can close again.
package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"namespaces/internal/platform/metrics"
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/circuit"
)

const (
	outcomeHit    = "hit"
	outcomeMiss   = "miss"
	outcomeError  = "error"
	outcomeBypass = "bypass"

	defaultConcurrency = 8
)

// ReverseReader loads the reverse mapping of an identity. A missing mapping
// is reported as a CodeNotFound domain error.
type ReverseReader interface {
	Get(ctx context.Context, identity domain.Identity) (*models.ReverseEntry, error)
}

type Cache interface {
	Get(ctx context.Context, identity domain.Identity) (name string, ok bool, err error)
	GetMany(ctx context.Context, identities []domain.Identity) (map[domain.Identity]string, error)
	Set(ctx context.Context, identity domain.Identity, name string) error
	Delete(ctx context.Context, identity domain.Identity) error
}

type Resolver struct {
	reverse     ReverseReader
	cache       Cache
	breaker     *circuit.Breaker
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Resolver)

// WithCache enables read-through caching.
func WithCache(cache Cache) Option {
	return func(r *Resolver) {
		r.cache = cache
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(r *Resolver) {
		r.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithConcurrency bounds registry lookups made by ResolveMany.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func New(reverse ReverseReader, opts ...Option) *Resolver {
	r := &Resolver{
		reverse:     reverse,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.breaker == nil {
		r.breaker = circuit.New("resolver-cache")
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Resolve returns the display name identity's reverse mapping points to.
func (r *Resolver) Resolve(ctx context.Context, identity domain.Identity) (string, error) {
	if identity.IsNil() {
		return "", dErrors.New(dErrors.CodeValidation, "identity is required")
	}

	if r.cacheReadable() {
		name, ok, err := r.cache.Get(ctx, identity)
		r.record(ctx, err)
		switch {
		case err != nil:
			r.observe(outcomeError)
		case ok:
			r.observe(outcomeHit)
			return name, nil
		default:
			r.observe(outcomeMiss)
		}
	} else if r.cache != nil {
		r.observe(outcomeBypass)
	}

	reverse, err := r.reverse.Get(ctx, identity)
	if err != nil {
		return "", err
	}
	name := reverse.DisplayName()
	r.store(ctx, identity, name)
	return name, nil
}

// ResolveMany resolves identities concurrently. Identities without a reverse
// mapping are absent from the result.
func (r *Resolver) ResolveMany(ctx context.Context, identities []domain.Identity) (map[domain.Identity]string, error) {
	unique := make([]domain.Identity, 0, len(identities))
	seen := make(map[domain.Identity]struct{}, len(identities))
	for _, id := range identities {
		if id.IsNil() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	out := make(map[domain.Identity]string, len(unique))
	misses := unique
	if r.cacheReadable() && len(unique) > 0 {
		cached, err := r.cache.GetMany(ctx, unique)
		r.record(ctx, err)
		if err != nil {
			r.observe(outcomeError)
		} else {
			misses = misses[:0:0]
			for _, id := range unique {
				if name, ok := cached[id]; ok {
					out[id] = name
					r.observe(outcomeHit)
					continue
				}
				r.observe(outcomeMiss)
				misses = append(misses, id)
			}
		}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range misses {
		g.Go(func() error {
			reverse, err := r.reverse.Get(gctx, id)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					return nil
				}
				return err
			}
			name := reverse.DisplayName()
			r.store(gctx, id, name)
			mu.Lock()
			out[id] = name
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops the cached name of owner. It is called after a reverse
// mapping changes.
func (r *Resolver) Forget(ctx context.Context, owner domain.Identity) {
	if r.cache == nil || owner.IsNil() {
		return
	}
	err := r.cache.Delete(ctx, owner)
	r.record(ctx, err)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to evict resolved name", "identity", owner.String(), "error", err)
	}
}

func (r *Resolver) cacheReadable() bool {
	return r.cache != nil && !r.breaker.IsOpen()
}

func (r *Resolver) store(ctx context.Context, identity domain.Identity, name string) {
	if r.cache == nil {
		return
	}
	r.record(ctx, r.cache.Set(ctx, identity, name))
}

func (r *Resolver) record(ctx context.Context, err error) {
	if err == nil {
		if _, change := r.breaker.RecordSuccess(); change.Closed {
			r.logger.InfoContext(ctx, "resolver cache recovered", "breaker", r.breaker.Name())
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.logger.WarnContext(ctx, "resolver cache unavailable, reading through", "breaker", r.breaker.Name(), "error", err)
	}
}

func (r *Resolver) observe(outcome string) {
	if r.metrics != nil {
		r.metrics.IncrementResolverCache(outcome)
	}
}
