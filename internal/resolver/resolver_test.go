package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"namespaces/internal/platform/metrics"
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/circuit"
)

type fakeReverse struct {
	mu      sync.Mutex
	entries map[domain.Identity]*models.ReverseEntry
	calls   int
	err     error
}

func (f *fakeReverse) Get(_ context.Context, identity domain.Identity) (*models.ReverseEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.entries[identity]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "reverse entry not found")
	}
	return r, nil
}

type memCache struct {
	mu    sync.Mutex
	names map[domain.Identity]string
	err   error
}

func newMemCache() *memCache { return &memCache{names: map[domain.Identity]string{}} }

func (c *memCache) Get(_ context.Context, id domain.Identity) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", false, c.err
	}
	name, ok := c.names[id]
	return name, ok, nil
}

func (c *memCache) GetMany(_ context.Context, ids []domain.Identity) (map[domain.Identity]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	out := map[domain.Identity]string{}
	for _, id := range ids {
		if name, ok := c.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (c *memCache) Set(_ context.Context, id domain.Identity, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.names[id] = name
	return nil
}

func (c *memCache) Delete(_ context.Context, id domain.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.names, id)
	return nil
}

// =============================================================================
// Resolver Test Suite
// =============================================================================

type ResolverSuite struct {
	suite.Suite
	reverse *fakeReverse
	cache   *memCache
	metrics *metrics.Metrics
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.reverse = &fakeReverse{entries: map[domain.Identity]*models.ReverseEntry{
		"alice-wallet": {Owner: "alice-wallet", NamespaceName: "sol", EntryName: "alice"},
		"bob-wallet":   {Owner: "bob-wallet", NamespaceName: "twitter", EntryName: "bob"},
	}}
	s.cache = newMemCache()
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
}

func (s *ResolverSuite) outcome(name string) float64 {
	return testutil.ToFloat64(s.metrics.ResolverCache.WithLabelValues(name))
}

func (s *ResolverSuite) TestResolve_WithoutCache() {
	r := New(s.reverse)

	name, err := r.Resolve(context.Background(), "alice-wallet")
	s.Require().NoError(err)
	s.Equal("alice.sol", name)

	name, err = r.Resolve(context.Background(), "bob-wallet")
	s.Require().NoError(err)
	s.Equal("@bob", name)

	_, err = r.Resolve(context.Background(), "nobody")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = r.Resolve(context.Background(), "")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

// TestResolve_ReadThrough verifies the second lookup is served from cache
// and Forget forces a registry read.
func (s *ResolverSuite) TestResolve_ReadThrough() {
	r := New(s.reverse, WithCache(s.cache), WithMetrics(s.metrics))
	ctx := context.Background()

	for range 2 {
		name, err := r.Resolve(ctx, "alice-wallet")
		s.Require().NoError(err)
		s.Equal("alice.sol", name)
	}
	s.Equal(1, s.reverse.calls)
	s.Equal(1.0, s.outcome(outcomeMiss))
	s.Equal(1.0, s.outcome(outcomeHit))

	r.Forget(ctx, "alice-wallet")
	_, err := r.Resolve(ctx, "alice-wallet")
	s.Require().NoError(err)
	s.Equal(2, s.reverse.calls)
}

// TestResolve_BreakerFallback verifies a failing cache opens the breaker and
// resolution keeps working from the registry.
func (s *ResolverSuite) TestResolve_BreakerFallback() {
	s.cache.err = errors.New("connection refused")
	breaker := circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	r := New(s.reverse, WithCache(s.cache), WithBreaker(breaker), WithMetrics(s.metrics))
	ctx := context.Background()

	name, err := r.Resolve(ctx, "alice-wallet")
	s.Require().NoError(err)
	s.Equal("alice.sol", name)
	s.True(breaker.IsOpen())
	s.Equal(1.0, s.outcome(outcomeError))

	_, err = r.Resolve(ctx, "alice-wallet")
	s.Require().NoError(err)
	s.Equal(1.0, s.outcome(outcomeBypass))

	s.Run("a successful write closes the breaker", func() {
		s.cache.err = nil
		_, err := r.Resolve(ctx, "bob-wallet")
		s.Require().NoError(err)
		s.False(breaker.IsOpen())

		_, err = r.Resolve(ctx, "bob-wallet")
		s.Require().NoError(err)
		s.Equal(1.0, s.outcome(outcomeHit))
	})
}

func (s *ResolverSuite) TestResolveMany() {
	r := New(s.reverse, WithCache(s.cache), WithConcurrency(2))
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "bob-wallet", "@bob"))

	names, err := r.ResolveMany(ctx, []domain.Identity{"alice-wallet", "bob-wallet", "nobody", "alice-wallet", ""})
	s.Require().NoError(err)
	s.Equal(map[domain.Identity]string{
		"alice-wallet": "alice.sol",
		"bob-wallet":   "@bob",
	}, names)
	s.Equal(2, s.reverse.calls)

	s.Run("registry failures are returned", func() {
		s.reverse.err = dErrors.New(dErrors.CodeInternal, "boom")
		_, err := New(s.reverse).ResolveMany(ctx, []domain.Identity{"alice-wallet"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

// TestRedisCache_Unreachable exercises the go-redis cache against a closed
// port: every call errors and the resolver still answers.
func (s *ResolverSuite) TestRedisCache_Unreachable() {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	breaker := circuit.New("test", circuit.WithFailureThreshold(1))
	r := New(s.reverse, WithCache(NewRedisCache(client, time.Minute)), WithBreaker(breaker))

	name, err := r.Resolve(context.Background(), "alice-wallet")
	s.Require().NoError(err)
	s.Equal("alice.sol", name)
	s.True(breaker.IsOpen())
}
