package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"namespaces/internal/custody"
	"namespaces/internal/custody/mocks"
	"namespaces/internal/custody/sandbox"
	"namespaces/internal/platform/metrics"
	"namespaces/internal/registry/models"
	"namespaces/internal/registry/store/memory"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/audit"
	"namespaces/pkg/platform/audit/publisher"
	auditmemory "namespaces/pkg/platform/audit/store/memory"
	"namespaces/pkg/platform/sentinel"
	"namespaces/pkg/requestcontext"
)

// =============================================================================
// Claim Service Test Suite
// =============================================================================
// Runs whole claims against the in-memory ledger and the custody sandbox.
// Failure injection for individual custody steps uses the generated mocks.

const usdc domain.MintID = "usdc"

type ClaimServiceSuite struct {
	suite.Suite
	custody *sandbox.Sandbox
	ledger  *memory.Ledger
	audit   *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	service *Service
	now     time.Time
}

func TestClaimServiceSuite(t *testing.T) {
	suite.Run(t, new(ClaimServiceSuite))
}

func (s *ClaimServiceSuite) SetupTest() {
	s.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.custody = sandbox.New(sandbox.WithClock(func() time.Time { return s.now }))
	s.ledger = memory.New()
	s.audit = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegistry(prometheus.NewRegistry())
	s.service = New(s.ledger, s.custody, s.custody, s.custody,
		WithAuditPublisher(publisher.NewPublisher(s.audit)),
		WithMetrics(s.metrics),
	)
}

func (s *ClaimServiceSuite) ctx(signers ...domain.Identity) context.Context {
	return requestcontext.WithSigners(requestcontext.WithTime(context.Background(), s.now), signers...)
}

func (s *ClaimServiceSuite) namespace(mutate func(cfg *models.NamespaceConfig)) *models.Namespace {
	cfg := models.NamespaceConfig{
		UpdateAuthority:  "update-authority",
		RentAuthority:    "rent-authority",
		InvalidationType: custody.InvalidationReturn,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	ns, err := models.NewNamespace("sol", cfg, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.Namespaces().Create(context.Background(), ns))
	return ns
}

// approve stores an approved request snapshotting counter.
func (s *ClaimServiceSuite) approve(ns *models.Namespace, entry string, requestor domain.Identity, counter uint32) *models.ClaimRequest {
	req, err := models.NewClaimRequest(ns, entry, requestor, s.now)
	s.Require().NoError(err)
	req.ApplyApproval(counter, s.now)
	s.Require().NoError(s.ledger.ClaimRequests().Save(context.Background(), req))
	return req
}

func (s *ClaimServiceSuite) actions() []string {
	events, err := s.audit.ListAll(context.Background())
	s.Require().NoError(err)
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Action)
	}
	return out
}

func mintFor(ns *models.Namespace, entry string, counter uint32) domain.MintID {
	return domain.MintAddress(domain.EntryAddress(ns.ID, entry), counter)
}

func ptr[T any](v T) *T { return &v }

// TestMigrateAndClaim verifies a free claim mints, issues and records.
func (s *ClaimServiceSuite) TestMigrateAndClaim() {
	ns := s.namespace(nil)
	req := s.approve(ns, "alice", "alice", 0)

	s.Run("requires a signer", func() {
		_, err := s.service.MigrateAndClaim(context.Background(), "sol", "alice", Params{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown namespace", func() {
		_, err := s.service.MigrateAndClaim(s.ctx("alice"), "nope", "alice", Params{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("requestor without a request", func() {
		_, err := s.service.MigrateAndClaim(s.ctx("mallory"), "sol", "alice", Params{})
		s.True(dErrors.HasReason(err, dErrors.ReasonClaimNotAllowed))
	})

	s.Run("approved requestor receives the token", func() {
		mint := mintFor(ns, "alice", 0)
		result, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
		s.Require().NoError(err)
		s.Equal(mint, result.Mint)
		s.Equal(domain.TokenManagerAddress(mint), result.TokenManager)
		s.Nil(result.TimeInvalidator)
		s.Nil(result.Payment)

		account, err := s.custody.Account(context.Background(), "alice", mint)
		s.Require().NoError(err)
		s.Equal(uint64(1), account.Amount)

		tm, err := s.custody.Get(context.Background(), result.TokenManager)
		s.Require().NoError(err)
		s.Equal(custody.StateClaimed, tm.State)
		s.Equal(custody.KindEdition, tm.Kind)
		s.Equal(ns.Identity(), tm.Issuer)
		s.Equal(uint8(1), tm.NumInvalidators)

		md, ok := s.custody.Metadata(mint)
		s.Require().True(ok)
		s.Equal("sol", md.Name)
		s.Equal("NAME", md.Symbol)
		s.Equal(DefaultMetadataBaseURL+"/"+mint.String()+"?name=alice", md.URI)

		entry, err := s.ledger.Entries().FindByID(context.Background(), domain.EntryAddress(ns.ID, "alice"))
		s.Require().NoError(err)
		s.True(entry.IsClaimed)
		s.Equal(domain.Identity("alice"), entry.Claimant())
		s.Equal(mint, entry.Mint)
		s.Equal(uint32(1), entry.ClaimRequestCounter)

		stored, err := s.ledger.Namespaces().FindByName(context.Background(), "sol")
		s.Require().NoError(err)
		s.Equal(uint32(1), stored.Count)

		_, err = s.ledger.ClaimRequests().FindByID(context.Background(), req.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)

		s.Contains(s.actions(), string(audit.EventEntryClaimed))
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Claims.WithLabelValues("success")))
	})

	s.Run("request cannot be used twice", func() {
		_, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
		s.True(dErrors.HasReason(err, dErrors.ReasonClaimNotAllowed))
	})
}

// TestMigrateAndClaim_StaleApproval verifies a claim invalidates every other
// approval for the same entry.
func (s *ClaimServiceSuite) TestMigrateAndClaim_StaleApproval() {
	ns := s.namespace(nil)
	s.approve(ns, "alice", "alice", 0)
	s.approve(ns, "alice", "bob", 0)

	_, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
	s.Require().NoError(err)

	_, err = s.service.MigrateAndClaim(s.ctx("bob"), "sol", "alice", Params{})
	s.True(dErrors.HasReason(err, dErrors.ReasonClaimNotAllowed))
	s.False(s.custody.MintExists(mintFor(ns, "alice", 1)))
}

// TestMigrateAndClaim_ClaimedEntry verifies an approval snapshotting the
// current counter cannot take an entry someone holds.
func (s *ClaimServiceSuite) TestMigrateAndClaim_ClaimedEntry() {
	ns := s.namespace(nil)
	s.approve(ns, "alice", "alice", 0)
	first, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
	s.Require().NoError(err)

	s.Run("claimed entry cannot be claimed again", func() {
		s.approve(ns, "alice", "bob", first.Entry.ClaimRequestCounter)
		_, err := s.service.MigrateAndClaim(s.ctx("bob"), "sol", "alice", Params{})
		s.True(dErrors.HasReason(err, dErrors.ReasonInvalidEntry))
		s.False(s.custody.MintExists(mintFor(ns, "alice", 1)))

		entry, err := s.ledger.Entries().FindByID(context.Background(), domain.EntryAddress(ns.ID, "alice"))
		s.Require().NoError(err)
		s.Equal(domain.Identity("alice"), entry.Claimant())
		s.Equal(first.Mint, entry.Mint)
		stored, err := s.ledger.Namespaces().FindByName(context.Background(), "sol")
		s.Require().NoError(err)
		s.Equal(uint32(1), stored.Count)
	})

	s.Run("holder cannot re-approve itself", func() {
		s.approve(ns, "alice", "alice", first.Entry.ClaimRequestCounter)
		_, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
		s.True(dErrors.HasReason(err, dErrors.ReasonInvalidEntry))
		stored, err := s.ledger.Namespaces().FindByName(context.Background(), "sol")
		s.Require().NoError(err)
		s.Equal(uint32(1), stored.Count)
	})
}

// TestMigrateAndClaim_Reclaim verifies a released entry is only claimable
// again once its previous token is back with the namespace.
func (s *ClaimServiceSuite) TestMigrateAndClaim_Reclaim() {
	ctx := context.Background()
	ns := s.namespace(nil)
	s.approve(ns, "alice", "alice", 0)
	first, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
	s.Require().NoError(err)

	entry, err := s.ledger.Entries().FindByID(ctx, first.Entry.ID)
	s.Require().NoError(err)
	entry.ApplyRelease(s.now)
	s.Require().NoError(s.ledger.Entries().Save(ctx, entry))
	stored, err := s.ledger.Namespaces().FindByName(ctx, "sol")
	s.Require().NoError(err)
	s.Require().NoError(stored.DecrementCount(s.now))
	s.Require().NoError(s.ledger.Namespaces().Save(ctx, stored))

	s.approve(ns, "alice", "bob", entry.ClaimRequestCounter)

	s.Run("previous holder still has the token", func() {
		_, err := s.service.MigrateAndClaim(s.ctx("bob"), "sol", "alice", Params{})
		s.True(dErrors.HasReason(err, dErrors.ReasonNamespaceRequiresToken))
		s.False(s.custody.MintExists(mintFor(ns, "alice", 1)))
	})

	s.Run("token returned to the namespace", func() {
		_, err := s.custody.Invalidate(ctx, first.TokenManager)
		s.Require().NoError(err)

		result, err := s.service.MigrateAndClaim(s.ctx("bob"), "sol", "alice", Params{})
		s.Require().NoError(err)
		s.Equal(mintFor(ns, "alice", 1), result.Mint)
		s.Equal(domain.Identity("bob"), result.Entry.Claimant())

		stored, err := s.ledger.Namespaces().FindByName(ctx, "sol")
		s.Require().NoError(err)
		s.Equal(uint32(1), stored.Count)
	})
}

// TestMigrateAndClaim_Limit verifies the limit is enforced before custody is touched.
func (s *ClaimServiceSuite) TestMigrateAndClaim_Limit() {
	ns := s.namespace(func(cfg *models.NamespaceConfig) { cfg.Limit = ptr(uint32(1)) })
	s.approve(ns, "alice", "alice", 0)
	s.approve(ns, "bob", "bob", 0)

	_, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
	s.Require().NoError(err)

	_, err = s.service.MigrateAndClaim(s.ctx("bob"), "sol", "bob", Params{})
	s.True(dErrors.HasReason(err, dErrors.ReasonNamespaceReachedLimit))
	s.False(s.custody.MintExists(mintFor(ns, "bob", 0)))

	stored, err := s.ledger.Namespaces().FindByName(context.Background(), "sol")
	s.Require().NoError(err)
	s.Equal(uint32(1), stored.Count)
	s.NotContains(s.actions(), string(audit.EventClaimCompensated))
}

// TestMigrateAndClaim_Payment verifies paid rentals charge the daily rate and
// a failed payment leaves no trace.
func (s *ClaimServiceSuite) TestMigrateAndClaim_Payment() {
	ns := s.namespace(func(cfg *models.NamespaceConfig) {
		cfg.PaymentAmountDaily = 50
		cfg.PaymentMint = usdc
		cfg.MaxRentalSeconds = ptr(int64(10 * models.SecondsPerDay))
	})
	s.approve(ns, "alice", "alice", 0)
	s.approve(ns, "bob", "bob", 0)
	s.Require().NoError(s.custody.Fund(context.Background(), "alice", usdc, 1000))
	s.Require().NoError(s.custody.Fund(context.Background(), "bob", usdc, 10))

	s.Run("duration is required", func() {
		_, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
		s.True(dErrors.HasReason(err, dErrors.ReasonNamespaceRequiresDuration))
	})

	s.Run("foreign payment mint", func() {
		_, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{
			Duration:    ptr(int64(2 * models.SecondsPerDay)),
			PaymentMint: "doge",
		})
		s.True(dErrors.HasReason(err, dErrors.ReasonInvalidPaymentMint))
	})

	s.Run("two days cost two daily payments", func() {
		result, err := s.service.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{
			Duration: ptr(int64(2 * models.SecondsPerDay)),
		})
		s.Require().NoError(err)
		s.Require().NotNil(result.Payment)
		s.Equal(uint64(100), result.Payment.Amount)

		payer, err := s.custody.Account(context.Background(), "alice", usdc)
		s.Require().NoError(err)
		s.Equal(uint64(900), payer.Amount)
		collector, err := s.custody.Account(context.Background(), ns.Identity(), usdc)
		s.Require().NoError(err)
		s.Equal(uint64(100), collector.Amount)

		s.Require().NotNil(result.TimeInvalidator)
		ti, ok := s.custody.TimeInvalidator(*result.TimeInvalidator)
		s.Require().True(ok)
		s.Require().NotNil(ti.ExpiresAt)
		s.Equal(s.now.Add(48*time.Hour), *ti.ExpiresAt)

		tm, err := s.custody.Get(context.Background(), result.TokenManager)
		s.Require().NoError(err)
		s.Equal(uint8(2), tm.NumInvalidators)
	})

	s.Run("insufficient funds rolls everything back", func() {
		mint := mintFor(ns, "bob", 0)
		_, err := s.service.MigrateAndClaim(s.ctx("bob"), "sol", "bob", Params{
			Duration: ptr(int64(2 * models.SecondsPerDay)),
		})
		s.True(dErrors.HasCode(err, dErrors.CodePolicyViolation))
		s.ErrorIs(err, sentinel.ErrInsufficientFunds)

		s.False(s.custody.MintExists(mint))
		_, err = s.custody.Get(context.Background(), domain.TokenManagerAddress(mint))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, ok := s.custody.TimeInvalidator(domain.TimeInvalidatorAddress(domain.TokenManagerAddress(mint)))
		s.False(ok)

		balance, err := s.custody.Account(context.Background(), "bob", usdc)
		s.Require().NoError(err)
		s.Equal(uint64(10), balance.Amount)

		_, err = s.ledger.Entries().FindByID(context.Background(), domain.EntryAddress(ns.ID, "bob"))
		s.ErrorIs(err, sentinel.ErrNotFound)
		_, err = s.ledger.ClaimRequests().FindByID(context.Background(), domain.ClaimRequestAddress(ns.ID, "bob", "bob"))
		s.NoError(err)
		stored, err := s.ledger.Namespaces().FindByName(context.Background(), "sol")
		s.Require().NoError(err)
		s.Equal(uint32(1), stored.Count)

		s.Contains(s.actions(), string(audit.EventClaimCompensated))
		for _, step := range []string{"create_mint", "init_token_manager", "init_time_invalidator"} {
			s.Equal(1.0, testutil.ToFloat64(s.metrics.Compensations.WithLabelValues(step, "ok")), step)
		}
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Claims.WithLabelValues("failure")))
	})
}

// TestMigrateAndClaim_CustodyFailure verifies compensations run newest first
// when a custody step fails midway.
func (s *ClaimServiceSuite) TestMigrateAndClaim_CustodyFailure() {
	ns := s.namespace(nil)
	s.approve(ns, "alice", "alice", 0)
	mint := mintFor(ns, "alice", 0)
	tmID := domain.TokenManagerAddress(mint)

	ctrl := gomock.NewController(s.T())
	assets := mocks.NewMockAssetLedger(ctrl)
	tms := mocks.NewMockTokenManagers(ctrl)
	tis := mocks.NewMockTimeInvalidators(ctrl)

	assets.EXPECT().CreateMint(gomock.Any(), mint, ns.Identity()).Return(nil)
	assets.EXPECT().CreateMetadata(gomock.Any(), gomock.Any()).Return(nil)
	assets.EXPECT().CreateAccount(gomock.Any(), ns.Identity(), mint).Return(nil)
	assets.EXPECT().MintTo(gomock.Any(), ns.Identity(), ns.Identity(), mint, uint64(1)).Return(nil)
	assets.EXPECT().FinalizeEdition(gomock.Any(), mint, ns.Identity()).Return(nil)
	tms.EXPECT().Init(gomock.Any(), gomock.Any()).Return(&custody.TokenManager{ID: tmID, Mint: mint}, nil)
	tms.EXPECT().AddInvalidator(gomock.Any(), tmID, ns.Identity(), ns.Identity()).Return(nil)
	tms.EXPECT().Issue(gomock.Any(), tmID, ns.Identity()).Return(errors.New("custody offline"))
	gomock.InOrder(
		tms.EXPECT().Unwind(gomock.Any(), tmID).Return(nil),
		assets.EXPECT().Burn(gomock.Any(), mint).Return(nil),
	)

	svc := New(s.ledger, assets, tms, tis, WithMetrics(s.metrics))
	_, err := svc.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	_, err = s.ledger.Entries().FindByID(context.Background(), domain.EntryAddress(ns.ID, "alice"))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestMigrateAndClaim_RejectionsSkipCustody verifies rule failures are
// decided before any custody call.
func (s *ClaimServiceSuite) TestMigrateAndClaim_RejectionsSkipCustody() {
	ns := s.namespace(func(cfg *models.NamespaceConfig) {
		cfg.MinRentalSeconds = 3600
		cfg.MaxRentalSeconds = ptr(int64(7200))
	})
	s.approve(ns, "alice", "alice", 0)

	ctrl := gomock.NewController(s.T())
	svc := New(s.ledger, mocks.NewMockAssetLedger(ctrl), mocks.NewMockTokenManagers(ctrl), mocks.NewMockTimeInvalidators(ctrl))

	_, err := svc.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{Duration: ptr(int64(60))})
	s.True(dErrors.HasReason(err, dErrors.ReasonRentalDurationTooSmall))
	_, err = svc.MigrateAndClaim(s.ctx("alice"), "sol", "alice", Params{Duration: ptr(int64(7200))})
	s.True(dErrors.HasReason(err, dErrors.ReasonRentalDurationTooLarge))
}
