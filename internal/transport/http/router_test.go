package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/suite"

	"namespaces/internal/admin"
	claimservice "namespaces/internal/claim/service"
	claimrequestservice "namespaces/internal/claimrequest/service"
	"namespaces/internal/custody/sandbox"
	entryservice "namespaces/internal/entry/service"
	jwttoken "namespaces/internal/jwt_token"
	namespaceservice "namespaces/internal/namespace/service"
	"namespaces/internal/platform/metrics"
	"namespaces/internal/registry/models"
	"namespaces/internal/registry/store/memory"
	"namespaces/internal/resolver"
	reverseservice "namespaces/internal/reverse/service"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/audit/publisher"
	auditmemory "namespaces/pkg/platform/audit/store/memory"
	adminmw "namespaces/pkg/platform/middleware/admin"
	authmw "namespaces/pkg/platform/middleware/auth"
	"namespaces/pkg/testutil"
)

// =============================================================================
// Router Test Suite
// =============================================================================
// Drives the full HTTP surface against the in-memory ledger and the custody
// sandbox, authenticating with real tokens.

const adminToken = "admin-secret"

type RouterSuite struct {
	suite.Suite
	router  http.Handler
	jwt     *jwttoken.JWTService
	custody *sandbox.Sandbox
	audit   *auditmemory.InMemoryStore
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	ledger := memory.New()
	s.custody = sandbox.New()
	s.audit = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.audit)
	s.jwt = jwttoken.NewJWTService("test-signing-key", "namespaces", "namespaces-api")

	reverse := reverseservice.New(ledger, s.custody, s.custody, s.custody,
		reverseservice.WithLogger(logger), reverseservice.WithAuditPublisher(pub), reverseservice.WithMetrics(m))
	res := resolver.New(reverse, resolver.WithMetrics(m))
	namespaces := namespaceservice.New(ledger,
		namespaceservice.WithLogger(logger), namespaceservice.WithAuditPublisher(pub), namespaceservice.WithMetrics(m))
	requests := claimrequestservice.New(ledger, s.custody,
		claimrequestservice.WithLogger(logger), claimrequestservice.WithAuditPublisher(pub), claimrequestservice.WithMetrics(m))
	entries := entryservice.New(ledger, s.custody, s.custody,
		entryservice.WithLogger(logger), entryservice.WithAuditPublisher(pub), entryservice.WithReverseCache(res))
	claims := claimservice.New(ledger, s.custody, s.custody, s.custody,
		claimservice.WithLogger(logger), claimservice.WithAuditPublisher(pub), claimservice.WithMetrics(m))
	operator := admin.New(s.custody, logger, pub)

	auth := authmw.RequireAuth(jwttoken.NewVerifier(s.jwt), logger)
	s.router = NewRouter(logger, []Registrar{
		NewNamespaceHandler(namespaces, requests, auth, logger),
		NewEntryHandler(entries, claims, auth, logger),
		NewReverseHandler(reverse, res, auth, logger),
		NewAdminHandler(operator, adminmw.RequireAdminToken(adminToken, logger), logger),
	}, WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}

func (s *RouterSuite) token(signer domain.Identity, cosigners ...domain.Identity) string {
	token, err := s.jwt.GenerateAccessToken(signer, cosigners, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *RouterSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *RouterSuite) createNamespace(body NamespaceRequest) {
	rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces", s.token("payer"), body))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
}

func approverNamespace(name string) NamespaceRequest {
	approver := "approver"
	return NamespaceRequest{
		Name:             name,
		UpdateAuthority:  "update-authority",
		RentAuthority:    "rent-authority",
		ApproveAuthority: &approver,
		InvalidationType: "return",
	}
}

func (s *RouterSuite) TestHealthAndMetrics() {
	rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
	testutil.AssertStatusOK(s.T(), rr)
	s.NotEmpty(rr.Header().Get("X-Request-ID"))

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/metrics"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Contains(rr.Body.String(), "namespaces_created_total")

	s.Run("a failing dependency degrades health", func() {
		router := NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)), nil,
			WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }))
		rr := testutil.DoRequest(router, testutil.NewRequest(s.T(), http.MethodGet, "/healthz"))
		testutil.AssertStatus(s.T(), rr, http.StatusServiceUnavailable)
		testutil.AssertJSONContains(s.T(), rr, "status", "degraded")
	})
}

func (s *RouterSuite) TestNamespaces() {
	s.Run("mutations require a token", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/namespaces", approverNamespace("sol")))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.createNamespace(approverNamespace("sol"))

	s.Run("get and list", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/sol"))
		testutil.AssertStatusOK(s.T(), rr)
		ns := testutil.UnmarshalResponse[models.Namespace](s.T(), rr)
		s.Equal(domain.NamespaceAddress("sol"), ns.ID)
		s.Equal(domain.Identity("approver"), *ns.ApproveAuthority)

		rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces"))
		testutil.AssertStatusOK(s.T(), rr)
		list := testutil.UnmarshalResponse[NamespaceListResponse](s.T(), rr)
		s.Equal(1, list.Total)
	})

	s.Run("duplicate name conflicts", func() {
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces", s.token("payer"), approverNamespace("sol")))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
	})

	s.Run("update requires the update authority", func() {
		body := approverNamespace("")
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPut, "/namespaces/sol", s.token("mallory"), body))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertReason(s.T(), rr, "InvalidUpdateAuthority")

		body.PaymentAmountDaily = 10
		body.PaymentMint = "usdc"
		rr = s.do(testutil.NewBearerRequest(s.T(), http.MethodPut, "/namespaces/sol", s.token("update-authority"), body))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "payment_mint", "usdc")
	})

	s.Run("unknown invalidation type is a policy violation", func() {
		body := approverNamespace("bad")
		body.InvalidationType = "burn"
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces", s.token("payer"), body))
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		testutil.AssertReason(s.T(), rr, "InvalidInvalidationType")
	})

	s.Run("unknown fields are rejected", func() {
		rr := s.do(testutil.NewBearerRequestWithBody(s.T(), http.MethodPost, "/namespaces", s.token("payer"), `{"name":"x","surprise":true}`))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("missing namespace", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/nope"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
	})
}

// TestClaimLifecycle walks request, approval, claim, reverse mapping and
// expiry through the HTTP surface.
func (s *RouterSuite) TestClaimLifecycle() {
	s.createNamespace(approverNamespace("sol"))
	alice := s.token("alice")

	rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/requests", alice, nil))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/sol/requests?pending=true"))
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(1, testutil.UnmarshalResponse[ClaimRequestListResponse](s.T(), rr).Total)

	s.Run("only the approve authority approves", func() {
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/requests/approve", alice, ApproveRequest{Requestor: "alice"}))
		testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
		testutil.AssertReason(s.T(), rr, "InvalidApproveAuthority")
	})

	rr = s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/requests/approve", s.token("approver"), ApproveRequest{Requestor: "alice"}))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "is_approved", true)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/sol/requests?pending=true"))
	s.Equal(0, testutil.UnmarshalResponse[ClaimRequestListResponse](s.T(), rr).Total)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/sol/entries/alice/requests/alice"))
	testutil.AssertStatusOK(s.T(), rr)

	rr = s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/claim", alice, nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	result := testutil.UnmarshalResponse[claimservice.Result](s.T(), rr)
	s.True(result.Entry.IsClaimed)

	s.Run("a consumed approval cannot claim again", func() {
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/claim", alice, nil))
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertReason(s.T(), rr, "ClaimNotAllowed")
	})

	rr = s.do(testutil.NewBearerRequest(s.T(), http.MethodPut, "/reverse", alice, SetReverseRequest{
		Namespace: "sol",
		Entry:     "alice",
		Proof:     result.TokenManager.String(),
	}))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/resolve/alice"))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "display_name", "alice.sol")

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/sol/entries/alice"))
	testutil.AssertStatusOK(s.T(), rr)
	entry := testutil.UnmarshalResponse[models.Entry](s.T(), rr)
	s.Require().NotNil(entry.ReverseEntry)

	s.Run("expiry needs the namespace to hold the token", func() {
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/invalidate/expired", s.token("keeper"), nil))
		testutil.AssertStatus(s.T(), rr, http.StatusUnprocessableEntity)
		testutil.AssertReason(s.T(), rr, "NamespaceRequiresToken")
	})

	rr = s.do(adminRequest(s.T(), http.MethodPost, "/admin/custody/token-managers/"+result.TokenManager.String()+"/invalidate", nil))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "state", "invalidated")

	rr = s.do(testutil.NewBearerRequest(s.T(), http.MethodPost, "/namespaces/sol/entries/alice/invalidate/expired", s.token("keeper"), nil))
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	testutil.AssertJSONContains(s.T(), rr, "is_claimed", false)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/resolve/alice"))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)

	rr = s.do(testutil.NewRequest(s.T(), http.MethodGet, "/namespaces/sol"))
	testutil.AssertJSONContains(s.T(), rr, "count", float64(0))
}

func (s *RouterSuite) TestReverse() {
	s.Run("clearing without a mapping", func() {
		rr := s.do(testutil.WithBearer(testutil.NewRequest(s.T(), http.MethodDelete, "/reverse"), s.token("nobody")))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})

	s.Run("proof must be a record id", func() {
		rr := s.do(testutil.NewBearerRequest(s.T(), http.MethodPut, "/reverse", s.token("alice"), SetReverseRequest{
			Namespace: "sol", Entry: "alice", Proof: "not-hex",
		}))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("invalid identity in path", func() {
		rr := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/reverse/bad%20identity"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *RouterSuite) TestAdmin() {
	s.Run("requires the admin token", func() {
		rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/admin/custody/fund", FundRequest{Owner: "alice", Mint: "usdc", Amount: 10}))
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("funds an identity", func() {
		rr := s.do(adminRequest(s.T(), http.MethodPost, "/admin/custody/fund", FundRequest{Owner: "alice", Mint: "usdc", Amount: 10}))
		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "balance", float64(10))

		account, err := s.custody.Account(context.Background(), "alice", "usdc")
		s.Require().NoError(err)
		s.Equal(uint64(10), account.Amount)

		events, err := s.audit.ListAll(context.Background())
		s.Require().NoError(err)
		s.Require().NotEmpty(events)
		s.Equal("custody_funded", events[len(events)-1].Action)
	})

	s.Run("zero amount is invalid", func() {
		rr := s.do(adminRequest(s.T(), http.MethodPost, "/admin/custody/fund", FundRequest{Owner: "alice", Mint: "usdc"}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("unknown token manager", func() {
		missing := domain.TokenManagerAddress("missing-mint")
		rr := s.do(adminRequest(s.T(), http.MethodPost, "/admin/custody/token-managers/"+missing.String()+"/invalidate", nil))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	})
}

func adminRequest(t *testing.T, method, path string, body any) *http.Request {
	req := testutil.NewJSONRequest(t, method, path, body)
	req.Header.Set("X-Admin-Token", adminToken)
	return req
}
