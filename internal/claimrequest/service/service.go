// Package service implements the claim request ledger: pending requests
// created by requestors and approvals granted by the namespace's approve
// authority or by a token ownership proof.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"namespaces/internal/custody"
	"namespaces/internal/platform/metrics"
	"namespaces/internal/registry/models"
	"namespaces/internal/registry/store"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/audit"
	"namespaces/pkg/platform/sentinel"
	"namespaces/pkg/requestcontext"
)

// TokenAccounts reads token balances for ownership proofs.
type TokenAccounts interface {
	Account(ctx context.Context, owner domain.Identity, mint domain.MintID) (*custody.TokenAccount, error)
}

const (
	approvalByAuthority = "authority"
	approvalByToken     = "token"
)

type Service struct {
	ledger       store.Ledger
	accounts     TokenAccounts
	auditEmitter *audit.Emitter
	metrics      *metrics.Metrics
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
}

type Option func(*serviceConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(c *serviceConfig) {
		c.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) {
		c.metrics = m
	}
}

func New(ledger store.Ledger, accounts TokenAccounts, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		ledger:       ledger,
		accounts:     accounts,
		auditEmitter: audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
	}
}

// CreatePending records an unapproved request by the signer. An existing
// request is returned unchanged.
func (s *Service) CreatePending(ctx context.Context, namespaceName, entryName string) (*models.ClaimRequest, error) {
	requestor := requestcontext.Signer(ctx)
	if requestor.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "a signer is required")
	}

	var result *models.ClaimRequest
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		ns, err := findNamespace(ctx, stores, namespaceName)
		if err != nil {
			return err
		}
		req, err := models.NewClaimRequest(ns, strings.TrimSpace(entryName), requestor, requestcontext.Now(ctx))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}

		existing, err := stores.ClaimRequests().FindByID(ctx, req.ID)
		switch {
		case err == nil:
			result = existing
			return nil
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim request")
		}

		if err := stores.ClaimRequests().Save(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save claim request")
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventClaimRequestCreated, audit.Event{
			Namespace: ns.Name,
			Entry:     req.EntryName,
			Subject:   requestor.String(),
			ActorID:   requestor.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestOrApprove creates or reuses the request of requestor for entryName
// and approves it. With useTokenProof the requestor must hold the entry's
// current mint; otherwise the namespace approve authority must sign.
//
// The request counter is refreshed from the entry on every approval so that
// re-approving a stale request makes it consumable again.
func (s *Service) RequestOrApprove(ctx context.Context, namespaceName, entryName string, requestor domain.Identity, useTokenProof bool) (*models.ClaimRequest, error) {
	var (
		result       *models.ClaimRequest
		transitioned bool
		path         string
	)
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		now := requestcontext.Now(ctx)
		ns, err := findNamespace(ctx, stores, namespaceName)
		if err != nil {
			return err
		}
		req, err := models.NewClaimRequest(ns, strings.TrimSpace(entryName), requestor, now)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}

		entry, err := stores.Entries().FindByID(ctx, domain.EntryAddress(ns.ID, req.EntryName))
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entry")
		}

		if useTokenProof {
			if err := s.verifyTokenProof(ctx, entry, requestor); err != nil {
				return err
			}
			path = approvalByToken
		} else {
			if ns.ApproveAuthority == nil || !requestcontext.HasSigner(ctx, *ns.ApproveAuthority) {
				return dErrors.Rule(dErrors.ReasonInvalidApproveAuthority, "approve authority must sign")
			}
			path = approvalByAuthority
		}

		existing, err := stores.ClaimRequests().FindByID(ctx, req.ID)
		switch {
		case err == nil:
			req = existing
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim request")
		}

		var counter uint32
		if entry != nil {
			counter = entry.ClaimRequestCounter
		}
		transitioned = req.ApplyApproval(counter, now)
		if transitioned {
			ns.ApplyApproval(now)
			if err := stores.Namespaces().Save(ctx, ns); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save namespace")
			}
		}
		if err := stores.ClaimRequests().Save(ctx, req); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save claim request")
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventClaimRequestApproved, audit.Event{
			Namespace: ns.Name,
			Entry:     req.EntryName,
			Subject:   requestor.String(),
			ActorID:   requestcontext.Signer(ctx).String(),
			Reason:    path,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitioned && s.metrics != nil {
		s.metrics.IncrementApproval(path)
	}
	return result, nil
}

// verifyTokenProof checks that requestor holds the entry's current mint.
func (s *Service) verifyTokenProof(ctx context.Context, entry *models.Entry, requestor domain.Identity) error {
	if entry == nil || entry.Mint.IsNil() {
		return dErrors.Rule(dErrors.ReasonInvalidUserTokenAccount, "entry has no mint to prove ownership of")
	}
	account, err := s.accounts.Account(ctx, requestor, entry.Mint)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Rule(dErrors.ReasonInvalidUserTokenAccount, "requestor holds no token of the entry mint")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read token account")
	}
	if account.Owner != requestor || account.Mint != entry.Mint || account.Amount == 0 {
		return dErrors.Rule(dErrors.ReasonInvalidUserTokenAccount, "requestor holds no token of the entry mint")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, namespaceName, entryName string, requestor domain.Identity) (*models.ClaimRequest, error) {
	ns, err := findNamespace(ctx, s.ledger, namespaceName)
	if err != nil {
		return nil, err
	}
	req, err := s.ledger.ClaimRequests().FindByID(ctx, domain.ClaimRequestAddress(ns.ID, strings.TrimSpace(entryName), requestor))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim request")
	}
	return req, nil
}

// List returns the requests of a namespace, oldest first.
func (s *Service) List(ctx context.Context, namespaceName string, pendingOnly bool) ([]*models.ClaimRequest, error) {
	ns, err := findNamespace(ctx, s.ledger, namespaceName)
	if err != nil {
		return nil, err
	}
	reqs, err := s.ledger.ClaimRequests().ListByNamespace(ctx, ns.ID, pendingOnly)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claim requests")
	}
	return reqs, nil
}

func findNamespace(ctx context.Context, stores store.Stores, name string) (*models.Namespace, error) {
	ns, err := stores.Namespaces().FindByName(ctx, strings.TrimSpace(name))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "namespace not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load namespace")
	}
	return ns, nil
}
