// Package service implements the reverse mapping registry: one record per
// identity naming the entry that identity holds.
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

const reasonSuperseded = "superseded"

type TokenAccounts interface {
	Account(ctx context.Context, owner domain.Identity, mint domain.MintID) (*custody.TokenAccount, error)
}

type TokenManagerReader interface {
	Get(ctx context.Context, id domain.RecordID) (*custody.TokenManager, error)
}

// ReverseCache is told whenever a mapping changes.
type ReverseCache interface {
	Forget(ctx context.Context, owner domain.Identity)
}

type Service struct {
	ledger        store.Ledger
	accounts      TokenAccounts
	tokenManagers TokenManagerReader
	certificates  custody.Certificates
	reverseCache  ReverseCache
	auditEmitter  *audit.Emitter
	metrics       *metrics.Metrics
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	reverseCache   ReverseCache
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

func WithReverseCache(cache ReverseCache) Option {
	return func(c *serviceConfig) {
		c.reverseCache = cache
	}
}

func New(ledger store.Ledger, accounts TokenAccounts, tokenManagers TokenManagerReader, certificates custody.Certificates, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		ledger:        ledger,
		accounts:      accounts,
		tokenManagers: tokenManagers,
		certificates:  certificates,
		reverseCache:  cfg.reverseCache,
		auditEmitter:  audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:       cfg.metrics,
	}
}

// SetReverse maps the signer to entry. The signer must hold the entry's
// token and proofID must address a live token manager or legacy certificate
// issued by the namespace for that token. An empty proofID means the
// canonical token manager address.
//
// An identity already mapped to a different entry must clear its mapping
// first; setting the same entry again is a no-op.
func (s *Service) SetReverse(ctx context.Context, namespaceName, entryName string, proofID domain.RecordID) (*models.ReverseEntry, error) {
	owner := requestcontext.Signer(ctx)
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "a signer is required")
	}

	var (
		result     *models.ReverseEntry
		superseded *models.ReverseEntry
	)
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		now := requestcontext.Now(ctx)
		ns, err := findNamespace(ctx, stores, namespaceName)
		if err != nil {
			return err
		}
		entry, err := findEntry(ctx, stores, ns, entryName)
		if err != nil {
			return err
		}
		if err := entry.BelongsTo(ns); err != nil {
			return err
		}

		if err := s.requireHolding(ctx, owner, entry); err != nil {
			return err
		}
		if proofID.IsNil() {
			proofID = domain.TokenManagerAddress(entry.Mint)
		}
		proof, err := s.resolveProof(ctx, proofID)
		if err != nil {
			return err
		}
		if err := proof.verify(proofID, ns, entry); err != nil {
			return err
		}

		reverse, err := models.NewReverseEntry(owner, ns, entry, now)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
		existing, err := stores.ReverseEntries().FindByID(ctx, reverse.ID)
		switch {
		case err == nil:
			if !existing.Matches(ns, entry) {
				return dErrors.Rule(dErrors.ReasonReverseEntryInUse, "identity already maps to "+existing.DisplayName())
			}
			reverse.CreatedAt = existing.CreatedAt
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reverse entry")
		}

		if entry.ReverseEntry != nil && !entry.PointsTo(reverse.ID) {
			superseded, err = s.closeSuperseded(ctx, stores, ns, entry, owner)
			if err != nil {
				return err
			}
		}
		if err := stores.ReverseEntries().Save(ctx, reverse); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save reverse entry")
		}
		entry.ApplyReverse(reverse.ID, now)
		if err := stores.Entries().Save(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save entry")
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventReverseEntrySet, audit.Event{
			Namespace: ns.Name,
			Entry:     entry.Name,
			Subject:   owner.String(),
			ActorID:   owner.String(),
			Mint:      entry.Mint.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		result = reverse
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementReverseSet()
	}
	s.forget(ctx, owner)
	if superseded != nil {
		s.forget(ctx, superseded.Owner)
	}
	return result, nil
}

// closeSuperseded deletes the reverse record entry currently points at when
// it still names entry, so a previous holder stops resolving to it. A record
// whose owner has since mapped elsewhere is left alone.
func (s *Service) closeSuperseded(ctx context.Context, stores store.Stores, ns *models.Namespace, entry *models.Entry, actor domain.Identity) (*models.ReverseEntry, error) {
	prev, err := stores.ReverseEntries().FindByID(ctx, *entry.ReverseEntry)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous reverse entry")
	}
	if !prev.Matches(ns, entry) {
		return nil, nil
	}
	if err := stores.ReverseEntries().Delete(ctx, prev.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close previous reverse entry")
	}
	if err := s.auditEmitter.Emit(ctx, audit.EventReverseEntryCleared, audit.Event{
		Namespace: ns.Name,
		Entry:     entry.Name,
		Subject:   prev.Owner.String(),
		ActorID:   actor.String(),
		Mint:      entry.Mint.String(),
		Reason:    reasonSuperseded,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return prev, nil
}

func (s *Service) requireHolding(ctx context.Context, owner domain.Identity, entry *models.Entry) error {
	if entry.Mint.IsNil() {
		return dErrors.Rule(dErrors.ReasonInvalidOwnerMint, "entry has no mint")
	}
	account, err := s.accounts.Account(ctx, owner, entry.Mint)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Rule(dErrors.ReasonInvalidOwnerMint, "owner does not hold the entry token")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read owner token account")
	}
	if account.Owner != owner || account.Mint != entry.Mint || account.Amount == 0 {
		return dErrors.Rule(dErrors.ReasonInvalidOwnerMint, "owner does not hold the entry token")
	}
	return nil
}

// ClearReverse removes the signer's mapping and the entry's pointer to it
// when the entry still points there.
func (s *Service) ClearReverse(ctx context.Context) error {
	owner := requestcontext.Signer(ctx)
	if owner.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "a signer is required")
	}

	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		reverse, err := findReverse(ctx, stores, owner)
		if err != nil {
			return err
		}
		if err := stores.ReverseEntries().Delete(ctx, reverse.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close reverse entry")
		}

		ns, err := stores.Namespaces().FindByName(ctx, reverse.NamespaceName)
		switch {
		case err == nil:
			entry, err := stores.Entries().FindByID(ctx, domain.EntryAddress(ns.ID, reverse.EntryName))
			switch {
			case err == nil && entry.PointsTo(reverse.ID):
				entry.ClearReverse(requestcontext.Now(ctx))
				if err := stores.Entries().Save(ctx, entry); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save entry")
				}
			case err != nil && !errors.Is(err, sentinel.ErrNotFound):
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entry")
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load namespace")
		}

		if err := s.auditEmitter.Emit(ctx, audit.EventReverseEntryCleared, audit.Event{
			Namespace: reverse.NamespaceName,
			Entry:     reverse.EntryName,
			Subject:   owner.String(),
			ActorID:   owner.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.forget(ctx, owner)
	return nil
}

// Get returns the reverse mapping of identity.
func (s *Service) Get(ctx context.Context, identity domain.Identity) (*models.ReverseEntry, error) {
	return findReverse(ctx, s.ledger, identity)
}

func (s *Service) forget(ctx context.Context, owner domain.Identity) {
	if s.reverseCache != nil {
		s.reverseCache.Forget(ctx, owner)
	}
}

func findReverse(ctx context.Context, stores store.Stores, owner domain.Identity) (*models.ReverseEntry, error) {
	reverse, err := stores.ReverseEntries().FindByID(ctx, domain.ReverseEntryAddress(owner))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "reverse entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reverse entry")
	}
	return reverse, nil
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

func findEntry(ctx context.Context, stores store.Stores, ns *models.Namespace, name string) (*models.Entry, error) {
	entry, err := stores.Entries().FindByID(ctx, domain.EntryAddress(ns.ID, strings.TrimSpace(name)))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entry not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entry")
	}
	return entry, nil
}
