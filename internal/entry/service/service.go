// Package service implements entry reads and the flows that return a claimed
// entry to unclaimed: expiry, transferable invalidation and authority
// migration.
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

type TokenAccounts interface {
	Account(ctx context.Context, owner domain.Identity, mint domain.MintID) (*custody.TokenAccount, error)
}

type TokenManagerReader interface {
	Get(ctx context.Context, id domain.RecordID) (*custody.TokenManager, error)
}

// ReverseCache is told when a reverse mapping disappears.
type ReverseCache interface {
	Forget(ctx context.Context, owner domain.Identity)
}

const (
	flowExpired      = "expired"
	flowTransferable = "transferable"
	flowMigrated     = "migrated"
)

type Service struct {
	ledger         store.Ledger
	accounts       TokenAccounts
	tokenManagers  TokenManagerReader
	reverseCache   ReverseCache
	allowMigration bool
	auditEmitter   *audit.Emitter
	metrics        *metrics.Metrics
}

type serviceConfig struct {
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
	reverseCache   ReverseCache
	allowMigration bool
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

// WithAuthorityMigration enables or disables MigrateMint. Enabled by default.
func WithAuthorityMigration(allowed bool) Option {
	return func(c *serviceConfig) {
		c.allowMigration = allowed
	}
}

func New(ledger store.Ledger, accounts TokenAccounts, tokenManagers TokenManagerReader, opts ...Option) *Service {
	cfg := &serviceConfig{allowMigration: true}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		ledger:         ledger,
		accounts:       accounts,
		tokenManagers:  tokenManagers,
		reverseCache:   cfg.reverseCache,
		allowMigration: cfg.allowMigration,
		auditEmitter:   audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:        cfg.metrics,
	}
}

func (s *Service) Get(ctx context.Context, namespaceName, entryName string) (*models.Entry, error) {
	ns, err := findNamespace(ctx, s.ledger, namespaceName)
	if err != nil {
		return nil, err
	}
	return findEntry(ctx, s.ledger, ns, entryName)
}

// List returns the entries of a namespace ordered by name.
func (s *Service) List(ctx context.Context, namespaceName string) ([]*models.Entry, error) {
	ns, err := findNamespace(ctx, s.ledger, namespaceName)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.Entries().ListByNamespace(ctx, ns.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list entries")
	}
	return entries, nil
}

// InvalidateExpired releases an entry whose token has come back to the
// namespace. The namespace must hold at least one unit of the entry's mint.
// A reverse mapping naming the entry is closed.
func (s *Service) InvalidateExpired(ctx context.Context, namespaceName, entryName string) (*models.Entry, error) {
	var (
		result *models.Entry
		closed *models.ReverseEntry
	)
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		now := requestcontext.Now(ctx)
		ns, entry, err := loadForInvalidation(ctx, stores, namespaceName, entryName)
		if err != nil {
			return err
		}
		if err := s.requireNamespaceHolds(ctx, ns, entry); err != nil {
			return err
		}

		closed, err = closeReverse(ctx, stores, ns, entry)
		if err != nil {
			return err
		}
		entry.ClearReverse(now)
		claimant := entry.Claimant()
		entry.ApplyRelease(now)
		if err := ns.DecrementCount(now); err != nil {
			return err
		}

		if err := save(ctx, stores, ns, entry); err != nil {
			return err
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventEntryInvalidated, audit.Event{
			Namespace: ns.Name,
			Entry:     entry.Name,
			Subject:   claimant.String(),
			ActorID:   requestcontext.Signer(ctx).String(),
			Mint:      entry.Mint.String(),
			Reason:    flowExpired,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterInvalidation(ctx, flowExpired, closed)
	return result, nil
}

func (s *Service) requireNamespaceHolds(ctx context.Context, ns *models.Namespace, entry *models.Entry) error {
	if entry.Mint.IsNil() {
		return dErrors.Rule(dErrors.ReasonNamespaceRequiresToken, "entry has no mint")
	}
	account, err := s.accounts.Account(ctx, ns.Identity(), entry.Mint)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Rule(dErrors.ReasonNamespaceRequiresToken, "namespace does not hold the entry token")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read namespace token account")
	}
	if account.Amount == 0 {
		return dErrors.Rule(dErrors.ReasonNamespaceRequiresToken, "namespace does not hold the entry token")
	}
	return nil
}

// InvalidateTransferable releases a transferable entry whose custody record
// was invalidated. tokenManagerID must be the canonical token manager address
// of the entry's mint. A record that no longer exists is accepted.
func (s *Service) InvalidateTransferable(ctx context.Context, namespaceName, entryName string, tokenManagerID domain.RecordID) (*models.Entry, error) {
	var (
		result *models.Entry
		closed *models.ReverseEntry
	)
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		now := requestcontext.Now(ctx)
		ns, entry, err := loadForInvalidation(ctx, stores, namespaceName, entryName)
		if err != nil {
			return err
		}
		if entry.ReverseEntry == nil {
			return dErrors.Rule(dErrors.ReasonInvalidEntry, "entry has no reverse entry")
		}
		if err := s.verifyInvalidated(ctx, ns, entry, tokenManagerID); err != nil {
			return err
		}

		closed, err = closeReverse(ctx, stores, ns, entry)
		if err != nil {
			return err
		}
		entry.ClearReverse(now)
		claimant := entry.Claimant()
		mint := entry.Mint
		entry.ApplyRelease(now)
		entry.ApplyMint("", now)
		if err := ns.DecrementCount(now); err != nil {
			return err
		}

		if err := save(ctx, stores, ns, entry); err != nil {
			return err
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventEntryInvalidated, audit.Event{
			Namespace: ns.Name,
			Entry:     entry.Name,
			Subject:   claimant.String(),
			ActorID:   requestcontext.Signer(ctx).String(),
			Mint:      mint.String(),
			Reason:    flowTransferable,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterInvalidation(ctx, flowTransferable, closed)
	return result, nil
}

func (s *Service) verifyInvalidated(ctx context.Context, ns *models.Namespace, entry *models.Entry, tokenManagerID domain.RecordID) error {
	if !domain.VerifyDerivation(tokenManagerID, domain.KindTokenManager, entry.Mint.String()) {
		return dErrors.Rule(dErrors.ReasonInvalidTokenManager, "token manager address does not match entry mint")
	}
	tm, err := s.tokenManagers.Get(ctx, tokenManagerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read token manager")
	}
	if tm.State != custody.StateInvalidated || tm.Issuer != ns.Identity() || tm.Mint != entry.Mint {
		return dErrors.Rule(dErrors.ReasonInvalidTokenManager, "token manager is not invalidated for this entry")
	}
	return nil
}

// MigrateMint rebinds an entry to newMint and clears its claim. It is an
// administrative override of the update authority and performs no custody
// validation.
func (s *Service) MigrateMint(ctx context.Context, namespaceName, entryName string, newMint domain.MintID) (*models.Entry, error) {
	if !s.allowMigration {
		return nil, dErrors.New(dErrors.CodeForbidden, "authority migration is disabled")
	}
	if newMint.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "mint is required")
	}

	var result *models.Entry
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		now := requestcontext.Now(ctx)
		ns, err := findNamespace(ctx, stores, namespaceName)
		if err != nil {
			return err
		}
		if !requestcontext.HasSigner(ctx, ns.UpdateAuthority) {
			return dErrors.Rule(dErrors.ReasonInvalidUpdateAuthority, "update authority must sign")
		}
		entry, err := findEntry(ctx, stores, ns, entryName)
		if err != nil {
			return err
		}

		wasClaimed := entry.IsClaimed
		claimant := entry.Claimant()
		previous := entry.Mint
		entry.ApplyMint(newMint, now)
		entry.ApplyRelease(now)
		if wasClaimed {
			if err := ns.DecrementCount(now); err != nil {
				return err
			}
		}

		if err := save(ctx, stores, ns, entry); err != nil {
			return err
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventEntryMigrated, audit.Event{
			Namespace: ns.Name,
			Entry:     entry.Name,
			Subject:   claimant.String(),
			ActorID:   ns.UpdateAuthority.String(),
			Mint:      newMint.String(),
			Reason:    "previous mint " + previous.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementInvalidation(flowMigrated)
	}
	return result, nil
}

func (s *Service) afterInvalidation(ctx context.Context, flow string, closed *models.ReverseEntry) {
	if s.metrics != nil {
		s.metrics.IncrementInvalidation(flow)
	}
	if closed != nil && s.reverseCache != nil {
		s.reverseCache.Forget(ctx, closed.Owner)
	}
}

func loadForInvalidation(ctx context.Context, stores store.Stores, namespaceName, entryName string) (*models.Namespace, *models.Entry, error) {
	ns, err := findNamespace(ctx, stores, namespaceName)
	if err != nil {
		return nil, nil, err
	}
	entry, err := findEntry(ctx, stores, ns, entryName)
	if err != nil {
		return nil, nil, err
	}
	if err := entry.CanInvalidate(ns); err != nil {
		return nil, nil, err
	}
	return ns, entry, nil
}

// closeReverse deletes the reverse record the entry points at when it still
// names the entry. It returns the closed record, or nil.
func closeReverse(ctx context.Context, stores store.Stores, ns *models.Namespace, entry *models.Entry) (*models.ReverseEntry, error) {
	if entry.ReverseEntry == nil {
		return nil, nil
	}
	reverse, err := stores.ReverseEntries().FindByID(ctx, *entry.ReverseEntry)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load reverse entry")
	}
	if !reverse.Matches(ns, entry) {
		return nil, nil
	}
	if err := stores.ReverseEntries().Delete(ctx, reverse.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close reverse entry")
	}
	return reverse, nil
}

func save(ctx context.Context, stores store.Stores, ns *models.Namespace, entry *models.Entry) error {
	if err := stores.Entries().Save(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save entry")
	}
	if err := stores.Namespaces().Save(ctx, ns); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save namespace")
	}
	return nil
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
