// Package service implements the namespace registry: creation, whole-config
// updates and reads. Namespaces are never deleted.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"namespaces/internal/platform/metrics"
	"namespaces/internal/registry/models"
	"namespaces/internal/registry/store"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/audit"
	"namespaces/pkg/platform/sentinel"
	"namespaces/pkg/requestcontext"
)

// Service orchestrates namespace lifecycle management.
type Service struct {
	ledger       store.Ledger
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

func New(ledger store.Ledger, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Service{
		ledger:       ledger,
		auditEmitter: audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:      cfg.metrics,
	}
}

// Create registers a namespace. Any authenticated signer may pay for it; the
// authorities named in cfg govern it afterwards.
func (s *Service) Create(ctx context.Context, name string, cfg models.NamespaceConfig) (*models.Namespace, error) {
	signer := requestcontext.Signer(ctx)
	if signer.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "a signer is required")
	}
	name = strings.TrimSpace(name)

	var created *models.Namespace
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		ns, err := models.NewNamespace(name, cfg, requestcontext.Now(ctx))
		if err != nil {
			return toValidation(err)
		}
		if err := stores.Namespaces().Create(ctx, ns); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "namespace name is taken")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create namespace")
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventNamespaceCreated, audit.Event{
			Namespace: ns.Name,
			Subject:   ns.UpdateAuthority.String(),
			ActorID:   signer.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		created = ns
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementNamespaceCreated()
	}
	return created, nil
}

// Update replaces the whole configuration. The update authority must sign.
func (s *Service) Update(ctx context.Context, name string, cfg models.NamespaceConfig) (*models.Namespace, error) {
	var updated *models.Namespace
	err := s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		ns, err := findNamespace(ctx, stores, name)
		if err != nil {
			return err
		}
		signer := requestcontext.Signer(ctx)
		if requestcontext.HasSigner(ctx, ns.UpdateAuthority) {
			signer = ns.UpdateAuthority
		}
		if err := ns.CanUpdate(signer, cfg); err != nil {
			return toValidation(err)
		}
		ns.ApplyUpdate(cfg, requestcontext.Now(ctx))
		if err := stores.Namespaces().Save(ctx, ns); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save namespace")
		}
		if err := s.auditEmitter.Emit(ctx, audit.EventNamespaceUpdated, audit.Event{
			Namespace: ns.Name,
			Subject:   ns.UpdateAuthority.String(),
			ActorID:   signer.String(),
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
		}
		updated = ns
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, name string) (*models.Namespace, error) {
	return findNamespace(ctx, s.ledger, name)
}

func (s *Service) List(ctx context.Context) ([]*models.Namespace, error) {
	namespaces, err := s.ledger.Namespaces().List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list namespaces")
	}
	return namespaces, nil
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

// toValidation converts plain invariant violations to validation errors for
// the API. Rule violations keep their reason and code.
func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) && dErrors.ReasonOf(err) == "" {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}
