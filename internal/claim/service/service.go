// Package service is the claim orchestrator. MigrateAndClaim mints a fresh
// name token for an entry, puts it under custody and hands it to the
// requestor, updating the registry records in the same unit of work.
//
// Registry writes run inside one ledger transaction. Custody calls cannot join
// that transaction, so each one registers a compensating call; when anything
// fails, including the commit, the compensations run in reverse order.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

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

const (
	DefaultMetadataBaseURL = "https://nft.cardinal.so/metadata"
	DefaultPaymentManager  = "cardinal"

	tokenSymbol  = "NAME"
	creatorShare = 100
	tracerName   = "namespaces/internal/claim"
)

// Params are the caller's choices for a claim.
type Params struct {
	// Duration is the rental length in seconds. Required when the namespace
	// sets a maximum.
	Duration *int64
	// PaymentMint must equal the namespace payment mint. Empty means the
	// namespace's own.
	PaymentMint domain.MintID
}

// Result describes a completed claim.
type Result struct {
	Entry           *models.Entry             `json:"entry"`
	Mint            domain.MintID             `json:"mint"`
	TokenManager    domain.RecordID           `json:"token_manager"`
	TimeInvalidator *domain.RecordID          `json:"time_invalidator,omitempty"`
	Payment         *custody.ExtensionReceipt `json:"payment,omitempty"`
}

type Service struct {
	ledger           store.Ledger
	assets           custody.AssetLedger
	tokenManagers    custody.TokenManagers
	timeInvalidators custody.TimeInvalidators
	metadataBaseURL  string
	paymentManager   string
	logger           *slog.Logger
	tracer           trace.Tracer
	auditEmitter     *audit.Emitter
	metrics          *metrics.Metrics
}

type serviceConfig struct {
	logger          *slog.Logger
	auditPublisher  audit.Publisher
	metrics         *metrics.Metrics
	tracerProvider  trace.TracerProvider
	metadataBaseURL string
	paymentManager  string
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

// WithTracerProvider overrides the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *serviceConfig) {
		c.tracerProvider = tp
	}
}

// WithMetadataBaseURL sets the prefix of minted token metadata URIs.
func WithMetadataBaseURL(base string) Option {
	return func(c *serviceConfig) {
		c.metadataBaseURL = strings.TrimRight(base, "/")
	}
}

// WithPaymentManager names the payment manager time invalidators settle through.
func WithPaymentManager(name string) Option {
	return func(c *serviceConfig) {
		c.paymentManager = name
	}
}

func New(ledger store.Ledger, assets custody.AssetLedger, tokenManagers custody.TokenManagers, timeInvalidators custody.TimeInvalidators, opts ...Option) *Service {
	cfg := &serviceConfig{
		metadataBaseURL: DefaultMetadataBaseURL,
		paymentManager:  DefaultPaymentManager,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.tracerProvider == nil {
		cfg.tracerProvider = otel.GetTracerProvider()
	}
	return &Service{
		ledger:           ledger,
		assets:           assets,
		tokenManagers:    tokenManagers,
		timeInvalidators: timeInvalidators,
		metadataBaseURL:  cfg.metadataBaseURL,
		paymentManager:   cfg.paymentManager,
		logger:           cfg.logger,
		tracer:           cfg.tracerProvider.Tracer(tracerName),
		auditEmitter:     audit.NewEmitter(cfg.logger, cfg.auditPublisher),
		metrics:          cfg.metrics,
	}
}

// MigrateAndClaim consumes the signer's approved claim request for entryName
// and gives the signer a freshly minted token for the entry.
//
// Either every effect lands or none does: no mint, no entry change and no
// consumed request remain after a failure.
func (s *Service) MigrateAndClaim(ctx context.Context, namespaceName, entryName string, params Params) (result *Result, err error) {
	start := time.Now()
	payer := requestcontext.Signer(ctx)
	if payer.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "a signer is required")
	}

	ctx, span := s.tracer.Start(ctx, "claim.migrate_and_claim", trace.WithAttributes(
		attribute.String("namespace", namespaceName),
		attribute.String("entry", entryName),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if s.metrics != nil {
			s.metrics.ObserveClaim(start, err)
		}
	}()

	sg := newSaga(s.tracer, s.logger, func(step string, err error) {
		if s.metrics != nil {
			s.metrics.IncrementCompensation(step, err)
		}
	})

	var (
		nsName string
		mint   domain.MintID
	)
	err = s.ledger.RunInTx(ctx, func(ctx context.Context, stores store.Stores) error {
		c := &claim{svc: s, saga: sg, stores: stores, payer: payer, params: params, now: requestcontext.Now(ctx)}
		if err := c.load(ctx, namespaceName, entryName); err != nil {
			return err
		}
		nsName, mint = c.ns.Name, c.mint
		if err := c.validate(ctx); err != nil {
			return err
		}
		if err := c.mintToken(ctx); err != nil {
			return err
		}
		if err := c.issueAndClaim(ctx); err != nil {
			return err
		}
		if err := c.persist(ctx); err != nil {
			return err
		}
		result = c.result()
		return nil
	})
	if err != nil {
		s.rollback(ctx, sg, nsName, entryName, mint, payer, err)
		return nil, err
	}
	return result, nil
}

// rollback runs the saga's compensations and records what happened.
func (s *Service) rollback(ctx context.Context, sg *saga, namespace, entry string, mint domain.MintID, payer domain.Identity, cause error) {
	if sg.pending() == 0 {
		return
	}
	compErr := sg.compensate(ctx)
	reason := string(dErrors.ReasonOf(cause))
	if reason == "" {
		reason = cause.Error()
	}
	if compErr != nil {
		reason += "; compensation incomplete: " + compErr.Error()
	}
	_ = s.auditEmitter.Emit(context.WithoutCancel(ctx), audit.EventClaimCompensated, audit.Event{
		Namespace: namespace,
		Entry:     entry,
		Subject:   payer.String(),
		ActorID:   payer.String(),
		Mint:      mint.String(),
		Reason:    reason,
	})
}

// claim carries the state of one MigrateAndClaim through its phases.
type claim struct {
	svc    *Service
	saga   *saga
	stores store.Stores
	payer  domain.Identity
	params Params
	now    time.Time

	ns              *models.Namespace
	entry           *models.Entry
	request         *models.ClaimRequest
	mint            domain.MintID
	tokenManager    *custody.TokenManager
	timeInvalidator *custody.TimeInvalidator
	receipt         *custody.ExtensionReceipt
}

func (c *claim) load(ctx context.Context, namespaceName, entryName string) error {
	ns, err := c.stores.Namespaces().FindByName(ctx, strings.TrimSpace(namespaceName))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "namespace not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load namespace")
	}
	c.ns = ns

	entryName = strings.TrimSpace(entryName)
	entry, err := c.stores.Entries().FindByID(ctx, domain.EntryAddress(ns.ID, entryName))
	switch {
	case err == nil:
		c.entry = entry
	case errors.Is(err, sentinel.ErrNotFound):
		// Entries come into existence on their first claim.
		entry, err = models.NewEntry(ns, entryName, c.now)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
		c.entry = entry
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entry")
	}
	if err := c.entry.BelongsTo(ns); err != nil {
		return err
	}

	req, err := c.stores.ClaimRequests().FindByID(ctx, domain.ClaimRequestAddress(ns.ID, c.entry.Name, c.payer))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "no claim request for this entry and requestor")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim request")
	}
	c.request = req
	c.mint = domain.MintAddress(c.entry.ID, c.entry.ClaimRequestCounter)
	return nil
}

// validate applies every registry rule before any custody call so that
// ordinary rejections never touch custody. Custody is only read here.
func (c *claim) validate(ctx context.Context) error {
	if err := c.request.CanConsume(c.ns, c.entry, c.payer); err != nil {
		return err
	}
	if err := c.entry.CanClaim(c.ns); err != nil {
		return err
	}
	// A re-claim needs the previous token back with the namespace.
	if !c.entry.Mint.IsNil() {
		if err := c.requireNamespaceHolds(ctx, c.entry.Mint); err != nil {
			return err
		}
	}
	c.entry.ApplyMint(c.mint, c.now)
	c.entry.ApplyClaim(c.payer, c.now)
	if err := c.ns.IncrementCount(c.now); err != nil {
		return err
	}
	if err := c.ns.ValidateDuration(c.params.Duration); err != nil {
		return err
	}
	if c.ns.RequiresTimeInvalidator() {
		paymentMint := c.params.PaymentMint
		if paymentMint.IsNil() {
			paymentMint = c.ns.PaymentMint
		}
		if paymentMint != c.ns.PaymentMint {
			return dErrors.Rule(dErrors.ReasonInvalidPaymentMint, "payment mint does not match namespace")
		}
		c.params.PaymentMint = paymentMint
	}
	return nil
}

func (c *claim) requireNamespaceHolds(ctx context.Context, mint domain.MintID) error {
	account, err := c.svc.assets.Account(ctx, c.ns.Identity(), mint)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Rule(dErrors.ReasonNamespaceRequiresToken, "namespace does not hold the previous entry token")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read namespace token account")
	}
	if account.Amount == 0 {
		return dErrors.Rule(dErrors.ReasonNamespaceRequiresToken, "namespace does not hold the previous entry token")
	}
	return nil
}

// mintToken creates the one-of-one token held by the namespace.
func (c *claim) mintToken(ctx context.Context) error {
	assets := c.svc.assets
	issuer := c.ns.Identity()

	err := c.saga.run(ctx, "create_mint",
		func(ctx context.Context) error { return assets.CreateMint(ctx, c.mint, issuer) },
		func(ctx context.Context) error { return assets.Burn(ctx, c.mint) },
	)
	if err != nil {
		return custodyErr(err, "failed to create mint")
	}

	md := custody.Metadata{
		Mint:    c.mint,
		Name:    c.ns.Name,
		Symbol:  tokenSymbol,
		URI:     c.svc.metadataBaseURL + "/" + c.mint.String() + "?name=" + url.QueryEscape(c.entry.Name),
		Creator: issuer,
		Share:   creatorShare,
	}
	steps := []struct {
		name string
		do   func(ctx context.Context) error
	}{
		{"create_metadata", func(ctx context.Context) error { return assets.CreateMetadata(ctx, md) }},
		{"create_namespace_account", func(ctx context.Context) error { return assets.CreateAccount(ctx, issuer, c.mint) }},
		{"mint_to", func(ctx context.Context) error { return assets.MintTo(ctx, issuer, issuer, c.mint, 1) }},
		{"finalize_edition", func(ctx context.Context) error { return assets.FinalizeEdition(ctx, c.mint, issuer) }},
	}
	for _, step := range steps {
		if err := c.saga.run(ctx, step.name, step.do, nil); err != nil {
			return custodyErr(err, "failed to "+strings.ReplaceAll(step.name, "_", " "))
		}
	}
	return nil
}

// issueAndClaim puts the token under custody and hands it to the payer,
// paying for the rental when the namespace charges.
func (c *claim) issueAndClaim(ctx context.Context) error {
	tms := c.svc.tokenManagers
	issuer := c.ns.Identity()

	err := c.saga.run(ctx, "init_token_manager",
		func(ctx context.Context) error {
			tm, err := tms.Init(ctx, custody.InitParams{
				Mint:             c.mint,
				Issuer:           issuer,
				Amount:           1,
				Kind:             c.ns.CustodyKind(),
				InvalidationType: c.ns.EffectiveInvalidationType(),
				NumInvalidators:  c.ns.NumInvalidators(),
			})
			c.tokenManager = tm
			return err
		},
		func(ctx context.Context) error { return tms.Unwind(ctx, c.tokenManager.ID) },
	)
	if err != nil {
		return custodyErr(err, "failed to init token manager")
	}
	tmID := c.tokenManager.ID

	err = c.saga.run(ctx, "add_namespace_invalidator",
		func(ctx context.Context) error { return tms.AddInvalidator(ctx, tmID, issuer, issuer) }, nil)
	if err != nil {
		return custodyErr(err, "failed to add namespace invalidator")
	}

	if c.ns.RequiresTimeInvalidator() {
		if err := c.initTimeInvalidator(ctx); err != nil {
			return err
		}
	}

	if err := c.saga.run(ctx, "issue",
		func(ctx context.Context) error { return tms.Issue(ctx, tmID, issuer) }, nil); err != nil {
		return custodyErr(err, "failed to issue token")
	}
	if err := c.saga.run(ctx, "create_recipient_account",
		func(ctx context.Context) error { return c.svc.assets.CreateAccount(ctx, c.payer, c.mint) }, nil); err != nil {
		return custodyErr(err, "failed to create recipient account")
	}
	if err := c.saga.run(ctx, "claim",
		func(ctx context.Context) error { return tms.Claim(ctx, tmID, c.payer) }, nil); err != nil {
		return custodyErr(err, "failed to claim token")
	}

	if c.ns.ChargesPayment() && c.params.Duration != nil && *c.params.Duration > 0 {
		return c.pay(ctx)
	}
	return nil
}

func (c *claim) initTimeInvalidator(ctx context.Context) error {
	tis := c.svc.timeInvalidators
	params := custody.TimeInvalidatorParams{
		TokenManager:   c.tokenManager.ID,
		Collector:      c.ns.Identity(),
		PaymentManager: c.svc.paymentManager,
		MaxExpiration:  c.ns.MaxExpiration,
	}
	if c.ns.ChargesPayment() {
		zero := int64(0)
		amount := c.ns.PaymentAmountDaily
		window := models.SecondsPerDay
		paymentMint := c.params.PaymentMint
		params.DurationSeconds = &zero
		params.ExtensionPaymentAmount = &amount
		params.ExtensionDurationSeconds = &window
		params.ExtensionPaymentMint = &paymentMint
	}

	err := c.saga.run(ctx, "init_time_invalidator",
		func(ctx context.Context) error {
			ti, err := tis.InitTimeInvalidator(ctx, params)
			c.timeInvalidator = ti
			return err
		},
		func(ctx context.Context) error { return tis.Close(ctx, c.timeInvalidator.ID) },
	)
	if err != nil {
		return custodyErr(err, "failed to init time invalidator")
	}

	err = c.saga.run(ctx, "add_time_invalidator",
		func(ctx context.Context) error {
			return c.svc.tokenManagers.AddInvalidator(ctx, c.tokenManager.ID, c.ns.Identity(), c.timeInvalidator.ID.Identity())
		}, nil)
	if err != nil {
		return custodyErr(err, "failed to add time invalidator")
	}
	return nil
}

func (c *claim) pay(ctx context.Context) error {
	tis := c.svc.timeInvalidators
	err := c.saga.run(ctx, "extend_expiration",
		func(ctx context.Context) error {
			receipt, err := tis.ExtendExpiration(ctx, custody.ExtendParams{
				TimeInvalidator: c.timeInvalidator.ID,
				Payer:           c.payer,
				PaymentMint:     c.params.PaymentMint,
				PaymentManager:  c.svc.paymentManager,
				DurationSeconds: *c.params.Duration,
			})
			c.receipt = receipt
			return err
		},
		func(ctx context.Context) error { return tis.Refund(ctx, *c.receipt) },
	)
	if err != nil {
		return custodyErr(err, "failed to pay for rental")
	}
	return nil
}

// persist writes the registry records and consumes the claim request.
func (c *claim) persist(ctx context.Context) error {
	if err := c.stores.ClaimRequests().Delete(ctx, c.request.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "claim request was already consumed")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to close claim request")
	}
	if err := c.stores.Entries().Save(ctx, c.entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save entry")
	}
	if err := c.stores.Namespaces().Save(ctx, c.ns); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save namespace")
	}

	event := audit.Event{
		Namespace: c.ns.Name,
		Entry:     c.entry.Name,
		Subject:   c.payer.String(),
		ActorID:   c.payer.String(),
		Mint:      c.mint.String(),
	}
	if err := c.svc.auditEmitter.Emit(ctx, audit.EventEntryClaimed, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func (c *claim) result() *Result {
	r := &Result{
		Entry:        c.entry,
		Mint:         c.mint,
		TokenManager: c.tokenManager.ID,
		Payment:      c.receipt,
	}
	if c.timeInvalidator != nil {
		id := c.timeInvalidator.ID
		r.TimeInvalidator = &id
	}
	return r
}

// custodyErr maps a custody failure onto a domain error. Custody returns
// sentinels; anything else means the service could not be reached.
func custodyErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrInsufficientFunds):
		return dErrors.Wrap(err, dErrors.CodePolicyViolation, msg+": insufficient funds")
	case errors.Is(err, sentinel.ErrInvalidState), errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	}
}
