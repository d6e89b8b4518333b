// Package sandbox is an in-process implementation of the custody boundary.
// It backs local development and tests; a deployment against real custody
// services swaps it for clients satisfying the same ports.
package sandbox

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"time"

	"namespaces/internal/custody"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/sentinel"
)

const basisPoints = 10_000

type accountKey struct {
	owner domain.Identity
	mint  domain.MintID
}

type mintRecord struct {
	authority domain.Identity
	supply    uint64
	finalized bool
	metadata  *custody.Metadata
}

// Sandbox implements custody.AssetLedger, custody.TokenManagers,
// custody.Certificates and custody.TimeInvalidators in memory.
type Sandbox struct {
	mu               sync.Mutex
	mints            map[domain.MintID]*mintRecord
	accounts         map[accountKey]uint64
	tokenManagers    map[domain.RecordID]*custody.TokenManager
	certificates     map[domain.RecordID]*custody.Certificate
	timeInvalidators map[domain.RecordID]*custody.TimeInvalidator

	feeCollector domain.Identity
	feeBps       uint64
	now          func() time.Time
}

type Option func(*Sandbox)

// WithFee routes feeBps basis points of every extension payment to collector.
func WithFee(collector domain.Identity, feeBps uint64) Option {
	return func(s *Sandbox) {
		s.feeCollector = collector
		s.feeBps = feeBps
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Sandbox) {
		s.now = now
	}
}

func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		mints:            make(map[domain.MintID]*mintRecord),
		accounts:         make(map[accountKey]uint64),
		tokenManagers:    make(map[domain.RecordID]*custody.TokenManager),
		certificates:     make(map[domain.RecordID]*custody.Certificate),
		timeInvalidators: make(map[domain.RecordID]*custody.TimeInvalidator),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -----------------------------------------------------------------------------
// AssetLedger
// -----------------------------------------------------------------------------

func (s *Sandbox) CreateMint(_ context.Context, mint domain.MintID, authority domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mints[mint]; ok {
		return fmt.Errorf("create mint %s: %w", mint, sentinel.ErrConflict)
	}
	s.mints[mint] = &mintRecord{authority: authority}
	return nil
}

func (s *Sandbox) CreateMetadata(_ context.Context, md custody.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mints[md.Mint]
	if !ok {
		return fmt.Errorf("create metadata %s: %w", md.Mint, sentinel.ErrNotFound)
	}
	if m.metadata != nil {
		return fmt.Errorf("create metadata %s: %w", md.Mint, sentinel.ErrConflict)
	}
	m.metadata = &md
	return nil
}

func (s *Sandbox) CreateAccount(_ context.Context, owner domain.Identity, mint domain.MintID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey{owner: owner, mint: mint}
	if _, ok := s.accounts[key]; !ok {
		s.accounts[key] = 0
	}
	return nil
}

func (s *Sandbox) MintTo(_ context.Context, authority, owner domain.Identity, mint domain.MintID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mints[mint]
	if !ok {
		return fmt.Errorf("mint to %s: %w", mint, sentinel.ErrNotFound)
	}
	if m.authority != authority || m.finalized {
		return fmt.Errorf("mint to %s: %w", mint, sentinel.ErrInvalidState)
	}
	key := accountKey{owner: owner, mint: mint}
	if _, ok := s.accounts[key]; !ok {
		return fmt.Errorf("mint to %s: account for %s: %w", mint, owner, sentinel.ErrNotFound)
	}
	s.accounts[key] += amount
	m.supply += amount
	return nil
}

func (s *Sandbox) FinalizeEdition(_ context.Context, mint domain.MintID, authority domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mints[mint]
	if !ok {
		return fmt.Errorf("finalize %s: %w", mint, sentinel.ErrNotFound)
	}
	if m.authority != authority || m.supply != 1 || m.finalized {
		return fmt.Errorf("finalize %s: %w", mint, sentinel.ErrInvalidState)
	}
	m.finalized = true
	return nil
}

func (s *Sandbox) Account(_ context.Context, owner domain.Identity, mint domain.MintID) (*custody.TokenAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	amount, ok := s.accounts[accountKey{owner: owner, mint: mint}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &custody.TokenAccount{Owner: owner, Mint: mint, Amount: amount}, nil
}

func (s *Sandbox) Burn(_ context.Context, mint domain.MintID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mints, mint)
	for key := range s.accounts {
		if key.mint == mint {
			delete(s.accounts, key)
		}
	}
	return nil
}

// Fund credits amount of mint to owner, creating the account if needed.
func (s *Sandbox) Fund(_ context.Context, owner domain.Identity, mint domain.MintID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[accountKey{owner: owner, mint: mint}] += amount
	return nil
}

// Metadata returns the metadata registered for mint.
func (s *Sandbox) Metadata(mint domain.MintID) (*custody.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.mints[mint]
	if !ok || m.metadata == nil {
		return nil, false
	}
	md := *m.metadata
	return &md, true
}

// MintExists reports whether mint is known to the ledger.
func (s *Sandbox) MintExists(mint domain.MintID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.mints[mint]
	return ok
}

// transfer moves amount between two accounts. Callers hold s.mu.
func (s *Sandbox) transfer(from, to domain.Identity, mint domain.MintID, amount uint64) error {
	fromKey := accountKey{owner: from, mint: mint}
	balance, ok := s.accounts[fromKey]
	if !ok {
		return fmt.Errorf("account for %s: %w", from, sentinel.ErrNotFound)
	}
	if balance < amount {
		return fmt.Errorf("debit %d from %s: %w", amount, from, sentinel.ErrInsufficientFunds)
	}
	s.accounts[fromKey] = balance - amount
	s.accounts[accountKey{owner: to, mint: mint}] += amount
	return nil
}

// -----------------------------------------------------------------------------
// TokenManagers
// -----------------------------------------------------------------------------

func (s *Sandbox) Init(_ context.Context, params custody.InitParams) (*custody.TokenManager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mints[params.Mint]; !ok {
		return nil, fmt.Errorf("init token manager: mint %s: %w", params.Mint, sentinel.ErrNotFound)
	}
	id := domain.TokenManagerAddress(params.Mint)
	if _, ok := s.tokenManagers[id]; ok {
		return nil, fmt.Errorf("init token manager %s: %w", id, sentinel.ErrConflict)
	}
	tm := &custody.TokenManager{
		ID:               id,
		Mint:             params.Mint,
		Issuer:           params.Issuer,
		Amount:           params.Amount,
		Kind:             params.Kind,
		State:            custody.StateInitialized,
		InvalidationType: params.InvalidationType,
		NumInvalidators:  params.NumInvalidators,
		StateChangedAt:   s.now(),
	}
	s.tokenManagers[id] = tm
	return cloneTokenManager(tm), nil
}

func (s *Sandbox) AddInvalidator(_ context.Context, id domain.RecordID, issuer, invalidator domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.tokenManagers[id]
	if !ok {
		return fmt.Errorf("add invalidator %s: %w", id, sentinel.ErrNotFound)
	}
	if tm.Issuer != issuer || tm.State != custody.StateInitialized {
		return fmt.Errorf("add invalidator %s: %w", id, sentinel.ErrInvalidState)
	}
	if len(tm.Invalidators) >= int(tm.NumInvalidators) {
		return fmt.Errorf("add invalidator %s: too many invalidators: %w", id, sentinel.ErrInvalidState)
	}
	tm.Invalidators = append(tm.Invalidators, invalidator)
	return nil
}

func (s *Sandbox) Issue(_ context.Context, id domain.RecordID, issuer domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.tokenManagers[id]
	if !ok {
		return fmt.Errorf("issue %s: %w", id, sentinel.ErrNotFound)
	}
	if tm.Issuer != issuer || tm.State != custody.StateInitialized {
		return fmt.Errorf("issue %s: %w", id, sentinel.ErrInvalidState)
	}
	if err := s.transfer(issuer, id.Identity(), tm.Mint, tm.Amount); err != nil {
		return fmt.Errorf("issue %s: %w", id, err)
	}
	tm.State = custody.StateIssued
	tm.StateChangedAt = s.now()
	return nil
}

func (s *Sandbox) Claim(_ context.Context, id domain.RecordID, recipient domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.tokenManagers[id]
	if !ok {
		return fmt.Errorf("claim %s: %w", id, sentinel.ErrNotFound)
	}
	if tm.State != custody.StateIssued {
		return fmt.Errorf("claim %s: %w", id, sentinel.ErrInvalidState)
	}
	if _, ok := s.accounts[accountKey{owner: recipient, mint: tm.Mint}]; !ok {
		return fmt.Errorf("claim %s: recipient account: %w", id, sentinel.ErrNotFound)
	}
	if err := s.transfer(id.Identity(), recipient, tm.Mint, tm.Amount); err != nil {
		return fmt.Errorf("claim %s: %w", id, err)
	}
	tm.State = custody.StateClaimed
	tm.Recipient = recipient
	tm.StateChangedAt = s.now()
	return nil
}

func (s *Sandbox) Get(_ context.Context, id domain.RecordID) (*custody.TokenManager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.tokenManagers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTokenManager(tm), nil
}

func (s *Sandbox) Unwind(_ context.Context, id domain.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokenManagers, id)
	return nil
}

// Invalidate fires the token manager's invalidation policy, as one of its
// invalidators would when a lease lapses.
func (s *Sandbox) Invalidate(_ context.Context, id domain.RecordID) (*custody.TokenManager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tm, ok := s.tokenManagers[id]
	if !ok {
		return nil, fmt.Errorf("invalidate %s: %w", id, sentinel.ErrNotFound)
	}
	if tm.State != custody.StateClaimed {
		return nil, fmt.Errorf("invalidate %s: %w", id, sentinel.ErrInvalidState)
	}
	switch tm.InvalidationType {
	case custody.InvalidationReturn:
		if err := s.transfer(tm.Recipient, tm.Issuer, tm.Mint, tm.Amount); err != nil {
			return nil, fmt.Errorf("invalidate %s: %w", id, err)
		}
		tm.State = custody.StateInvalidated
	case custody.InvalidationReissue:
		if err := s.transfer(tm.Recipient, id.Identity(), tm.Mint, tm.Amount); err != nil {
			return nil, fmt.Errorf("invalidate %s: %w", id, err)
		}
		tm.State = custody.StateIssued
		tm.Recipient = ""
	default:
		tm.State = custody.StateInvalidated
	}
	tm.StateChangedAt = s.now()
	return cloneTokenManager(tm), nil
}

// -----------------------------------------------------------------------------
// Certificates
// -----------------------------------------------------------------------------

// PutCertificate registers a legacy certificate at its canonical address.
func (s *Sandbox) PutCertificate(cert custody.Certificate) domain.RecordID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cert.ID.IsNil() {
		cert.ID = domain.CertificateAddress(cert.Mint)
	}
	s.certificates[cert.ID] = &cert
	return cert.ID
}

func (s *Sandbox) GetCertificate(_ context.Context, id domain.RecordID) (*custody.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cert, ok := s.certificates[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	c := *cert
	return &c, nil
}

// -----------------------------------------------------------------------------
// TimeInvalidators
// -----------------------------------------------------------------------------

func (s *Sandbox) InitTimeInvalidator(_ context.Context, params custody.TimeInvalidatorParams) (*custody.TimeInvalidator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokenManagers[params.TokenManager]; !ok {
		return nil, fmt.Errorf("init time invalidator: token manager %s: %w", params.TokenManager, sentinel.ErrNotFound)
	}
	id := domain.TimeInvalidatorAddress(params.TokenManager)
	if _, ok := s.timeInvalidators[id]; ok {
		return nil, fmt.Errorf("init time invalidator %s: %w", id, sentinel.ErrConflict)
	}
	now := s.now()
	ti := &custody.TimeInvalidator{
		ID:                       id,
		TokenManager:             params.TokenManager,
		Collector:                params.Collector,
		PaymentManager:           params.PaymentManager,
		DurationSeconds:          params.DurationSeconds,
		ExtensionPaymentAmount:   params.ExtensionPaymentAmount,
		ExtensionDurationSeconds: params.ExtensionDurationSeconds,
		ExtensionPaymentMint:     params.ExtensionPaymentMint,
		MaxExpiration:            params.MaxExpiration,
		StartedAt:                now,
	}
	if params.DurationSeconds != nil {
		expires := now.Add(time.Duration(*params.DurationSeconds) * time.Second)
		ti.ExpiresAt = &expires
	}
	s.timeInvalidators[id] = ti
	return cloneTimeInvalidator(ti), nil
}

func (s *Sandbox) ExtendExpiration(_ context.Context, params custody.ExtendParams) (*custody.ExtensionReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ok := s.timeInvalidators[params.TimeInvalidator]
	if !ok {
		return nil, fmt.Errorf("extend %s: %w", params.TimeInvalidator, sentinel.ErrNotFound)
	}
	if ti.ExtensionPaymentAmount == nil || ti.ExtensionDurationSeconds == nil || *ti.ExtensionDurationSeconds <= 0 {
		return nil, fmt.Errorf("extend %s: not extendable: %w", ti.ID, sentinel.ErrInvalidState)
	}
	if ti.ExtensionPaymentMint == nil || *ti.ExtensionPaymentMint != params.PaymentMint {
		return nil, fmt.Errorf("extend %s: payment mint: %w", ti.ID, sentinel.ErrInvalidState)
	}
	if params.DurationSeconds <= 0 || params.DurationSeconds > math.MaxInt64/int64(time.Second) {
		return nil, fmt.Errorf("extend %s: duration: %w", ti.ID, sentinel.ErrInvalidState)
	}

	base := ti.StartedAt
	if ti.ExpiresAt != nil {
		base = *ti.ExpiresAt
	}
	expires := base.Add(time.Duration(params.DurationSeconds) * time.Second)
	if ti.MaxExpiration != nil && expires.Unix() > *ti.MaxExpiration {
		return nil, fmt.Errorf("extend %s: beyond max expiration: %w", ti.ID, sentinel.ErrInvalidState)
	}

	amount, ok := mulDiv(*ti.ExtensionPaymentAmount, uint64(params.DurationSeconds), uint64(*ti.ExtensionDurationSeconds), true)
	if !ok {
		return nil, fmt.Errorf("extend %s: payment overflows: %w", ti.ID, sentinel.ErrInvalidState)
	}
	fee, ok := mulDiv(amount, s.feeBps, basisPoints, false)
	if !ok {
		return nil, fmt.Errorf("extend %s: fee overflows: %w", ti.ID, sentinel.ErrInvalidState)
	}
	feeCollector := params.FeeCollector
	if feeCollector.IsNil() {
		feeCollector = s.feeCollector
	}
	if fee > 0 && feeCollector.IsNil() {
		fee = 0
	}

	if err := s.transfer(params.Payer, ti.Collector, params.PaymentMint, amount-fee); err != nil {
		return nil, fmt.Errorf("extend %s: %w", ti.ID, err)
	}
	if fee > 0 {
		if err := s.transfer(params.Payer, feeCollector, params.PaymentMint, fee); err != nil {
			// undo the collector leg so the payer is never half charged
			_ = s.transfer(ti.Collector, params.Payer, params.PaymentMint, amount-fee)
			return nil, fmt.Errorf("extend %s: fee: %w", ti.ID, err)
		}
	}
	ti.ExpiresAt = &expires

	return &custody.ExtensionReceipt{
		TimeInvalidator: ti.ID,
		Payer:           params.Payer,
		Collector:       ti.Collector,
		PaymentMint:     params.PaymentMint,
		Amount:          amount,
		Fee:             fee,
		FeeCollector:    feeCollector,
		DurationSeconds: params.DurationSeconds,
	}, nil
}

func (s *Sandbox) Close(_ context.Context, id domain.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timeInvalidators, id)
	return nil
}

func (s *Sandbox) Refund(_ context.Context, receipt custody.ExtensionReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transfer(receipt.Collector, receipt.Payer, receipt.PaymentMint, receipt.Amount-receipt.Fee); err != nil {
		return fmt.Errorf("refund %s: %w", receipt.TimeInvalidator, err)
	}
	if receipt.Fee > 0 {
		if err := s.transfer(receipt.FeeCollector, receipt.Payer, receipt.PaymentMint, receipt.Fee); err != nil {
			return fmt.Errorf("refund fee %s: %w", receipt.TimeInvalidator, err)
		}
	}
	if ti, ok := s.timeInvalidators[receipt.TimeInvalidator]; ok && ti.ExpiresAt != nil {
		expires := ti.ExpiresAt.Add(-time.Duration(receipt.DurationSeconds) * time.Second)
		ti.ExpiresAt = &expires
	}
	return nil
}

// TimeInvalidator returns the time invalidator at id.
func (s *Sandbox) TimeInvalidator(id domain.RecordID) (*custody.TimeInvalidator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ti, ok := s.timeInvalidators[id]
	if !ok {
		return nil, false
	}
	return cloneTimeInvalidator(ti), true
}

// mulDiv returns a*b/d over the full 128-bit product, rounding up when ceil
// is set. ok is false when the result does not fit in 64 bits.
func mulDiv(a, b, d uint64, ceil bool) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, false
	}
	q, r := bits.Div64(hi, lo, d)
	if ceil && r > 0 {
		if q == math.MaxUint64 {
			return 0, false
		}
		q++
	}
	return q, true
}

func cloneTokenManager(tm *custody.TokenManager) *custody.TokenManager {
	c := *tm
	c.Invalidators = append([]domain.Identity(nil), tm.Invalidators...)
	return &c
}

func cloneTimeInvalidator(ti *custody.TimeInvalidator) *custody.TimeInvalidator {
	c := *ti
	return &c
}
