package custody

import (
	"time"

	"namespaces/pkg/domain"
)

// InvalidationType is what happens to a custody token when an invalidator fires.
// Zero means unset; a namespace may leave it unset after an update and the
// claim flow then picks a default.
type InvalidationType uint8

const (
	InvalidationUnset      InvalidationType = 0
	InvalidationReturn     InvalidationType = 1
	InvalidationInvalidate InvalidationType = 2
	InvalidationRelease    InvalidationType = 3
	InvalidationReissue    InvalidationType = 4
)

func (t InvalidationType) IsValid() bool {
	return t >= InvalidationReturn && t <= InvalidationReissue
}

func (t InvalidationType) String() string {
	switch t {
	case InvalidationReturn:
		return "return"
	case InvalidationInvalidate:
		return "invalidate"
	case InvalidationRelease:
		return "release"
	case InvalidationReissue:
		return "reissue"
	default:
		return "unset"
	}
}

// Kind is how the custody service holds the token.
type Kind uint8

const (
	KindManaged   Kind = 1
	KindUnmanaged Kind = 2
	KindEdition   Kind = 3
)

// State is the lifecycle state of a token manager.
type State uint8

const (
	StateInitialized State = 0
	StateIssued      State = 1
	StateClaimed     State = 2
	StateInvalidated State = 3
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateIssued:
		return "issued"
	case StateClaimed:
		return "claimed"
	case StateInvalidated:
		return "invalidated"
	default:
		return "unknown"
	}
}

// TokenManager is the custody record for a minted token. The registry reads
// Mint, Issuer and State; everything else is owned by the custody service.
type TokenManager struct {
	ID               domain.RecordID   `json:"id"`
	Mint             domain.MintID     `json:"mint"`
	Issuer           domain.Identity   `json:"issuer"`
	Amount           uint64            `json:"amount"`
	Kind             Kind              `json:"kind"`
	State            State             `json:"state"`
	InvalidationType InvalidationType  `json:"invalidation_type"`
	NumInvalidators  uint8             `json:"num_invalidators"`
	Invalidators     []domain.Identity `json:"invalidators"`
	Recipient        domain.Identity   `json:"recipient,omitempty"`
	StateChangedAt   time.Time         `json:"state_changed_at"`
}

// Certificate is the deprecated ownership proof still accepted by set_reverse.
type Certificate struct {
	ID     domain.RecordID `json:"id"`
	Mint   domain.MintID   `json:"mint"`
	Issuer domain.Identity `json:"issuer"`
	State  State           `json:"state"`
}

// TokenAccount is an (owner, mint, amount) triple read for ownership proofs.
type TokenAccount struct {
	Owner  domain.Identity `json:"owner"`
	Mint   domain.MintID   `json:"mint"`
	Amount uint64          `json:"amount"`
}

// Metadata describes a freshly minted name token.
type Metadata struct {
	Mint    domain.MintID   `json:"mint"`
	Name    string          `json:"name"`
	Symbol  string          `json:"symbol"`
	URI     string          `json:"uri"`
	Creator domain.Identity `json:"creator"`
	Share   uint8           `json:"share"`
}

// InitParams initializes a token manager for a freshly minted token.
type InitParams struct {
	Mint             domain.MintID
	Issuer           domain.Identity
	Amount           uint64
	Kind             Kind
	InvalidationType InvalidationType
	NumInvalidators  uint8
}

// TimeInvalidator is the payment/lease record attached to a token manager.
type TimeInvalidator struct {
	ID                       domain.RecordID `json:"id"`
	TokenManager             domain.RecordID `json:"token_manager"`
	Collector                domain.Identity `json:"collector"`
	PaymentManager           string          `json:"payment_manager"`
	DurationSeconds          *int64          `json:"duration_seconds,omitempty"`
	ExtensionPaymentAmount   *uint64         `json:"extension_payment_amount,omitempty"`
	ExtensionDurationSeconds *int64          `json:"extension_duration_seconds,omitempty"`
	ExtensionPaymentMint     *domain.MintID  `json:"extension_payment_mint,omitempty"`
	MaxExpiration            *int64          `json:"max_expiration,omitempty"`
	StartedAt                time.Time       `json:"started_at"`
	ExpiresAt                *time.Time      `json:"expires_at,omitempty"`
}

// TimeInvalidatorParams initializes a time invalidator.
type TimeInvalidatorParams struct {
	TokenManager             domain.RecordID
	Collector                domain.Identity
	PaymentManager           string
	DurationSeconds          *int64
	ExtensionPaymentAmount   *uint64
	ExtensionDurationSeconds *int64
	ExtensionPaymentMint     *domain.MintID
	MaxExpiration            *int64
}

// ExtendParams pays for extending a lease.
type ExtendParams struct {
	TimeInvalidator domain.RecordID
	Payer           domain.Identity
	PaymentMint     domain.MintID
	FeeCollector    domain.Identity
	PaymentManager  string
	DurationSeconds int64
}

// ExtensionReceipt records what an extension charged so it can be refunded.
type ExtensionReceipt struct {
	TimeInvalidator domain.RecordID `json:"time_invalidator"`
	Payer           domain.Identity `json:"payer"`
	Collector       domain.Identity `json:"collector"`
	PaymentMint     domain.MintID   `json:"payment_mint"`
	Amount          uint64          `json:"amount"`
	Fee             uint64          `json:"fee"`
	FeeCollector    domain.Identity `json:"fee_collector"`
	DurationSeconds int64           `json:"duration_seconds"`
}
