package models

import (
	"time"

	"namespaces/internal/custody"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

// SecondsPerDay is the extension window a daily payment buys.
const SecondsPerDay int64 = 86400

// NamespaceConfig is the full policy of a namespace. Create and update both
// take the whole struct; there is no partial update.
type NamespaceConfig struct {
	UpdateAuthority     domain.Identity          `json:"update_authority"`
	RentAuthority       domain.Identity          `json:"rent_authority"`
	ApproveAuthority    *domain.Identity         `json:"approve_authority,omitempty"`
	Schema              uint8                    `json:"schema"`
	PaymentAmountDaily  uint64                   `json:"payment_amount_daily"`
	PaymentMint         domain.MintID            `json:"payment_mint"`
	MinRentalSeconds    int64                    `json:"min_rental_seconds"`
	MaxRentalSeconds    *int64                   `json:"max_rental_seconds,omitempty"`
	TransferableEntries bool                     `json:"transferable_entries"`
	Limit               *uint32                  `json:"limit,omitempty"`
	MaxExpiration       *int64                   `json:"max_expiration,omitempty"`
	InvalidationType    custody.InvalidationType `json:"invalidation_type"`
}

// Validate checks the configuration. When creating, the invalidation type
// must be set; an update may leave it unset.
func (c NamespaceConfig) Validate(creating bool) error {
	if c.UpdateAuthority.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "update authority is required")
	}
	if c.RentAuthority.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "rent authority is required")
	}
	if c.MinRentalSeconds < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "min rental seconds cannot be negative")
	}
	if c.MaxRentalSeconds != nil && *c.MaxRentalSeconds < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "max rental seconds cannot be negative")
	}
	if c.PaymentAmountDaily > 0 && c.PaymentMint.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "payment mint is required when charging")
	}

	switch {
	case c.InvalidationType.IsValid():
	case c.InvalidationType == custody.InvalidationUnset && !creating:
	default:
		return dErrors.Rule(dErrors.ReasonInvalidInvalidationType, "invalidation type must be return, invalidate, release or reissue")
	}
	if c.InvalidationType == custody.InvalidationReturn && c.TransferableEntries {
		return dErrors.Rule(dErrors.ReasonInvalidInvalidationType, "return invalidation cannot be used with transferable entries")
	}
	return nil
}

// Namespace is the aggregate root for a naming domain.
//
// Invariants:
//   - ID is derived from Name and never changes
//   - Count equals the number of claimed entries and never goes negative
//   - Count never exceeds Limit when Limit is set
//   - InvalidationType Return is never combined with TransferableEntries
//   - Only UpdateAuthority may replace the configuration
type Namespace struct {
	ID   domain.RecordID `json:"id"`
	Name string          `json:"name"`
	NamespaceConfig
	Count         uint32    `json:"count"`
	ApprovedCount uint32    `json:"approved_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewNamespace(name string, cfg NamespaceConfig, now time.Time) (*Namespace, error) {
	if err := ValidateNamespaceName(name); err != nil {
		return nil, err
	}
	if err := cfg.Validate(true); err != nil {
		return nil, err
	}
	return &Namespace{
		ID:              domain.NamespaceAddress(name),
		Name:            name,
		NamespaceConfig: cfg,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Identity is the namespace acting as issuer, collector and invalidator.
func (n *Namespace) Identity() domain.Identity {
	return n.ID.Identity()
}

// CanUpdate checks that signer holds the update authority and cfg is valid.
func (n *Namespace) CanUpdate(signer domain.Identity, cfg NamespaceConfig) error {
	if signer.IsNil() || signer != n.UpdateAuthority {
		return dErrors.Rule(dErrors.ReasonInvalidUpdateAuthority, "signer is not the namespace update authority")
	}
	return cfg.Validate(false)
}

// ApplyUpdate replaces the whole configuration. Counters are untouched.
func (n *Namespace) ApplyUpdate(cfg NamespaceConfig, now time.Time) {
	n.NamespaceConfig = cfg
	n.UpdatedAt = now
}

// IsApproveAuthority reports whether identity is the configured approver.
func (n *Namespace) IsApproveAuthority(identity domain.Identity) bool {
	return n.ApproveAuthority != nil && !identity.IsNil() && *n.ApproveAuthority == identity
}

// ChargesPayment reports whether claims pay a daily fee.
func (n *Namespace) ChargesPayment() bool {
	return n.PaymentAmountDaily > 0
}

// RequiresTimeInvalidator reports whether claims attach a time invalidator.
func (n *Namespace) RequiresTimeInvalidator() bool {
	return n.ChargesPayment() || n.MaxExpiration != nil
}

// CustodyKind is how the custody service holds tokens of this namespace.
func (n *Namespace) CustodyKind() custody.Kind {
	if n.TransferableEntries {
		return custody.KindUnmanaged
	}
	return custody.KindEdition
}

// EffectiveInvalidationType resolves an unset type to the transferability default.
func (n *Namespace) EffectiveInvalidationType() custody.InvalidationType {
	if n.InvalidationType != custody.InvalidationUnset {
		return n.InvalidationType
	}
	if n.TransferableEntries {
		return custody.InvalidationInvalidate
	}
	return custody.InvalidationReturn
}

// NumInvalidators is 2 when a time invalidator is attached, else 1.
func (n *Namespace) NumInvalidators() uint8 {
	if n.RequiresTimeInvalidator() {
		return 2
	}
	return 1
}

// ValidateDuration enforces min < duration < max. A namespace with a max
// requires a duration.
func (n *Namespace) ValidateDuration(duration *int64) error {
	if duration == nil {
		if n.MaxRentalSeconds != nil {
			return dErrors.Rule(dErrors.ReasonNamespaceRequiresDuration, "namespace requires a rental duration")
		}
		return nil
	}
	if *duration <= n.MinRentalSeconds {
		return dErrors.Rule(dErrors.ReasonRentalDurationTooSmall, "rental duration is too small")
	}
	if n.MaxRentalSeconds != nil && *duration >= *n.MaxRentalSeconds {
		return dErrors.Rule(dErrors.ReasonRentalDurationTooLarge, "rental duration is too large")
	}
	return nil
}

// IncrementCount records a new claim and enforces the entry limit.
func (n *Namespace) IncrementCount(now time.Time) error {
	next := n.Count + 1
	if n.Limit != nil && next > *n.Limit {
		return dErrors.Rule(dErrors.ReasonNamespaceReachedLimit, "namespace reached its entry limit")
	}
	n.Count = next
	n.UpdatedAt = now
	return nil
}

// DecrementCount records a released claim. Underflow means the count and
// the entries disagree, which is never a user error.
func (n *Namespace) DecrementCount(now time.Time) error {
	if n.Count == 0 {
		return dErrors.Rule(dErrors.ReasonCountUnderflow, "namespace count underflow")
	}
	n.Count--
	n.UpdatedAt = now
	return nil
}

// ApplyApproval bumps the approved counter.
func (n *Namespace) ApplyApproval(now time.Time) {
	n.ApprovedCount++
	n.UpdatedAt = now
}
