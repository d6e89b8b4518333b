package httptransport

import (
	"strings"

	"namespaces/internal/custody"
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

// NamespaceRequest is the body of create and update namespace. Name is only
// read on create; update takes it from the path.
type NamespaceRequest struct {
	Name                string  `json:"name,omitempty"`
	UpdateAuthority     string  `json:"update_authority"`
	RentAuthority       string  `json:"rent_authority"`
	ApproveAuthority    *string `json:"approve_authority,omitempty"`
	Schema              uint8   `json:"schema"`
	PaymentAmountDaily  uint64  `json:"payment_amount_daily"`
	PaymentMint         string  `json:"payment_mint,omitempty"`
	MinRentalSeconds    int64   `json:"min_rental_seconds"`
	MaxRentalSeconds    *int64  `json:"max_rental_seconds,omitempty"`
	TransferableEntries bool    `json:"transferable_entries"`
	Limit               *uint32 `json:"limit,omitempty"`
	MaxExpiration       *int64  `json:"max_expiration,omitempty"`
	InvalidationType    string  `json:"invalidation_type,omitempty"`

	config models.NamespaceConfig
}

func (r *NamespaceRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.UpdateAuthority = strings.TrimSpace(r.UpdateAuthority)
	r.RentAuthority = strings.TrimSpace(r.RentAuthority)
	r.PaymentMint = strings.TrimSpace(r.PaymentMint)
	r.InvalidationType = strings.ToLower(strings.TrimSpace(r.InvalidationType))
	if r.ApproveAuthority != nil {
		trimmed := strings.TrimSpace(*r.ApproveAuthority)
		if trimmed == "" {
			r.ApproveAuthority = nil
		} else {
			r.ApproveAuthority = &trimmed
		}
	}
}

// Validate parses the wire values. Policy checks stay in the namespace
// service.
func (r *NamespaceRequest) Validate() error {
	update, err := domain.ParseIdentity(r.UpdateAuthority)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid update_authority")
	}
	rent, err := domain.ParseIdentity(r.RentAuthority)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid rent_authority")
	}
	invalidation, err := parseInvalidationType(r.InvalidationType)
	if err != nil {
		return err
	}
	cfg := models.NamespaceConfig{
		UpdateAuthority:     update,
		RentAuthority:       rent,
		Schema:              r.Schema,
		PaymentAmountDaily:  r.PaymentAmountDaily,
		MinRentalSeconds:    r.MinRentalSeconds,
		MaxRentalSeconds:    r.MaxRentalSeconds,
		TransferableEntries: r.TransferableEntries,
		Limit:               r.Limit,
		MaxExpiration:       r.MaxExpiration,
		InvalidationType:    invalidation,
	}
	if r.ApproveAuthority != nil {
		approve, err := domain.ParseIdentity(*r.ApproveAuthority)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid approve_authority")
		}
		cfg.ApproveAuthority = &approve
	}
	if r.PaymentMint != "" {
		mint, err := domain.ParseMintID(r.PaymentMint)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid payment_mint")
		}
		cfg.PaymentMint = mint
	}
	r.config = cfg
	return nil
}

func (r *NamespaceRequest) Config() models.NamespaceConfig {
	return r.config
}

func parseInvalidationType(s string) (custody.InvalidationType, error) {
	switch s {
	case "":
		return custody.InvalidationUnset, nil
	case "return":
		return custody.InvalidationReturn, nil
	case "invalidate":
		return custody.InvalidationInvalidate, nil
	case "release":
		return custody.InvalidationRelease, nil
	case "reissue":
		return custody.InvalidationReissue, nil
	default:
		return custody.InvalidationUnset, dErrors.Rule(dErrors.ReasonInvalidInvalidationType, "invalidation_type must be return, invalidate, release or reissue")
	}
}

// ApproveRequest is the body of request_or_approve.
type ApproveRequest struct {
	Requestor     string `json:"requestor"`
	UseTokenProof bool   `json:"use_token_proof,omitempty"`

	requestor domain.Identity
}

func (r *ApproveRequest) Normalize() {
	r.Requestor = strings.TrimSpace(r.Requestor)
}

func (r *ApproveRequest) Validate() error {
	requestor, err := domain.ParseIdentity(r.Requestor)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid requestor")
	}
	r.requestor = requestor
	return nil
}

// ClaimEntryRequest is the body of migrate_and_claim. Both fields are
// optional.
type ClaimEntryRequest struct {
	Duration    *int64 `json:"duration,omitempty"`
	PaymentMint string `json:"payment_mint,omitempty"`

	paymentMint domain.MintID
}

func (r *ClaimEntryRequest) Normalize() {
	r.PaymentMint = strings.TrimSpace(r.PaymentMint)
}

func (r *ClaimEntryRequest) Validate() error {
	if r.Duration != nil && *r.Duration < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration cannot be negative")
	}
	if r.PaymentMint == "" {
		return nil
	}
	mint, err := domain.ParseMintID(r.PaymentMint)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid payment_mint")
	}
	r.paymentMint = mint
	return nil
}

// InvalidateTransferableRequest names the token manager proving the
// invalidation.
type InvalidateTransferableRequest struct {
	TokenManager string `json:"token_manager"`

	tokenManager domain.RecordID
}

func (r *InvalidateTransferableRequest) Normalize() {
	r.TokenManager = strings.ToLower(strings.TrimSpace(r.TokenManager))
}

func (r *InvalidateTransferableRequest) Validate() error {
	id, err := domain.ParseRecordID(r.TokenManager)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid token_manager")
	}
	r.tokenManager = id
	return nil
}

// MigrateRequest names the mint an entry is moved to.
type MigrateRequest struct {
	Mint string `json:"mint"`

	mint domain.MintID
}

func (r *MigrateRequest) Normalize() {
	r.Mint = strings.TrimSpace(r.Mint)
}

func (r *MigrateRequest) Validate() error {
	mint, err := domain.ParseMintID(r.Mint)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid mint")
	}
	r.mint = mint
	return nil
}

// SetReverseRequest points the signer's reverse mapping at an entry, proven by
// a token manager or a legacy certificate.
type SetReverseRequest struct {
	Namespace string `json:"namespace"`
	Entry     string `json:"entry"`
	Proof     string `json:"proof"`

	proof domain.RecordID
}

func (r *SetReverseRequest) Normalize() {
	r.Namespace = strings.TrimSpace(r.Namespace)
	r.Entry = strings.TrimSpace(r.Entry)
	r.Proof = strings.ToLower(strings.TrimSpace(r.Proof))
}

func (r *SetReverseRequest) Validate() error {
	if r.Namespace == "" || r.Entry == "" {
		return dErrors.New(dErrors.CodeValidation, "namespace and entry are required")
	}
	proof, err := domain.ParseRecordID(r.Proof)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid proof")
	}
	r.proof = proof
	return nil
}

// FundRequest credits sandbox payment tokens to an identity.
type FundRequest struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`

	owner domain.Identity
	mint  domain.MintID
}

func (r *FundRequest) Normalize() {
	r.Owner = strings.TrimSpace(r.Owner)
	r.Mint = strings.TrimSpace(r.Mint)
}

func (r *FundRequest) Validate() error {
	owner, err := domain.ParseIdentity(r.Owner)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid owner")
	}
	mint, err := domain.ParseMintID(r.Mint)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid mint")
	}
	if r.Amount == 0 {
		return dErrors.New(dErrors.CodeValidation, "amount must be positive")
	}
	r.owner, r.mint = owner, mint
	return nil
}
