// Package custody is the boundary to the external token, custody and
// time-invalidator services. The registry calls these only under the
// namespace's authorization and never mutates custody state directly.
//
// Every mutating operation has a compensating counterpart so the claim saga
// can unwind partial progress when a later step fails.
package custody

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks AssetLedger,TokenManagers,Certificates,TimeInvalidators

import (
	"context"

	"namespaces/pkg/domain"
)

// AssetLedger mints tokens and tracks token accounts.
type AssetLedger interface {
	CreateMint(ctx context.Context, mint domain.MintID, authority domain.Identity) error
	CreateMetadata(ctx context.Context, md Metadata) error
	CreateAccount(ctx context.Context, owner domain.Identity, mint domain.MintID) error
	MintTo(ctx context.Context, authority, owner domain.Identity, mint domain.MintID, amount uint64) error
	// FinalizeEdition makes the mint non-fungible with no further supply.
	FinalizeEdition(ctx context.Context, mint domain.MintID, authority domain.Identity) error
	// Account returns sentinel.ErrNotFound when owner has no account for mint.
	Account(ctx context.Context, owner domain.Identity, mint domain.MintID) (*TokenAccount, error)
	// Burn removes the mint with its metadata and every account holding it.
	Burn(ctx context.Context, mint domain.MintID) error
}

// TokenManagers is the custody service.
type TokenManagers interface {
	Init(ctx context.Context, params InitParams) (*TokenManager, error)
	AddInvalidator(ctx context.Context, id domain.RecordID, issuer, invalidator domain.Identity) error
	// Issue moves the token from the issuer's holding account into escrow.
	Issue(ctx context.Context, id domain.RecordID, issuer domain.Identity) error
	// Claim transfers the escrowed token to recipient.
	Claim(ctx context.Context, id domain.RecordID, recipient domain.Identity) error
	// Get returns sentinel.ErrNotFound when no token manager exists at id.
	Get(ctx context.Context, id domain.RecordID) (*TokenManager, error)
	// Unwind closes a token manager opened by an aborted claim.
	Unwind(ctx context.Context, id domain.RecordID) error
}

// Certificates reads the legacy ownership proof format.
type Certificates interface {
	// GetCertificate returns sentinel.ErrNotFound when no certificate exists at id.
	GetCertificate(ctx context.Context, id domain.RecordID) (*Certificate, error)
}

// TimeInvalidators is the payment/time-invalidator service.
type TimeInvalidators interface {
	InitTimeInvalidator(ctx context.Context, params TimeInvalidatorParams) (*TimeInvalidator, error)
	ExtendExpiration(ctx context.Context, params ExtendParams) (*ExtensionReceipt, error)
	Close(ctx context.Context, id domain.RecordID) error
	Refund(ctx context.Context, receipt ExtensionReceipt) error
}
