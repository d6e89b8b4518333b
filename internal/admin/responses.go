package admin

import (
	"time"

	"namespaces/internal/custody"
	"namespaces/pkg/domain"
)

// FundResponse is the HTTP response DTO for a sandbox funding.
type FundResponse struct {
	Owner   domain.Identity `json:"owner"`
	Mint    domain.MintID   `json:"mint"`
	Balance uint64          `json:"balance"`
}

// TokenManagerResponse is the HTTP response DTO for a forced invalidation.
type TokenManagerResponse struct {
	ID               domain.RecordID `json:"id"`
	Mint             domain.MintID   `json:"mint"`
	Issuer           domain.Identity `json:"issuer"`
	State            string          `json:"state"`
	InvalidationType string          `json:"invalidation_type"`
	StateChangedAt   time.Time       `json:"state_changed_at"`
}

func FromTokenManager(tm *custody.TokenManager) *TokenManagerResponse {
	return &TokenManagerResponse{
		ID:               tm.ID,
		Mint:             tm.Mint,
		Issuer:           tm.Issuer,
		State:            tm.State.String(),
		InvalidationType: tm.InvalidationType.String(),
		StateChangedAt:   tm.StateChangedAt,
	}
}
