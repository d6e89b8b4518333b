// Package admin is the operator surface over the sandbox custody service:
// funding identities with payment tokens and forcing token managers through
// their invalidation so expiry flows can be exercised.
package admin

import (
	"context"
	"errors"
	"log/slog"

	"namespaces/internal/custody"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/audit"
	"namespaces/pkg/platform/sentinel"
)

// Custody is the sandbox control surface.
type Custody interface {
	Fund(ctx context.Context, owner domain.Identity, mint domain.MintID, amount uint64) error
	Account(ctx context.Context, owner domain.Identity, mint domain.MintID) (*custody.TokenAccount, error)
	Invalidate(ctx context.Context, id domain.RecordID) (*custody.TokenManager, error)
}

type Service struct {
	custody      Custody
	auditEmitter *audit.Emitter
}

func New(c Custody, logger *slog.Logger, publisher audit.Publisher) *Service {
	return &Service{
		custody:      c,
		auditEmitter: audit.NewEmitter(logger, publisher),
	}
}

// Fund credits amount of mint to owner and returns the new balance.
func (s *Service) Fund(ctx context.Context, owner domain.Identity, mint domain.MintID, amount uint64) (*FundResponse, error) {
	if owner.IsNil() || mint.IsNil() || amount == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "owner, mint and a positive amount are required")
	}
	if err := s.custody.Fund(ctx, owner, mint, amount); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to fund account")
	}
	account, err := s.custody.Account(ctx, owner, mint)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read account")
	}
	_ = s.auditEmitter.Emit(ctx, audit.EventCustodyFunded, audit.Event{
		Subject: owner.String(),
		ActorID: "admin",
		Mint:    mint.String(),
	})
	return &FundResponse{Owner: owner, Mint: mint, Balance: account.Amount}, nil
}

// InvalidateTokenManager applies the token manager's invalidation type.
func (s *Service) InvalidateTokenManager(ctx context.Context, id domain.RecordID) (*TokenManagerResponse, error) {
	tm, err := s.custody.Invalidate(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "token manager not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "token manager cannot be invalidated in its current state")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to invalidate token manager")
		}
	}
	_ = s.auditEmitter.Emit(ctx, audit.EventTokenManagerInvalidated, audit.Event{
		Subject: tm.Recipient.String(),
		ActorID: "admin",
		Mint:    tm.Mint.String(),
	})
	return FromTokenManager(tm), nil
}
