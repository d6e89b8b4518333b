package jwttoken

import (
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	authmw "namespaces/pkg/platform/middleware/auth"
)

const defaultMaxSigners = 8

// Verifier validates tokens for the auth middleware and reduces the claims to
// a de-duplicated signer set.
type Verifier struct {
	service    *JWTService
	maxSigners int
}

type VerifierOption func(*Verifier)

// WithMaxSigners caps the signer set a single token may carry.
func WithMaxSigners(n int) VerifierOption {
	return func(v *Verifier) {
		if n > 0 {
			v.maxSigners = n
		}
	}
}

func NewVerifier(service *JWTService, opts ...VerifierOption) *Verifier {
	v := &Verifier{service: service, maxSigners: defaultMaxSigners}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Verifier) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.Identity]struct{})
	signers := make([]domain.Identity, 0, 1+len(claims.Cosigners))
	for _, s := range claims.Signers() {
		id, err := domain.ParseIdentity(s.String())
		if err != nil {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token cosigner")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		signers = append(signers, id)
	}
	if len(signers) > v.maxSigners {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "too many token signers")
	}
	return &authmw.JWTClaims{Signers: signers, JTI: claims.ID}, nil
}
