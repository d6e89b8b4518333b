// Package jwttoken issues and validates the bearer tokens that carry a
// request's signer set.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

// Claims are the signer claims of an access token. Subject is the primary
// signer and payer; Cosigners are additional identities that signed the
// same request, such as an approve authority countersigning a claim.
type Claims struct {
	Cosigners []string `json:"cosigners,omitempty"`
	jwt.RegisteredClaims
}

// Signers returns the subject followed by the cosigners.
func (c *Claims) Signers() []domain.Identity {
	out := make([]domain.Identity, 0, 1+len(c.Cosigners))
	if c.Subject != "" {
		out = append(out, domain.Identity(c.Subject))
	}
	for _, s := range c.Cosigners {
		if s != "" {
			out = append(out, domain.Identity(s))
		}
	}
	return out
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateAccessToken signs a token for signer with optional cosigners.
func (s *JWTService) GenerateAccessToken(signer domain.Identity, cosigners []domain.Identity, expiresIn time.Duration) (string, error) {
	if signer.IsNil() {
		return "", dErrors.New(dErrors.CodeValidation, "signer is required")
	}
	extra := make([]string, 0, len(cosigners))
	for _, c := range cosigners {
		extra = append(extra, c.String())
	}
	now := time.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Cosigners: extra,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   signer.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if _, err := domain.ParseIdentity(claims.Subject); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}
	return claims, nil
}
