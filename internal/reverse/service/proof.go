package service

import (
	"context"
	"errors"

	"namespaces/internal/custody"
	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
	"namespaces/pkg/platform/sentinel"
)

// ownershipProof is the custody record backing a reverse mapping: exactly one
// of modern or legacy is set.
type ownershipProof struct {
	modern *custody.TokenManager
	legacy *custody.Certificate
}

// resolveProof looks id up as a token manager and then as a legacy
// certificate.
func (s *Service) resolveProof(ctx context.Context, id domain.RecordID) (ownershipProof, error) {
	tm, err := s.tokenManagers.Get(ctx, id)
	switch {
	case err == nil:
		return ownershipProof{modern: tm}, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return ownershipProof{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read token manager")
	}

	cert, err := s.certificates.GetCertificate(ctx, id)
	switch {
	case err == nil:
		return ownershipProof{legacy: cert}, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return ownershipProof{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read certificate")
	}
	return ownershipProof{}, dErrors.Rule(dErrors.ReasonInvalidTokenManager, "no token manager or certificate at proof address")
}

// verify checks the proof was issued by the namespace for the entry's mint,
// sits at its canonical address and is still live.
func (p ownershipProof) verify(id domain.RecordID, ns *models.Namespace, entry *models.Entry) error {
	if p.modern != nil {
		tm := p.modern
		if id != domain.TokenManagerAddress(entry.Mint) ||
			tm.Mint != entry.Mint || tm.Issuer != ns.Identity() || tm.State == custody.StateInvalidated {
			return dErrors.Rule(dErrors.ReasonInvalidTokenManager, "token manager does not prove ownership of this entry")
		}
		return nil
	}
	cert := p.legacy
	if id != domain.CertificateAddress(entry.Mint) ||
		cert.Mint != entry.Mint || cert.Issuer != ns.Identity() || cert.State == custody.StateInvalidated {
		return dErrors.Rule(dErrors.ReasonInvalidCertificate, "certificate does not prove ownership of this entry")
	}
	return nil
}
