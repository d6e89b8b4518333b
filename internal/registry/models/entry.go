package models

import (
	"time"

	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

// Entry is a claimable name inside a namespace.
//
// Invariants:
//   - ID is derived from (NamespaceID, Name)
//   - IsClaimed implies Data is set
//   - ReverseEntry, when set, points at a reverse record naming this entry
//   - ClaimRequestCounter only grows; each claim advances it by one
//
// Entries are created on first claim and are never deleted, only reset.
type Entry struct {
	ID                  domain.RecordID  `json:"id"`
	NamespaceID         domain.RecordID  `json:"namespace_id"`
	Name                string           `json:"name"`
	Mint                domain.MintID    `json:"mint"`
	Data                *domain.Identity `json:"data,omitempty"`
	IsClaimed           bool             `json:"is_claimed"`
	ReverseEntry        *domain.RecordID `json:"reverse_entry,omitempty"`
	ClaimRequestCounter uint32           `json:"claim_request_counter"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func NewEntry(namespace *Namespace, name string, now time.Time) (*Entry, error) {
	if err := ValidateEntryName(name); err != nil {
		return nil, err
	}
	return &Entry{
		ID:          domain.EntryAddress(namespace.ID, name),
		NamespaceID: namespace.ID,
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Claimant returns the identity holding the entry, or the zero identity.
func (e *Entry) Claimant() domain.Identity {
	if e.Data == nil {
		return ""
	}
	return *e.Data
}

// BelongsTo checks the entry against the namespace it is used with.
func (e *Entry) BelongsTo(namespace *Namespace) error {
	if e.NamespaceID != namespace.ID || e.ID != domain.EntryAddress(namespace.ID, e.Name) {
		return dErrors.Rule(dErrors.ReasonInvalidEntry, "entry does not belong to namespace")
	}
	return nil
}

// ApplyMint binds the entry to a freshly minted token.
func (e *Entry) ApplyMint(mint domain.MintID, now time.Time) {
	e.Mint = mint
	e.UpdatedAt = now
}

// ApplyClaim hands the entry to requestor and advances the claim counter,
// which makes every outstanding approval stale.
func (e *Entry) ApplyClaim(requestor domain.Identity, now time.Time) {
	claimant := requestor
	e.Data = &claimant
	e.IsClaimed = true
	e.ClaimRequestCounter++
	e.UpdatedAt = now
}

// CanClaim checks the entry is free within namespace.
func (e *Entry) CanClaim(namespace *Namespace) error {
	if err := e.BelongsTo(namespace); err != nil {
		return err
	}
	if e.IsClaimed {
		return dErrors.Rule(dErrors.ReasonInvalidEntry, "entry is already claimed")
	}
	return nil
}

// CanInvalidate checks the entry is claimed within namespace.
func (e *Entry) CanInvalidate(namespace *Namespace) error {
	if err := e.BelongsTo(namespace); err != nil {
		return err
	}
	if !e.IsClaimed {
		return dErrors.Rule(dErrors.ReasonInvalidEntry, "entry is not claimed")
	}
	return nil
}

// ApplyRelease clears the claimant.
func (e *Entry) ApplyRelease(now time.Time) {
	e.Data = nil
	e.IsClaimed = false
	e.UpdatedAt = now
}

// ApplyReverse points the entry at its reverse record.
func (e *Entry) ApplyReverse(reverse domain.RecordID, now time.Time) {
	id := reverse
	e.ReverseEntry = &id
	e.UpdatedAt = now
}

// ClearReverse drops the reverse pointer.
func (e *Entry) ClearReverse(now time.Time) {
	e.ReverseEntry = nil
	e.UpdatedAt = now
}

// PointsTo reports whether the reverse pointer references reverse.
func (e *Entry) PointsTo(reverse domain.RecordID) bool {
	return e.ReverseEntry != nil && *e.ReverseEntry == reverse
}
