package models

import (
	"time"

	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

// ReverseEntry maps an owning identity back to the entry it holds. There is
// one per identity.
type ReverseEntry struct {
	ID            domain.RecordID `json:"id"`
	Owner         domain.Identity `json:"owner"`
	NamespaceName string          `json:"namespace_name"`
	EntryName     string          `json:"entry_name"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewReverseEntry(owner domain.Identity, namespace *Namespace, entry *Entry, now time.Time) (*ReverseEntry, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner is required")
	}
	return &ReverseEntry{
		ID:            domain.ReverseEntryAddress(owner),
		Owner:         owner,
		NamespaceName: namespace.Name,
		EntryName:     entry.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Matches reports whether the reverse record names entry in namespace.
func (r *ReverseEntry) Matches(namespace *Namespace, entry *Entry) bool {
	return r.NamespaceName == namespace.Name && r.EntryName == entry.Name
}

// DisplayName is the formatted name this identity resolves to.
func (r *ReverseEntry) DisplayName() string {
	return FormatDisplayName(r.NamespaceName, r.EntryName)
}
