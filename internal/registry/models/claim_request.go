package models

import (
	"time"

	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

// ClaimRequest is an intent by Requestor to claim EntryName.
//
// Invariants:
//   - ID is derived from (NamespaceID, EntryName, Requestor)
//   - Counter snapshots the entry's claim counter at approval time
//   - A request is consumable only while Counter matches the entry's counter
type ClaimRequest struct {
	ID          domain.RecordID `json:"id"`
	NamespaceID domain.RecordID `json:"namespace_id"`
	EntryName   string          `json:"entry_name"`
	Requestor   domain.Identity `json:"requestor"`
	IsApproved  bool            `json:"is_approved"`
	Counter     uint32          `json:"counter"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func NewClaimRequest(namespace *Namespace, entryName string, requestor domain.Identity, now time.Time) (*ClaimRequest, error) {
	if err := ValidateEntryName(entryName); err != nil {
		return nil, err
	}
	if requestor.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requestor is required")
	}
	return &ClaimRequest{
		ID:          domain.ClaimRequestAddress(namespace.ID, entryName, requestor),
		NamespaceID: namespace.ID,
		EntryName:   entryName,
		Requestor:   requestor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyApproval approves the request and snapshots counter. It reports
// whether the request moved from pending to approved.
func (c *ClaimRequest) ApplyApproval(counter uint32, now time.Time) bool {
	transitioned := !c.IsApproved
	c.IsApproved = true
	c.Counter = counter
	c.UpdatedAt = now
	return transitioned
}

// CanConsume checks that the request authorizes payer to claim entry now.
// A counter mismatch means a claim happened since approval.
func (c *ClaimRequest) CanConsume(namespace *Namespace, entry *Entry, payer domain.Identity) error {
	switch {
	case !c.IsApproved:
		return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "claim request is not approved")
	case c.NamespaceID != namespace.ID:
		return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "claim request is for another namespace")
	case c.EntryName != entry.Name:
		return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "claim request is for another entry")
	case c.Requestor != payer:
		return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "claim request belongs to another requestor")
	case c.Counter != entry.ClaimRequestCounter:
		return dErrors.Rule(dErrors.ReasonClaimNotAllowed, "claim request is stale")
	}
	return nil
}
