package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and downstream routing.
type EventCategory string

const (
	// CategoryOwnership covers changes to who holds a name: claims,
	// invalidations, migrations and reverse mappings.
	CategoryOwnership EventCategory = "ownership"

	// CategorySecurity covers authority changes and privileged operations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	Action    string
	Namespace string
	Entry     string
	// Subject is the identity the action is about: the claimant, the
	// requestor or the reverse mapping owner.
	Subject string
	// ActorID is the signer that authorized the action.
	ActorID   string
	Reason    string
	Mint      string
	RequestID string
}

type AuditEvent string

const (
	// Namespace events
	EventNamespaceCreated AuditEvent = "namespace_created"
	EventNamespaceUpdated AuditEvent = "namespace_updated"

	// Claim request events
	EventClaimRequestCreated  AuditEvent = "claim_request_created"
	EventClaimRequestApproved AuditEvent = "claim_request_approved"

	// Entry events
	EventEntryClaimed     AuditEvent = "entry_claimed"
	EventEntryInvalidated AuditEvent = "entry_invalidated"
	EventEntryMigrated    AuditEvent = "entry_migrated"
	EventClaimCompensated AuditEvent = "claim_compensated"

	// Reverse mapping events
	EventReverseEntrySet     AuditEvent = "reverse_entry_set"
	EventReverseEntryCleared AuditEvent = "reverse_entry_cleared"

	// Admin events
	EventCustodyFunded           AuditEvent = "custody_funded"
	EventTokenManagerInvalidated AuditEvent = "token_manager_invalidated"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventEntryClaimed:        CategoryOwnership,
	EventEntryInvalidated:    CategoryOwnership,
	EventEntryMigrated:       CategoryOwnership,
	EventReverseEntrySet:     CategoryOwnership,
	EventReverseEntryCleared: CategoryOwnership,

	EventNamespaceUpdated:        CategorySecurity,
	EventClaimRequestApproved:    CategorySecurity,
	EventCustodyFunded:           CategorySecurity,
	EventTokenManagerInvalidated: CategorySecurity,

	EventNamespaceCreated:    CategoryOperations,
	EventClaimRequestCreated: CategoryOperations,
	EventClaimCompensated:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. The postgres implementation writes to the
// transactional outbox and joins a transaction carried in ctx.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister reads events back for a namespace, oldest first.
type Lister interface {
	ListByNamespace(ctx context.Context, namespace string) ([]Event, error)
}

// OutboxEntry is an event waiting in the transactional outbox for relay.
type OutboxEntry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
}
