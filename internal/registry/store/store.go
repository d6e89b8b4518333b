// Package store defines the persistence contract for the four registry record
// kinds. Implementations live in store/memory and store/postgres.
//
// All lookups return sentinel.ErrNotFound for a missing record. Writes made
// through the Stores handed to RunInTx become visible together on commit or
// not at all.
package store

import (
	"context"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
)

type NamespaceStore interface {
	// Create returns sentinel.ErrConflict when the name is taken.
	Create(ctx context.Context, ns *models.Namespace) error
	FindByID(ctx context.Context, id domain.RecordID) (*models.Namespace, error)
	FindByName(ctx context.Context, name string) (*models.Namespace, error)
	List(ctx context.Context) ([]*models.Namespace, error)
	// Save overwrites an existing namespace.
	Save(ctx context.Context, ns *models.Namespace) error
}

type EntryStore interface {
	FindByID(ctx context.Context, id domain.RecordID) (*models.Entry, error)
	FindByIDs(ctx context.Context, ids []domain.RecordID) ([]*models.Entry, error)
	ListByNamespace(ctx context.Context, namespaceID domain.RecordID) ([]*models.Entry, error)
	// Save inserts or overwrites.
	Save(ctx context.Context, entry *models.Entry) error
}

type ClaimRequestStore interface {
	FindByID(ctx context.Context, id domain.RecordID) (*models.ClaimRequest, error)
	ListByNamespace(ctx context.Context, namespaceID domain.RecordID, pendingOnly bool) ([]*models.ClaimRequest, error)
	Save(ctx context.Context, req *models.ClaimRequest) error
	// Delete closes the request.
	Delete(ctx context.Context, id domain.RecordID) error
}

type ReverseEntryStore interface {
	FindByID(ctx context.Context, id domain.RecordID) (*models.ReverseEntry, error)
	Save(ctx context.Context, reverse *models.ReverseEntry) error
	// Delete closes the mapping.
	Delete(ctx context.Context, id domain.RecordID) error
}

// Stores groups the record stores visible inside one unit of work.
type Stores interface {
	Namespaces() NamespaceStore
	Entries() EntryStore
	ClaimRequests() ClaimRequestStore
	ReverseEntries() ReverseEntryStore
}

// Ledger is the shared registry state. Reads through Stores see committed
// data; RunInTx gives fn exclusive, all-or-nothing access.
type Ledger interface {
	Stores
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}
