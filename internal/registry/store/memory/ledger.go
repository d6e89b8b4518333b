// Package memory is the in-process registry ledger. Transactions stage their
// writes in an overlay and publish them to the shared state only on commit,
// so a failed unit of work leaves nothing behind.
package memory

import (
	"context"
	"sync"
	"time"

	"namespaces/internal/registry/models"
	"namespaces/internal/registry/store"
	"namespaces/pkg/domain"
	dErrors "namespaces/pkg/domain-errors"
)

const defaultTxTimeout = 5 * time.Second

type state struct {
	namespaces     map[domain.RecordID]*models.Namespace
	entries        map[domain.RecordID]*models.Entry
	claimRequests  map[domain.RecordID]*models.ClaimRequest
	reverseEntries map[domain.RecordID]*models.ReverseEntry
}

// Ledger implements store.Ledger.
//
// Writers are serialized by writeMu, which gives every transaction exclusive
// access to every record it touches. mu guards the committed maps against
// concurrent readers while a commit is published.
type Ledger struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   state
	timeout time.Duration
}

type Option func(*Ledger)

// WithTimeout bounds transactions whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.timeout = d
	}
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		state: state{
			namespaces:     make(map[domain.RecordID]*models.Namespace),
			entries:        make(map[domain.RecordID]*models.Entry),
			claimRequests:  make(map[domain.RecordID]*models.ClaimRequest),
			reverseEntries: make(map[domain.RecordID]*models.ReverseEntry),
		},
		timeout: defaultTxTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	// The deadline may have passed while waiting for the writer lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	v := &view{
		namespaces:     newTable(l.state.namespaces),
		entries:        newTable(l.state.entries),
		claimRequests:  newTable(l.state.claimRequests),
		reverseEntries: newTable(l.state.reverseEntries),
	}
	if err := fn(ctx, v); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}

	l.mu.Lock()
	v.namespaces.commit()
	v.entries.commit()
	v.claimRequests.commit()
	v.reverseEntries.commit()
	l.mu.Unlock()
	return nil
}

func (l *Ledger) Namespaces() store.NamespaceStore {
	return &namespaceStore{tbl: sharedTable(l, l.state.namespaces)}
}

func (l *Ledger) Entries() store.EntryStore {
	return &entryStore{tbl: sharedTable(l, l.state.entries)}
}

func (l *Ledger) ClaimRequests() store.ClaimRequestStore {
	return &claimRequestStore{tbl: sharedTable(l, l.state.claimRequests)}
}

func (l *Ledger) ReverseEntries() store.ReverseEntryStore {
	return &reverseEntryStore{tbl: sharedTable(l, l.state.reverseEntries)}
}

// view is the transactional set of stores. It runs under writeMu, so it
// needs no read lock.
type view struct {
	namespaces     *table[models.Namespace]
	entries        *table[models.Entry]
	claimRequests  *table[models.ClaimRequest]
	reverseEntries *table[models.ReverseEntry]
}

func (v *view) Namespaces() store.NamespaceStore { return &namespaceStore{tbl: v.namespaces} }

func (v *view) Entries() store.EntryStore { return &entryStore{tbl: v.entries} }

func (v *view) ClaimRequests() store.ClaimRequestStore { return &claimRequestStore{tbl: v.claimRequests} }

func (v *view) ReverseEntries() store.ReverseEntryStore { return &reverseEntryStore{tbl: v.reverseEntries} }
