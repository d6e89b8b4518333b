// Package postgres is the PostgreSQL registry ledger. A transaction is
// carried in the context, so the same store values serve both committed
// reads and reads inside RunInTx. Inside a transaction every lookup locks
// the row it returns.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"namespaces/internal/registry/store"
	dErrors "namespaces/pkg/domain-errors"
	txcontext "namespaces/pkg/platform/tx"
)

const (
	defaultTxTimeout = 5 * time.Second

	uniqueViolation = "23505"
)

// Ledger implements store.Ledger over database/sql with the pgx driver.
type Ledger struct {
	db      *sql.DB
	timeout time.Duration

	namespaces     *NamespaceStore
	entries        *EntryStore
	claimRequests  *ClaimRequestStore
	reverseEntries *ReverseEntryStore
}

type Option func(*Ledger)

// WithTimeout bounds transactions whose context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func New(db *sql.DB, opts ...Option) *Ledger {
	l := &Ledger{
		db:             db,
		timeout:        defaultTxTimeout,
		namespaces:     &NamespaceStore{db: db},
		entries:        &EntryStore{db: db},
		claimRequests:  &ClaimRequestStore{db: db},
		reverseEntries: &ReverseEntryStore{db: db},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) Namespaces() store.NamespaceStore { return l.namespaces }

func (l *Ledger) Entries() store.EntryStore { return l.entries }

func (l *Ledger) ClaimRequests() store.ClaimRequestStore { return l.claimRequests }

func (l *Ledger) ReverseEntries() store.ReverseEntryStore { return l.reverseEntries }

// RunInTx runs fn inside a database transaction. The transaction rides in
// the context handed to fn, so stores and the audit outbox join it.
func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, stores store.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	return txcontext.Run(ctx, l.db, func(ctx context.Context) error {
		return fn(ctx, l)
	})
}

// lockClause makes a lookup lock its row when running inside a transaction.
func lockClause(ctx context.Context) string {
	if _, ok := txcontext.From(ctx); ok {
		return " FOR UPDATE"
	}
	return ""
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
