package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/sentinel"
	txcontext "namespaces/pkg/platform/tx"
)

// ReverseEntryStore persists reverse mappings.
type ReverseEntryStore struct {
	db *sql.DB
}

func (s *ReverseEntryStore) FindByID(ctx context.Context, id domain.RecordID) (*models.ReverseEntry, error) {
	query := `
		SELECT id, owner, namespace_name, entry_name, created_at, updated_at
		FROM reverse_entries
		WHERE id = $1` + lockClause(ctx)

	var (
		rev        models.ReverseEntry
		rid, owner string
	)
	err := txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id.String()).Scan(
		&rid, &owner, &rev.NamespaceName, &rev.EntryName, &rev.CreatedAt, &rev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find reverse entry: %w", err)
	}
	rev.ID = domain.RecordID(rid)
	rev.Owner = domain.Identity(owner)
	return &rev, nil
}

func (s *ReverseEntryStore) Save(ctx context.Context, rev *models.ReverseEntry) error {
	if rev == nil {
		return fmt.Errorf("reverse entry is required")
	}
	query := `
		INSERT INTO reverse_entries (id, owner, namespace_name, entry_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			namespace_name = EXCLUDED.namespace_name,
			entry_name = EXCLUDED.entry_name,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		rev.ID.String(), rev.Owner.String(), rev.NamespaceName, rev.EntryName, rev.CreatedAt, rev.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save reverse entry: %w", err)
	}
	return nil
}

func (s *ReverseEntryStore) Delete(ctx context.Context, id domain.RecordID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM reverse_entries WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete reverse entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
