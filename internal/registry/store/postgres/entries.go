package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/sentinel"
	txcontext "namespaces/pkg/platform/tx"
)

// EntryStore persists entries.
type EntryStore struct {
	db *sql.DB
}

const entryColumns = `id, namespace_id, name, mint, data, is_claimed, reverse_entry, claim_request_counter, created_at, updated_at`

func (s *EntryStore) FindByID(ctx context.Context, id domain.RecordID) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1` + lockClause(ctx)
	entry, err := scanEntry(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return entry, nil
}

// FindByIDs returns the entries that exist, in the order asked for.
func (s *EntryStore) FindByIDs(ctx context.Context, ids []domain.RecordID) ([]*models.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = ANY($1)`
	entries, err := s.query(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.RecordID]*models.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	out := make([]*models.Entry, 0, len(entries))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EntryStore) ListByNamespace(ctx context.Context, namespaceID domain.RecordID) ([]*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE namespace_id = $1 ORDER BY name`
	return s.query(ctx, query, namespaceID.String())
}

func (s *EntryStore) query(ctx context.Context, query string, args ...any) ([]*models.Entry, error) {
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var out []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (s *EntryStore) Save(ctx context.Context, entry *models.Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is required")
	}
	var data, reverse sql.NullString
	if entry.Data != nil {
		data = nullString(entry.Data.String())
	}
	if entry.ReverseEntry != nil {
		reverse = nullString(entry.ReverseEntry.String())
	}
	query := `
		INSERT INTO entries (id, namespace_id, name, mint, data, is_claimed, reverse_entry, claim_request_counter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			mint = EXCLUDED.mint,
			data = EXCLUDED.data,
			is_claimed = EXCLUDED.is_claimed,
			reverse_entry = EXCLUDED.reverse_entry,
			claim_request_counter = EXCLUDED.claim_request_counter,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		entry.ID.String(),
		entry.NamespaceID.String(),
		entry.Name,
		entry.Mint.String(),
		data,
		entry.IsClaimed,
		reverse,
		entry.ClaimRequestCounter,
		entry.CreatedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save entry: %w", err)
	}
	return nil
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var (
		entry                 models.Entry
		id, namespaceID, mint string
		data, reverse         sql.NullString
	)
	err := row.Scan(
		&id,
		&namespaceID,
		&entry.Name,
		&mint,
		&data,
		&entry.IsClaimed,
		&reverse,
		&entry.ClaimRequestCounter,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.ID = domain.RecordID(id)
	entry.NamespaceID = domain.RecordID(namespaceID)
	entry.Mint = domain.MintID(mint)
	if data.Valid {
		claimant := domain.Identity(data.String)
		entry.Data = &claimant
	}
	if reverse.Valid {
		rev := domain.RecordID(reverse.String)
		entry.ReverseEntry = &rev
	}
	return &entry, nil
}
