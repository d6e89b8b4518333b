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

// ClaimRequestStore persists claim requests. Closing a request deletes its row.
type ClaimRequestStore struct {
	db *sql.DB
}

const claimRequestColumns = `id, namespace_id, entry_name, requestor, is_approved, counter, created_at, updated_at`

func (s *ClaimRequestStore) FindByID(ctx context.Context, id domain.RecordID) (*models.ClaimRequest, error) {
	query := `SELECT ` + claimRequestColumns + ` FROM claim_requests WHERE id = $1` + lockClause(ctx)
	req, err := scanClaimRequest(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find claim request: %w", err)
	}
	return req, nil
}

func (s *ClaimRequestStore) ListByNamespace(ctx context.Context, namespaceID domain.RecordID, pendingOnly bool) ([]*models.ClaimRequest, error) {
	query := `SELECT ` + claimRequestColumns + ` FROM claim_requests WHERE namespace_id = $1`
	if pendingOnly {
		query += ` AND NOT is_approved`
	}
	query += ` ORDER BY created_at, id`

	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, namespaceID.String())
	if err != nil {
		return nil, fmt.Errorf("query claim requests: %w", err)
	}
	defer rows.Close()

	var out []*models.ClaimRequest
	for rows.Next() {
		req, err := scanClaimRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claim requests: %w", err)
	}
	return out, nil
}

func (s *ClaimRequestStore) Save(ctx context.Context, req *models.ClaimRequest) error {
	if req == nil {
		return fmt.Errorf("claim request is required")
	}
	query := `
		INSERT INTO claim_requests (id, namespace_id, entry_name, requestor, is_approved, counter, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			is_approved = EXCLUDED.is_approved,
			counter = EXCLUDED.counter,
			updated_at = EXCLUDED.updated_at
	`
	_, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		req.ID.String(),
		req.NamespaceID.String(),
		req.EntryName,
		req.Requestor.String(),
		req.IsApproved,
		req.Counter,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save claim request: %w", err)
	}
	return nil
}

func (s *ClaimRequestStore) Delete(ctx context.Context, id domain.RecordID) error {
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, `DELETE FROM claim_requests WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete claim request: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func scanClaimRequest(row rowScanner) (*models.ClaimRequest, error) {
	var (
		req                        models.ClaimRequest
		id, namespaceID, requestor string
	)
	err := row.Scan(&id, &namespaceID, &req.EntryName, &requestor, &req.IsApproved, &req.Counter, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.ID = domain.RecordID(id)
	req.NamespaceID = domain.RecordID(namespaceID)
	req.Requestor = domain.Identity(requestor)
	return &req, nil
}
