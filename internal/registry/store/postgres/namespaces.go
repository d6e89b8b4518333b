package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"namespaces/internal/registry/models"
	"namespaces/pkg/domain"
	"namespaces/pkg/platform/sentinel"
	txcontext "namespaces/pkg/platform/tx"
)

// NamespaceStore persists namespaces. The configuration is stored as JSONB
// since it is always read and replaced as a whole.
type NamespaceStore struct {
	db *sql.DB
}

const namespaceColumns = `id, name, config, count, approved_count, created_at, updated_at`

func (s *NamespaceStore) Create(ctx context.Context, ns *models.Namespace) error {
	if ns == nil {
		return fmt.Errorf("namespace is required")
	}
	cfg, err := json.Marshal(ns.NamespaceConfig)
	if err != nil {
		return fmt.Errorf("marshal namespace config: %w", err)
	}
	query := `
		INSERT INTO namespaces (id, name, config, count, approved_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		ns.ID.String(), ns.Name, cfg, ns.Count, ns.ApprovedCount, ns.CreatedAt, ns.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("namespace %s: %w", ns.Name, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert namespace: %w", err)
	}
	return nil
}

func (s *NamespaceStore) FindByID(ctx context.Context, id domain.RecordID) (*models.Namespace, error) {
	query := `SELECT ` + namespaceColumns + ` FROM namespaces WHERE id = $1` + lockClause(ctx)
	return s.findOne(ctx, query, id.String())
}

func (s *NamespaceStore) FindByName(ctx context.Context, name string) (*models.Namespace, error) {
	query := `SELECT ` + namespaceColumns + ` FROM namespaces WHERE name = $1` + lockClause(ctx)
	return s.findOne(ctx, query, name)
}

func (s *NamespaceStore) findOne(ctx context.Context, query string, arg any) (*models.Namespace, error) {
	ns, err := scanNamespace(txcontext.Executor(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find namespace: %w", err)
	}
	return ns, nil
}

func (s *NamespaceStore) List(ctx context.Context) ([]*models.Namespace, error) {
	query := `SELECT ` + namespaceColumns + ` FROM namespaces ORDER BY name`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query namespaces: %w", err)
	}
	defer rows.Close()

	var out []*models.Namespace
	for rows.Next() {
		ns, err := scanNamespace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		out = append(out, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate namespaces: %w", err)
	}
	return out, nil
}

func (s *NamespaceStore) Save(ctx context.Context, ns *models.Namespace) error {
	if ns == nil {
		return fmt.Errorf("namespace is required")
	}
	cfg, err := json.Marshal(ns.NamespaceConfig)
	if err != nil {
		return fmt.Errorf("marshal namespace config: %w", err)
	}
	query := `
		UPDATE namespaces
		SET config = $2, count = $3, approved_count = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		ns.ID.String(), cfg, ns.Count, ns.ApprovedCount, ns.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update namespace: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNamespace(row rowScanner) (*models.Namespace, error) {
	var (
		ns  models.Namespace
		id  string
		cfg []byte
	)
	if err := row.Scan(&id, &ns.Name, &cfg, &ns.Count, &ns.ApprovedCount, &ns.CreatedAt, &ns.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &ns.NamespaceConfig); err != nil {
		return nil, fmt.Errorf("unmarshal namespace config: %w", err)
	}
	ns.ID = domain.RecordID(id)
	return &ns, nil
}
