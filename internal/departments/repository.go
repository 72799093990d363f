package departments

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListDepartments returns all departments ordered by code.
func (r *Repository) ListDepartments(ctx context.Context) ([]Department, error) {
	const q = `SELECT id, code, name, COALESCE(meta, '{}'::jsonb), created_at, updated_at
FROM departments ORDER BY code`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dept)
	}
	return out, rows.Err()
}

// GetByCode fetches one department by its code.
func (r *Repository) GetByCode(ctx context.Context, code string) (Department, error) {
	const q = `SELECT id, code, name, COALESCE(meta, '{}'::jsonb), created_at, updated_at
FROM departments WHERE code = $1`
	dept, err := scanDepartment(r.pool.QueryRow(ctx, q, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return dept, nil
}

// Upsert creates or updates a department by code.
func (r *Repository) Upsert(ctx context.Context, code, name string, meta map[string]any) (Department, error) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return Department{}, err
	}
	const q = `INSERT INTO departments (code, name, meta, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, meta = EXCLUDED.meta, updated_at = NOW()
RETURNING id, code, name, COALESCE(meta, '{}'::jsonb), created_at, updated_at`
	return scanDepartment(r.pool.QueryRow(ctx, q, code, name, raw))
}

// SetDefaultRole writes the default-role override into department metadata.
func (r *Repository) SetDefaultRole(ctx context.Context, code, roleCode string) error {
	const q = `UPDATE departments
SET meta = COALESCE(meta, '{}'::jsonb) || jsonb_build_object('default_role', $2::text),
    updated_at = NOW()
WHERE code = $1`
	tag, err := r.pool.Exec(ctx, q, code, roleCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanDepartment(row pgx.Row) (Department, error) {
	var (
		dept      Department
		rawMeta   []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&dept.ID, &dept.Code, &dept.Name, &rawMeta, &createdAt, &updatedAt); err != nil {
		return Department{}, err
	}
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &dept.Meta); err != nil {
			return Department{}, err
		}
	}
	dept.CreatedAt = createdAt.Time
	dept.UpdatedAt = updatedAt.Time
	return dept, nil
}
