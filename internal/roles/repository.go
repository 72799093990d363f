package roles

import (
	"context"
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

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	const q = `SELECT id, code, name, role_type, created_at, updated_at FROM roles ORDER BY id`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetRole fetches one role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	const q = `SELECT id, code, name, role_type, created_at, updated_at FROM roles WHERE id = $1`
	role, err := scanRole(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, code, name, roleType string) (Role, error) {
	const q = `INSERT INTO roles (code, name, role_type, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
RETURNING id, code, name, role_type, created_at, updated_at`
	return scanRole(r.pool.QueryRow(ctx, q, code, name, roleType))
}

// UpdateRole renames a role. The code is immutable once created.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name string) (Role, error) {
	const q = `UPDATE roles SET name = $2, updated_at = NOW()
WHERE id = $1
RETURNING id, code, name, role_type, created_at, updated_at`
	role, err := scanRole(r.pool.QueryRow(ctx, q, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role      Role
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&role.ID, &role.Code, &role.Name, &role.Type, &createdAt, &updatedAt); err != nil {
		return Role{}, err
	}
	role.CreatedAt = createdAt.Time
	role.UpdatedAt = updatedAt.Time
	return role, nil
}
