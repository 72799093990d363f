package authz

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for grants and roles.
//
// Scope columns are stored as nullable text; the empty string stands for the
// global scope and is normalised to NULL on write via NULLIF so the partial
// unique indexes on active triples stay simple.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// HasDirectPermission checks an active direct grant at exactly the scope.
func (r *Repository) HasDirectPermission(ctx context.Context, actor ActorRef, action, subject, scope string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM actor_permissions ap
		JOIN permissions p ON p.id = ap.permission_id
		WHERE ap.actor_id = $1 AND ap.actor_kind = $2
		  AND ap.revoked_at IS NULL
		  AND ap.scope IS NOT DISTINCT FROM NULLIF($3, '')
		  AND p.action = $4 AND p.subject = $5
	)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, actor.ID, string(actor.Kind), scope, action, subject).Scan(&exists)
	return exists, err
}

// HasRolePermission checks role-derived grants at exactly the scope.
func (r *Repository) HasRolePermission(ctx context.Context, actor ActorRef, action, subject, scope string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM actor_roles ar
		JOIN role_permissions rp ON rp.role_id = ar.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ar.actor_id = $1 AND ar.actor_kind = $2
		  AND ar.revoked_at IS NULL
		  AND ar.scope IS NOT DISTINCT FROM NULLIF($3, '')
		  AND p.action = $4 AND p.subject = $5
	)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, actor.ID, string(actor.Kind), scope, action, subject).Scan(&exists)
	return exists, err
}

// HasActiveRole checks an active role grant by code at exactly the scope.
func (r *Repository) HasActiveRole(ctx context.Context, actor ActorRef, roleCode, scope string) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM actor_roles ar
		JOIN roles ro ON ro.id = ar.role_id
		WHERE ar.actor_id = $1 AND ar.actor_kind = $2
		  AND ar.revoked_at IS NULL
		  AND ar.scope IS NOT DISTINCT FROM NULLIF($3, '')
		  AND ro.code = $4
	)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, actor.ID, string(actor.Kind), scope, roleCode).Scan(&exists)
	return exists, err
}

// ListPermissions returns direct plus role-derived permissions at any scope.
func (r *Repository) ListPermissions(ctx context.Context, actor ActorRef) ([]Permission, error) {
	const q = `SELECT p.id, p.action, p.subject FROM actor_permissions ap
		JOIN permissions p ON p.id = ap.permission_id
		WHERE ap.actor_id = $1 AND ap.actor_kind = $2 AND ap.revoked_at IS NULL
	UNION ALL
	SELECT p.id, p.action, p.subject FROM actor_roles ar
		JOIN role_permissions rp ON rp.role_id = ar.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ar.actor_id = $1 AND ar.actor_kind = $2 AND ar.revoked_at IS NULL`
	rows, err := r.pool.Query(ctx, q, actor.ID, string(actor.Kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Subject); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListRoleCodes returns codes of active roles at any scope.
func (r *Repository) ListRoleCodes(ctx context.Context, actor ActorRef) ([]string, error) {
	const q = `SELECT DISTINCT ro.code FROM actor_roles ar
		JOIN roles ro ON ro.id = ar.role_id
		WHERE ar.actor_id = $1 AND ar.actor_kind = $2 AND ar.revoked_at IS NULL
		ORDER BY ro.code`
	rows, err := r.pool.Query(ctx, q, actor.ID, string(actor.Kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// GetRole fetches a role by id.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	const q = `SELECT id, code, name, type, created_at, updated_at FROM roles WHERE id = $1`
	return r.scanRole(r.pool.QueryRow(ctx, q, id))
}

// GetRoleByCode fetches a role by its stable code.
func (r *Repository) GetRoleByCode(ctx context.Context, code string) (Role, error) {
	const q = `SELECT id, code, name, type, created_at, updated_at FROM roles WHERE code = $1`
	return r.scanRole(r.pool.QueryRow(ctx, q, code))
}

func (r *Repository) scanRole(row pgx.Row) (Role, error) {
	var role Role
	if err := row.Scan(&role.ID, &role.Code, &role.Name, &role.Type, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// GetPermission fetches a permission by id.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	const q = `SELECT id, action, subject FROM permissions WHERE id = $1`
	var p Permission
	if err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Action, &p.Subject); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// EnsurePermission upserts the single canonical row for an (action, subject)
// pair.
func (r *Repository) EnsurePermission(ctx context.Context, action, subject string) (Permission, error) {
	const q = `INSERT INTO permissions (action, subject)
		VALUES ($1, $2)
		ON CONFLICT (action, subject) DO UPDATE SET action = EXCLUDED.action
		RETURNING id, action, subject`
	var p Permission
	if err := r.pool.QueryRow(ctx, q, action, subject).Scan(&p.ID, &p.Action, &p.Subject); err != nil {
		return Permission{}, err
	}
	return p, nil
}

// AttachPermissionToRole links a permission to a role idempotently.
func (r *Repository) AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error {
	const q = `INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2) ON CONFLICT (role_id, permission_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, q, roleID, permissionID)
	return err
}

// DetachPermissionFromRole removes a role-permission link.
func (r *Repository) DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error {
	const q = `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	_, err := r.pool.Exec(ctx, q, roleID, permissionID)
	return err
}

// ListRolePermissions returns the permissions bundled in a role.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	const q = `SELECT p.id, p.action, p.subject FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1 ORDER BY p.action, p.subject`
	rows, err := r.pool.Query(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Action, &p.Subject); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// FindActiveActorRole locates the active grant for the exact triple.
func (r *Repository) FindActiveActorRole(ctx context.Context, actor ActorRef, roleID int64, scope string) (ActorRole, error) {
	const q = `SELECT id, actor_id, actor_kind, role_id, COALESCE(scope, ''), granted_by, granted_at, revoked_at, COALESCE(revoked_by, '')
		FROM actor_roles
		WHERE actor_id = $1 AND actor_kind = $2 AND role_id = $3
		  AND scope IS NOT DISTINCT FROM NULLIF($4, '')
		  AND revoked_at IS NULL
		LIMIT 1`
	return scanActorRole(r.pool.QueryRow(ctx, q, actor.ID, string(actor.Kind), roleID, scope))
}

// InsertActorRole persists a new role grant.
func (r *Repository) InsertActorRole(ctx context.Context, grant ActorRole) (ActorRole, error) {
	const q = `INSERT INTO actor_roles (actor_id, actor_kind, role_id, scope, granted_by, granted_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW())
		RETURNING id, actor_id, actor_kind, role_id, COALESCE(scope, ''), granted_by, granted_at, revoked_at, COALESCE(revoked_by, '')`
	return scanActorRole(r.pool.QueryRow(ctx, q, grant.ActorID, string(grant.ActorKind), grant.RoleID, grant.Scope, grant.GrantedBy))
}

// RevokeActorRoles bulk-revokes every active grant matching the triple.
func (r *Repository) RevokeActorRoles(ctx context.Context, actor ActorRef, roleID int64, scope, revokedBy string) (int64, error) {
	const q = `UPDATE actor_roles
		SET revoked_at = NOW(), revoked_by = $5
		WHERE actor_id = $1 AND actor_kind = $2 AND role_id = $3
		  AND scope IS NOT DISTINCT FROM NULLIF($4, '')
		  AND revoked_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, actor.ID, string(actor.Kind), roleID, scope, revokedBy)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FindActiveActorPermission locates the active direct grant for the triple.
func (r *Repository) FindActiveActorPermission(ctx context.Context, actor ActorRef, permissionID int64, scope string) (ActorPermission, error) {
	const q = `SELECT id, actor_id, actor_kind, permission_id, COALESCE(scope, ''), granted_by, granted_at, revoked_at, COALESCE(revoked_by, '')
		FROM actor_permissions
		WHERE actor_id = $1 AND actor_kind = $2 AND permission_id = $3
		  AND scope IS NOT DISTINCT FROM NULLIF($4, '')
		  AND revoked_at IS NULL
		LIMIT 1`
	return scanActorPermission(r.pool.QueryRow(ctx, q, actor.ID, string(actor.Kind), permissionID, scope))
}

// InsertActorPermission persists a new direct grant.
func (r *Repository) InsertActorPermission(ctx context.Context, grant ActorPermission) (ActorPermission, error) {
	const q = `INSERT INTO actor_permissions (actor_id, actor_kind, permission_id, scope, granted_by, granted_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW())
		RETURNING id, actor_id, actor_kind, permission_id, COALESCE(scope, ''), granted_by, granted_at, revoked_at, COALESCE(revoked_by, '')`
	return scanActorPermission(r.pool.QueryRow(ctx, q, grant.ActorID, string(grant.ActorKind), grant.PermissionID, grant.Scope, grant.GrantedBy))
}

// RevokeActorPermissions bulk-revokes every active direct grant matching the
// triple.
func (r *Repository) RevokeActorPermissions(ctx context.Context, actor ActorRef, permissionID int64, scope, revokedBy string) (int64, error) {
	const q = `UPDATE actor_permissions
		SET revoked_at = NOW(), revoked_by = $5
		WHERE actor_id = $1 AND actor_kind = $2 AND permission_id = $3
		  AND scope IS NOT DISTINCT FROM NULLIF($4, '')
		  AND revoked_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, actor.ID, string(actor.Kind), permissionID, scope, revokedBy)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DepartmentDefaultRole reads the default-role override from department
// metadata.
func (r *Repository) DepartmentDefaultRole(ctx context.Context, departmentCode string) (string, error) {
	const q = `SELECT COALESCE(meta->>'default_role', '') FROM departments WHERE code = $1`
	var role string
	if err := r.pool.QueryRow(ctx, q, departmentCode).Scan(&role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return role, nil
}

func scanActorRole(row pgx.Row) (ActorRole, error) {
	var (
		grant   ActorRole
		kind    string
		revoked pgtype.Timestamptz
	)
	if err := row.Scan(&grant.ID, &grant.ActorID, &kind, &grant.RoleID, &grant.Scope, &grant.GrantedBy, &grant.GrantedAt, &revoked, &grant.RevokedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ActorRole{}, ErrNotFound
		}
		return ActorRole{}, err
	}
	grant.ActorKind = ActorKind(kind)
	grant.RevokedAt = timePtr(revoked)
	return grant, nil
}

func scanActorPermission(row pgx.Row) (ActorPermission, error) {
	var (
		grant   ActorPermission
		kind    string
		revoked pgtype.Timestamptz
	)
	if err := row.Scan(&grant.ID, &grant.ActorID, &kind, &grant.PermissionID, &grant.Scope, &grant.GrantedBy, &grant.GrantedAt, &revoked, &grant.RevokedBy); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ActorPermission{}, ErrNotFound
		}
		return ActorPermission{}, err
	}
	grant.ActorKind = ActorKind(kind)
	grant.RevokedAt = timePtr(revoked)
	return grant, nil
}

func timePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}
