package authz

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit"
)

// AuditRecorder receives one entry per administrative mutation. Recording
// never fails from this layer's perspective.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Invalidator clears cached permission sets. The Cache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context, actorID string, kinds ...ActorKind)
	InvalidateScope(ctx context.Context, scope string)
	InvalidateAll(ctx context.Context)
}

// canonicalDefaultRoles maps department codes to the role a new actor in
// that department receives when the department record carries no override.
var canonicalDefaultRoles = map[string]string{
	"restaurant":   "kitchen_staff",
	"kitchen":      "kitchen_staff",
	"bar":          "bar_staff",
	"frontdesk":    "front_desk",
	"housekeeping": "housekeeping",
}

// fallbackDefaultRole is used for departments absent from the canonical table.
const fallbackDefaultRole = "employee"

// Admin performs grant/revoke administration. Within every mutation the store
// write, the audit emission and the cache invalidation happen in that order,
// and invalidation completes (or is logged as failed) before the call
// returns.
type Admin struct {
	store  AdminStore
	audit  AuditRecorder
	cache  Invalidator
	logger *slog.Logger
}

// NewAdmin constructs an Admin. audit and cache may be nil in tests.
func NewAdmin(store AdminStore, recorder AuditRecorder, cache Invalidator, logger *slog.Logger) *Admin {
	return &Admin{store: store, audit: recorder, cache: cache, logger: logger}
}

// GrantRole assigns a role to the actor at the given scope. Granting an
// already-held (actor, role, scope) triple returns the existing active grant
// instead of creating a duplicate row. Returns ErrNotFound when the role id
// does not exist.
func (a *Admin) GrantRole(ctx context.Context, target ActorRef, roleID int64, grantedBy, scope string) (ActorRole, error) {
	role, err := a.store.GetRole(ctx, roleID)
	if err != nil {
		return ActorRole{}, err
	}

	if existing, err := a.store.FindActiveActorRole(ctx, target, roleID, scope); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return ActorRole{}, err
	}

	grant, err := a.store.InsertActorRole(ctx, ActorRole{
		ActorID:   target.ID,
		ActorKind: target.Kind,
		RoleID:    roleID,
		Scope:     scope,
		GrantedBy: grantedBy,
	})
	if err != nil {
		if isUniqueViolation(err) {
			// A concurrent grant for the same triple won the race; the
			// partial unique index on active triples keeps the set clean.
			return a.store.FindActiveActorRole(ctx, target, roleID, scope)
		}
		return ActorRole{}, err
	}

	a.record(ctx, audit.Entry{
		Action:     audit.ActionRoleGranted,
		ActorID:    target.ID,
		ActorKind:  string(target.Kind),
		RoleID:     &roleID,
		Scope:      scope,
		ActingUser: grantedBy,
		Meta:       map[string]any{"role_code": role.Code},
	})
	a.invalidate(ctx, target)
	return grant, nil
}

// GrantRoleByCode resolves a role code and assigns it to the actor. Used by
// onboarding flows that know the role by its stable code rather than id.
func (a *Admin) GrantRoleByCode(ctx context.Context, target ActorRef, code, grantedBy, scope string) (ActorRole, error) {
	role, err := a.store.GetRoleByCode(ctx, code)
	if err != nil {
		return ActorRole{}, err
	}
	return a.GrantRole(ctx, target, role.ID, grantedBy, scope)
}

// RevokeRole revokes every active grant matching the (actor, role, scope)
// triple and returns how many rows were revoked.
func (a *Admin) RevokeRole(ctx context.Context, target ActorRef, roleID int64, revokedBy, scope string) (int64, error) {
	count, err := a.store.RevokeActorRoles(ctx, target, roleID, scope, revokedBy)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	a.record(ctx, audit.Entry{
		Action:     audit.ActionRoleRevoked,
		ActorID:    target.ID,
		ActorKind:  string(target.Kind),
		RoleID:     &roleID,
		Scope:      scope,
		ActingUser: revokedBy,
		Meta:       map[string]any{"revoked_count": count},
	})
	a.invalidate(ctx, target)
	return count, nil
}

// GrantPermission assigns a direct permission to the actor at the given
// scope. Same duplicate-grant semantics as GrantRole. Returns ErrNotFound
// when the permission id does not exist.
func (a *Admin) GrantPermission(ctx context.Context, target ActorRef, permissionID int64, grantedBy, scope string) (ActorPermission, error) {
	perm, err := a.store.GetPermission(ctx, permissionID)
	if err != nil {
		return ActorPermission{}, err
	}

	if existing, err := a.store.FindActiveActorPermission(ctx, target, permissionID, scope); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return ActorPermission{}, err
	}

	grant, err := a.store.InsertActorPermission(ctx, ActorPermission{
		ActorID:      target.ID,
		ActorKind:    target.Kind,
		PermissionID: permissionID,
		Scope:        scope,
		GrantedBy:    grantedBy,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return a.store.FindActiveActorPermission(ctx, target, permissionID, scope)
		}
		return ActorPermission{}, err
	}

	a.record(ctx, audit.Entry{
		Action:       audit.ActionPermissionGranted,
		ActorID:      target.ID,
		ActorKind:    string(target.Kind),
		PermissionID: &permissionID,
		Scope:        scope,
		ActingUser:   grantedBy,
		Meta:         map[string]any{"permission": perm.Key()},
	})
	a.invalidate(ctx, target)
	return grant, nil
}

// RevokePermission revokes every active direct grant matching the triple and
// returns how many rows were revoked.
func (a *Admin) RevokePermission(ctx context.Context, target ActorRef, permissionID int64, revokedBy, scope string) (int64, error) {
	count, err := a.store.RevokeActorPermissions(ctx, target, permissionID, scope, revokedBy)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	a.record(ctx, audit.Entry{
		Action:       audit.ActionPermissionRevoked,
		ActorID:      target.ID,
		ActorKind:    string(target.Kind),
		PermissionID: &permissionID,
		Scope:        scope,
		ActingUser:   revokedBy,
		Meta:         map[string]any{"revoked_count": count},
	})
	a.invalidate(ctx, target)
	return count, nil
}

// SetRolePermissions replaces a role's permission bundle with the given
// (action, subject) pairs, creating missing permission rows on the fly. The
// whole cache namespace is cleared afterwards: a bundle change affects every
// holder of the role in every scope.
func (a *Admin) SetRolePermissions(ctx context.Context, roleID int64, pairs []Permission, actingUser string) error {
	role, err := a.store.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	existing, err := a.store.ListRolePermissions(ctx, roleID)
	if err != nil {
		return err
	}
	current := make(map[int64]struct{}, len(existing))
	for _, p := range existing {
		current[p.ID] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(pairs))
	for _, pair := range pairs {
		perm, err := a.store.EnsurePermission(ctx, pair.Action, pair.Subject)
		if err != nil {
			return err
		}
		keep[perm.ID] = struct{}{}
		if _, ok := current[perm.ID]; !ok {
			if err := a.store.AttachPermissionToRole(ctx, roleID, perm.ID); err != nil {
				return err
			}
		}
	}
	for id := range current {
		if _, ok := keep[id]; !ok {
			if err := a.store.DetachPermissionFromRole(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	a.record(ctx, audit.Entry{
		Action:     audit.ActionRoleUpdated,
		RoleID:     &roleID,
		ActingUser: actingUser,
		Meta:       map[string]any{"role_code": role.Code, "permission_count": len(pairs)},
	})
	if a.cache != nil {
		a.cache.InvalidateAll(ctx)
	}
	return nil
}

// DefaultRoleForDepartment resolves the role a new actor in the department
// should receive. The department record's metadata override wins; the
// canonical table is the fallback, including on store errors.
func (a *Admin) DefaultRoleForDepartment(ctx context.Context, departmentCode string) string {
	code := strings.TrimSpace(strings.ToLower(departmentCode))
	override, err := a.store.DepartmentDefaultRole(ctx, code)
	if err != nil {
		if a.logger != nil {
			a.logger.Warn("department default role lookup", slog.String("department", code), slog.Any("error", err))
		}
	} else if override != "" {
		return override
	}
	if role, ok := canonicalDefaultRoles[code]; ok {
		return role
	}
	return fallbackDefaultRole
}

func (a *Admin) record(ctx context.Context, entry audit.Entry) {
	if a.audit == nil {
		return
	}
	a.audit.Record(ctx, entry)
}

func (a *Admin) invalidate(ctx context.Context, target ActorRef) {
	if a.cache == nil {
		return
	}
	a.cache.Invalidate(ctx, target.ID, target.Kind)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
