package authz

import "context"

// ResolverStore exposes the read-only queries the resolver needs. Every call
// is a potentially blocking store round trip; implementations must honour the
// context deadline.
type ResolverStore interface {
	// HasDirectPermission reports whether an active direct grant matches the
	// (action, subject) pair at exactly the given scope.
	HasDirectPermission(ctx context.Context, actor ActorRef, action, subject, scope string) (bool, error)
	// HasRolePermission reports whether an active role held at exactly the
	// given scope bundles a permission matching (action, subject).
	HasRolePermission(ctx context.Context, actor ActorRef, action, subject, scope string) (bool, error)
	// HasActiveRole reports whether the actor holds the role code at exactly
	// the given scope, without expanding through permissions.
	HasActiveRole(ctx context.Context, actor ActorRef, roleCode, scope string) (bool, error)
	// ListPermissions returns every permission the actor holds directly or
	// through roles, at any scope. Duplicates are allowed.
	ListPermissions(ctx context.Context, actor ActorRef) ([]Permission, error)
	// ListRoleCodes returns the codes of every active role the actor holds at
	// any scope.
	ListRoleCodes(ctx context.Context, actor ActorRef) ([]string, error)
}

// AdminStore exposes the mutations used by grant/revoke administration.
type AdminStore interface {
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByCode(ctx context.Context, code string) (Role, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	// EnsurePermission creates the (action, subject) permission if absent and
	// returns the single canonical row either way.
	EnsurePermission(ctx context.Context, action, subject string) (Permission, error)
	// AttachPermissionToRole links a permission to a role; attaching an
	// existing pair is a no-op.
	AttachPermissionToRole(ctx context.Context, roleID, permissionID int64) error
	DetachPermissionFromRole(ctx context.Context, roleID, permissionID int64) error
	// ListRolePermissions returns the permissions currently bundled in a role.
	ListRolePermissions(ctx context.Context, roleID int64) ([]Permission, error)

	FindActiveActorRole(ctx context.Context, actor ActorRef, roleID int64, scope string) (ActorRole, error)
	InsertActorRole(ctx context.Context, grant ActorRole) (ActorRole, error)
	// RevokeActorRoles marks every active grant matching the triple revoked
	// and returns how many rows changed.
	RevokeActorRoles(ctx context.Context, actor ActorRef, roleID int64, scope, revokedBy string) (int64, error)

	FindActiveActorPermission(ctx context.Context, actor ActorRef, permissionID int64, scope string) (ActorPermission, error)
	InsertActorPermission(ctx context.Context, grant ActorPermission) (ActorPermission, error)
	RevokeActorPermissions(ctx context.Context, actor ActorRef, permissionID int64, scope, revokedBy string) (int64, error)

	// DepartmentDefaultRole returns the default-role override stored on the
	// department record, or empty when none is configured.
	DepartmentDefaultRole(ctx context.Context, departmentCode string) (string, error)
}

// Store combines both ports; the pgx repository implements it.
type Store interface {
	ResolverStore
	AdminStore
}
