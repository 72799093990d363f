package authz

import "time"

// ActorKind classifies the identity holding a grant.
type ActorKind string

// Supported actor kinds.
const (
	ActorKindAdmin    ActorKind = "admin"
	ActorKindEmployee ActorKind = "employee"
	ActorKindOther    ActorKind = "other"
)

// ScopeGlobal marks a grant that applies to every department.
const ScopeGlobal = ""

// Wildcard values reserved for the full-access permission pair.
const (
	WildcardAction  = "*"
	WildcardSubject = "*"
)

// ActorRef identifies an actor subject to authorization checks. Actors are
// owned by the users directory; this package references them by id only.
type ActorRef struct {
	ID   string
	Kind ActorKind
}

// Permission is an atomic (action, subject) capability. An empty subject is a
// distinct literal value, not a wildcard.
type Permission struct {
	ID      int64
	Action  string
	Subject string
}

// Key renders the canonical "action:subject" form used in permission sets.
func (p Permission) Key() string {
	return PermissionKey(p.Action, p.Subject)
}

// PermissionKey builds the canonical set entry for an (action, subject) pair.
func PermissionKey(action, subject string) string {
	if subject == "" {
		return action
	}
	return action + ":" + subject
}

// Role bundles permissions under a stable code.
type Role struct {
	ID        int64
	Code      string
	Name      string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActorRole grants an actor every permission bundled in a role, optionally
// narrowed to a department scope.
type ActorRole struct {
	ID        int64
	ActorID   string
	ActorKind ActorKind
	RoleID    int64
	Scope     string
	GrantedBy string
	GrantedAt time.Time
	RevokedAt *time.Time
	RevokedBy string
}

// Active reports whether the grant still contributes to decisions.
func (ar ActorRole) Active() bool {
	return ar.RevokedAt == nil
}

// ActorPermission grants a permission straight to an actor, bypassing roles.
type ActorPermission struct {
	ID           int64
	ActorID      string
	ActorKind    ActorKind
	PermissionID int64
	Scope        string
	GrantedBy    string
	GrantedAt    time.Time
	RevokedAt    *time.Time
	RevokedBy    string
}

// Active reports whether the grant still contributes to decisions.
func (ap ActorPermission) Active() bool {
	return ap.RevokedAt == nil
}
