package audit

import "time"

// Action enumerates the administrative events recorded in the trail.
type Action string

// Recorded event kinds.
const (
	ActionRoleGranted       Action = "role_granted"
	ActionRoleRevoked       Action = "role_revoked"
	ActionPermissionGranted Action = "permission_granted"
	ActionPermissionRevoked Action = "permission_revoked"
	ActionRoleCreated       Action = "role_created"
	ActionRoleUpdated       Action = "role_updated"
)

// Entry is one immutable administrative event. Entries are append-only and
// never contribute to authorization decisions.
type Entry struct {
	ID           int64
	Action       Action
	ActorID      string
	ActorKind    string
	RoleID       *int64
	PermissionID *int64
	Scope        string
	ActingUser   string
	Meta         map[string]any
	OccurredAt   time.Time
}

// Filters narrow a timeline query. Zero values mean "no filter".
type Filters struct {
	ActorID  string
	Action   string
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// PagingInfo carries pagination metadata for a timeline page.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// Result bundles one timeline page with its paging metadata.
type Result struct {
	Rows   []Entry
	Paging PagingInfo
}
