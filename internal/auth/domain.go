package auth

import "time"

// User represents an authenticated account. Kind distinguishes admins from
// regular staff and drives the authorization bypass for administrators.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Kind         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
