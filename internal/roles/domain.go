package roles

import "time"

// Role represents an assignable role definition.
type Role struct {
	ID        int64
	Code      string
	Name      string
	Type      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
