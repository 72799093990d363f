package users

import "time"

// User represents a staff account for management.
type User struct {
	ID         int64
	Email      string
	Name       string
	Kind       string
	Department string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
