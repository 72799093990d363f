package authz

import "errors"

var (
	// ErrNotFound indicates that a referenced role or permission does not exist.
	ErrNotFound = errors.New("authz: not found")
	// ErrAlreadyGranted indicates an identical active grant already exists.
	ErrAlreadyGranted = errors.New("authz: already granted")
)
