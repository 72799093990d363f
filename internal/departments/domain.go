package departments

import "time"

// Department represents an operational department of a property, such as
// the kitchen or the front desk. Meta carries free-form settings; the
// "default_role" key overrides the role granted to new staff.
type Department struct {
	ID        int64
	Code      string
	Name      string
	Meta      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultRole returns the default-role override, or "" when unset.
func (d Department) DefaultRole() string {
	if d.Meta == nil {
		return ""
	}
	role, _ := d.Meta["default_role"].(string)
	return role
}
