package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, code, name, roleType string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name string) (Role, error)
}

// AuditRecorder records administrative events.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service handles role business logic.
type Service struct {
	repo     RepositoryPort
	recorder AuditRecorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder AuditRecorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role by id.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole creates a role and records the event in the audit trail.
func (s *Service) CreateRole(ctx context.Context, code, name, roleType, actingUser string) (Role, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return Role{}, fmt.Errorf("roles: code is required")
	}
	if roleType == "" {
		roleType = "custom"
	}
	role, err := s.repo.CreateRole(ctx, code, name, roleType)
	if err != nil {
		return Role{}, err
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, audit.Entry{
			Action:     audit.ActionRoleCreated,
			RoleID:     &role.ID,
			ActingUser: actingUser,
			Meta:       map[string]any{"code": role.Code, "name": role.Name},
		})
	}
	return role, nil
}

// UpdateRole renames a role and records the event.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, actingUser string) (Role, error) {
	role, err := s.repo.UpdateRole(ctx, id, name)
	if err != nil {
		return Role{}, err
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, audit.Entry{
			Action:     audit.ActionRoleUpdated,
			RoleID:     &role.ID,
			ActingUser: actingUser,
			Meta:       map[string]any{"name": role.Name},
		})
	}
	return role, nil
}
