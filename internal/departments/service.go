package departments

import (
	"context"
	"strings"
)

// RepositoryPort defines data access methods for departments.
type RepositoryPort interface {
	ListDepartments(ctx context.Context) ([]Department, error)
	GetByCode(ctx context.Context, code string) (Department, error)
	Upsert(ctx context.Context, code, name string, meta map[string]any) (Department, error)
	SetDefaultRole(ctx context.Context, code, roleCode string) error
}

// Service handles department business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListDepartments returns all departments.
func (s *Service) ListDepartments(ctx context.Context) ([]Department, error) {
	return s.repo.ListDepartments(ctx)
}

// GetByCode fetches one department.
func (s *Service) GetByCode(ctx context.Context, code string) (Department, error) {
	return s.repo.GetByCode(ctx, normalizeCode(code))
}

// Upsert creates or updates a department.
func (s *Service) Upsert(ctx context.Context, code, name string, meta map[string]any) (Department, error) {
	return s.repo.Upsert(ctx, normalizeCode(code), name, meta)
}

// SetDefaultRole updates the default-role override for a department. The
// change only affects staff onboarded afterwards, so cached permission sets
// stay valid; existing grants are untouched.
func (s *Service) SetDefaultRole(ctx context.Context, code, roleCode string) error {
	return s.repo.SetDefaultRole(ctx, normalizeCode(code), strings.ToLower(strings.TrimSpace(roleCode)))
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
