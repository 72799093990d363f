package users

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/authz"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, offset, limit int) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, email, name, passwordHash, kind, department string) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// Authorizer grants the department default role to new staff.
type Authorizer interface {
	DefaultRoleForDepartment(ctx context.Context, departmentCode string) string
	GrantRoleByCode(ctx context.Context, target authz.ActorRef, code, grantedBy, scope string) (authz.ActorRole, error)
}

// Service handles staff account business logic.
type Service struct {
	repo   RepositoryPort
	authz  Authorizer
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, authorizer Authorizer, logger *slog.Logger) *Service {
	return &Service{repo: repo, authz: authorizer, logger: logger}
}

// ListUsers returns one page of staff accounts with pagination metadata.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	paging := shared.NewPagination(page, perPage, total)
	list, err := s.repo.ListUsers(ctx, (paging.Page-1)*paging.PerPage, paging.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, paging, nil
}

// GetUser fetches one account by id.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser creates a staff account and grants the default role for the
// department. A failed role grant does not fail the account creation; the
// account simply starts without derived permissions.
func (s *Service) CreateUser(ctx context.Context, email, name, password, kind, department, actingUser string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	if kind == "" {
		kind = string(authz.ActorKindEmployee)
	}
	department = strings.ToLower(strings.TrimSpace(department))
	user, err := s.repo.CreateUser(ctx, email, name, string(hash), kind, department)
	if err != nil {
		return User{}, err
	}

	if s.authz != nil && kind == string(authz.ActorKindEmployee) {
		roleCode := s.authz.DefaultRoleForDepartment(ctx, department)
		target := authz.ActorRef{ID: strconv.FormatInt(user.ID, 10), Kind: authz.ActorKindEmployee}
		if _, err := s.authz.GrantRoleByCode(ctx, target, roleCode, actingUser, ""); err != nil {
			s.logger.Warn("grant default role",
				slog.String("role", roleCode),
				slog.Int64("user_id", user.ID),
				slog.Any("error", err))
		}
	}
	return user, nil
}

// SetActive toggles an account's active flag.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
