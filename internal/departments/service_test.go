package departments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

type repoStub struct {
	departments map[string]Department
}

func newRepoStub() *repoStub {
	return &repoStub{departments: map[string]Department{}}
}

func (r *repoStub) ListDepartments(_ context.Context) ([]Department, error) {
	out := make([]Department, 0, len(r.departments))
	for _, dept := range r.departments {
		out = append(out, dept)
	}
	return out, nil
}

func (r *repoStub) GetByCode(_ context.Context, code string) (Department, error) {
	dept, ok := r.departments[code]
	if !ok {
		return Department{}, shared.ErrNotFound
	}
	return dept, nil
}

func (r *repoStub) Upsert(_ context.Context, code, name string, meta map[string]any) (Department, error) {
	dept := Department{ID: int64(len(r.departments) + 1), Code: code, Name: name, Meta: meta}
	if existing, ok := r.departments[code]; ok {
		dept.ID = existing.ID
	}
	r.departments[code] = dept
	return dept, nil
}

func (r *repoStub) SetDefaultRole(_ context.Context, code, roleCode string) error {
	dept, ok := r.departments[code]
	if !ok {
		return shared.ErrNotFound
	}
	if dept.Meta == nil {
		dept.Meta = map[string]any{}
	}
	dept.Meta["default_role"] = roleCode
	r.departments[code] = dept
	return nil
}

func TestUpsertNormalizesCode(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)

	dept, err := svc.Upsert(context.Background(), "  FrontDesk ", "Front Desk", nil)
	require.NoError(t, err)
	require.Equal(t, "frontdesk", dept.Code)

	fetched, err := svc.GetByCode(context.Background(), "FRONTDESK")
	require.NoError(t, err)
	require.Equal(t, dept.ID, fetched.ID)
}

func TestSetDefaultRoleNormalizes(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo)

	_, err := svc.Upsert(context.Background(), "bar", "Bar", nil)
	require.NoError(t, err)

	require.NoError(t, svc.SetDefaultRole(context.Background(), "Bar", " Bar_Staff "))
	dept, err := svc.GetByCode(context.Background(), "bar")
	require.NoError(t, err)
	require.Equal(t, "bar_staff", dept.DefaultRole())
}

func TestSetDefaultRoleUnknownDepartment(t *testing.T) {
	svc := NewService(newRepoStub())
	require.ErrorIs(t, svc.SetDefaultRole(context.Background(), "spa", "spa_staff"), shared.ErrNotFound)
}

func TestDefaultRoleUnsetIsEmpty(t *testing.T) {
	dept := Department{Code: "kitchen"}
	require.Empty(t, dept.DefaultRole())
}
