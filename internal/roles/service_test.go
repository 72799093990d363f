package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

type repoStub struct {
	roles  map[int64]Role
	nextID int64
}

func newRepoStub() *repoStub {
	return &repoStub{roles: map[int64]Role{}, nextID: 1}
}

func (r *repoStub) ListRoles(_ context.Context) ([]Role, error) {
	out := make([]Role, 0, len(r.roles))
	for id := int64(1); id < r.nextID; id++ {
		if role, ok := r.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *repoStub) GetRole(_ context.Context, id int64) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r *repoStub) CreateRole(_ context.Context, code, name, roleType string) (Role, error) {
	role := Role{ID: r.nextID, Code: code, Name: name, Type: roleType, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.roles[role.ID] = role
	r.nextID++
	return role, nil
}

func (r *repoStub) UpdateRole(_ context.Context, id int64, name string) (Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	role.Name = name
	role.UpdatedAt = time.Now()
	r.roles[id] = role
	return role, nil
}

type recorderStub struct {
	entries []audit.Entry
}

func (r *recorderStub) Record(_ context.Context, entry audit.Entry) {
	r.entries = append(r.entries, entry)
}

func TestCreateRoleNormalizesCodeAndAudits(t *testing.T) {
	repo := newRepoStub()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	role, err := svc.CreateRole(context.Background(), "  Front_Desk ", "Front Desk", "", "admin-1")
	require.NoError(t, err)
	require.Equal(t, "front_desk", role.Code)
	require.Equal(t, "custom", role.Type)

	require.Len(t, recorder.entries, 1)
	require.Equal(t, audit.ActionRoleCreated, recorder.entries[0].Action)
	require.Equal(t, "admin-1", recorder.entries[0].ActingUser)
	require.Equal(t, role.ID, *recorder.entries[0].RoleID)
}

func TestCreateRoleRequiresCode(t *testing.T) {
	svc := NewService(newRepoStub(), &recorderStub{})

	_, err := svc.CreateRole(context.Background(), "   ", "Nameless", "custom", "admin-1")
	require.Error(t, err)
}

func TestUpdateRoleAudits(t *testing.T) {
	repo := newRepoStub()
	recorder := &recorderStub{}
	svc := NewService(repo, recorder)

	role, err := svc.CreateRole(context.Background(), "bar_staff", "Bar Staff", "custom", "admin-1")
	require.NoError(t, err)

	updated, err := svc.UpdateRole(context.Background(), role.ID, "Bar Team", "admin-1")
	require.NoError(t, err)
	require.Equal(t, "Bar Team", updated.Name)
	require.Len(t, recorder.entries, 2)
	require.Equal(t, audit.ActionRoleUpdated, recorder.entries[1].Action)
}

func TestUpdateUnknownRole(t *testing.T) {
	svc := NewService(newRepoStub(), &recorderStub{})

	_, err := svc.UpdateRole(context.Background(), 99, "Ghost", "admin-1")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
