package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/authz"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

type repoStub struct {
	users  map[int64]User
	nextID int64
}

func newRepoStub() *repoStub {
	return &repoStub{users: map[int64]User{}, nextID: 1}
}

func (r *repoStub) ListUsers(_ context.Context, offset, limit int) ([]User, error) {
	var all []User
	for id := int64(1); id < r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			all = append(all, user)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *repoStub) CountUsers(_ context.Context) (int, error) {
	return len(r.users), nil
}

func (r *repoStub) GetUser(_ context.Context, id int64) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

func (r *repoStub) CreateUser(_ context.Context, email, name, passwordHash, kind, department string) (User, error) {
	user := User{
		ID: r.nextID, Email: email, Name: name, Kind: kind,
		Department: department, IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	_ = passwordHash
	r.users[user.ID] = user
	r.nextID++
	return user, nil
}

func (r *repoStub) SetActive(_ context.Context, id int64, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.IsActive = active
	r.users[id] = user
	return nil
}

type authorizerStub struct {
	defaultRole string
	grants      []string
	grantErr    error
}

func (a *authorizerStub) DefaultRoleForDepartment(_ context.Context, _ string) string {
	return a.defaultRole
}

func (a *authorizerStub) GrantRoleByCode(_ context.Context, target authz.ActorRef, code, _, _ string) (authz.ActorRole, error) {
	if a.grantErr != nil {
		return authz.ActorRole{}, a.grantErr
	}
	a.grants = append(a.grants, target.ID+":"+code)
	return authz.ActorRole{ActorID: target.ID, ActorKind: target.Kind}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
}

func TestCreateUserGrantsDepartmentDefaultRole(t *testing.T) {
	repo := newRepoStub()
	authorizer := &authorizerStub{defaultRole: "kitchen_staff"}
	svc := NewService(repo, authorizer, testLogger())

	user, err := svc.CreateUser(context.Background(), "cook@hotel.test", "Cook", "longpassword", "", "Kitchen", "admin-1")
	require.NoError(t, err)
	require.Equal(t, "employee", user.Kind)
	require.Equal(t, "kitchen", user.Department)
	require.Equal(t, []string{"1:kitchen_staff"}, authorizer.grants)
}

func TestCreateUserSurvivesGrantFailure(t *testing.T) {
	repo := newRepoStub()
	authorizer := &authorizerStub{defaultRole: "employee", grantErr: errors.New("role missing")}
	svc := NewService(repo, authorizer, testLogger())

	user, err := svc.CreateUser(context.Background(), "new@hotel.test", "New Hire", "longpassword", "employee", "frontdesk", "admin-1")
	require.NoError(t, err)
	require.True(t, user.IsActive)
	require.Empty(t, authorizer.grants)
}

func TestCreateAdminSkipsDefaultRole(t *testing.T) {
	repo := newRepoStub()
	authorizer := &authorizerStub{defaultRole: "employee"}
	svc := NewService(repo, authorizer, testLogger())

	_, err := svc.CreateUser(context.Background(), "boss@hotel.test", "Boss", "longpassword", "admin", "", "admin-1")
	require.NoError(t, err)
	require.Empty(t, authorizer.grants)
}

func TestListUsersPaging(t *testing.T) {
	repo := newRepoStub()
	svc := NewService(repo, &authorizerStub{defaultRole: "employee"}, testLogger())
	for i := 0; i < 25; i++ {
		_, err := svc.CreateUser(context.Background(), "staff"+strconv.Itoa(i)+"@hotel.test", "Staff", "longpassword", "employee", "", "admin-1")
		require.NoError(t, err)
	}

	list, paging, err := svc.ListUsers(context.Background(), 2, 10)
	require.NoError(t, err)
	require.Len(t, list, 10)
	require.Equal(t, 25, paging.Total)
	require.Equal(t, 3, paging.TotalPages)
	require.Equal(t, int64(11), list[0].ID)
}

func TestSetActiveUnknownUser(t *testing.T) {
	svc := NewService(newRepoStub(), &authorizerStub{}, testLogger())
	require.ErrorIs(t, svc.SetActive(context.Background(), 7, false), shared.ErrNotFound)
}
