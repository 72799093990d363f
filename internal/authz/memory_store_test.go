package authz

import (
	"context"
	"errors"
	"time"
)

// memoryStore implements Store over slices for unit tests.
type memoryStore struct {
	roles        map[int64]Role
	perms        map[int64]Permission
	rolePerms    map[int64][]int64
	actorRoles   []ActorRole
	actorPerms   []ActorPermission
	deptDefaults map[string]string
	nextID       int64
	readErr      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		roles:        make(map[int64]Role),
		perms:        make(map[int64]Permission),
		rolePerms:    make(map[int64][]int64),
		deptDefaults: make(map[string]string),
	}
}

func (s *memoryStore) addRole(id int64, code string) Role {
	role := Role{ID: id, Code: code, Name: code}
	s.roles[id] = role
	return role
}

func (s *memoryStore) addPermission(id int64, action, subject string) Permission {
	p := Permission{ID: id, Action: action, Subject: subject}
	s.perms[id] = p
	return p
}

func (s *memoryStore) link(roleID, permID int64) {
	s.rolePerms[roleID] = append(s.rolePerms[roleID], permID)
}

func (s *memoryStore) grantRole(actor ActorRef, roleID int64, scope string) {
	s.nextID++
	s.actorRoles = append(s.actorRoles, ActorRole{
		ID: s.nextID, ActorID: actor.ID, ActorKind: actor.Kind,
		RoleID: roleID, Scope: scope, GrantedAt: time.Now(),
	})
}

func (s *memoryStore) grantPerm(actor ActorRef, permID int64, scope string) {
	s.nextID++
	s.actorPerms = append(s.actorPerms, ActorPermission{
		ID: s.nextID, ActorID: actor.ID, ActorKind: actor.Kind,
		PermissionID: permID, Scope: scope, GrantedAt: time.Now(),
	})
}

func sameActor(a ActorRef, id string, kind ActorKind) bool {
	return a.ID == id && a.Kind == kind
}

func (s *memoryStore) HasDirectPermission(_ context.Context, actor ActorRef, action, subject, scope string) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	for _, g := range s.actorPerms {
		if !g.Active() || !sameActor(actor, g.ActorID, g.ActorKind) || g.Scope != scope {
			continue
		}
		p := s.perms[g.PermissionID]
		if p.Action == action && p.Subject == subject {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) HasRolePermission(_ context.Context, actor ActorRef, action, subject, scope string) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	for _, g := range s.actorRoles {
		if !g.Active() || !sameActor(actor, g.ActorID, g.ActorKind) || g.Scope != scope {
			continue
		}
		for _, permID := range s.rolePerms[g.RoleID] {
			p := s.perms[permID]
			if p.Action == action && p.Subject == subject {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memoryStore) HasActiveRole(_ context.Context, actor ActorRef, roleCode, scope string) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	for _, g := range s.actorRoles {
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) && g.Scope == scope && s.roles[g.RoleID].Code == roleCode {
			return true, nil
		}
	}
	return false, nil
}

func (s *memoryStore) ListPermissions(_ context.Context, actor ActorRef) ([]Permission, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []Permission
	for _, g := range s.actorPerms {
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) {
			out = append(out, s.perms[g.PermissionID])
		}
	}
	for _, g := range s.actorRoles {
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) {
			for _, permID := range s.rolePerms[g.RoleID] {
				out = append(out, s.perms[permID])
			}
		}
	}
	return out, nil
}

func (s *memoryStore) ListRoleCodes(_ context.Context, actor ActorRef) ([]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	seen := make(map[string]struct{})
	var codes []string
	for _, g := range s.actorRoles {
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) {
			code := s.roles[g.RoleID].Code
			if _, ok := seen[code]; !ok {
				seen[code] = struct{}{}
				codes = append(codes, code)
			}
		}
	}
	return codes, nil
}

func (s *memoryStore) GetRole(_ context.Context, id int64) (Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (s *memoryStore) GetRoleByCode(_ context.Context, code string) (Role, error) {
	for _, role := range s.roles {
		if role.Code == code {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

func (s *memoryStore) GetPermission(_ context.Context, id int64) (Permission, error) {
	p, ok := s.perms[id]
	if !ok {
		return Permission{}, ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) EnsurePermission(_ context.Context, action, subject string) (Permission, error) {
	for _, p := range s.perms {
		if p.Action == action && p.Subject == subject {
			return p, nil
		}
	}
	s.nextID++
	p := Permission{ID: s.nextID, Action: action, Subject: subject}
	s.perms[p.ID] = p
	return p, nil
}

func (s *memoryStore) AttachPermissionToRole(_ context.Context, roleID, permissionID int64) error {
	for _, existing := range s.rolePerms[roleID] {
		if existing == permissionID {
			return nil
		}
	}
	s.rolePerms[roleID] = append(s.rolePerms[roleID], permissionID)
	return nil
}

func (s *memoryStore) DetachPermissionFromRole(_ context.Context, roleID, permissionID int64) error {
	kept := s.rolePerms[roleID][:0]
	for _, existing := range s.rolePerms[roleID] {
		if existing != permissionID {
			kept = append(kept, existing)
		}
	}
	s.rolePerms[roleID] = kept
	return nil
}

func (s *memoryStore) ListRolePermissions(_ context.Context, roleID int64) ([]Permission, error) {
	var out []Permission
	for _, permID := range s.rolePerms[roleID] {
		out = append(out, s.perms[permID])
	}
	return out, nil
}

func (s *memoryStore) FindActiveActorRole(_ context.Context, actor ActorRef, roleID int64, scope string) (ActorRole, error) {
	for _, g := range s.actorRoles {
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) && g.RoleID == roleID && g.Scope == scope {
			return g, nil
		}
	}
	return ActorRole{}, ErrNotFound
}

func (s *memoryStore) InsertActorRole(_ context.Context, grant ActorRole) (ActorRole, error) {
	s.nextID++
	grant.ID = s.nextID
	grant.GrantedAt = time.Now()
	s.actorRoles = append(s.actorRoles, grant)
	return grant, nil
}

func (s *memoryStore) RevokeActorRoles(_ context.Context, actor ActorRef, roleID int64, scope, revokedBy string) (int64, error) {
	var count int64
	now := time.Now()
	for i := range s.actorRoles {
		g := &s.actorRoles[i]
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) && g.RoleID == roleID && g.Scope == scope {
			g.RevokedAt = &now
			g.RevokedBy = revokedBy
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) FindActiveActorPermission(_ context.Context, actor ActorRef, permissionID int64, scope string) (ActorPermission, error) {
	for _, g := range s.actorPerms {
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) && g.PermissionID == permissionID && g.Scope == scope {
			return g, nil
		}
	}
	return ActorPermission{}, ErrNotFound
}

func (s *memoryStore) InsertActorPermission(_ context.Context, grant ActorPermission) (ActorPermission, error) {
	s.nextID++
	grant.ID = s.nextID
	grant.GrantedAt = time.Now()
	s.actorPerms = append(s.actorPerms, grant)
	return grant, nil
}

func (s *memoryStore) RevokeActorPermissions(_ context.Context, actor ActorRef, permissionID int64, scope, revokedBy string) (int64, error) {
	var count int64
	now := time.Now()
	for i := range s.actorPerms {
		g := &s.actorPerms[i]
		if g.Active() && sameActor(actor, g.ActorID, g.ActorKind) && g.PermissionID == permissionID && g.Scope == scope {
			g.RevokedAt = &now
			g.RevokedBy = revokedBy
			count++
		}
	}
	return count, nil
}

func (s *memoryStore) DepartmentDefaultRole(_ context.Context, departmentCode string) (string, error) {
	if s.readErr != nil {
		return "", s.readErr
	}
	return s.deptDefaults[departmentCode], nil
}

var errStoreDown = errors.New("store unavailable")
