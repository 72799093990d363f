package authz

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// DefaultCheckTimeout bounds a single permission check against the store.
const DefaultCheckTimeout = 3 * time.Second

// Resolver answers "can this actor perform this action" from the permission
// store. It holds no mutable state; concurrent checks run fully in parallel.
//
// Every read path fails closed: a store error or timeout resolves to deny
// (or an empty set) and is logged, never returned to the caller.
type Resolver struct {
	store   ResolverStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewResolver constructs a Resolver. A zero timeout falls back to
// DefaultCheckTimeout.
func NewResolver(store ResolverStore, logger *slog.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Resolver{store: store, logger: logger, timeout: timeout}
}

// Check decides whether the actor may perform (action, subject) at the given
// scope. An empty scope requests the global scope. Precedence, first match
// wins:
//
//  1. direct grant at the requested scope
//  2. direct global grant, when a department scope was requested
//  3. role-derived grant at the requested scope
//  4. role-derived global grant, when a department scope was requested
//
// Before those, an actor holding the literal ("*", "*") permission at a
// satisfying scope is granted unconditionally. The subject is matched as an
// exact literal; "*" carries no wildcard meaning outside the full-access
// pair.
func (r *Resolver) Check(ctx context.Context, actor ActorRef, action, subject, scope string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if action != WildcardAction || subject != WildcardSubject {
		ok, err := r.satisfied(ctx, actor, WildcardAction, WildcardSubject, scope)
		if err != nil {
			r.denyOnError(actor, action, subject, scope, err)
			return false
		}
		if ok {
			return true
		}
	}

	ok, err := r.satisfied(ctx, actor, action, subject, scope)
	if err != nil {
		r.denyOnError(actor, action, subject, scope, err)
		return false
	}
	return ok
}

func (r *Resolver) satisfied(ctx context.Context, actor ActorRef, action, subject, scope string) (bool, error) {
	if ok, err := r.store.HasDirectPermission(ctx, actor, action, subject, scope); err != nil || ok {
		return ok, err
	}
	if scope != ScopeGlobal {
		if ok, err := r.store.HasDirectPermission(ctx, actor, action, subject, ScopeGlobal); err != nil || ok {
			return ok, err
		}
	}
	if ok, err := r.store.HasRolePermission(ctx, actor, action, subject, scope); err != nil || ok {
		return ok, err
	}
	if scope != ScopeGlobal {
		return r.store.HasRolePermission(ctx, actor, action, subject, ScopeGlobal)
	}
	return false, nil
}

// AllPermissions aggregates every direct and role-derived permission the
// actor holds at any scope into a deduplicated, sorted "action:subject" set.
// A store error yields an empty set alongside the error so callers can tell
// "no permissions" apart from "could not compute the set".
func (r *Resolver) AllPermissions(ctx context.Context, actor ActorRef) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	perms, err := r.store.ListPermissions(ctx, actor)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("authz list permissions", slog.String("actor", actor.ID), slog.Any("error", err))
		}
		return nil, err
	}
	seen := make(map[string]struct{}, len(perms))
	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		key := p.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// HasRole reports whether the actor holds an active role grant matching code
// and scope exactly. It does not expand through permissions.
func (r *Resolver) HasRole(ctx context.Context, actor ActorRef, roleCode, scope string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.store.HasActiveRole(ctx, actor, roleCode, scope)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("authz has role", slog.String("actor", actor.ID), slog.String("role", roleCode), slog.Any("error", err))
		}
		return false
	}
	return ok
}

// RoleCodes returns the actor's active role codes at any scope. Store errors
// yield an empty set.
func (r *Resolver) RoleCodes(ctx context.Context, actor ActorRef) []string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	codes, err := r.store.ListRoleCodes(ctx, actor)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("authz list roles", slog.String("actor", actor.ID), slog.Any("error", err))
		}
		return nil
	}
	return codes
}

func (r *Resolver) denyOnError(actor ActorRef, action, subject, scope string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Error("authz check failed, denying",
		slog.String("actor", actor.ID),
		slog.String("action", action),
		slog.String("subject", subject),
		slog.String("scope", scope),
		slog.Any("error", err),
	)
}
