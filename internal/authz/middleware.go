package authz

import (
	"net/http"
	"strings"

	"log/slog"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

// ScopeHeader carries the department scope a request operates under.
const ScopeHeader = "X-Department"

// DecisionMetrics counts gate outcomes. The observability package implements
// it.
type DecisionMetrics interface {
	CountDecision(outcome string)
}

// Middleware wires authorization helpers for HTTP handlers. The gating layer
// only translates decisions into responses; the core returns booleans. Every
// gate response is counted through Metrics when one is configured.
type Middleware struct {
	Resolver *Resolver
	Cache    *Cache
	Policy   *Policy
	Logger   *slog.Logger
	Metrics  DecisionMetrics
}

// RequireAny allows the request when the actor holds at least one of the
// permissions. Anonymous requests and resolver failures are denied.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := m.currentActor(r)
			if !ok {
				m.deny(w)
				return
			}
			granted := m.permissions(r, actor)
			if hasAnyPermission(granted, required) {
				m.allow(next, w, r)
				return
			}
			m.deny(w)
		})
	}
}

// RequireAll allows the request only when the actor holds every permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	required := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			actor, ok := m.currentActor(r)
			if !ok {
				m.deny(w)
				return
			}
			granted := m.permissions(r, actor)
			if hasAllPermissions(granted, required) {
				m.allow(next, w, r)
				return
			}
			m.deny(w)
		})
	}
}

// RequireCheck gates on a single (action, subject) decision at the request's
// department scope.
func (m Middleware) RequireCheck(action, subject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := m.currentActor(r)
			if !ok {
				m.deny(w)
				return
			}
			if m.Resolver.Check(r.Context(), actor, action, subject, RequestScope(r)) {
				m.allow(next, w, r)
				return
			}
			m.deny(w)
		})
	}
}

// PageGate evaluates the page access policy for every request. Paths without
// a rule fall back to requiring an authenticated session.
func (m Middleware) PageGate() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule := m.Policy.Match(r.URL.Path)
			actor, authenticated := m.currentActor(r)
			if !authenticated {
				m.deny(w)
				return
			}
			if rule == nil {
				m.allow(next, w, r)
				return
			}
			roles := m.Resolver.RoleCodes(r.Context(), actor)
			perms := m.permissions(r, actor)
			if m.Policy.Decide(rule, roles, perms, actor.Kind) {
				m.allow(next, w, r)
				return
			}
			if m.Logger != nil {
				m.Logger.Info("page access denied",
					slog.String("actor", actor.ID),
					slog.String("path", r.URL.Path),
				)
			}
			m.deny(w)
		})
	}
}

func (m Middleware) permissions(r *http.Request, actor ActorRef) []string {
	if m.Cache != nil {
		return m.Cache.Permissions(r.Context(), actor, RequestScope(r))
	}
	perms, _ := m.Resolver.AllPermissions(r.Context(), actor)
	return perms
}

func (m Middleware) allow(next http.Handler, w http.ResponseWriter, r *http.Request) {
	if m.Metrics != nil {
		m.Metrics.CountDecision("allow")
	}
	next.ServeHTTP(w, r)
}

func (m Middleware) deny(w http.ResponseWriter) {
	if m.Metrics != nil {
		m.Metrics.CountDecision("deny")
	}
	forbidden(w)
}

func (m Middleware) currentActor(r *http.Request) (ActorRef, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return ActorRef{}, false
	}
	id := strings.TrimSpace(sess.User())
	if id == "" {
		return ActorRef{}, false
	}
	kind := ActorKind(sess.ActorKind())
	switch kind {
	case ActorKindAdmin, ActorKindEmployee, ActorKindOther:
	default:
		kind = ActorKindOther
	}
	return ActorRef{ID: id, Kind: kind}, true
}

// RequestScope extracts the department scope from the request, header first,
// "dept" query parameter as fallback. Empty means global.
func RequestScope(r *http.Request) string {
	if scope := strings.TrimSpace(r.Header.Get(ScopeHeader)); scope != "" {
		return scope
	}
	return strings.TrimSpace(r.URL.Query().Get("dept"))
}

func forbidden(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[p] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
