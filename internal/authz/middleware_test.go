package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

type decisionStub struct {
	allows, denies int
}

func (m *decisionStub) CountDecision(outcome string) {
	switch outcome {
	case "allow":
		m.allows++
	case "deny":
		m.denies++
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func requestWithActor(path, id, kind string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	sess := &shared.Session{}
	sess.SetActor(id, kind)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestRequireCheckCountsDecisions(t *testing.T) {
	store := newMemoryStore()
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	perm := store.addPermission(1, "roles.manage", "")
	store.grantPerm(actor, perm.ID, ScopeGlobal)

	meter := &decisionStub{}
	mw := Middleware{Resolver: newTestResolver(store), Metrics: meter}
	handler := mw.RequireCheck("roles.manage", "")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor("/roles", "u1", "employee"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor("/roles", "u2", "employee"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, 1, meter.allows)
	require.Equal(t, 1, meter.denies)
}

func TestRequireCheckCountsAnonymousAsDeny(t *testing.T) {
	meter := &decisionStub{}
	mw := Middleware{Resolver: newTestResolver(newMemoryStore()), Metrics: meter}
	handler := mw.RequireCheck("roles.manage", "")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 1, meter.denies)
}

func TestPageGateCountsDecisions(t *testing.T) {
	store := newMemoryStore()
	meter := &decisionStub{}
	mw := Middleware{
		Resolver: newTestResolver(store),
		Policy:   NewPolicy(DefaultPageRules()),
		Metrics:  meter,
	}
	handler := mw.PageGate()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor("/dashboard/admin/settings", "a1", "admin"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor("/dashboard/admin/settings", "u1", "employee"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	require.Equal(t, 1, meter.allows)
	require.Equal(t, 1, meter.denies)
}

func TestMiddlewareWithoutMetricsStillGates(t *testing.T) {
	store := newMemoryStore()
	mw := Middleware{Resolver: newTestResolver(store)}
	handler := mw.RequireCheck("roles.manage", "")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithActor("/roles", "u1", "employee"))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
