package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics()
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTeapot, rec.Code)

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metricsRec := httptest.NewRecorder()
	m.Handler().ServeHTTP(metricsRec, metricsReq)
	body := metricsRec.Body.String()
	require.Contains(t, body, "hotelmgr_http_requests_total")
	require.Contains(t, body, `code="418"`)
}

func TestDecisionAndCacheCounters(t *testing.T) {
	m := NewMetrics()
	m.CountDecision("allow")
	m.CountDecision("deny")
	m.CountDecision("deny")
	m.CountCacheOp("hit")
	m.CountCacheOp("miss")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.Contains(t, body, `hotelmgr_authz_decisions_total{outcome="deny"} 2`)
	require.Contains(t, body, `hotelmgr_permission_cache_ops_total{result="hit"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CountDecision("allow")
	m.CountCacheOp("hit")

	passthrough := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	passthrough.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, strings.Contains(rec.Body.String(), "ok"))

	unavailable := httptest.NewRecorder()
	m.Handler().ServeHTTP(unavailable, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, unavailable.Code)
}
