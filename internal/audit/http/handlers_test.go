package audithttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit"
)

type repoStub struct {
	entries     []audit.Entry
	lastFilters audit.Filters
	lastOffset  int
	lastLimit   int
}

func (r *repoStub) Window(_ context.Context, filters audit.Filters, offset, limit int) ([]audit.Entry, error) {
	r.lastFilters = filters
	r.lastOffset = offset
	r.lastLimit = limit
	if offset >= len(r.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.entries) {
		end = len(r.entries)
	}
	return r.entries[offset:end], nil
}

func (r *repoStub) All(_ context.Context, filters audit.Filters) ([]audit.Entry, error) {
	r.lastFilters = filters
	return r.entries, nil
}

func newTestHandler(repo audit.Repository) *Handler {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewHandler(logger, audit.NewService(repo))
}

func sampleEntries(n int) []audit.Entry {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := make([]audit.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, audit.Entry{
			ID:         int64(i + 1),
			Action:     audit.ActionRoleGranted,
			ActorID:    "emp-7",
			ActorKind:  "employee",
			ActingUser: "admin-1",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return entries
}

func TestTimelineReturnsPageWithPaging(t *testing.T) {
	repo := &repoStub{entries: sampleEntries(25)}
	h := newTestHandler(repo)

	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/audit?page=1&page_size=20", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Rows   []entryView `json:"rows"`
		Paging pagingView  `json:"paging"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Rows, 20)
	require.True(t, body.Paging.HasNext)
	require.Equal(t, 2, body.Paging.NextPage)
	require.Equal(t, int64(1), body.Rows[0].ID)
	// repo is asked for one extra row to detect the next page
	require.Equal(t, 21, repo.lastLimit)
}

func TestTimelinePassesFiltersThrough(t *testing.T) {
	repo := &repoStub{}
	h := newTestHandler(repo)

	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet,
		"/audit?actor=emp-7&action=role_revoked&from=2025-03-01T00:00:00Z&to=2025-03-02T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "emp-7", repo.lastFilters.ActorID)
	require.Equal(t, "role_revoked", repo.lastFilters.Action)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), repo.lastFilters.From)
	require.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), repo.lastFilters.To)
}

func TestExportWritesCSV(t *testing.T) {
	repo := &repoStub{entries: sampleEntries(3)}
	h := newTestHandler(repo)

	r := chi.NewRouter()
	h.MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "occurred_at,action,actor_id,actor_kind,scope,acting_user", lines[0])
	require.Contains(t, lines[1], "role_granted")
	require.Contains(t, lines[1], "emp-7")
}

func TestExportRateLimited(t *testing.T) {
	repo := &repoStub{entries: sampleEntries(1)}
	h := newTestHandler(repo)

	r := chi.NewRouter()
	h.MountRoutes(r)

	var last int
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest(http.MethodGet, "/audit/export.csv", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		last = rec.Code
	}
	require.Equal(t, http.StatusTooManyRequests, last)
}
