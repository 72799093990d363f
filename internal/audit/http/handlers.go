package audithttp

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/audit"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/httpx"
)

// Handler serves the audit trail endpoints.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type entryView struct {
	ID           int64          `json:"id"`
	Action       string         `json:"action"`
	ActorID      string         `json:"actor_id"`
	ActorKind    string         `json:"actor_kind"`
	RoleID       *int64         `json:"role_id,omitempty"`
	PermissionID *int64         `json:"permission_id,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	ActingUser   string         `json:"acting_user"`
	Meta         map[string]any `json:"meta,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

type pagingView struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	rows := make([]entryView, 0, len(result.Rows))
	for _, entry := range result.Rows {
		rows = append(rows, toView(entry))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"rows": rows,
		"paging": pagingView{
			Page:     result.Paging.Page,
			PageSize: result.Paging.PageSize,
			HasNext:  result.Paging.HasNext,
			PrevPage: result.Paging.PrevPage,
			NextPage: result.Paging.NextPage,
		},
	})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters := parseFilters(r)
	entries, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-trail.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"occurred_at", "action", "actor_id", "actor_kind", "scope", "acting_user"})
	for _, entry := range entries {
		_ = writer.Write([]string{
			entry.OccurredAt.UTC().Format(time.RFC3339),
			string(entry.Action),
			entry.ActorID,
			entry.ActorKind,
			entry.Scope,
			entry.ActingUser,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.logger.Error("audit export write", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) audit.Filters {
	q := r.URL.Query()
	filters := audit.Filters{
		ActorID: strings.TrimSpace(q.Get("actor")),
		Action:  strings.TrimSpace(q.Get("action")),
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.From = t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.To = t
		}
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filters.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil {
		filters.PageSize = size
	}
	return filters
}

func toView(entry audit.Entry) entryView {
	return entryView{
		ID:           entry.ID,
		Action:       string(entry.Action),
		ActorID:      entry.ActorID,
		ActorKind:    entry.ActorKind,
		RoleID:       entry.RoleID,
		PermissionID: entry.PermissionID,
		Scope:        entry.Scope,
		ActingUser:   entry.ActingUser,
		Meta:         entry.Meta,
		OccurredAt:   entry.OccurredAt,
	}
}
