package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/httpx"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

// Handler exposes the grant/revoke administration API.
type Handler struct {
	logger    *slog.Logger
	admin     *Admin
	cache     *Cache
	resolver  *Resolver
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, admin *Admin, cache *Cache, resolver *Resolver) *Handler {
	return &Handler{
		logger:    logger,
		admin:     admin,
		cache:     cache,
		resolver:  resolver,
		validator: validator.New(),
	}
}

// MountRoutes registers administration routes. Callers wrap the group in the
// permission middleware; the handler itself only translates requests.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/grants/roles", h.grantRole)
	r.Post("/grants/roles/revoke", h.revokeRole)
	r.Post("/grants/permissions", h.grantPermission)
	r.Post("/grants/permissions/revoke", h.revokePermission)
	r.Put("/roles/{roleID}/permissions", h.setRolePermissions)
	r.Get("/actors/{actorID}/permissions", h.actorPermissions)
	r.Get("/check", h.check)
	r.Get("/departments/{code}/default-role", h.departmentDefaultRole)
}

type roleGrantRequest struct {
	ActorID   string `json:"actor_id" validate:"required"`
	ActorKind string `json:"actor_kind" validate:"required,oneof=admin employee other"`
	RoleID    int64  `json:"role_id" validate:"required,gt=0"`
	Scope     string `json:"scope"`
}

type permissionGrantRequest struct {
	ActorID      string `json:"actor_id" validate:"required"`
	ActorKind    string `json:"actor_kind" validate:"required,oneof=admin employee other"`
	PermissionID int64  `json:"permission_id" validate:"required,gt=0"`
	Scope        string `json:"scope"`
}

type rolePermissionsRequest struct {
	Permissions []permissionPair `json:"permissions" validate:"required,dive"`
}

type permissionPair struct {
	Action  string `json:"action" validate:"required"`
	Subject string `json:"subject"`
}

type grantResponse struct {
	ID        int64  `json:"id"`
	ActorID   string `json:"actor_id"`
	ActorKind string `json:"actor_kind"`
	Scope     string `json:"scope,omitempty"`
	GrantedBy string `json:"granted_by"`
}

type revokeResponse struct {
	Revoked int64 `json:"revoked"`
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	var req roleGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	target := ActorRef{ID: req.ActorID, Kind: ActorKind(req.ActorKind)}
	grant, err := h.admin.GrantRole(r.Context(), target, req.RoleID, h.actingUser(r), req.Scope)
	if err != nil {
		h.respondError(w, "grant role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grantResponse{
		ID:        grant.ID,
		ActorID:   grant.ActorID,
		ActorKind: string(grant.ActorKind),
		Scope:     grant.Scope,
		GrantedBy: grant.GrantedBy,
	})
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	var req roleGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	target := ActorRef{ID: req.ActorID, Kind: ActorKind(req.ActorKind)}
	count, err := h.admin.RevokeRole(r.Context(), target, req.RoleID, h.actingUser(r), req.Scope)
	if err != nil {
		h.respondError(w, "revoke role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revokeResponse{Revoked: count})
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	var req permissionGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	target := ActorRef{ID: req.ActorID, Kind: ActorKind(req.ActorKind)}
	grant, err := h.admin.GrantPermission(r.Context(), target, req.PermissionID, h.actingUser(r), req.Scope)
	if err != nil {
		h.respondError(w, "grant permission", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grantResponse{
		ID:        grant.ID,
		ActorID:   grant.ActorID,
		ActorKind: string(grant.ActorKind),
		Scope:     grant.Scope,
		GrantedBy: grant.GrantedBy,
	})
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	var req permissionGrantRequest
	if !h.decode(w, r, &req) {
		return
	}
	target := ActorRef{ID: req.ActorID, Kind: ActorKind(req.ActorKind)}
	count, err := h.admin.RevokePermission(r.Context(), target, req.PermissionID, h.actingUser(r), req.Scope)
	if err != nil {
		h.respondError(w, "revoke permission", err)
		return
	}
	httpx.JSON(w, http.StatusOK, revokeResponse{Revoked: count})
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil || roleID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req rolePermissionsRequest
	if !h.decode(w, r, &req) {
		return
	}
	pairs := make([]Permission, 0, len(req.Permissions))
	for _, p := range req.Permissions {
		pairs = append(pairs, Permission{Action: p.Action, Subject: p.Subject})
	}
	if err := h.admin.SetRolePermissions(r.Context(), roleID, pairs, h.actingUser(r)); err != nil {
		h.respondError(w, "set role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role_id": roleID, "permissions": len(pairs)})
}

func (h *Handler) actorPermissions(w http.ResponseWriter, r *http.Request) {
	actorID := strings.TrimSpace(chi.URLParam(r, "actorID"))
	kind := ActorKind(r.URL.Query().Get("kind"))
	if kind == "" {
		kind = ActorKindEmployee
	}
	actor := ActorRef{ID: actorID, Kind: kind}
	perms := h.cache.Permissions(r.Context(), actor, RequestScope(r))
	if perms == nil {
		perms = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actor_id": actorID, "permissions": perms})
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	actorID := strings.TrimSpace(q.Get("actor_id"))
	action := strings.TrimSpace(q.Get("action"))
	if actorID == "" || action == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "actor_id and action are required")
		return
	}
	kind := ActorKind(q.Get("kind"))
	if kind == "" {
		kind = ActorKindEmployee
	}
	actor := ActorRef{ID: actorID, Kind: kind}
	scope := RequestScope(r)
	allowed := h.resolver.Check(r.Context(), actor, action, q.Get("subject"), scope)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"actor_id": actorID,
		"action":   action,
		"subject":  q.Get("subject"),
		"scope":    scope,
		"allowed":  allowed,
	})
}

func (h *Handler) departmentDefaultRole(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	role := h.admin.DefaultRoleForDepartment(r.Context(), code)
	httpx.JSON(w, http.StatusOK, map[string]string{"department": code, "default_role": role})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) actingUser(r *http.Request) string {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		return sess.User()
	}
	return ""
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	if h.logger != nil {
		h.logger.Error("authz admin "+op, slog.Any("error", err))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
