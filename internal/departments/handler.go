package departments

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/httpx"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

// Handler manages department endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listDepartments)
	r.Put("/{code}", h.upsertDepartment)
	r.Get("/{code}", h.getDepartment)
	r.Put("/{code}/default-role", h.setDefaultRole)
}

type departmentView struct {
	ID          int64          `json:"id"`
	Code        string         `json:"code"`
	Name        string         `json:"name"`
	DefaultRole string         `json:"default_role,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type upsertDepartmentRequest struct {
	Name string         `json:"name" validate:"required,min=2,max=128"`
	Meta map[string]any `json:"meta"`
}

type defaultRoleRequest struct {
	RoleCode string `json:"role_code" validate:"required,min=2,max=64"`
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListDepartments(r.Context())
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]departmentView, 0, len(list))
	for _, dept := range list {
		views = append(views, toDepartmentView(dept))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": views})
}

func (h *Handler) getDepartment(w http.ResponseWriter, r *http.Request) {
	dept, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, "get department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentView(dept))
}

func (h *Handler) upsertDepartment(w http.ResponseWriter, r *http.Request) {
	var req upsertDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	dept, err := h.service.Upsert(r.Context(), chi.URLParam(r, "code"), req.Name, req.Meta)
	if err != nil {
		h.respondError(w, "upsert department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentView(dept))
}

func (h *Handler) setDefaultRole(w http.ResponseWriter, r *http.Request) {
	var req defaultRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON payload")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	code := chi.URLParam(r, "code")
	if err := h.service.SetDefaultRole(r.Context(), code, req.RoleCode); err != nil {
		h.respondError(w, "set default role", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"code": code, "default_role": req.RoleCode})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "department not found")
		return
	}
	h.logger.Error(op, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func toDepartmentView(dept Department) departmentView {
	return departmentView{
		ID:          dept.ID,
		Code:        dept.Code,
		Name:        dept.Name,
		DefaultRole: dept.DefaultRole(),
		Meta:        dept.Meta,
		CreatedAt:   dept.CreatedAt,
		UpdatedAt:   dept.UpdatedAt,
	}
}
