package audithttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/httpx"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/shared"
)

// MountRoutes registers the audit trail endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/audit", h.handleTimeline)
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			10,
			time.Minute,
			httprate.WithKeyFuncs(rateLimitKey),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded, retry later")
			}),
		))
		r.Get("/audit/export.csv", h.handleExport)
	})
}

// rateLimitKey buckets export traffic per signed-in user, falling back to
// client IP for anonymous requests.
func rateLimitKey(r *http.Request) (string, error) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
		return "user:" + sess.User(), nil
	}
	return httprate.KeyByIP(r)
}
