package admin

import (
	"log/slog"
	"net/http"

	"gatherhall/pkg/platform/middleware/auth"
	request "gatherhall/pkg/platform/middleware/request"
)

// AdminRole is the role claim value that grants access to admin routes.
const AdminRole = "Administrator"

// RequireAdminRole gates admin routes on the role claim resolved by the
// auth middleware. This is the HTTP edge gate only; the workflow service
// re-checks authorization before mutating anything.
func RequireAdminRole(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if auth.GetRole(ctx) != AdminRole {
				logger.WarnContext(ctx, "admin route denied",
					"request_id", request.GetRequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"administrator role required"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
