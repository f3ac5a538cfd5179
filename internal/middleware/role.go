package myMiddleware

import (
	"context"
	"net/http"

	"smartsender/internal/api"
	"smartsender/internal/apperr"
)

// AdminChecker reports whether a staff member holds the admin role.
type AdminChecker interface {
	IsAdmin(ctx context.Context, staffID string) bool
}

// RequireAdmin must run after AuthMiddleware.Handle.
func RequireAdmin(c AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			staffID, ok := StaffID(r.Context())
			if !ok {
				api.Fail(w, apperr.Unauthorized("Not authenticated"))
				return
			}
			if !c.IsAdmin(r.Context(), staffID) {
				api.Fail(w, apperr.Forbidden("Admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
