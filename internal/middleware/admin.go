package middleware

import (
	"context"
	"net/http"

	"tabletennis/internal/models"
)

type RoleStore interface {
	Role(ctx context.Context, userID string) (string, error)
}

// RequireAdmin re-reads the caller's role from the store so a demoted admin
// loses access before their token expires. A non-empty role restricts the
// route to that admin role; super admins always pass.
func RequireAdmin(users RoleStore, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			current, err := users.Role(r.Context(), userID)
			if err != nil {
				http.Error(w, "unable to verify admin", http.StatusInternalServerError)
				return
			}
			if !models.IsAdminRole(current) {
				http.Error(w, "admin privileges required", http.StatusForbidden)
				return
			}
			if current != models.RoleSuperAdmin && role != "" && current != role {
				http.Error(w, "missing required role", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID, current)))
		})
	}
}
