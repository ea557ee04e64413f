package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
)

// RequireAdmin middleware ensures the session belongs to an admin. Requests
// without a session get 401, non-admin sessions get 403.
func RequireAdmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return RequireRole([]string{auth.RoleAdmin}, logger)
}

// RequireRole middleware ensures the session carries one of the specified roles
func RequireRole(allowedRoles []string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				logger.Warn("Unauthenticated request to protected endpoint", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "sign in required")
				return
			}

			allowed := false
			for _, role := range allowedRoles {
				if claims.Role == role {
					allowed = true
					break
				}
			}

			if !allowed {
				logger.Warn("User role not authorized",
					zap.String("uid", claims.UID),
					zap.String("role", claims.Role),
					zap.Strings("allowed_roles", allowedRoles),
				)
				RespondWithError(w, http.StatusForbidden, "insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
