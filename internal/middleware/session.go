package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
)

type contextKey string

const ClaimsKey contextKey = "session_claims"

// SessionMiddleware verifies the session cookie when one is sent and stores
// its claims in the request context. Requests without a valid session pass
// through anonymously.
func SessionMiddleware(sessions auth.SessionManager, cookieName string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := sessions.VerifySession(r.Context(), cookie.Value)
			if err != nil {
				logger.Debug("Session verification failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("Session verified",
				zap.String("uid", claims.UID),
				zap.String("role", claims.Role),
			)

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that carry no verified session
func RequireSession(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetClaims(r.Context()); !ok {
				logger.Debug("Missing session", zap.String("path", r.URL.Path))
				RespondWithError(w, http.StatusUnauthorized, "sign in required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims extracts the verified session claims from request context
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUserID extracts the signed-in user's id from request context
func GetUserID(ctx context.Context) (string, bool) {
	claims, ok := GetClaims(ctx)
	if !ok {
		return "", false
	}
	return claims.UID, true
}
