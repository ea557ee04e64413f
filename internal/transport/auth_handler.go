package transport

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
)

type createSessionRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// AuthHandler exchanges identity-provider ID tokens for session cookies
type AuthHandler struct {
	sessions auth.SessionManager
	cookies  CookieConfig
	logger   *zap.Logger
}

func NewAuthHandler(sessions auth.SessionManager, cookies CookieConfig, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookies: cookies, logger: logger}
}

// RegisterRoutes registers the session routes. Signing in is rate limited.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.With(limit).Post("/session", h.CreateSession)
		r.Delete("/session", h.DeleteSession)
		r.With(middleware.RequireSession(h.logger)).Get("/me", h.Me)
	})
}

func (h *AuthHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookies.SessionName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CreateSession verifies the ID token and sets the session cookie
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), req.IDToken, h.cookies.SessionMaxAge)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			h.logger.Debug("Rejected ID token", zap.Error(err))
			middleware.RespondWithError(w, http.StatusUnauthorized, "invalid id token")
			return
		}
		h.logger.Error("Failed to create session", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	claims, err := h.sessions.VerifySession(r.Context(), session)
	if err != nil {
		h.logger.Error("Freshly minted session did not verify", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}

	http.SetCookie(w, h.sessionCookie(session, int(h.cookies.SessionMaxAge.Seconds())))
	h.logger.Info("Session created", zap.String("uid", claims.UID))
	middleware.RespondWithJSON(w, http.StatusOK, claims)
}

// DeleteSession clears the cookie and revokes the user's sessions when signed in
func (h *AuthHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if uid, ok := middleware.GetUserID(r.Context()); ok {
		if err := h.sessions.RevokeSessions(r.Context(), uid); err != nil {
			h.logger.Warn("Failed to revoke sessions", zap.String("uid", uid), zap.Error(err))
		}
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())
	middleware.RespondWithJSON(w, http.StatusOK, claims)
}
