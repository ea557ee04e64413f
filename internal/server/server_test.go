package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/auth"
	"github.com/khanofemperia/gethsemane-sub001/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: "0", Env: "test", AllowedOrigins: []string{"https://shop.example.com"}},
		Redis:     config.RedisConfig{PageTTL: time.Minute},
		Session:   config.SessionConfig{CookieName: "cherlygood_session", ExpiryDays: 14},
		Cart:      config.CartConfig{CookieName: "device_identifier", CookieMaxAge: 30},
		PayPal:    config.PayPalConfig{Currency: "USD"},
		RateLimit: config.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute},
	}
}

func newTestServer(t *testing.T, d Deps) *Server {
	t.Helper()
	sessions, err := auth.NewJWTSessions("server-test")
	require.NoError(t, err)

	d.Config = testConfig()
	d.Logger = zap.NewNop()
	d.Sessions = sessions
	return NewServer(d)
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, Deps{})
	w := serve(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"up"}`, w.Body.String())

	s = newTestServer(t, Deps{Health: func() map[string]string {
		return map[string]string{"status": "down", "error": "db down"}
	}})
	assert.Equal(t, http.StatusServiceUnavailable, serve(s, http.MethodGet, "/health").Code)
}

func TestAdminRoutesRequireSession(t *testing.T) {
	s := newTestServer(t, Deps{Tracing: true})

	w := serve(s, http.MethodGet, "/api/admin/orders")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "sign in required", body["error"]["message"])
}

func TestRateLimitAppliesToCartActionsOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s := newTestServer(t, Deps{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})})

	// Without a device cookie the removal fails before touching the store
	assert.Equal(t, http.StatusNotFound, serve(s, http.MethodDelete, "/api/cart/items/v1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(s, http.MethodDelete, "/api/cart/items/v1").Code)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/health").Code)
	}
}
