package auth

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) *JWTSessions {
	t.Helper()
	s, err := NewJWTSessions("test-secret")
	require.NoError(t, err)
	return s
}

func TestJWTSessions_ExchangeAndVerify(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	idToken, err := s.IssueIDToken("uid-1", "admin@example.com", RoleAdmin, time.Minute)
	require.NoError(t, err)

	session, err := s.CreateSession(ctx, idToken, 14*24*time.Hour)
	require.NoError(t, err)

	claims, err := s.VerifySession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.True(t, claims.IsAdmin())
	assert.WithinDuration(t, time.Now().Add(14*24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestJWTSessions_IDTokenIsNotASession(t *testing.T) {
	s := newTestSessions(t)

	idToken, err := s.IssueIDToken("uid-1", "a@example.com", "", time.Minute)
	require.NoError(t, err)

	_, err = s.VerifySession(context.Background(), idToken)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestJWTSessions_ExpiredSession(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	idToken, err := s.IssueIDToken("uid-1", "a@example.com", "", time.Minute)
	require.NoError(t, err)
	session, err := s.CreateSession(ctx, idToken, time.Hour)
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.VerifySession(ctx, session)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestJWTSessions_RejectsForeignSecret(t *testing.T) {
	issuer := newTestSessions(t)
	other, err := NewJWTSessions("another-secret")
	require.NoError(t, err)

	idToken, err := issuer.IssueIDToken("uid-1", "a@example.com", "", time.Minute)
	require.NoError(t, err)

	_, err = other.CreateSession(context.Background(), idToken, time.Hour)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTSessions_GrantAdminUnsupported(t *testing.T) {
	assert.ErrorIs(t, newTestSessions(t).GrantAdmin(context.Background(), "a@example.com"), ErrUnsupported)
}

// Property: a session carries exactly the identity of the ID token it was minted from
func TestProperty_SessionPreservesIdentity(t *testing.T) {
	s := newTestSessions(t)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)
	properties.Property("uid, email and role survive the exchange", prop.ForAll(
		func(uid, email, role string) bool {
			idToken, err := s.IssueIDToken(uid, email, role, time.Minute)
			if err != nil {
				return false
			}
			session, err := s.CreateSession(ctx, idToken, time.Hour)
			if err != nil {
				return false
			}
			claims, err := s.VerifySession(ctx, session)
			if err != nil {
				return false
			}
			return claims.UID == uid && claims.Email == email && claims.Role == role
		},
		gen.Identifier(),
		gen.RegexMatch(`[a-z]{3,10}@example\.com`),
		gen.OneConstOf("", "admin", "customer"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
