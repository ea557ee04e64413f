package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeID      = "id"
	tokenTypeSession = "session"
)

// JWTSessions is the local driver: ID tokens and session cookies are both
// HS256 tokens signed with one shared secret.
type JWTSessions struct {
	secret []byte
	now    func() time.Time
}

type sessionClaims struct {
	Email          string `json:"email,omitempty"`
	Role           string `json:"role,omitempty"`
	GrantedThrough string `json:"grantedThrough,omitempty"`
	Type           string `json:"typ"`
	jwt.RegisteredClaims
}

func NewJWTSessions(secret string) (*JWTSessions, error) {
	if secret == "" {
		return nil, errors.New("session jwt secret is not configured")
	}
	return &JWTSessions{secret: []byte(secret), now: time.Now}, nil
}

// IssueIDToken signs a short-lived ID token, standing in for the identity
// provider in local development and tests.
func (j *JWTSessions) IssueIDToken(uid, email, role string, ttl time.Duration) (string, error) {
	return j.sign(sessionClaims{
		Email: email,
		Role:  role,
		Type:  tokenTypeID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(j.now()),
			ExpiresAt: jwt.NewNumericDate(j.now().Add(ttl)),
		},
	})
}

func (j *JWTSessions) CreateSession(_ context.Context, idToken string, expiresIn time.Duration) (string, error) {
	claims, err := j.parse(idToken, tokenTypeID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims.Type = tokenTypeSession
	claims.IssuedAt = jwt.NewNumericDate(j.now())
	claims.ExpiresAt = jwt.NewNumericDate(j.now().Add(expiresIn))
	return j.sign(*claims)
}

func (j *JWTSessions) VerifySession(_ context.Context, session string) (*Claims, error) {
	claims, err := j.parse(session, tokenTypeSession)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	out := &Claims{
		UID:            claims.Subject,
		Email:          claims.Email,
		Role:           claims.Role,
		GrantedThrough: claims.GrantedThrough,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// RevokeSessions is a no-op: local sessions expire on their own
func (j *JWTSessions) RevokeSessions(context.Context, string) error {
	return nil
}

func (j *JWTSessions) GrantAdmin(context.Context, string) error {
	return ErrUnsupported
}

func (j *JWTSessions) sign(claims sessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (j *JWTSessions) parse(raw, wantType string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, err
	}
	if claims.Type != wantType {
		return nil, fmt.Errorf("unexpected token type %q", claims.Type)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
