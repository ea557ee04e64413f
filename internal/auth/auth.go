// Package auth exchanges identity-provider ID tokens for session cookies and
// verifies those cookies on later requests.
package auth

import (
	"context"
	"errors"
	"time"
)

const (
	RoleAdmin = "admin"

	// GrantedThroughCLI marks admin claims assigned by the operator CLI
	GrantedThroughCLI = "cli"
)

var (
	ErrInvalidToken   = errors.New("invalid id token")
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrUnsupported    = errors.New("operation not supported by this session driver")
)

// Claims is what a verified session carries into a request
type Claims struct {
	UID            string    `json:"uid"`
	Email          string    `json:"email"`
	Role           string    `json:"role,omitempty"`
	GrantedThrough string    `json:"grantedThrough,omitempty"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// SessionManager is implemented by the firebase and jwt drivers
type SessionManager interface {
	// CreateSession verifies idToken and mints a session cookie value valid for expiresIn
	CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error)
	VerifySession(ctx context.Context, session string) (*Claims, error)
	// RevokeSessions invalidates every session issued to uid
	RevokeSessions(ctx context.Context, uid string) error
	// GrantAdmin assigns the admin role to the account registered under email
	GrantAdmin(ctx context.Context, email string) error
}
