package auth

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/khanofemperia/gethsemane-sub001/internal/config"
)

// FirebaseSessions uses Firebase Auth session cookies
type FirebaseSessions struct {
	client *firebaseauth.Client
}

// NewFirebaseSessions initializes the Firebase app and its auth client
func NewFirebaseSessions(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseSessions, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	return &FirebaseSessions{client: client}, nil
}

func (f *FirebaseSessions) CreateSession(ctx context.Context, idToken string, expiresIn time.Duration) (string, error) {
	if _, err := f.client.VerifyIDToken(ctx, idToken); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	cookie, err := f.client.SessionCookie(ctx, idToken, expiresIn)
	if err != nil {
		return "", fmt.Errorf("failed to create session cookie: %w", err)
	}
	return cookie, nil
}

func (f *FirebaseSessions) VerifySession(ctx context.Context, session string) (*Claims, error) {
	token, err := f.client.VerifySessionCookieAndCheckRevoked(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims := &Claims{
		UID:       token.UID,
		ExpiresAt: time.Unix(token.Expires, 0),
	}
	if v, ok := token.Claims["email"].(string); ok {
		claims.Email = v
	}
	if v, ok := token.Claims["role"].(string); ok {
		claims.Role = v
	}
	if v, ok := token.Claims["grantedThrough"].(string); ok {
		claims.GrantedThrough = v
	}
	return claims, nil
}

func (f *FirebaseSessions) RevokeSessions(ctx context.Context, uid string) error {
	if err := f.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return nil
}

func (f *FirebaseSessions) GrantAdmin(ctx context.Context, email string) error {
	user, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", email, err)
	}

	claims := map[string]interface{}{
		"role":           RoleAdmin,
		"grantedThrough": GrantedThroughCLI,
	}
	if err := f.client.SetCustomUserClaims(ctx, user.UID, claims); err != nil {
		return fmt.Errorf("failed to set custom claims: %w", err)
	}
	return nil
}
