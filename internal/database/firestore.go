package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/khanofemperia/gethsemane-sub001/internal/config"
)

// NewFirestore creates a Firestore client. The credentials file is optional:
// without it the client uses application default credentials, or the emulator
// when FIRESTORE_EMULATOR_HOST is set.
func NewFirestore(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firebase project id is not configured")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}
