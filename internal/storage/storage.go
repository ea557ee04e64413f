// Package storage uploads catalog images to Cloud Storage
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
	"google.golang.org/api/option"

	"github.com/khanofemperia/gethsemane-sub001/internal/config"
)

// Uploader writes public image objects into one bucket
type Uploader struct {
	client *gcs.Client
	bucket string
}

func NewUploader(ctx context.Context, bucket string, fb config.FirebaseConfig) (*Uploader, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	var opts []option.ClientOption
	if fb.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(fb.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket}, nil
}

// Upload stores r under a fresh object name and returns its public URL. The
// write only succeeds if the object does not exist yet.
func (u *Uploader) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	name := ObjectName(filename)

	w := u.client.Bucket(u.bucket).Object(name).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000, immutable"

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write object %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", name, err)
	}

	return PublicURL(u.bucket, name), nil
}

func (u *Uploader) Close() error {
	return u.client.Close()
}

// ObjectName builds a collision-free object path keeping the file extension
func ObjectName(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "images/" + ulid.Make().String() + ext
}

func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, (&url.URL{Path: object}).EscapedPath())
}
