// Package firestore implements the repository interfaces on Cloud Firestore.
// Multi-document ordering updates run inside RunTransaction; carts use the
// device identifier as document id so creation is conditional.
package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	cartsCollection       = "carts"
	collectionsCollection = "collections"
	productsCollection    = "products"
	upsellsCollection     = "upsells"
	categoriesCollection  = "categories"
	ordersCollection      = "orders"
)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// getAll fetches ids in one round trip and decodes the documents that exist
func getAll[T any](ctx context.Context, client *gfs.Client, collection string, ids []string, setID func(*T, string)) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}

	refs := make([]*gfs.DocumentRef, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, client.Collection(collection).Doc(id))
	}

	snaps, err := client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", collection, err)
	}

	out := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		if !snap.Exists() {
			continue
		}
		v, err := decode(snap, setID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decode[T any](snap *gfs.DocumentSnapshot, setID func(*T, string)) (*T, error) {
	v := new(T)
	if err := snap.DataTo(v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", snap.Ref.Path, err)
	}
	if setID != nil {
		setID(v, snap.Ref.ID)
	}
	return v, nil
}

func decodeAll[T any](snaps []*gfs.DocumentSnapshot, setID func(*T, string)) ([]*T, error) {
	out := make([]*T, 0, len(snaps))
	for _, snap := range snaps {
		v, err := decode(snap, setID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
