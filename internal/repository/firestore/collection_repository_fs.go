package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

type CollectionRepositoryFS struct {
	Client *gfs.Client
}

func NewCollectionRepositoryFS(client *gfs.Client) repository.CollectionRepository {
	return &CollectionRepositoryFS{Client: client}
}

func (r *CollectionRepositoryFS) col() *gfs.CollectionRef {
	return r.Client.Collection(collectionsCollection)
}

func setCollectionID(c *domain.Collection, id string) { c.ID = id }

func (r *CollectionRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Collection, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to get collection: %w", err)
	}
	return decode(snap, setCollectionID)
}

func (r *CollectionRepositoryFS) FindBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	snaps, err := r.col().Where("slug", "==", slug).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query collection by slug: %w", err)
	}
	if len(snaps) == 0 {
		return nil, repository.ErrCollectionNotFound
	}
	return decode(snaps[0], setCollectionID)
}

func (r *CollectionRepositoryFS) List(ctx context.Context) ([]*domain.Collection, error) {
	snaps, err := r.col().OrderBy("index", gfs.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return decodeAll(snaps, setCollectionID)
}

func (r *CollectionRepositoryFS) Update(ctx context.Context, id string, fn func(c *domain.Collection) error) (*domain.Collection, error) {
	ref := r.col().Doc(id)
	var updated *domain.Collection

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return repository.ErrCollectionNotFound
			}
			return err
		}

		c, err := decode(snap, setCollectionID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		updated = c
		return tx.Set(ref, c)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateAll reads every sibling inside the transaction before writing, as
// Firestore requires, then applies inserts, overwrites and deletes together.
func (r *CollectionRepositoryFS) UpdateAll(ctx context.Context, fn func(all []*domain.Collection) ([]*domain.Collection, error)) error {
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snaps, err := tx.Documents(r.col()).GetAll()
		if err != nil {
			return fmt.Errorf("failed to read collections: %w", err)
		}
		current, err := decodeAll(snaps, setCollectionID)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		keep := make(map[string]bool, len(next))
		for _, c := range next {
			ref := r.col().NewDoc()
			if c.ID != "" {
				ref = r.col().Doc(c.ID)
			}
			c.ID = ref.ID
			keep[c.ID] = true
			if err := tx.Set(ref, c); err != nil {
				return err
			}
		}

		for _, c := range current {
			if !keep[c.ID] {
				if err := tx.Delete(r.col().Doc(c.ID)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
