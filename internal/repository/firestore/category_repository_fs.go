package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// CategoryRepositoryFS keys category documents by name
type CategoryRepositoryFS struct {
	Client *gfs.Client
}

func NewCategoryRepositoryFS(client *gfs.Client) repository.CategoryRepository {
	return &CategoryRepositoryFS{Client: client}
}

func (r *CategoryRepositoryFS) col() *gfs.CollectionRef {
	return r.Client.Collection(categoriesCollection)
}

func (r *CategoryRepositoryFS) List(ctx context.Context) ([]*domain.Category, error) {
	snaps, err := r.col().OrderBy("index", gfs.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return decodeAll[domain.Category](snaps, nil)
}

func (r *CategoryRepositoryFS) Replace(ctx context.Context, categories []*domain.Category) error {
	return r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		for _, c := range categories {
			if err := tx.Set(r.col().Doc(c.Name), c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CategoryRepositoryFS) Update(ctx context.Context, name string, fn func(c *domain.Category) error) (*domain.Category, error) {
	ref := r.col().Doc(name)
	var updated *domain.Category

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return repository.ErrCategoryNotFound
			}
			return err
		}

		c, err := decode[domain.Category](snap, nil)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.Name = name
		updated = c
		return tx.Set(ref, c)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
