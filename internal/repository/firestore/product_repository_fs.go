package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

type ProductRepositoryFS struct {
	Client *gfs.Client
}

func NewProductRepositoryFS(client *gfs.Client) repository.ProductRepository {
	return &ProductRepositoryFS{Client: client}
}

func (r *ProductRepositoryFS) col() *gfs.CollectionRef {
	return r.Client.Collection(productsCollection)
}

func setProductID(p *domain.Product, id string) { p.ID = id }

func (r *ProductRepositoryFS) Create(ctx context.Context, product *domain.Product) error {
	ref := r.col().NewDoc()
	if product.ID != "" {
		ref = r.col().Doc(product.ID)
	}
	if _, err := ref.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = ref.ID
	return nil
}

func (r *ProductRepositoryFS) Update(ctx context.Context, id string, fn func(p *domain.Product) error) (*domain.Product, error) {
	ref := r.col().Doc(id)
	var updated *domain.Product

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return repository.ErrProductNotFound
			}
			return err
		}

		p, err := decode(snap, setProductID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		updated = p
		return tx.Set(ref, p)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ProductRepositoryFS) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx, gfs.Exists); err != nil {
		if isNotFound(err) {
			return repository.ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *ProductRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return decode(snap, setProductID)
}

func (r *ProductRepositoryFS) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	return getAll(ctx, r.Client, productsCollection, ids, setProductID)
}

func (r *ProductRepositoryFS) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	q := r.col().Query
	if filter.Category != "" {
		q = q.Where("category", "==", filter.Category)
	}
	if filter.Visibility != "" {
		q = q.Where("visibility", "==", string(filter.Visibility))
	}

	snaps, err := q.OrderBy("createdAt", gfs.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return decodeAll(snaps, setProductID)
}
