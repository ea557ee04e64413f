package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

type UpsellRepositoryFS struct {
	Client *gfs.Client
}

func NewUpsellRepositoryFS(client *gfs.Client) repository.UpsellRepository {
	return &UpsellRepositoryFS{Client: client}
}

func (r *UpsellRepositoryFS) col() *gfs.CollectionRef {
	return r.Client.Collection(upsellsCollection)
}

func setUpsellID(u *domain.Upsell, id string) { u.ID = id }

func (r *UpsellRepositoryFS) Create(ctx context.Context, upsell *domain.Upsell) error {
	ref := r.col().NewDoc()
	if upsell.ID != "" {
		ref = r.col().Doc(upsell.ID)
	}
	if _, err := ref.Create(ctx, upsell); err != nil {
		return fmt.Errorf("failed to create upsell: %w", err)
	}
	upsell.ID = ref.ID
	return nil
}

func (r *UpsellRepositoryFS) Update(ctx context.Context, id string, fn func(u *domain.Upsell) error) (*domain.Upsell, error) {
	ref := r.col().Doc(id)
	var updated *domain.Upsell

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return repository.ErrUpsellNotFound
			}
			return err
		}

		u, err := decode(snap, setUpsellID)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		updated = u
		return tx.Set(ref, u)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *UpsellRepositoryFS) Delete(ctx context.Context, id string) error {
	if _, err := r.col().Doc(id).Delete(ctx, gfs.Exists); err != nil {
		if isNotFound(err) {
			return repository.ErrUpsellNotFound
		}
		return fmt.Errorf("failed to delete upsell: %w", err)
	}
	return nil
}

func (r *UpsellRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Upsell, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrUpsellNotFound
		}
		return nil, fmt.Errorf("failed to get upsell: %w", err)
	}
	return decode(snap, setUpsellID)
}

func (r *UpsellRepositoryFS) FindByIDs(ctx context.Context, ids []string) ([]*domain.Upsell, error) {
	return getAll(ctx, r.Client, upsellsCollection, ids, setUpsellID)
}

func (r *UpsellRepositoryFS) List(ctx context.Context) ([]*domain.Upsell, error) {
	snaps, err := r.col().OrderBy("createdAt", gfs.Desc).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list upsells: %w", err)
	}
	return decodeAll(snaps, setUpsellID)
}
