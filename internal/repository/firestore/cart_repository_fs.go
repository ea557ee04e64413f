package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// CartRepositoryFS stores one document per device under carts/{deviceIdentifier}
type CartRepositoryFS struct {
	Client *gfs.Client
}

func NewCartRepositoryFS(client *gfs.Client) repository.CartRepository {
	return &CartRepositoryFS{Client: client}
}

func (r *CartRepositoryFS) col() *gfs.CollectionRef {
	return r.Client.Collection(cartsCollection)
}

func (r *CartRepositoryFS) FindByDevice(ctx context.Context, deviceID string) (*domain.Cart, error) {
	snap, err := r.col().Doc(deviceID).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return decode[domain.Cart](snap, nil)
}

func (r *CartRepositoryFS) Create(ctx context.Context, cart *domain.Cart) error {
	if _, err := r.col().Doc(cart.DeviceIdentifier).Create(ctx, cart); err != nil {
		if isAlreadyExists(err) {
			return repository.ErrCartAlreadyExists
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}
	return nil
}

func (r *CartRepositoryFS) Update(ctx context.Context, deviceID string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	ref := r.col().Doc(deviceID)
	var updated *domain.Cart

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return domain.ErrCartNotFound
			}
			return err
		}

		cart, err := decode[domain.Cart](snap, nil)
		if err != nil {
			return err
		}
		if err := fn(cart); err != nil {
			return err
		}
		updated = cart

		if len(cart.Items) == 0 {
			return tx.Delete(ref)
		}
		return tx.Set(ref, cart)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *CartRepositoryFS) Delete(ctx context.Context, deviceID string) error {
	ref := r.col().Doc(deviceID)
	if _, err := ref.Delete(ctx, gfs.Exists); err != nil {
		if isNotFound(err) {
			return domain.ErrCartNotFound
		}
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

func (r *CartRepositoryFS) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	snaps, err := r.col().Where("updatedAt", "<", cutoff).Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("failed to query idle carts: %w", err)
	}
	if len(snaps) == 0 {
		return 0, nil
	}

	bw := r.Client.BulkWriter(ctx)
	jobs := make([]*gfs.BulkWriterJob, 0, len(snaps))
	for _, snap := range snaps {
		job, err := bw.Delete(snap.Ref)
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to queue cart delete: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	return countDeleted(jobs)
}

type writeJob interface {
	Results() (*gfs.WriteResult, error)
}

// countDeleted waits for every queued delete. Failed deletes are left out of
// the count and reported together.
func countDeleted[J writeJob](jobs []J) (int, error) {
	deleted := 0
	var errs []error
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	if len(errs) > 0 {
		return deleted, fmt.Errorf("failed to delete %d idle carts: %w", len(errs), errors.Join(errs...))
	}
	return deleted, nil
}
