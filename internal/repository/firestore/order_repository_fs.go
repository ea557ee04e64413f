package firestore

import (
	"context"
	"fmt"

	gfs "cloud.google.com/go/firestore"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

type OrderRepositoryFS struct {
	Client *gfs.Client
}

func NewOrderRepositoryFS(client *gfs.Client) repository.OrderRepository {
	return &OrderRepositoryFS{Client: client}
}

func (r *OrderRepositoryFS) col() *gfs.CollectionRef {
	return r.Client.Collection(ordersCollection)
}

func setOrderID(o *domain.Order, id string) { o.ID = id }

// Create checks for an existing order with the same PayPal id inside the
// transaction, so a capture recorded twice yields ErrOrderAlreadyExists.
func (r *OrderRepositoryFS) Create(ctx context.Context, order *domain.Order) error {
	ref := r.col().NewDoc()
	if order.ID != "" {
		ref = r.col().Doc(order.ID)
	}

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		existing, err := tx.Documents(r.col().Where("paypalOrderId", "==", order.PayPalOrderID).Limit(1)).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return repository.ErrOrderAlreadyExists
		}
		return tx.Create(ref, order)
	})
	if err != nil {
		if isAlreadyExists(err) {
			return repository.ErrOrderAlreadyExists
		}
		return err
	}

	order.ID = ref.ID
	return nil
}

func (r *OrderRepositoryFS) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return decode(snap, setOrderID)
}

func (r *OrderRepositoryFS) FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	snaps, err := r.col().Where("paypalOrderId", "==", paypalOrderID).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	if len(snaps) == 0 {
		return nil, repository.ErrOrderNotFound
	}
	return decode(snaps[0], setOrderID)
}

func (r *OrderRepositoryFS) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	snaps, err := r.col().OrderBy("createdAt", gfs.Desc).Limit(limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return decodeAll(snaps, setOrderID)
}

func (r *OrderRepositoryFS) Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error) {
	ref := r.col().Doc(id)
	var updated *domain.Order

	err := r.Client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return repository.ErrOrderNotFound
			}
			return err
		}

		o, err := decode(snap, setOrderID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		updated = o
		return tx.Set(ref, o)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
