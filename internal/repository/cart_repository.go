package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

var (
	ErrCartAlreadyExists = errors.New("cart already exists for this device")
)

// CartRepository defines the interface for cart data access. Carts are keyed
// by device identifier, so at most one cart exists per device.
type CartRepository interface {
	FindByDevice(ctx context.Context, deviceID string) (*domain.Cart, error)
	// Create fails with ErrCartAlreadyExists when the device already owns a cart
	Create(ctx context.Context, cart *domain.Cart) error
	// Update runs fn inside a transaction on the locked cart. A cart left
	// without items is deleted instead of written back.
	Update(ctx context.Context, deviceID string, fn func(cart *domain.Cart) error) (*domain.Cart, error)
	Delete(ctx context.Context, deviceID string) error
	DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

const selectCart = `
	SELECT device_identifier, items, created_at, updated_at
	FROM carts
	WHERE device_identifier = $1
`

func scanCart(row scanner) (*domain.Cart, error) {
	cart := &domain.Cart{}
	var items []byte
	if err := row.Scan(&cart.DeviceIdentifier, &items, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
		return nil, err
	}
	if err := jsonScan(items, &cart.Items); err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByDevice retrieves the cart owned by a device
func (r *cartRepository) FindByDevice(ctx context.Context, deviceID string) (*domain.Cart, error) {
	cart, err := scanCart(r.db.QueryRowContext(ctx, selectCart, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to find cart: %w", err)
	}
	return cart, nil
}

// Create inserts a new cart; the primary key on device_identifier makes it conditional
func (r *cartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	items, err := jsonArg(cart.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO carts (device_identifier, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err = r.db.ExecContext(ctx, query, cart.DeviceIdentifier, items, cart.CreatedAt, cart.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCartAlreadyExists
		}
		return fmt.Errorf("failed to create cart: %w", err)
	}

	return nil
}

func (r *cartRepository) Update(ctx context.Context, deviceID string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	var updated *domain.Cart

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		cart, err := scanCart(tx.QueryRowContext(ctx, selectCart+" FOR UPDATE", deviceID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrCartNotFound
			}
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		if err := fn(cart); err != nil {
			return err
		}
		updated = cart

		if len(cart.Items) == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE device_identifier = $1`, deviceID); err != nil {
				return fmt.Errorf("failed to delete empty cart: %w", err)
			}
			return nil
		}

		items, err := jsonArg(cart.Items)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE carts SET items = $2, updated_at = $3 WHERE device_identifier = $1`,
			deviceID, items, cart.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a device's cart
func (r *cartRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE device_identifier = $1`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return affectedOrNotFound(result, domain.ErrCartNotFound)
}

// DeleteIdleBefore removes carts not updated since cutoff and reports how many were removed
func (r *cartRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete idle carts: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(n), nil
}
