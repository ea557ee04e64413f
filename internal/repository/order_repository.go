package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already recorded for this payment")
)

// OrderRepository defines the interface for order data access
type OrderRepository interface {
	// Create fails with ErrOrderAlreadyExists when the PayPal order was already recorded
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error)
	List(ctx context.Context, limit int) ([]*domain.Order, error)
	Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const selectOrders = `
	SELECT id, paypal_order_id, status, payer, shipping, amount, items, emails, created_at, updated_at
	FROM orders
`

func scanOrder(row scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var payer, shipping, amount, items, emails []byte
	err := row.Scan(
		&o.ID,
		&o.PayPalOrderID,
		&o.Status,
		&payer,
		&shipping,
		&amount,
		&items,
		&emails,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{payer, &o.Payer},
		{shipping, &o.Shipping},
		{amount, &o.Amount},
		{items, &o.Items},
		{emails, &o.Emails},
	} {
		if err := jsonScan(col.raw, col.dst); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if err := writeOrder(ctx, r.db, order, true); err != nil {
		if isUniqueViolation(err) {
			return ErrOrderAlreadyExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) find(ctx context.Context, where string, arg any) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, selectOrders+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return o, nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.find(ctx, "WHERE id = $1", id)
}

func (r *orderRepository) FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	return r.find(ctx, "WHERE paypal_order_id = $1", paypalOrderID)
}

// List retrieves the most recent orders first
func (r *orderRepository) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrders+"ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error) {
	var updated *domain.Order

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		o, err := scanOrder(tx.QueryRowContext(ctx, selectOrders+"WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		if err := fn(o); err != nil {
			return err
		}
		updated = o
		if err := writeOrder(ctx, tx, o, false); err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func writeOrder(ctx context.Context, db execer, o *domain.Order, insert bool) error {
	args := []any{o.ID, o.PayPalOrderID, o.Status}
	for _, v := range []any{o.Payer, o.Shipping, o.Amount, o.Items, o.Emails} {
		encoded, err := jsonArg(v)
		if err != nil {
			return err
		}
		args = append(args, encoded)
	}
	args = append(args, o.CreatedAt, o.UpdatedAt)

	query := `
		INSERT INTO orders (id, paypal_order_id, status, payer, shipping, amount, items, emails, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if !insert {
		query += `
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			payer = EXCLUDED.payer,
			shipping = EXCLUDED.shipping,
			amount = EXCLUDED.amount,
			items = EXCLUDED.items,
			emails = EXCLUDED.emails,
			updated_at = EXCLUDED.updated_at
		`
	}

	_, err := db.ExecContext(ctx, query, args...)
	return err
}
