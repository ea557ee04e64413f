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
	ErrUpsellNotFound = errors.New("upsell not found")
)

// UpsellRepository defines the interface for upsell data access
type UpsellRepository interface {
	Create(ctx context.Context, upsell *domain.Upsell) error
	Update(ctx context.Context, id string, fn func(u *domain.Upsell) error) (*domain.Upsell, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Upsell, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Upsell, error)
	List(ctx context.Context) ([]*domain.Upsell, error)
}

type upsellRepository struct {
	db *sql.DB
}

// NewUpsellRepository creates a new instance of UpsellRepository
func NewUpsellRepository(db *sql.DB) UpsellRepository {
	return &upsellRepository{db: db}
}

const selectUpsells = `
	SELECT id, pricing, main_image, visibility, products, created_at, updated_at
	FROM upsells
`

func scanUpsell(row scanner) (*domain.Upsell, error) {
	u := &domain.Upsell{}
	var pricing, products []byte
	err := row.Scan(&u.ID, &pricing, &u.MainImage, &u.Visibility, &products, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := jsonScan(pricing, &u.Pricing); err != nil {
		return nil, err
	}
	if err := jsonScan(products, &u.Products); err != nil {
		return nil, err
	}
	return u, nil
}

func collectUpsells(rows *sql.Rows) ([]*domain.Upsell, error) {
	upsells := []*domain.Upsell{}
	for rows.Next() {
		u, err := scanUpsell(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upsell: %w", err)
		}
		upsells = append(upsells, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating upsells: %w", err)
	}
	return upsells, nil
}

func (r *upsellRepository) Create(ctx context.Context, upsell *domain.Upsell) error {
	if upsell.ID == "" {
		upsell.ID = uuid.NewString()
	}
	if err := writeUpsell(ctx, r.db, upsell); err != nil {
		return fmt.Errorf("failed to create upsell: %w", err)
	}
	return nil
}

func (r *upsellRepository) Update(ctx context.Context, id string, fn func(u *domain.Upsell) error) (*domain.Upsell, error) {
	var updated *domain.Upsell

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		u, err := scanUpsell(tx.QueryRowContext(ctx, selectUpsells+"WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrUpsellNotFound
			}
			return fmt.Errorf("failed to lock upsell: %w", err)
		}

		if err := fn(u); err != nil {
			return err
		}
		updated = u
		if err := writeUpsell(ctx, tx, u); err != nil {
			return fmt.Errorf("failed to update upsell: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *upsellRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM upsells WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete upsell: %w", err)
	}
	return affectedOrNotFound(result, ErrUpsellNotFound)
}

func (r *upsellRepository) FindByID(ctx context.Context, id string) (*domain.Upsell, error) {
	u, err := scanUpsell(r.db.QueryRowContext(ctx, selectUpsells+"WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUpsellNotFound
		}
		return nil, fmt.Errorf("failed to find upsell by ID: %w", err)
	}
	return u, nil
}

func (r *upsellRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Upsell, error) {
	if len(ids) == 0 {
		return []*domain.Upsell{}, nil
	}

	rows, err := r.db.QueryContext(ctx, selectUpsells+"WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find upsells by IDs: %w", err)
	}
	defer rows.Close()

	return collectUpsells(rows)
}

func (r *upsellRepository) List(ctx context.Context) ([]*domain.Upsell, error) {
	rows, err := r.db.QueryContext(ctx, selectUpsells+"ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list upsells: %w", err)
	}
	defer rows.Close()

	return collectUpsells(rows)
}

func writeUpsell(ctx context.Context, db execer, u *domain.Upsell) error {
	pricing, err := jsonArg(u.Pricing)
	if err != nil {
		return err
	}
	products, err := jsonArg(u.Products)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO upsells (id, pricing, main_image, visibility, products, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			pricing = EXCLUDED.pricing,
			main_image = EXCLUDED.main_image,
			visibility = EXCLUDED.visibility,
			products = EXCLUDED.products,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, query, u.ID, pricing, u.MainImage, u.Visibility, products, u.CreatedAt, u.UpdatedAt)
	return err
}
