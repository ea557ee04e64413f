package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductFilter narrows List. Zero values match everything.
type ProductFilter struct {
	Category   string
	Visibility domain.Visibility
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id string, fn func(p *domain.Product) error) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	// FindByIDs returns the products that exist among ids; missing ids are skipped
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const selectProducts = `
	SELECT id, name, slug, description, category, pricing, images, options, upsell, visibility, created_at, updated_at
	FROM products
`

func scanProduct(row scanner) (*domain.Product, error) {
	p := &domain.Product{}
	var pricing, images, options []byte
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Category,
		&pricing,
		&images,
		&options,
		&p.Upsell,
		&p.Visibility,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := jsonScan(pricing, &p.Pricing); err != nil {
		return nil, err
	}
	if err := jsonScan(images, &p.Images); err != nil {
		return nil, err
	}
	if err := jsonScan(options, &p.Options); err != nil {
		return nil, err
	}
	return p, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}

// Create inserts a new product, assigning an id when none is set
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if err := writeProduct(ctx, r.db, product, true); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, id string, fn func(p *domain.Product) error) (*domain.Product, error) {
	var updated *domain.Product

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		p, err := scanProduct(tx.QueryRowContext(ctx, selectProducts+"WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to lock product: %w", err)
		}

		if err := fn(p); err != nil {
			return err
		}
		updated = p
		if err := writeProduct(ctx, tx, p, false); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a product from the database using parameterized queries
func (r *productRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return affectedOrNotFound(result, ErrProductNotFound)
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, selectProducts+"WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return p, nil
}

func (r *productRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	rows, err := r.db.QueryContext(ctx, selectProducts+"WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// List retrieves products with optional category and visibility filtering, newest first
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.Visibility != "" {
		args = append(args, filter.Visibility)
		conditions = append(conditions, fmt.Sprintf("visibility = $%d", len(args)))
	}

	query := selectProducts
	if len(conditions) > 0 {
		query += "WHERE " + strings.Join(conditions, " AND ") + " "
	}
	query += "ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func writeProduct(ctx context.Context, db execer, p *domain.Product, insert bool) error {
	pricing, err := jsonArg(p.Pricing)
	if err != nil {
		return err
	}
	images, err := jsonArg(p.Images)
	if err != nil {
		return err
	}
	options, err := jsonArg(p.Options)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (id, name, slug, description, category, pricing, images, options, upsell,
		                      visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	if !insert {
		query += `
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			slug = EXCLUDED.slug,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			pricing = EXCLUDED.pricing,
			images = EXCLUDED.images,
			options = EXCLUDED.options,
			upsell = EXCLUDED.upsell,
			visibility = EXCLUDED.visibility,
			updated_at = EXCLUDED.updated_at
		`
	}

	_, err = db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Category,
		pricing,
		images,
		options,
		p.Upsell,
		p.Visibility,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}
