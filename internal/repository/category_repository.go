package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
)

// CategoryRepository defines the interface for category data access.
// Categories are keyed by name.
type CategoryRepository interface {
	List(ctx context.Context) ([]*domain.Category, error)
	// Replace writes every given category in one transaction
	Replace(ctx context.Context, categories []*domain.Category) error
	Update(ctx context.Context, name string, fn func(c *domain.Category) error) (*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

const selectCategories = `
	SELECT sort_index, name, image, visibility
	FROM categories
`

func scanCategory(row scanner) (*domain.Category, error) {
	c := &domain.Category{}
	if err := row.Scan(&c.Index, &c.Name, &c.Image, &c.Visibility); err != nil {
		return nil, err
	}
	return c, nil
}

// List retrieves all categories ordered by index
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, selectCategories+"ORDER BY sort_index ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *categoryRepository) Replace(ctx context.Context, categories []*domain.Category) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, c := range categories {
			if err := writeCategory(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *categoryRepository) Update(ctx context.Context, name string, fn func(c *domain.Category) error) (*domain.Category, error) {
	var updated *domain.Category

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := scanCategory(tx.QueryRowContext(ctx, selectCategories+"WHERE name = $1 FOR UPDATE", name))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCategoryNotFound
			}
			return fmt.Errorf("failed to lock category: %w", err)
		}

		if err := fn(c); err != nil {
			return err
		}
		c.Name = name
		updated = c
		return writeCategory(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func writeCategory(ctx context.Context, db execer, c *domain.Category) error {
	query := `
		INSERT INTO categories (name, sort_index, image, visibility)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			sort_index = EXCLUDED.sort_index,
			image = EXCLUDED.image,
			visibility = EXCLUDED.visibility
	`

	if _, err := db.ExecContext(ctx, query, c.Name, c.Index, c.Image, c.Visibility); err != nil {
		return fmt.Errorf("failed to write category: %w", err)
	}
	return nil
}
