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
	ErrCollectionNotFound = errors.New("collection not found")
)

// CollectionRepository defines the interface for collection data access
type CollectionRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Collection, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Collection, error)
	List(ctx context.Context) ([]*domain.Collection, error)
	// Update runs fn on one locked collection and writes it back
	Update(ctx context.Context, id string, fn func(c *domain.Collection) error) (*domain.Collection, error)
	// UpdateAll loads every collection inside one transaction and persists the
	// set fn returns: entries without an id are inserted, entries missing from
	// the result are deleted, all others are overwritten.
	UpdateAll(ctx context.Context, fn func(all []*domain.Collection) ([]*domain.Collection, error)) error
}

type collectionRepository struct {
	db *sql.DB
}

// NewCollectionRepository creates a new instance of CollectionRepository
func NewCollectionRepository(db *sql.DB) CollectionRepository {
	return &collectionRepository{db: db}
}

const selectCollections = `
	SELECT id, sort_index, title, slug, collection_type, campaign_start, campaign_end,
	       products, visibility, banner_images, created_at, updated_at
	FROM collections
`

func scanCollection(row scanner) (*domain.Collection, error) {
	c := &domain.Collection{}
	var products, banner []byte
	err := row.Scan(
		&c.ID,
		&c.Index,
		&c.Title,
		&c.Slug,
		&c.CollectionType,
		&c.CampaignDuration.StartDate,
		&c.CampaignDuration.EndDate,
		&products,
		&c.Visibility,
		&banner,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := jsonScan(products, &c.Products); err != nil {
		return nil, err
	}
	if len(banner) > 0 && string(banner) != "null" {
		c.BannerImages = &domain.BannerImages{}
		if err := jsonScan(banner, c.BannerImages); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (r *collectionRepository) findOne(ctx context.Context, where string, arg any) (*domain.Collection, error) {
	c, err := scanCollection(r.db.QueryRowContext(ctx, selectCollections+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}
	return c, nil
}

func (r *collectionRepository) FindByID(ctx context.Context, id string) (*domain.Collection, error) {
	return r.findOne(ctx, "WHERE id = $1", id)
}

func (r *collectionRepository) FindBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	return r.findOne(ctx, "WHERE slug = $1 ORDER BY sort_index LIMIT 1", slug)
}

// List retrieves every collection ordered by index
func (r *collectionRepository) List(ctx context.Context) ([]*domain.Collection, error) {
	rows, err := r.db.QueryContext(ctx, selectCollections+"ORDER BY sort_index ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	return collectCollections(rows)
}

func collectCollections(rows *sql.Rows) ([]*domain.Collection, error) {
	collections := []*domain.Collection{}
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}
	return collections, nil
}

func (r *collectionRepository) Update(ctx context.Context, id string, fn func(c *domain.Collection) error) (*domain.Collection, error) {
	var updated *domain.Collection

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := scanCollection(tx.QueryRowContext(ctx, selectCollections+"WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrCollectionNotFound
			}
			return fmt.Errorf("failed to lock collection: %w", err)
		}

		if err := fn(c); err != nil {
			return err
		}
		updated = c
		return writeCollection(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *collectionRepository) UpdateAll(ctx context.Context, fn func(all []*domain.Collection) ([]*domain.Collection, error)) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, selectCollections+"ORDER BY sort_index ASC FOR UPDATE")
		if err != nil {
			return fmt.Errorf("failed to lock collections: %w", err)
		}
		current, err := collectCollections(rows)
		rows.Close()
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		keep := make(map[string]bool, len(next))
		for _, c := range next {
			if c.ID == "" {
				c.ID = uuid.NewString()
			}
			keep[c.ID] = true
			if err := writeCollection(ctx, tx, c); err != nil {
				return err
			}
		}

		for _, c := range current {
			if keep[c.ID] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = $1`, c.ID); err != nil {
				return fmt.Errorf("failed to delete collection: %w", err)
			}
		}
		return nil
	})
}

func writeCollection(ctx context.Context, db execer, c *domain.Collection) error {
	products, err := jsonArg(c.Products)
	if err != nil {
		return err
	}
	var banner any
	if c.BannerImages != nil {
		if banner, err = jsonArg(c.BannerImages); err != nil {
			return err
		}
	}

	query := `
		INSERT INTO collections (id, sort_index, title, slug, collection_type, campaign_start, campaign_end,
		                         products, visibility, banner_images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			sort_index = EXCLUDED.sort_index,
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			collection_type = EXCLUDED.collection_type,
			campaign_start = EXCLUDED.campaign_start,
			campaign_end = EXCLUDED.campaign_end,
			products = EXCLUDED.products,
			visibility = EXCLUDED.visibility,
			banner_images = EXCLUDED.banner_images,
			updated_at = EXCLUDED.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		c.ID,
		c.Index,
		c.Title,
		c.Slug,
		c.CollectionType,
		c.CampaignDuration.StartDate,
		c.CampaignDuration.EndDate,
		products,
		c.Visibility,
		banner,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}
	return nil
}
