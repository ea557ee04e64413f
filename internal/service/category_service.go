package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// CategoryService defines the interface for category business logic
type CategoryService interface {
	List(ctx context.Context) ([]*domain.Category, error)
	// ListPublished is the storefront view of List
	ListPublished(ctx context.Context) ([]*domain.Category, error)
	Update(ctx context.Context, name string, input CategoryUpdate) (*domain.Category, error)
	// SeedCategories stores the default categories that are missing and
	// restores the index and image of stale ones. Visibility chosen by an
	// admin is kept. It reports how many categories were written.
	SeedCategories(ctx context.Context) (int, error)
}

// CategoryUpdate carries the fields to change; nil fields are left alone
type CategoryUpdate struct {
	Image      *string
	Visibility *domain.Visibility
}

type categoryService struct {
	categories repository.CategoryRepository
	pages      pageInvalidator
}

// NewCategoryService creates a new instance of CategoryService
func NewCategoryService(categories repository.CategoryRepository, invalidator cache.Invalidator, logger *zap.Logger) CategoryService {
	return &categoryService{
		categories: categories,
		pages:      pageInvalidator{cache: invalidator, logger: logger},
	}
}

func (s *categoryService) List(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *categoryService) ListPublished(ctx context.Context) ([]*domain.Category, error) {
	all, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	published := []*domain.Category{}
	for _, c := range all {
		if c.Visibility == domain.VisibilityPublished {
			published = append(published, c)
		}
	}
	return published, nil
}

func (s *categoryService) Update(ctx context.Context, name string, input CategoryUpdate) (*domain.Category, error) {
	if input.Visibility != nil && !input.Visibility.Valid() {
		return nil, domain.ErrInvalidVisibility
	}

	updated, err := s.categories.Update(ctx, name, func(c *domain.Category) error {
		if input.Image != nil {
			c.Image = *input.Image
		}
		if input.Visibility != nil {
			c.Visibility = *input.Visibility
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.pages.invalidate(ctx, cache.PathCategories, cache.PathHome, cache.PathAdmin)
	return updated, nil
}

func (s *categoryService) SeedCategories(ctx context.Context) (int, error) {
	stored, err := s.categories.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read categories: %w", err)
	}

	byName := make(map[string]*domain.Category, len(stored))
	for _, c := range stored {
		byName[c.Name] = c
	}

	var changed []*domain.Category
	for _, def := range domain.DefaultCategories {
		current, ok := byName[def.Name]
		if !ok {
			c := def
			changed = append(changed, &c)
			continue
		}
		if current.Index != def.Index || current.Image != def.Image {
			current.Index = def.Index
			current.Image = def.Image
			changed = append(changed, current)
		}
	}

	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.categories.Replace(ctx, changed); err != nil {
		return 0, fmt.Errorf("failed to seed categories: %w", err)
	}

	s.pages.invalidate(ctx, cache.PathCategories, cache.PathAdmin)
	return len(changed), nil
}
