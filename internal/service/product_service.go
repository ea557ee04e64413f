package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// ProductService defines the interface for product business logic
type ProductService interface {
	Create(ctx context.Context, input ProductInput) (*domain.Product, error)
	Get(ctx context.Context, id string) (*domain.Product, error)
	// GetPublished hides drafts and hidden products from the storefront
	GetPublished(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error)
	Update(ctx context.Context, id string, input ProductUpdate) (*domain.Product, error)
	// SetUpsell links the product to an upsell; an empty upsellID clears the link
	SetUpsell(ctx context.Context, id, upsellID string) (*domain.Product, error)
	// Delete removes the product and every collection and upsell reference to it
	Delete(ctx context.Context, id string) error
}

type ProductInput struct {
	Name        string
	Slug        string
	Description string
	Category    string
	Pricing     domain.Pricing
	Images      domain.Images
	Options     domain.Options
}

// ProductUpdate carries the fields to change; nil fields are left alone
type ProductUpdate struct {
	Name        *string
	Slug        *string
	Description *string
	Category    *string
	Pricing     *domain.Pricing
	Images      *domain.Images
	Options     *domain.Options
	Visibility  *domain.Visibility
}

type productService struct {
	products    repository.ProductRepository
	upsells     repository.UpsellRepository
	collections repository.CollectionRepository
	pages       pageInvalidator
	now         Clock
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	products repository.ProductRepository,
	upsells repository.UpsellRepository,
	collections repository.CollectionRepository,
	invalidator cache.Invalidator,
	logger *zap.Logger,
) ProductService {
	return &productService{
		products:    products,
		upsells:     upsells,
		collections: collections,
		pages:       pageInvalidator{cache: invalidator, logger: logger},
		now:         systemClock,
	}
}

func (s *productService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if input.Name == "" || input.Category == "" {
		return nil, ErrInvalidInput
	}
	pricing, err := normalizePricing(input.Pricing)
	if err != nil {
		return nil, err
	}

	slug := input.Slug
	if slug == "" {
		slug = slugify(input.Name)
	}
	if input.Images.Gallery == nil {
		input.Images.Gallery = []string{}
	}

	now := s.now()
	product := &domain.Product{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		Category:    input.Category,
		Pricing:     pricing,
		Images:      input.Images,
		Options:     input.Options,
		Visibility:  domain.VisibilityDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return product, nil
}

func (s *productService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

func (s *productService) GetPublished(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Visibility != domain.VisibilityPublished {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	if filter.Visibility != "" && !filter.Visibility.Valid() {
		return nil, domain.ErrInvalidVisibility
	}
	return s.products.List(ctx, filter)
}

func (s *productService) Update(ctx context.Context, id string, input ProductUpdate) (*domain.Product, error) {
	if input.Visibility != nil && !input.Visibility.Valid() {
		return nil, domain.ErrInvalidVisibility
	}
	var pricing domain.Pricing
	if input.Pricing != nil {
		var err error
		if pricing, err = normalizePricing(*input.Pricing); err != nil {
			return nil, err
		}
	}

	updated, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		if input.Name != nil {
			if *input.Name == "" {
				return ErrInvalidInput
			}
			p.Name = *input.Name
		}
		if input.Slug != nil {
			p.Slug = *input.Slug
			if p.Slug == "" {
				p.Slug = slugify(p.Name)
			}
		}
		if input.Description != nil {
			p.Description = *input.Description
		}
		if input.Category != nil {
			p.Category = *input.Category
		}
		if input.Pricing != nil {
			p.Pricing = pricing
		}
		if input.Images != nil {
			p.Images = *input.Images
		}
		if input.Options != nil {
			p.Options = *input.Options
		}
		if input.Visibility != nil {
			p.Visibility = *input.Visibility
		}
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return updated, nil
}

func (s *productService) SetUpsell(ctx context.Context, id, upsellID string) (*domain.Product, error) {
	if upsellID != "" {
		if _, err := s.upsells.FindByID(ctx, upsellID); err != nil {
			return nil, err
		}
	}

	updated, err := s.products.Update(ctx, id, func(p *domain.Product) error {
		p.Upsell = upsellID
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return updated, nil
}

func (s *productService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}

	now := s.now()
	err := s.collections.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		for _, c := range all {
			if !c.HasProduct(id) {
				continue
			}
			rest, _ := ordering.Remove(c.ProductPointers(), id)
			c.SetProducts(rest)
			c.UpdatedAt = now
		}
		return all, nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove product %s from collections: %w", id, err)
	}

	upsells, err := s.upsells.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list upsells: %w", err)
	}
	for _, u := range upsells {
		if !u.HasProduct(id) {
			continue
		}
		_, err := s.upsells.Update(ctx, u.ID, func(u *domain.Upsell) error {
			rest, _ := ordering.Remove(u.ProductPointers(), id)
			u.SetProducts(rest)
			u.UpdatedAt = now
			return nil
		})
		if err != nil && !errors.Is(err, repository.ErrUpsellNotFound) {
			return fmt.Errorf("failed to remove product %s from upsell %s: %w", id, u.ID, err)
		}
	}

	s.pages.invalidate(ctx, cache.PathHome, cache.PathProducts, cache.PathCollections, cache.PathUpsells, cache.PathCart, cache.PathAdmin)
	return nil
}

func (s *productService) invalidate(ctx context.Context) {
	s.pages.invalidate(ctx, cache.PathHome, cache.PathProducts, cache.PathCollections, cache.PathAdmin)
}
