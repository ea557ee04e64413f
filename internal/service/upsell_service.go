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

// UpsellService defines the interface for upsell business logic
type UpsellService interface {
	Create(ctx context.Context, input UpsellInput) (*domain.Upsell, error)
	Get(ctx context.Context, id string) (*domain.Upsell, error)
	// GetPublished returns a published upsell with its products resolved
	GetPublished(ctx context.Context, id string) (*UpsellView, error)
	List(ctx context.Context) ([]*domain.Upsell, error)
	Update(ctx context.Context, id string, input UpsellUpdate) (*domain.Upsell, error)
	Delete(ctx context.Context, id string) error

	AddProduct(ctx context.Context, upsellID, productID string) error
	RemoveProduct(ctx context.Context, upsellID, productID string) error
	ChangeProductIndex(ctx context.Context, upsellID, productID string, index int) error
}

type UpsellInput struct {
	Pricing   domain.Pricing
	MainImage string
}

// UpsellUpdate carries the fields to change; nil fields are left alone
type UpsellUpdate struct {
	Pricing    *domain.Pricing
	MainImage  *string
	Visibility *domain.Visibility
}

// UpsellView is an upsell with the catalog products it bundles
type UpsellView struct {
	*domain.Upsell
	Items []*domain.Product `json:"items"`
}

type upsellService struct {
	upsells  repository.UpsellRepository
	products repository.ProductRepository
	catalog  catalogLookup
	pages    pageInvalidator
	now      Clock
}

// NewUpsellService creates a new instance of UpsellService
func NewUpsellService(
	upsells repository.UpsellRepository,
	products repository.ProductRepository,
	invalidator cache.Invalidator,
	logger *zap.Logger,
) UpsellService {
	return &upsellService{
		upsells:  upsells,
		products: products,
		catalog:  catalogLookup{products: products, upsells: upsells},
		pages:    pageInvalidator{cache: invalidator, logger: logger},
		now:      systemClock,
	}
}

func (s *upsellService) Create(ctx context.Context, input UpsellInput) (*domain.Upsell, error) {
	pricing, err := normalizePricing(input.Pricing)
	if err != nil {
		return nil, err
	}

	now := s.now()
	upsell := &domain.Upsell{
		Pricing:    pricing,
		MainImage:  input.MainImage,
		Visibility: domain.VisibilityDraft,
		Products:   []domain.UpsellProduct{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.upsells.Create(ctx, upsell); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return upsell, nil
}

func (s *upsellService) Get(ctx context.Context, id string) (*domain.Upsell, error) {
	return s.upsells.FindByID(ctx, id)
}

func (s *upsellService) GetPublished(ctx context.Context, id string) (*UpsellView, error) {
	u, err := s.upsells.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Visibility != domain.VisibilityPublished {
		return nil, repository.ErrUpsellNotFound
	}

	refs := u.ProductPointers()
	ordering.Sort(refs)
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	products, err := s.catalog.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load upsell products: %w", err)
	}

	view := &UpsellView{Upsell: u, Items: []*domain.Product{}}
	for _, ref := range refs {
		if p, ok := products[ref.ID]; ok {
			view.Items = append(view.Items, p)
		}
	}
	return view, nil
}

func (s *upsellService) List(ctx context.Context) ([]*domain.Upsell, error) {
	return s.upsells.List(ctx)
}

func (s *upsellService) Update(ctx context.Context, id string, input UpsellUpdate) (*domain.Upsell, error) {
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

	updated, err := s.upsells.Update(ctx, id, func(u *domain.Upsell) error {
		if input.Pricing != nil {
			u.Pricing = pricing
		}
		if input.MainImage != nil {
			u.MainImage = *input.MainImage
		}
		if input.Visibility != nil {
			u.Visibility = *input.Visibility
		}
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// Delete removes the upsell and unlinks every product that referenced it
func (s *upsellService) Delete(ctx context.Context, id string) error {
	if err := s.upsells.Delete(ctx, id); err != nil {
		return err
	}

	products, err := s.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	for _, p := range products {
		if p.Upsell != id {
			continue
		}
		_, err := s.products.Update(ctx, p.ID, func(p *domain.Product) error {
			p.Upsell = ""
			p.UpdatedAt = s.now()
			return nil
		})
		if err != nil && !errors.Is(err, repository.ErrProductNotFound) {
			return fmt.Errorf("failed to unlink upsell %s from product %s: %w", id, p.ID, err)
		}
	}

	s.pages.invalidate(ctx, cache.PathUpsells, cache.PathProducts, cache.PathCart, cache.PathHome, cache.PathAdmin)
	return nil
}

// AddProduct places the product first in the bundle
func (s *upsellService) AddProduct(ctx context.Context, upsellID, productID string) error {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return err
	}

	_, err = s.upsells.Update(ctx, upsellID, func(u *domain.Upsell) error {
		if u.HasProduct(productID) {
			return domain.ErrDuplicateProduct
		}
		u.SetProducts(ordering.InsertFirst(u.ProductPointers(), &domain.UpsellProduct{ID: product.ID, Name: product.Name}))
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *upsellService) RemoveProduct(ctx context.Context, upsellID, productID string) error {
	_, err := s.upsells.Update(ctx, upsellID, func(u *domain.Upsell) error {
		rest, removed := ordering.Remove(u.ProductPointers(), productID)
		if !removed {
			return repository.ErrProductNotFound
		}
		u.SetProducts(rest)
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *upsellService) ChangeProductIndex(ctx context.Context, upsellID, productID string, index int) error {
	_, err := s.upsells.Update(ctx, upsellID, func(u *domain.Upsell) error {
		products := u.ProductPointers()
		if err := ordering.Swap(products, productID, index); err != nil {
			if errors.Is(err, ordering.ErrNotFound) {
				return repository.ErrProductNotFound
			}
			return err
		}
		u.SetProducts(products)
		u.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *upsellService) invalidate(ctx context.Context) {
	s.pages.invalidate(ctx, cache.PathUpsells, cache.PathProducts, cache.PathAdmin)
}
