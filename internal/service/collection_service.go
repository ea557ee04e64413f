package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// CollectionService defines the interface for collection business logic
type CollectionService interface {
	Create(ctx context.Context, input CollectionInput) (*domain.Collection, error)
	Get(ctx context.Context, id string) (*domain.Collection, error)
	List(ctx context.Context) ([]*domain.Collection, error)
	Update(ctx context.Context, id string, input CollectionUpdate) (*domain.Collection, error)
	Delete(ctx context.Context, id string) error
	ChangeIndex(ctx context.Context, id string, index int) error

	AddProduct(ctx context.Context, collectionID, productID string) error
	RemoveProduct(ctx context.Context, collectionID, productID string) error
	ChangeProductIndex(ctx context.Context, collectionID, productID string, index int) error

	// Home lists the published collections running now, in display order
	Home(ctx context.Context) ([]*CollectionView, error)
	// GetPublished returns a running, published collection by slug
	GetPublished(ctx context.Context, slug string) (*CollectionView, error)
}

type CollectionInput struct {
	Title            string
	Slug             string
	CollectionType   domain.CollectionType
	CampaignDuration domain.CampaignDuration
	BannerImages     *domain.BannerImages
}

// CollectionUpdate carries the fields to change; nil fields are left alone
type CollectionUpdate struct {
	Title            *string
	Slug             *string
	CampaignDuration *domain.CampaignDuration
	BannerImages     *domain.BannerImages
	Visibility       *domain.Visibility
}

// CollectionView is a collection with its published products in order
type CollectionView struct {
	*domain.Collection
	Items []*domain.Product `json:"items"`
}

type collectionService struct {
	collections repository.CollectionRepository
	catalog     catalogLookup
	pages       pageInvalidator
	now         Clock
}

// NewCollectionService creates a new instance of CollectionService
func NewCollectionService(
	collections repository.CollectionRepository,
	products repository.ProductRepository,
	invalidator cache.Invalidator,
	logger *zap.Logger,
) CollectionService {
	return &collectionService{
		collections: collections,
		catalog:     catalogLookup{products: products},
		pages:       pageInvalidator{cache: invalidator, logger: logger},
		now:         systemClock,
	}
}

// Create places the new collection first and shifts the others down
func (s *collectionService) Create(ctx context.Context, input CollectionInput) (*domain.Collection, error) {
	if !input.CollectionType.Valid() {
		return nil, domain.ErrInvalidCollectionType
	}
	if input.Title == "" || !input.CampaignDuration.StartDate.Before(input.CampaignDuration.EndDate) {
		return nil, ErrInvalidInput
	}
	if input.CollectionType == domain.CollectionBanner && input.BannerImages == nil {
		return nil, ErrInvalidInput
	}

	slug := input.Slug
	if slug == "" {
		slug = slugify(input.Title)
	}

	now := s.now()
	created := &domain.Collection{
		Title:            input.Title,
		Slug:             slug,
		CollectionType:   input.CollectionType,
		CampaignDuration: input.CampaignDuration,
		Products:         []domain.CollectionProduct{},
		Visibility:       domain.VisibilityDraft,
		BannerImages:     input.BannerImages,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err := s.collections.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		return ordering.InsertFirst(all, created), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	s.invalidate(ctx)
	return created, nil
}

func (s *collectionService) Get(ctx context.Context, id string) (*domain.Collection, error) {
	return s.collections.FindByID(ctx, id)
}

func (s *collectionService) List(ctx context.Context) ([]*domain.Collection, error) {
	return s.collections.List(ctx)
}

func (s *collectionService) Update(ctx context.Context, id string, input CollectionUpdate) (*domain.Collection, error) {
	if input.Visibility != nil && !input.Visibility.Valid() {
		return nil, domain.ErrInvalidVisibility
	}
	if d := input.CampaignDuration; d != nil && !d.StartDate.Before(d.EndDate) {
		return nil, ErrInvalidInput
	}

	updated, err := s.collections.Update(ctx, id, func(c *domain.Collection) error {
		if input.Title != nil {
			if *input.Title == "" {
				return ErrInvalidInput
			}
			c.Title = *input.Title
		}
		if input.Slug != nil {
			c.Slug = *input.Slug
			if c.Slug == "" {
				c.Slug = slugify(c.Title)
			}
		}
		if input.CampaignDuration != nil {
			c.CampaignDuration = *input.CampaignDuration
		}
		if input.BannerImages != nil {
			if c.CollectionType != domain.CollectionBanner {
				return domain.ErrInvalidCollectionType
			}
			c.BannerImages = input.BannerImages
		}
		if input.Visibility != nil {
			c.Visibility = *input.Visibility
		}
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a collection and renumbers the survivors in the same transaction
func (s *collectionService) Delete(ctx context.Context, id string) error {
	err := s.collections.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		rest, removed := ordering.Remove(all, id)
		if !removed {
			return nil, repository.ErrCollectionNotFound
		}
		touch(rest, s.now())
		return rest, nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// ChangeIndex swaps the collection with whichever sibling holds index
func (s *collectionService) ChangeIndex(ctx context.Context, id string, index int) error {
	err := s.collections.UpdateAll(ctx, func(all []*domain.Collection) ([]*domain.Collection, error) {
		if err := ordering.Swap(all, id, index); err != nil {
			if errors.Is(err, ordering.ErrNotFound) {
				return nil, repository.ErrCollectionNotFound
			}
			return nil, err
		}
		return all, nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *collectionService) AddProduct(ctx context.Context, collectionID, productID string) error {
	products, err := s.catalog.Products(ctx, []string{productID})
	if err != nil {
		return fmt.Errorf("failed to look up product: %w", err)
	}
	if _, ok := products[productID]; !ok {
		return repository.ErrProductNotFound
	}

	_, err = s.collections.Update(ctx, collectionID, func(c *domain.Collection) error {
		if c.HasProduct(productID) {
			return domain.ErrDuplicateProduct
		}
		c.SetProducts(ordering.InsertFirst(c.ProductPointers(), &domain.CollectionProduct{ID: productID}))
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *collectionService) RemoveProduct(ctx context.Context, collectionID, productID string) error {
	_, err := s.collections.Update(ctx, collectionID, func(c *domain.Collection) error {
		rest, removed := ordering.Remove(c.ProductPointers(), productID)
		if !removed {
			return repository.ErrProductNotFound
		}
		c.SetProducts(rest)
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *collectionService) ChangeProductIndex(ctx context.Context, collectionID, productID string, index int) error {
	_, err := s.collections.Update(ctx, collectionID, func(c *domain.Collection) error {
		products := c.ProductPointers()
		if err := ordering.Swap(products, productID, index); err != nil {
			if errors.Is(err, ordering.ErrNotFound) {
				return repository.ErrProductNotFound
			}
			return err
		}
		c.SetProducts(products)
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

func (s *collectionService) Home(ctx context.Context) ([]*CollectionView, error) {
	all, err := s.collections.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var live []*domain.Collection
	var ids []string
	for _, c := range all {
		if !isLive(c, now) {
			continue
		}
		live = append(live, c)
		for _, p := range c.Products {
			ids = append(ids, p.ID)
		}
	}
	ordering.Sort(live)

	products, err := s.catalog.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection products: %w", err)
	}

	views := make([]*CollectionView, 0, len(live))
	for _, c := range live {
		views = append(views, buildView(c, products))
	}
	return views, nil
}

func (s *collectionService) GetPublished(ctx context.Context, slug string) (*CollectionView, error) {
	c, err := s.collections.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !isLive(c, s.now()) {
		return nil, repository.ErrCollectionNotFound
	}

	ids := make([]string, 0, len(c.Products))
	for _, p := range c.Products {
		ids = append(ids, p.ID)
	}
	products, err := s.catalog.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection products: %w", err)
	}
	return buildView(c, products), nil
}

func (s *collectionService) invalidate(ctx context.Context) {
	s.pages.invalidate(ctx, cache.PathHome, cache.PathCollections, cache.PathAdmin)
}

func isLive(c *domain.Collection, now time.Time) bool {
	return c.Visibility == domain.VisibilityPublished && c.CampaignDuration.Active(now)
}

func buildView(c *domain.Collection, products map[string]*domain.Product) *CollectionView {
	refs := c.ProductPointers()
	ordering.Sort(refs)

	view := &CollectionView{Collection: c, Items: []*domain.Product{}}
	for _, ref := range refs {
		if p, ok := products[ref.ID]; ok && p.Visibility == domain.VisibilityPublished {
			view.Items = append(view.Items, p)
		}
	}
	return view
}

func touch(set []*domain.Collection, now time.Time) {
	for _, c := range set {
		c.UpdatedAt = now
	}
}
