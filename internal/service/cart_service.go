package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// CartService defines the interface for cart business logic
type CartService interface {
	// AddItem adds item to the device's cart, creating the cart (and a device
	// id when deviceID is empty) on first use. created reports whether a new
	// device id was generated.
	AddItem(ctx context.Context, deviceID string, item domain.CartItem) (id string, created bool, err error)
	// RemoveItem drops one line item. cartDeleted is true when the cart became empty and was removed.
	RemoveItem(ctx context.Context, deviceID, variantID string) (cartDeleted bool, err error)
	// GetCart returns nil when the device has no cart
	GetCart(ctx context.Context, deviceID string) (*CartView, error)
	ClearPurchasedItems(ctx context.Context, deviceID string, variantIDs []string) (cartDeleted bool, err error)
	DeleteIdleCarts(ctx context.Context, olderThan time.Duration) (int, error)
}

// CartView is a cart validated against the live catalog
type CartView struct {
	DeviceIdentifier string     `json:"device_identifier"`
	Items            []CartLine `json:"items"`
	Subtotal         float64    `json:"subtotal"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CartLine is a cart item enriched with the catalog data needed to display it
type CartLine struct {
	domain.CartItem
	Name  string  `json:"name"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
}

// addAttempts bounds the create-or-append loop when a concurrent request
// creates or deletes the same cart in between
const addAttempts = 3

type cartService struct {
	carts   repository.CartRepository
	catalog catalogLookup
	pages   pageInvalidator
	now     Clock
}

// NewCartService creates a new instance of CartService
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	upsells repository.UpsellRepository,
	invalidator cache.Invalidator,
	logger *zap.Logger,
) CartService {
	return &cartService{
		carts:   carts,
		catalog: catalogLookup{products: products, upsells: upsells},
		pages:   pageInvalidator{cache: invalidator, logger: logger},
		now:     systemClock,
	}
}

func (s *cartService) AddItem(ctx context.Context, deviceID string, item domain.CartItem) (string, bool, error) {
	if err := item.Validate(); err != nil {
		return "", false, err
	}
	if err := s.checkReference(ctx, &item); err != nil {
		return "", false, err
	}

	created := false
	if deviceID == "" {
		deviceID = uuid.NewString()
		created = true
	}
	item.VariantID = ulid.Make().String()

	for attempt := 0; attempt < addAttempts; attempt++ {
		now := s.now()

		first := item
		first.Index = 1
		err := s.carts.Create(ctx, &domain.Cart{
			DeviceIdentifier: deviceID,
			Items:            []domain.CartItem{first},
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err == nil {
			s.invalidate(ctx, cache.PathCart, cache.PathHome, cache.PathProducts, cache.PathAdmin)
			return deviceID, created, nil
		}
		if !errors.Is(err, repository.ErrCartAlreadyExists) {
			return "", false, fmt.Errorf("failed to create cart: %w", err)
		}

		_, err = s.carts.Update(ctx, deviceID, func(cart *domain.Cart) error {
			if cart.Contains(&item) {
				return domain.ErrDuplicateItem
			}
			items := cart.ItemPointers()
			ordering.Renumber(items)
			next := item
			cart.SetItems(ordering.Append(items, &next))
			cart.UpdatedAt = now
			return nil
		})
		if errors.Is(err, domain.ErrCartNotFound) {
			// deleted since the create attempt
			continue
		}
		if err != nil {
			return "", false, err
		}

		s.invalidate(ctx, cache.PathCart, cache.PathHome, cache.PathProducts, cache.PathAdmin)
		return deviceID, created, nil
	}

	return "", false, fmt.Errorf("failed to add item to cart %s: cart kept changing", deviceID)
}

// checkReference verifies that the catalog entity an item points at exists,
// is published, and offers the selected options
func (s *cartService) checkReference(ctx context.Context, item *domain.CartItem) error {
	switch item.Type {
	case domain.ItemTypeProduct:
		products, err := s.catalog.Products(ctx, []string{item.BaseProductID})
		if err != nil {
			return fmt.Errorf("failed to look up product: %w", err)
		}
		p, ok := products[item.BaseProductID]
		if !ok || p.Visibility != domain.VisibilityPublished {
			return repository.ErrProductNotFound
		}
		if !p.Options.HasColor(item.Color) || !p.Options.HasSize(item.Size) {
			return domain.ErrInvalidOption
		}

	case domain.ItemTypeUpsell:
		upsells, err := s.catalog.Upsells(ctx, []string{item.BaseUpsellID})
		if err != nil {
			return fmt.Errorf("failed to look up upsell: %w", err)
		}
		u, ok := upsells[item.BaseUpsellID]
		if !ok || u.Visibility != domain.VisibilityPublished {
			return repository.ErrUpsellNotFound
		}

		ids := make([]string, 0, len(item.Products))
		for _, sel := range item.Products {
			if !u.HasProduct(sel.ID) {
				return domain.ErrInvalidItem
			}
			ids = append(ids, sel.ID)
		}
		products, err := s.catalog.Products(ctx, ids)
		if err != nil {
			return fmt.Errorf("failed to look up upsell products: %w", err)
		}
		for _, sel := range item.Products {
			p, ok := products[sel.ID]
			if !ok {
				return repository.ErrProductNotFound
			}
			if !p.Options.HasColor(sel.Color) || !p.Options.HasSize(sel.Size) {
				return domain.ErrInvalidOption
			}
		}
	}
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, deviceID, variantID string) (bool, error) {
	return s.removeItems(ctx, deviceID, map[string]bool{variantID: true}, true)
}

func (s *cartService) ClearPurchasedItems(ctx context.Context, deviceID string, variantIDs []string) (bool, error) {
	drop := make(map[string]bool, len(variantIDs))
	for _, id := range variantIDs {
		drop[id] = true
	}
	return s.removeItems(ctx, deviceID, drop, false)
}

// removeItems filters out the items in drop and renumbers the survivors. With
// strict set, a request that matches nothing is reported as ordering.ErrNotFound.
func (s *cartService) removeItems(ctx context.Context, deviceID string, drop map[string]bool, strict bool) (bool, error) {
	if deviceID == "" {
		return false, domain.ErrCartNotFound
	}

	cart, err := s.carts.Update(ctx, deviceID, func(cart *domain.Cart) error {
		items, removed := ordering.RemoveFunc(cart.ItemPointers(), func(it *domain.CartItem) bool {
			return drop[it.VariantID]
		})
		if !removed && strict {
			return ordering.ErrNotFound
		}
		cart.SetItems(items)
		cart.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return false, err
	}

	s.invalidate(ctx, cache.PathCart, cache.PathHome, cache.PathProducts, cache.PathAdmin)
	return len(cart.Items) == 0, nil
}

func (s *cartService) GetCart(ctx context.Context, deviceID string) (*CartView, error) {
	if deviceID == "" {
		return nil, nil
	}

	cart, err := s.carts.FindByDevice(ctx, deviceID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	products, upsells, err := s.resolve(ctx, cart.Items)
	if err != nil {
		return nil, err
	}

	valid := func(it *domain.CartItem) bool {
		switch it.Type {
		case domain.ItemTypeProduct:
			_, ok := products[it.BaseProductID]
			return ok
		case domain.ItemTypeUpsell:
			_, ok := upsells[it.BaseUpsellID]
			return ok
		}
		return false
	}

	if !allItems(cart, valid) || !ordering.IsContiguous(cart.ItemPointers()) {
		cart, err = s.carts.Update(ctx, deviceID, func(c *domain.Cart) error {
			items, _ := ordering.RemoveFunc(c.ItemPointers(), func(it *domain.CartItem) bool { return !valid(it) })
			c.SetItems(items)
			c.UpdatedAt = s.now()
			return nil
		})
		if errors.Is(err, domain.ErrCartNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to repair cart: %w", err)
		}
		s.invalidate(ctx, cache.PathCart, cache.PathAdmin)
		if len(cart.Items) == 0 {
			return nil, nil
		}
	}

	view := &CartView{
		DeviceIdentifier: cart.DeviceIdentifier,
		Items:            make([]CartLine, 0, len(cart.Items)),
		UpdatedAt:        cart.UpdatedAt,
	}
	items := cart.ItemPointers()
	ordering.Sort(items)
	for _, it := range items {
		line := CartLine{CartItem: *it}
		switch it.Type {
		case domain.ItemTypeProduct:
			p := products[it.BaseProductID]
			line.Name = p.Name
			line.Image = p.Images.Main
			line.Price = p.Pricing.Effective()
		case domain.ItemTypeUpsell:
			u := upsells[it.BaseUpsellID]
			line.Name = upsellName(u)
			line.Image = u.MainImage
			line.Price = u.Pricing.Effective()
		}
		view.Subtotal += line.Price
		view.Items = append(view.Items, line)
	}
	return view, nil
}

func (s *cartService) resolve(ctx context.Context, items []domain.CartItem) (map[string]*domain.Product, map[string]*domain.Upsell, error) {
	var productIDs, upsellIDs []string
	for _, it := range items {
		switch it.Type {
		case domain.ItemTypeProduct:
			productIDs = append(productIDs, it.BaseProductID)
		case domain.ItemTypeUpsell:
			upsellIDs = append(upsellIDs, it.BaseUpsellID)
		}
	}

	products, err := s.catalog.Products(ctx, productIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to validate cart products: %w", err)
	}
	upsells, err := s.catalog.Upsells(ctx, upsellIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to validate cart upsells: %w", err)
	}
	return products, upsells, nil
}

func (s *cartService) DeleteIdleCarts(ctx context.Context, olderThan time.Duration) (int, error) {
	return s.carts.DeleteIdleBefore(ctx, s.now().Add(-olderThan))
}

func (s *cartService) invalidate(ctx context.Context, prefixes ...string) {
	s.pages.invalidate(ctx, prefixes...)
}

func allItems(cart *domain.Cart, ok func(*domain.CartItem) bool) bool {
	for k := range cart.Items {
		if !ok(&cart.Items[k]) {
			return false
		}
	}
	return true
}

func upsellName(u *domain.Upsell) string {
	products := u.ProductPointers()
	ordering.Sort(products)
	name := ""
	for k, p := range products {
		if k > 0 {
			name += " + "
		}
		name += p.Name
	}
	return name
}
