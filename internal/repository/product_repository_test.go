package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
)

func newTestProduct(name, category string, visibility domain.Visibility) *domain.Product {
	ts := now()
	return &domain.Product{
		Name:        name,
		Slug:        name,
		Description: "test product",
		Category:    category,
		Pricing:     domain.Pricing{BasePrice: 49.99, SalePrice: 39.99, DiscountPercentage: 20},
		Images:      domain.Images{Main: "main.png", Gallery: []string{"g1.png"}},
		Options: domain.Options{
			Colors: []domain.ColorOption{{Name: "Black", Image: "black.png"}},
			Sizes:  []string{"S", "M"},
		},
		Visibility: visibility,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
}

// Property: creating and retrieving a product preserves its attributes
func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, price float64) bool {
			product := newTestProduct(name, "Dresses", domain.VisibilityDraft)
			product.Description = description
			product.Pricing.BasePrice = price

			if err := repo.Create(ctx, product); err != nil {
				t.Logf("FAIL: Failed to create product: %v", err)
				return false
			}
			defer repo.Delete(ctx, product.ID)

			retrieved, err := repo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FAIL: Failed to retrieve product: %v", err)
				return false
			}

			if retrieved.Name != product.Name || retrieved.Description != product.Description {
				t.Logf("FAIL: text mismatch for %s", product.ID)
				return false
			}
			if retrieved.Pricing != product.Pricing {
				t.Logf("FAIL: Pricing mismatch. Expected %+v, got %+v", product.Pricing, retrieved.Pricing)
				return false
			}
			if !assert.ObjectsAreEqual(product.Options, retrieved.Options) {
				t.Logf("FAIL: Options mismatch")
				return false
			}
			return retrieved.CreatedAt.Equal(product.CreatedAt)
		},
		gen.RegexMatch(`[A-Za-z0-9 ]{3,50}`),
		gen.RegexMatch(`[A-Za-z0-9 .,!?]{10,200}`),
		gen.Float64Range(0.01, 9999.99),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProductRepository_FindByIDsSkipsMissing(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	a := newTestProduct("a", "Tops", domain.VisibilityPublished)
	b := newTestProduct("b", "Tops", domain.VisibilityPublished)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	found, err := repo.FindByIDs(ctx, []string{a.ID, uuid.NewString(), b.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestProductRepository_ListFilters(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()
	category := "Filter-" + uuid.NewString()

	published := newTestProduct("published", category, domain.VisibilityPublished)
	draft := newTestProduct("draft", category, domain.VisibilityDraft)
	require.NoError(t, repo.Create(ctx, published))
	require.NoError(t, repo.Create(ctx, draft))

	all, err := repo.List(ctx, ProductFilter{Category: category})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	visible, err := repo.List(ctx, ProductFilter{Category: category, Visibility: domain.VisibilityPublished})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, published.ID, visible[0].ID)
}

func TestProductRepository_UpdateAndDelete(t *testing.T) {
	repo := NewProductRepository(testDB)
	ctx := context.Background()

	p := newTestProduct("update-me", "Shoes", domain.VisibilityDraft)
	require.NoError(t, repo.Create(ctx, p))

	updated, err := repo.Update(ctx, p.ID, func(p *domain.Product) error {
		p.Visibility = domain.VisibilityPublished
		p.Upsell = "u1"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublished, updated.Visibility)

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", found.Upsell)

	require.NoError(t, repo.Delete(ctx, p.ID))
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrProductNotFound)
	_, err = repo.Update(ctx, p.ID, func(*domain.Product) error { return nil })
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpsellRepository_CRUD(t *testing.T) {
	repo := NewUpsellRepository(testDB)
	ctx := context.Background()
	ts := now()

	u := &domain.Upsell{
		Pricing:    domain.Pricing{BasePrice: 80, SalePrice: 60},
		MainImage:  "bundle.png",
		Visibility: domain.VisibilityPublished,
		Products:   []domain.UpsellProduct{{ID: "p1", Index: 1, Name: "Dress"}},
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)

	_, err := repo.Update(ctx, u.ID, func(u *domain.Upsell) error {
		u.Products = append(u.Products, domain.UpsellProduct{ID: "p2", Index: 2, Name: "Belt"})
		return nil
	})
	require.NoError(t, err)

	found, err := repo.FindByIDs(ctx, []string{u.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Len(t, found[0].Products, 2)

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err = repo.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUpsellNotFound)
}

func TestCategoryRepository_ReplaceIsIdempotent(t *testing.T) {
	repo := NewCategoryRepository(testDB)
	ctx := context.Background()

	defaults := make([]*domain.Category, len(domain.DefaultCategories))
	for k := range domain.DefaultCategories {
		c := domain.DefaultCategories[k]
		defaults[k] = &c
	}

	require.NoError(t, repo.Replace(ctx, defaults))
	require.NoError(t, repo.Replace(ctx, defaults))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(domain.DefaultCategories))
	assert.Equal(t, "Dresses", all[0].Name)

	updated, err := repo.Update(ctx, "Tops", func(c *domain.Category) error {
		c.Visibility = domain.VisibilityPublished
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.VisibilityPublished, updated.Visibility)

	_, err = repo.Update(ctx, "Nope", func(*domain.Category) error { return nil })
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestOrderRepository_CreateIsIdempotentPerPayPalOrder(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()
	ts := now()
	paypalID := "PP-" + uuid.NewString()

	newOrder := func() *domain.Order {
		return &domain.Order{
			PayPalOrderID: paypalID,
			Status:        domain.OrderPending,
			Payer:         domain.Payer{Email: "buyer@example.com", Name: "Buyer"},
			Amount:        domain.Money{Value: 39.99, Currency: "USD"},
			Items:         []domain.OrderLine{{VariantID: "v1", Type: domain.ItemTypeProduct, RefID: "p1", Price: 39.99}},
			CreatedAt:     ts,
			UpdatedAt:     ts,
		}
	}

	first := newOrder()
	require.NoError(t, repo.Create(ctx, first))
	assert.ErrorIs(t, repo.Create(ctx, newOrder()), ErrOrderAlreadyExists)

	found, err := repo.FindByPayPalID(ctx, paypalID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	updated, err := repo.Update(ctx, first.ID, func(o *domain.Order) error {
		o.Status = domain.OrderShipped
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderShipped, updated.Status)

	orders, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, orders)
}
