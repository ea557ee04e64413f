package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/payment"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// In-memory repositories for testing

type mockCartRepository struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: make(map[string]*domain.Cart)}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.CartItem(nil), c.Items...)
	return &out
}

func (m *mockCartRepository) FindByDevice(ctx context.Context, deviceID string) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart, ok := m.carts[deviceID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

func (m *mockCartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[cart.DeviceIdentifier]; ok {
		return repository.ErrCartAlreadyExists
	}
	m.carts[cart.DeviceIdentifier] = cloneCart(cart)
	return nil
}

func (m *mockCartRepository) Update(ctx context.Context, deviceID string, fn func(cart *domain.Cart) error) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.carts[deviceID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	cart := cloneCart(stored)
	if err := fn(cart); err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		delete(m.carts, deviceID)
	} else {
		m.carts[deviceID] = cloneCart(cart)
	}
	return cart, nil
}

func (m *mockCartRepository) Delete(ctx context.Context, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.carts[deviceID]; !ok {
		return domain.ErrCartNotFound
	}
	delete(m.carts, deviceID)
	return nil
}

func (m *mockCartRepository) DeleteIdleBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, c := range m.carts {
		if c.UpdatedAt.Before(cutoff) {
			delete(m.carts, id)
			n++
		}
	}
	return n, nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[string]*domain.Product
	batches  [][]string
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{products: make(map[string]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id string, fn func(p *domain.Product) error) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.products[id] = &cp
	out := cp
	return &out, nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), ids...))
	out := []*domain.Product{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Visibility != "" && p.Visibility != filter.Visibility {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockUpsellRepository struct {
	mu      sync.Mutex
	upsells map[string]*domain.Upsell
}

func newMockUpsellRepository(upsells ...*domain.Upsell) *mockUpsellRepository {
	m := &mockUpsellRepository{upsells: make(map[string]*domain.Upsell)}
	for _, u := range upsells {
		m.upsells[u.ID] = u
	}
	return m
}

func cloneUpsell(u *domain.Upsell) *domain.Upsell {
	out := *u
	out.Products = append([]domain.UpsellProduct(nil), u.Products...)
	return &out
}

func (m *mockUpsellRepository) Create(ctx context.Context, upsell *domain.Upsell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if upsell.ID == "" {
		upsell.ID = uuid.NewString()
	}
	m.upsells[upsell.ID] = cloneUpsell(upsell)
	return nil
}

func (m *mockUpsellRepository) Update(ctx context.Context, id string, fn func(u *domain.Upsell) error) (*domain.Upsell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.upsells[id]
	if !ok {
		return nil, repository.ErrUpsellNotFound
	}
	u := cloneUpsell(stored)
	if err := fn(u); err != nil {
		return nil, err
	}
	m.upsells[id] = cloneUpsell(u)
	return u, nil
}

func (m *mockUpsellRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.upsells[id]; !ok {
		return repository.ErrUpsellNotFound
	}
	delete(m.upsells, id)
	return nil
}

func (m *mockUpsellRepository) FindByID(ctx context.Context, id string) (*domain.Upsell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.upsells[id]
	if !ok {
		return nil, repository.ErrUpsellNotFound
	}
	return cloneUpsell(u), nil
}

func (m *mockUpsellRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Upsell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Upsell{}
	for _, id := range ids {
		if u, ok := m.upsells[id]; ok {
			out = append(out, cloneUpsell(u))
		}
	}
	return out, nil
}

func (m *mockUpsellRepository) List(ctx context.Context) ([]*domain.Upsell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Upsell{}
	for _, u := range m.upsells {
		out = append(out, cloneUpsell(u))
	}
	return out, nil
}

type mockCollectionRepository struct {
	mu          sync.Mutex
	collections map[string]*domain.Collection
}

func newMockCollectionRepository(collections ...*domain.Collection) *mockCollectionRepository {
	m := &mockCollectionRepository{collections: make(map[string]*domain.Collection)}
	for _, c := range collections {
		m.collections[c.ID] = c
	}
	return m
}

func cloneCollection(c *domain.Collection) *domain.Collection {
	out := *c
	out.Products = append([]domain.CollectionProduct(nil), c.Products...)
	return &out
}

func (m *mockCollectionRepository) FindByID(ctx context.Context, id string) (*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[id]
	if !ok {
		return nil, repository.ErrCollectionNotFound
	}
	return cloneCollection(c), nil
}

func (m *mockCollectionRepository) FindBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collections {
		if c.Slug == slug {
			return cloneCollection(c), nil
		}
	}
	return nil, repository.ErrCollectionNotFound
}

func (m *mockCollectionRepository) List(ctx context.Context) ([]*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(), nil
}

func (m *mockCollectionRepository) sorted() []*domain.Collection {
	out := []*domain.Collection{}
	for _, c := range m.collections {
		out = append(out, cloneCollection(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (m *mockCollectionRepository) Update(ctx context.Context, id string, fn func(c *domain.Collection) error) (*domain.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.collections[id]
	if !ok {
		return nil, repository.ErrCollectionNotFound
	}
	c := cloneCollection(stored)
	if err := fn(c); err != nil {
		return nil, err
	}
	m.collections[id] = cloneCollection(c)
	return c, nil
}

func (m *mockCollectionRepository) UpdateAll(ctx context.Context, fn func(all []*domain.Collection) ([]*domain.Collection, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, err := fn(m.sorted())
	if err != nil {
		return err
	}
	m.collections = make(map[string]*domain.Collection, len(next))
	for _, c := range next {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		m.collections[c.ID] = cloneCollection(c)
	}
	return nil
}

// indices returns id -> index for every stored collection
func (m *mockCollectionRepository) indices() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.collections))
	for id, c := range m.collections {
		out[id] = c.Index
	}
	return out
}

type mockCategoryRepository struct {
	mu         sync.Mutex
	categories map[string]*domain.Category
	writes     int
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{categories: make(map[string]*domain.Category)}
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Category{}
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *mockCategoryRepository) Replace(ctx context.Context, categories []*domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range categories {
		cp := *c
		m.categories[c.Name] = &cp
		m.writes++
	}
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, name string, fn func(c *domain.Category) error) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.categories[name]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.categories[name] = &cp
	return &cp, nil
}

type mockOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[string]*domain.Order)}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PayPalOrderID == order.PayPalOrderID {
			return repository.ErrOrderAlreadyExists
		}
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) FindByPayPalID(ctx context.Context, paypalOrderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PayPalOrderID == paypalOrderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) List(ctx context.Context, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOrderRepository) Update(ctx context.Context, id string, fn func(o *domain.Order) error) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *stored
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.orders[id] = &cp
	out := cp
	return &out, nil
}

type recordingInvalidator struct {
	mu       sync.Mutex
	prefixes []string
	err      error
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, prefixes ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefixes = append(r.prefixes, prefixes...)
	return r.err
}

// fakePayments hands out PAYPAL-1, PAYPAL-2, ... and, like PayPal, returns
// the items priced into an order when it is captured
type fakePayments struct {
	created  [][]payment.LineItem
	captures int
	status   string
}

func (f *fakePayments) CreateOrder(ctx context.Context, items []payment.LineItem) (string, error) {
	f.created = append(f.created, items)
	return fmt.Sprintf("PAYPAL-%d", len(f.created)), nil
}

func (f *fakePayments) CaptureOrder(ctx context.Context, orderID string) (*payment.Capture, error) {
	f.captures++
	status := f.status
	if status == "" {
		status = payment.StatusCompleted
	}
	return &payment.Capture{
		OrderID: orderID,
		Status:  status,
		Payer:   domain.Payer{Email: "buyer@example.com", Name: "Ada Buyer"},
		Amount:  domain.Money{Value: 42.5, Currency: "USD"},
		Items:   f.priced(orderID),
	}, nil
}

func (f *fakePayments) priced(orderID string) []payment.LineItem {
	var n int
	if _, err := fmt.Sscanf(orderID, "PAYPAL-%d", &n); err != nil || n < 1 || n > len(f.created) {
		return nil
	}
	return f.created[n-1]
}

type fakeNotifier struct {
	mu           sync.Mutex
	confirmed    []string
	statusEmails []domain.OrderStatus
	err          error
}

func (f *fakeNotifier) SendOrderConfirmation(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, order.ID)
	return nil
}

func (f *fakeNotifier) SendStatusUpdate(ctx context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.statusEmails = append(f.statusEmails, order.Status)
	return nil
}

// Fixtures

func publishedProduct(id string) *domain.Product {
	return &domain.Product{
		ID:         id,
		Name:       "Product " + id,
		Slug:       "product-" + id,
		Category:   "Dresses",
		Pricing:    domain.Pricing{BasePrice: 30, SalePrice: 20},
		Images:     domain.Images{Main: id + ".png", Gallery: []string{}},
		Options:    domain.Options{Sizes: []string{"S", "M", "L"}, Colors: []domain.ColorOption{{Name: "Red"}, {Name: "Blue"}}},
		Visibility: domain.VisibilityPublished,
	}
}

func publishedUpsell(id string, productIDs ...string) *domain.Upsell {
	u := &domain.Upsell{
		ID:         id,
		Pricing:    domain.Pricing{BasePrice: 50},
		MainImage:  id + ".png",
		Visibility: domain.VisibilityPublished,
	}
	for k, pid := range productIDs {
		u.Products = append(u.Products, domain.UpsellProduct{ID: pid, Index: k + 1, Name: "Product " + pid})
	}
	return u
}

func productItem(productID, size, color string) domain.CartItem {
	return domain.CartItem{Type: domain.ItemTypeProduct, BaseProductID: productID, Size: size, Color: color}
}
