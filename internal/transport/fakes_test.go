package transport

import (
	"context"
	"io"
	"time"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

// Each fake embeds its service interface so only the methods a test drives
// need an implementation; anything else panics and fails the test.

type fakeCarts struct {
	service.CartService

	lastDevice string
	lastItem   domain.CartItem
	addID      string
	addCreated bool
	addErr     error

	removeDeleted bool
	removeErr     error
	cleared       []string

	view    *service.CartView
	viewErr error
}

func (f *fakeCarts) AddItem(_ context.Context, deviceID string, item domain.CartItem) (string, bool, error) {
	f.lastDevice, f.lastItem = deviceID, item
	return f.addID, f.addCreated, f.addErr
}

func (f *fakeCarts) RemoveItem(_ context.Context, deviceID, _ string) (bool, error) {
	f.lastDevice = deviceID
	return f.removeDeleted, f.removeErr
}

func (f *fakeCarts) ClearPurchasedItems(_ context.Context, deviceID string, ids []string) (bool, error) {
	f.lastDevice, f.cleared = deviceID, ids
	return f.removeDeleted, f.removeErr
}

func (f *fakeCarts) GetCart(_ context.Context, deviceID string) (*service.CartView, error) {
	f.lastDevice = deviceID
	return f.view, f.viewErr
}

type fakeCheckout struct {
	service.CheckoutService

	createID  string
	createErr error
	order     *domain.Order
	err       error
	status    domain.OrderStatus
}

func (f *fakeCheckout) CreatePayPalOrder(context.Context, string) (string, error) {
	return f.createID, f.createErr
}

func (f *fakeCheckout) CapturePayPalOrder(_ context.Context, _, paypalOrderID string) (*domain.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.order.PayPalOrderID = paypalOrderID
	return f.order, nil
}

func (f *fakeCheckout) UpdateOrderStatus(_ context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	f.status = status
	return &domain.Order{ID: id, Status: status}, f.err
}

type fakeCollections struct {
	service.CollectionService

	changeErr error
	changed   [2]interface{}
	moved     [3]interface{}
	home      []*service.CollectionView
}

func (f *fakeCollections) ChangeIndex(_ context.Context, id string, index int) error {
	f.changed = [2]interface{}{id, index}
	return f.changeErr
}

func (f *fakeCollections) ChangeProductIndex(_ context.Context, collectionID, productID string, index int) error {
	f.moved = [3]interface{}{collectionID, productID, index}
	return f.changeErr
}

func (f *fakeCollections) Home(context.Context) ([]*service.CollectionView, error) {
	return f.home, nil
}

type fakeProducts struct {
	service.ProductService
	published map[string]*domain.Product
}

func (f *fakeProducts) GetPublished(_ context.Context, id string) (*domain.Product, error) {
	if p, ok := f.published[id]; ok {
		return p, nil
	}
	return nil, errProductMissing
}

type fakeUploader struct {
	name, contentType string
	body              []byte
}

func (f *fakeUploader) Upload(_ context.Context, filename, contentType string, r io.Reader) (string, error) {
	f.name, f.contentType = filename, contentType
	f.body, _ = io.ReadAll(r)
	return "https://storage.googleapis.com/bucket/images/" + filename, nil
}

var testCookies = CookieConfig{
	CartName:      "device_identifier",
	CartMaxAge:    30 * 24 * time.Hour,
	SessionName:   "cherlygood_session",
	SessionMaxAge: 14 * 24 * time.Hour,
	Secure:        true,
}
