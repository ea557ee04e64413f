package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/ordering"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

var errProductMissing = fmt.Errorf("lookup: %w", repository.ErrProductNotFound)

const testDevice = "7f1c2d3e-4b5a-4c6d-8e9f-0a1b2c3d4e5f"

func noLimit(next http.Handler) http.Handler { return next }

func newCartRouter(carts *fakeCarts, checkout *fakeCheckout) http.Handler {
	r := chi.NewRouter()
	NewCartHandler(carts, checkout, testCookies, zap.NewNop()).RegisterRoutes(r, noLimit)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeActionBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ActionResponse {
	t.Helper()
	var resp middleware.ActionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestAddItem_IssuesDeviceCookieForNewCart(t *testing.T) {
	carts := &fakeCarts{addID: testDevice, addCreated: true}
	router := newCartRouter(carts, &fakeCheckout{})

	w := doJSON(t, router, http.MethodPost, "/api/cart/items",
		`{"type":"product","baseProductId":"p1","size":"M","color":"Red"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, middleware.ActionSuccess, decodeActionBody(t, w).Type)
	assert.Equal(t, "", carts.lastDevice)
	assert.Equal(t, domain.CartItem{Type: domain.ItemTypeProduct, BaseProductID: "p1", Size: "M", Color: "Red"}, carts.lastItem)

	cookie := findCookie(w, "device_identifier")
	require.NotNil(t, cookie)
	assert.Equal(t, testDevice, cookie.Value)
	assert.Equal(t, 30*24*60*60, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
}

func TestAddItem_ReusesExistingDevice(t *testing.T) {
	carts := &fakeCarts{addID: testDevice}
	router := newCartRouter(carts, &fakeCheckout{})

	w := doJSON(t, router, http.MethodPost, "/api/cart/items",
		`{"type":"upsell","baseUpsellId":"u1","baseProductId":"ignored","products":[{"id":"p1","size":"S","color":"Red"}]}`,
		&http.Cookie{Name: "device_identifier", Value: testDevice})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testDevice, carts.lastDevice)
	assert.Empty(t, carts.lastItem.BaseProductID)
	assert.Len(t, carts.lastItem.Products, 1)
	assert.Nil(t, findCookie(w, "device_identifier"))
}

func TestAddItem_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"duplicate", `{"type":"product","baseProductId":"p1"}`, domain.ErrDuplicateItem, http.StatusConflict, "Item already in cart"},
		{"bad option", `{"type":"product","baseProductId":"p1","size":"XXL"}`, domain.ErrInvalidOption, http.StatusBadRequest, "Selected option is not available"},
		{"missing product", `{"type":"product","baseProductId":"p1"}`, errProductMissing, http.StatusNotFound, "Product not found"},
		{"store failure", `{"type":"product","baseProductId":"p1"}`, errors.New("deadline exceeded"), http.StatusInternalServerError, msgReload},
		{"unknown type", `{"type":"gift"}`, nil, http.StatusBadRequest, "Type: Value must be one of: product upsell"},
		{"upsell without products", `{"type":"upsell","baseUpsellId":"u1"}`, nil, http.StatusBadRequest, "Products: This field is required"},
		{"malformed", `{"type":`, nil, http.StatusBadRequest, "Invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newCartRouter(&fakeCarts{addErr: tt.err}, &fakeCheckout{})
			w := doJSON(t, router, http.MethodPost, "/api/cart/items", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeActionBody(t, w)
			assert.Equal(t, middleware.ActionError, resp.Type)
			assert.Equal(t, tt.wantMsg, resp.Message)
		})
	}
}

func TestRemoveItem_ClearsCookieWhenCartDeleted(t *testing.T) {
	carts := &fakeCarts{removeDeleted: true}
	router := newCartRouter(carts, &fakeCheckout{})

	w := doJSON(t, router, http.MethodDelete, "/api/cart/items/01HV", "",
		&http.Cookie{Name: "device_identifier", Value: testDevice})

	require.Equal(t, http.StatusOK, w.Code)
	cookie := findCookie(w, "device_identifier")
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}

func TestRemoveItem_WithoutCookie(t *testing.T) {
	router := newCartRouter(&fakeCarts{removeErr: domain.ErrCartNotFound}, &fakeCheckout{})

	w := doJSON(t, router, http.MethodDelete, "/api/cart/items/01HV", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Cart not found", decodeActionBody(t, w).Message)
}

func TestRemoveItem_UnknownVariant(t *testing.T) {
	router := newCartRouter(&fakeCarts{removeErr: ordering.ErrNotFound}, &fakeCheckout{})

	w := doJSON(t, router, http.MethodDelete, "/api/cart/items/nope", "",
		&http.Cookie{Name: "device_identifier", Value: testDevice})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Nil(t, findCookie(w, "device_identifier"))
}

func TestClearPurchased(t *testing.T) {
	carts := &fakeCarts{}
	router := newCartRouter(carts, &fakeCheckout{})

	w := doJSON(t, router, http.MethodPost, "/api/cart/clear-purchased", `{"variantIds":["a","b"]}`,
		&http.Cookie{Name: "device_identifier", Value: testDevice})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a", "b"}, carts.cleared)

	w = doJSON(t, router, http.MethodPost, "/api/cart/clear-purchased", `{"variantIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCart(t *testing.T) {
	t.Run("no device", func(t *testing.T) {
		w := doJSON(t, newCartRouter(&fakeCarts{}, &fakeCheckout{}), http.MethodGet, "/api/cart", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"device_identifier":"","items":[],"subtotal":0,"updatedAt":"0001-01-01T00:00:00Z"}`, w.Body.String())
		assert.Nil(t, findCookie(w, "device_identifier"))
	})

	t.Run("stale device cookie is cleared", func(t *testing.T) {
		w := doJSON(t, newCartRouter(&fakeCarts{}, &fakeCheckout{}), http.MethodGet, "/api/cart", "",
			&http.Cookie{Name: "device_identifier", Value: "0b9e7c1a-2f3d-4e5b-8a6c-7d8e9f0a1b2c"})
		require.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, findCookie(w, "device_identifier"))
	})

	t.Run("validated cart", func(t *testing.T) {
		carts := &fakeCarts{view: &service.CartView{
			DeviceIdentifier: testDevice,
			Items: []service.CartLine{{
				CartItem: domain.CartItem{Type: domain.ItemTypeProduct, BaseProductID: "p1", VariantID: "v1", Index: 1},
				Name:     "Linen Dress",
				Price:    20,
			}},
			Subtotal: 20,
		}}
		w := doJSON(t, newCartRouter(carts, &fakeCheckout{}), http.MethodGet, "/api/cart", "",
			&http.Cookie{Name: "device_identifier", Value: testDevice})

		require.Equal(t, http.StatusOK, w.Code)
		var view service.CartView
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
		assert.Equal(t, testDevice, carts.lastDevice)
		assert.Equal(t, 20.0, view.Subtotal)
		assert.Equal(t, "Linen Dress", view.Items[0].Name)
	})

	t.Run("store failure", func(t *testing.T) {
		w := doJSON(t, newCartRouter(&fakeCarts{viewErr: errors.New("unavailable")}, &fakeCheckout{}), http.MethodGet, "/api/cart", "",
			&http.Cookie{Name: "device_identifier", Value: testDevice})
		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var body middleware.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "failed to load cart", body.Error.Message)
	})
}

func TestCheckout(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		w := doJSON(t, newCartRouter(&fakeCarts{}, &fakeCheckout{createID: "PAY-1"}), http.MethodPost, "/api/checkout/orders", "",
			&http.Cookie{Name: "device_identifier", Value: testDevice})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]interface{}{"id": "PAY-1"}, decodeActionBody(t, w).Data)
	})

	t.Run("empty cart", func(t *testing.T) {
		w := doJSON(t, newCartRouter(&fakeCarts{}, &fakeCheckout{createErr: service.ErrEmptyCart}), http.MethodPost, "/api/checkout/orders", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Your cart is empty", decodeActionBody(t, w).Message)
	})

	t.Run("capture empties cart", func(t *testing.T) {
		checkout := &fakeCheckout{order: &domain.Order{ID: "o1", Status: domain.OrderPending}}
		w := doJSON(t, newCartRouter(&fakeCarts{}, checkout), http.MethodPost, "/api/checkout/orders/PAY-1/capture", "",
			&http.Cookie{Name: "device_identifier", Value: testDevice})

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "PAY-1", checkout.order.PayPalOrderID)
		require.NotNil(t, findCookie(w, "device_identifier"))
	})

	t.Run("capture not completed", func(t *testing.T) {
		checkout := &fakeCheckout{err: service.ErrPaymentNotCompleted}
		w := doJSON(t, newCartRouter(&fakeCarts{}, checkout), http.MethodPost, "/api/checkout/orders/PAY-1/capture", "")
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})
}

func TestDeviceCookie_MalformedValueMeansNoCart(t *testing.T) {
	forged := []string{
		"../../carts/someone-else",
		"carts/x",
		strings.Repeat("a", 65),
		"7F1C2D3E-4B5A-4C6D-8E9F-0A1B2C3D4E5F",
		"{7f1c2d3e-4b5a-4c6d-8e9f-0a1b2c3d4e5f}",
	}

	for _, value := range forged {
		t.Run(value, func(t *testing.T) {
			carts := &fakeCarts{lastDevice: "unset"}
			router := newCartRouter(carts, &fakeCheckout{})

			w := doJSON(t, router, http.MethodGet, "/api/cart", "",
				&http.Cookie{Name: "device_identifier", Value: value})

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "", carts.lastDevice)
			cleared := findCookie(w, "device_identifier")
			require.NotNil(t, cleared)
			assert.Negative(t, cleared.MaxAge)
		})
	}
}

func TestDeviceCookie_MalformedValueIsReplacedOnAdd(t *testing.T) {
	carts := &fakeCarts{addID: testDevice, addCreated: true}
	router := newCartRouter(carts, &fakeCheckout{})

	w := doJSON(t, router, http.MethodPost, "/api/cart/items",
		`{"type":"product","baseProductId":"p1","size":"M","color":"Red"}`,
		&http.Cookie{Name: "device_identifier", Value: "x/y"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "", carts.lastDevice)
	cookie := findCookie(w, "device_identifier")
	require.NotNil(t, cookie)
	assert.Equal(t, testDevice, cookie.Value)
}
