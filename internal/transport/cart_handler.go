package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

type addToCartRequest struct {
	Type          domain.ItemType          `json:"type" validate:"required,oneof=product upsell"`
	BaseProductID string                   `json:"baseProductId" validate:"required_if=Type product"`
	Size          string                   `json:"size"`
	Color         string                   `json:"color"`
	BaseUpsellID  string                   `json:"baseUpsellId" validate:"required_if=Type upsell"`
	Products      []domain.UpsellSelection `json:"products" validate:"required_if=Type upsell,dive"`
}

type clearPurchasedRequest struct {
	VariantIDs []string `json:"variantIds" validate:"required,min=1,dive,required"`
}

// CartHandler serves the device-scoped cart and checkout actions
type CartHandler struct {
	carts    service.CartService
	checkout service.CheckoutService
	cookies  CookieConfig
	logger   *zap.Logger
}

func NewCartHandler(carts service.CartService, checkout service.CheckoutService, cookies CookieConfig, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, checkout: checkout, cookies: cookies, logger: logger}
}

// RegisterRoutes registers the cart and checkout routes. limit guards the
// mutating ones.
func (h *CartHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Get("/api/cart", h.GetCart)

	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Post("/api/cart/items", h.AddItem)
		r.Delete("/api/cart/items/{variantId}", h.RemoveItem)
		r.Post("/api/cart/clear-purchased", h.ClearPurchased)
		r.Post("/api/checkout/orders", h.CreateOrder)
		r.Post("/api/checkout/orders/{paypalOrderId}/capture", h.CaptureOrder)
	})
}

// deviceID returns the device identifier cookie when it holds an id this
// service could have issued: a UUID in canonical form. Anything else is
// treated as no cookie.
func (h *CartHandler) deviceID(r *http.Request) string {
	c, err := r.Cookie(h.cookies.CartName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(c.Value)
	if err != nil || id.String() != c.Value {
		return ""
	}
	return c.Value
}

func (h *CartHandler) setDeviceCookie(w http.ResponseWriter, deviceID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.CartName,
		Value:    deviceID,
		Path:     "/",
		MaxAge:   int(h.cookies.CartMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *CartHandler) clearDeviceCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookies.CartName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// GetCart returns the validated cart, or an empty one when the device has none
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	deviceID := h.deviceID(r)

	view, err := h.carts.GetCart(r.Context(), deviceID)
	if err != nil {
		readFailed(w, h.logger, err, "cart")
		return
	}
	if view == nil {
		// stale or malformed
		if _, err := r.Cookie(h.cookies.CartName); err == nil {
			h.clearDeviceCookie(w)
		}
		view = &service.CartView{Items: []service.CartLine{}}
	}

	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// AddItem is the add-to-cart action
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addToCartRequest
	if !decodeAction(w, r, &req) {
		return
	}

	item := domain.CartItem{
		Type:          req.Type,
		BaseProductID: req.BaseProductID,
		Size:          req.Size,
		Color:         req.Color,
		BaseUpsellID:  req.BaseUpsellID,
		Products:      req.Products,
	}
	if item.Type == domain.ItemTypeProduct {
		item.BaseUpsellID, item.Products = "", nil
	} else {
		item.BaseProductID, item.Size, item.Color = "", "", ""
	}

	deviceID, created, err := h.carts.AddItem(r.Context(), h.deviceID(r), item)
	if err != nil {
		actionFailed(w, h.logger, err, msgReload)
		return
	}
	if created {
		h.setDeviceCookie(w, deviceID)
	}

	actionOK(w, "Added to cart", nil)
}

// RemoveItem is the remove-from-cart action
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartDeleted, err := h.carts.RemoveItem(r.Context(), h.deviceID(r), chi.URLParam(r, "variantId"))
	if err != nil {
		actionFailed(w, h.logger, err, msgReload)
		return
	}
	if cartDeleted {
		h.clearDeviceCookie(w)
	}

	actionOK(w, "Item removed from cart", nil)
}

// ClearPurchased drops the listed variants, typically after a capture
func (h *CartHandler) ClearPurchased(w http.ResponseWriter, r *http.Request) {
	var req clearPurchasedRequest
	if !decodeAction(w, r, &req) {
		return
	}

	cartDeleted, err := h.carts.ClearPurchasedItems(r.Context(), h.deviceID(r), req.VariantIDs)
	if err != nil {
		actionFailed(w, h.logger, err, msgReload)
		return
	}
	if cartDeleted {
		h.clearDeviceCookie(w)
	}

	actionOK(w, "Purchased items cleared from cart", nil)
}

// CreateOrder opens a PayPal order for the device's cart
func (h *CartHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := h.checkout.CreatePayPalOrder(r.Context(), h.deviceID(r))
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to start checkout")
		return
	}

	actionOK(w, "PayPal order created", map[string]string{"id": id})
}

// CaptureOrder captures an approved PayPal order and records it
func (h *CartHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	deviceID := h.deviceID(r)

	order, err := h.checkout.CapturePayPalOrder(r.Context(), deviceID, chi.URLParam(r, "paypalOrderId"))
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to complete payment")
		return
	}

	if deviceID != "" {
		view, err := h.carts.GetCart(r.Context(), deviceID)
		if err != nil {
			h.logger.Warn("Failed to reload cart after capture", zap.Error(err))
		} else if view == nil {
			h.clearDeviceCookie(w)
		}
	}

	h.logger.Info("Order captured",
		zap.String("order_id", order.ID),
		zap.String("paypal_order_id", order.PayPalOrderID),
	)
	actionOK(w, "Payment completed", order)
}
