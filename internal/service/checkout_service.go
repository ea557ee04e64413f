package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/payment"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
)

// CheckoutService defines the interface for checkout and order management
type CheckoutService interface {
	// CreatePayPalOrder prices the device's validated cart and opens a PayPal order for it
	CreatePayPalOrder(ctx context.Context, deviceID string) (string, error)
	// CapturePayPalOrder captures an approved PayPal order and records it. A
	// PayPal order that was already recorded returns the stored order.
	CapturePayPalOrder(ctx context.Context, deviceID, paypalOrderID string) (*domain.Order, error)

	ListOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
}

type checkoutService struct {
	carts    CartService
	orders   repository.OrderRepository
	payments PaymentProvider
	notifier OrderNotifier
	pages    pageInvalidator
	currency string
	logger   *zap.Logger
	now      Clock
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	carts CartService,
	orders repository.OrderRepository,
	payments PaymentProvider,
	notifier OrderNotifier,
	invalidator cache.Invalidator,
	currency string,
	logger *zap.Logger,
) CheckoutService {
	return &checkoutService{
		carts:    carts,
		orders:   orders,
		payments: payments,
		notifier: notifier,
		pages:    pageInvalidator{cache: invalidator, logger: logger},
		currency: currency,
		logger:   logger,
		now:      systemClock,
	}
}

func (s *checkoutService) CreatePayPalOrder(ctx context.Context, deviceID string) (string, error) {
	view, err := s.carts.GetCart(ctx, deviceID)
	if err != nil {
		return "", err
	}
	if view == nil || len(view.Items) == 0 {
		return "", ErrEmptyCart
	}

	items := make([]payment.LineItem, 0, len(view.Items))
	for _, line := range view.Items {
		items = append(items, payment.LineItem{
			SKU:       line.VariantID,
			Name:      line.Name,
			UnitPrice: line.Price,
			Quantity:  1,
		})
	}

	id, err := s.payments.CreateOrder(ctx, items)
	if err != nil {
		return "", fmt.Errorf("failed to create paypal order: %w", err)
	}
	return id, nil
}

func (s *checkoutService) CapturePayPalOrder(ctx context.Context, deviceID, paypalOrderID string) (*domain.Order, error) {
	existing, err := s.orders.FindByPayPalID(ctx, paypalOrderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrOrderNotFound) {
		return nil, err
	}

	view, err := s.carts.GetCart(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	captured, err := s.payments.CaptureOrder(ctx, paypalOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to capture paypal order: %w", err)
	}
	if captured.Status != payment.StatusCompleted {
		return nil, ErrPaymentNotCompleted
	}

	items, purchased := paidLines(view, captured)
	if len(purchased) == 0 {
		s.logger.Warn("Captured PayPal order carries no cart lines",
			zap.String("paypal_order_id", paypalOrderID),
			zap.String("device_identifier", deviceID),
		)
	}

	now := s.now()
	order := &domain.Order{
		PayPalOrderID: paypalOrderID,
		Status:        domain.OrderPending,
		Payer:         captured.Payer,
		Shipping:      captured.Shipping,
		Amount:        captured.Amount,
		Items:         items,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if order.Amount.Currency == "" {
		order.Amount.Currency = s.currency
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrOrderAlreadyExists) {
			return s.orders.FindByPayPalID(ctx, paypalOrderID)
		}
		return nil, err
	}

	if len(purchased) > 0 {
		if _, err := s.carts.ClearPurchasedItems(ctx, deviceID, purchased); err != nil && !errors.Is(err, domain.ErrCartNotFound) {
			s.logger.Error("Failed to clear purchased items",
				zap.String("order_id", order.ID),
				zap.String("device_identifier", deviceID),
				zap.Error(err),
			)
		}
	}

	if err := s.notifier.SendOrderConfirmation(ctx, order); err != nil {
		s.logger.Error("Failed to send order confirmation", zap.String("order_id", order.ID), zap.Error(err))
		return order, nil
	}

	sent, err := s.orders.Update(ctx, order.ID, func(o *domain.Order) error {
		at := s.now()
		o.Emails.ConfirmationSentAt = &at
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to record confirmation e-mail", zap.String("order_id", order.ID), zap.Error(err))
		return order, nil
	}
	return sent, nil
}

func (s *checkoutService) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.orders.List(ctx, limit)
}

func (s *checkoutService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

// UpdateOrderStatus persists the new status and e-mails the customer about it
func (s *checkoutService) UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidOrderStatus
	}

	order, err := s.orders.Update(ctx, id, func(o *domain.Order) error {
		o.Status = status
		o.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.pages.invalidate(ctx, cache.PathAdmin)

	if err := s.notifier.SendStatusUpdate(ctx, order); err != nil {
		s.logger.Error("Failed to send order status e-mail",
			zap.String("order_id", order.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return order, nil
	}

	sent, err := s.orders.Update(ctx, id, func(o *domain.Order) error {
		at := s.now()
		o.Emails.LastStatusEmailAt = &at
		return nil
	})
	if err != nil {
		s.logger.Warn("Failed to record status e-mail", zap.String("order_id", order.ID), zap.Error(err))
		return order, nil
	}
	return sent, nil
}

// paidLines builds the order lines from the items PayPal charged for, keyed
// by the variant id sent as sku. Cart lines added after the order was created
// are not part of it and stay in the cart. A paid line that has since left
// the cart is still recorded from what PayPal reports.
func paidLines(view *CartView, captured *payment.Capture) ([]domain.OrderLine, []string) {
	inCart := map[string]CartLine{}
	if view != nil {
		for _, line := range view.Items {
			inCart[line.VariantID] = line
		}
	}

	lines := []domain.OrderLine{}
	var purchased []string
	for _, it := range captured.Items {
		if it.SKU == "" {
			continue
		}
		line := domain.OrderLine{VariantID: it.SKU, Name: it.Name}
		if cartLine, ok := inCart[it.SKU]; ok {
			line = orderLine(cartLine)
		}
		line.Price = it.UnitPrice
		lines = append(lines, line)
		purchased = append(purchased, it.SKU)
	}
	return lines, purchased
}

func orderLine(line CartLine) domain.OrderLine {
	out := domain.OrderLine{
		VariantID: line.VariantID,
		Type:      line.Type,
		Name:      line.Name,
		Image:     line.Image,
		Size:      line.Size,
		Color:     line.Color,
		Products:  line.Products,
		Price:     line.Price,
	}
	if line.Type == domain.ItemTypeUpsell {
		out.RefID = line.BaseUpsellID
	} else {
		out.RefID = line.BaseProductID
	}
	return out
}
