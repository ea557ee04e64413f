// Package service implements the storefront and back-office use cases on top
// of the repositories.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/cache"
	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/payment"
)

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrPaymentNotCompleted = errors.New("payment was not completed")
	ErrInvalidInput        = errors.New("invalid input")
)

// PaymentProvider creates and captures checkout orders
type PaymentProvider interface {
	CreateOrder(ctx context.Context, items []payment.LineItem) (string, error)
	CaptureOrder(ctx context.Context, orderID string) (*payment.Capture, error)
}

// OrderNotifier sends the customer e-mails for an order
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, order *domain.Order) error
	SendStatusUpdate(ctx context.Context, order *domain.Order) error
}

// Clock returns the current time; tests replace it
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

// pageInvalidator drops cached pages after a mutation. Failures are logged
// and otherwise ignored; a stale page expires with its TTL.
type pageInvalidator struct {
	cache  cache.Invalidator
	logger *zap.Logger
}

func (p pageInvalidator) invalidate(ctx context.Context, prefixes ...string) {
	if err := p.cache.Invalidate(ctx, prefixes...); err != nil {
		p.logger.Warn("Failed to invalidate cached pages",
			zap.Strings("prefixes", prefixes),
			zap.Error(err),
		)
	}
}

// slugify lowercases s and joins its alphanumeric runs with hyphens
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// roundToCents rounds a price to two decimals, half away from zero
func roundToCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// normalizePricing rounds both prices to cents and recomputes the discount
// percentage from the rounded pair
func normalizePricing(p domain.Pricing) (domain.Pricing, error) {
	p.BasePrice = roundToCents(p.BasePrice)
	p.SalePrice = roundToCents(p.SalePrice)
	if p.BasePrice <= 0 || p.SalePrice < 0 || (p.SalePrice != 0 && p.SalePrice >= p.BasePrice) {
		return p, ErrInvalidInput
	}
	p.DiscountPercentage = 0
	if p.SalePrice > 0 {
		p.DiscountPercentage = float64(int((p.BasePrice-p.SalePrice)/p.BasePrice*100 + 0.5))
	}
	return p, nil
}
