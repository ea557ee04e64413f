package domain

import (
	"errors"
	"time"
)

var ErrInvalidOrderStatus = errors.New("invalid order status")

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCanceled   OrderStatus = "CANCELED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCompleted, OrderCanceled, OrderRefunded:
		return true
	}
	return false
}

type Money struct {
	Value    float64 `json:"value" firestore:"value"`
	Currency string  `json:"currency" firestore:"currency"`
}

type Payer struct {
	Email string `json:"email" firestore:"email"`
	Name  string `json:"name" firestore:"name"`
}

type ShippingAddress struct {
	Name       string `json:"name" firestore:"name"`
	Line1      string `json:"line1" firestore:"line1"`
	Line2      string `json:"line2,omitempty" firestore:"line2,omitempty"`
	City       string `json:"city" firestore:"city"`
	State      string `json:"state" firestore:"state"`
	PostalCode string `json:"postalCode" firestore:"postalCode"`
	Country    string `json:"country" firestore:"country"`
}

// OrderLine is a snapshot of a purchased cart line at capture time
type OrderLine struct {
	VariantID string            `json:"variantId" firestore:"variantId"`
	Type      ItemType          `json:"type" firestore:"type"`
	RefID     string            `json:"refId" firestore:"refId"`
	Name      string            `json:"name" firestore:"name"`
	Image     string            `json:"image" firestore:"image"`
	Size      string            `json:"size,omitempty" firestore:"size,omitempty"`
	Color     string            `json:"color,omitempty" firestore:"color,omitempty"`
	Products  []UpsellSelection `json:"products,omitempty" firestore:"products,omitempty"`
	Price     float64           `json:"price" firestore:"price"`
}

type EmailLog struct {
	ConfirmationSentAt *time.Time `json:"confirmationSentAt,omitempty" firestore:"confirmationSentAt,omitempty"`
	LastStatusEmailAt  *time.Time `json:"lastStatusEmailAt,omitempty" firestore:"lastStatusEmailAt,omitempty"`
}

// Order is created when a PayPal payment is captured
type Order struct {
	ID            string          `json:"id" firestore:"-"`
	PayPalOrderID string          `json:"paypalOrderId" firestore:"paypalOrderId"`
	Status        OrderStatus     `json:"status" firestore:"status"`
	Payer         Payer           `json:"payer" firestore:"payer"`
	Shipping      ShippingAddress `json:"shipping" firestore:"shipping"`
	Amount        Money           `json:"amount" firestore:"amount"`
	Items         []OrderLine     `json:"items" firestore:"items"`
	Emails        EmailLog        `json:"emails" firestore:"emails"`
	CreatedAt     time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt" firestore:"updatedAt"`
}
