package domain

import (
	"errors"
	"time"
)

var (
	ErrCartNotFound  = errors.New("cart not found")
	ErrDuplicateItem = errors.New("item already in cart")
	ErrInvalidItem   = errors.New("invalid cart item")
)

// ItemType discriminates the two kinds of cart line items
type ItemType string

const (
	ItemTypeProduct ItemType = "product"
	ItemTypeUpsell  ItemType = "upsell"
)

// Cart is the one-per-device shopping cart document. The device identifier
// is the document key, so a device can never own two carts.
type Cart struct {
	DeviceIdentifier string     `json:"device_identifier" firestore:"device_identifier"`
	Items            []CartItem `json:"items" firestore:"items"`
	CreatedAt        time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// CartItem is a line item. Product items carry BaseProductID/Size/Color,
// upsell items carry BaseUpsellID and the chosen Products.
type CartItem struct {
	Type          ItemType          `json:"type" firestore:"type"`
	BaseProductID string            `json:"baseProductId,omitempty" firestore:"baseProductId,omitempty"`
	Size          string            `json:"size,omitempty" firestore:"size,omitempty"`
	Color         string            `json:"color,omitempty" firestore:"color,omitempty"`
	BaseUpsellID  string            `json:"baseUpsellId,omitempty" firestore:"baseUpsellId,omitempty"`
	Products      []UpsellSelection `json:"products,omitempty" firestore:"products,omitempty"`
	VariantID     string            `json:"variantId" firestore:"variantId"`
	Index         int               `json:"index" firestore:"index"`
}

// UpsellSelection is one product picked inside an upsell bundle
type UpsellSelection struct {
	ID    string `json:"id" firestore:"id"`
	Size  string `json:"size" firestore:"size"`
	Color string `json:"color" firestore:"color"`
}

func (i *CartItem) SiblingID() string       { return i.VariantID }
func (i *CartItem) SiblingIndex() int       { return i.Index }
func (i *CartItem) SetSiblingIndex(idx int) { i.Index = idx }

// Validate checks the shape of a new item before it is added
func (i *CartItem) Validate() error {
	switch i.Type {
	case ItemTypeProduct:
		if i.BaseProductID == "" {
			return ErrInvalidItem
		}
	case ItemTypeUpsell:
		if i.BaseUpsellID == "" || len(i.Products) == 0 {
			return ErrInvalidItem
		}
		for _, p := range i.Products {
			if p.ID == "" {
				return ErrInvalidItem
			}
		}
	default:
		return ErrInvalidItem
	}
	return nil
}

// SameAs reports whether two items describe the same purchase: equal
// product/size/color for products, equal upsell with element-wise equal
// (color, size) selections for upsells.
func (i *CartItem) SameAs(other *CartItem) bool {
	if i.Type != other.Type {
		return false
	}

	switch i.Type {
	case ItemTypeProduct:
		return i.BaseProductID == other.BaseProductID &&
			i.Size == other.Size &&
			i.Color == other.Color
	case ItemTypeUpsell:
		if i.BaseUpsellID != other.BaseUpsellID || len(i.Products) != len(other.Products) {
			return false
		}
		for k := range i.Products {
			if i.Products[k].Color != other.Products[k].Color || i.Products[k].Size != other.Products[k].Size {
				return false
			}
		}
		return true
	}

	return false
}

// Contains reports whether the cart already holds an item equivalent to item
func (c *Cart) Contains(item *CartItem) bool {
	for k := range c.Items {
		if c.Items[k].SameAs(item) {
			return true
		}
	}
	return false
}

// ItemPointers returns pointers into Items so ordering helpers can mutate them in place
func (c *Cart) ItemPointers() []*CartItem {
	out := make([]*CartItem, len(c.Items))
	for k := range c.Items {
		out[k] = &c.Items[k]
	}
	return out
}

// SetItems replaces Items with copies of the given pointers
func (c *Cart) SetItems(items []*CartItem) {
	c.Items = make([]CartItem, 0, len(items))
	for _, it := range items {
		c.Items = append(c.Items, *it)
	}
}
