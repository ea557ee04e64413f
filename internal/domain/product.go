package domain

import (
	"errors"
	"time"
)

var (
	ErrInvalidVisibility = errors.New("invalid visibility")
	ErrDuplicateProduct  = errors.New("product already added")
	ErrInvalidOption     = errors.New("selected option is not available")
)

// Visibility controls whether catalog entities are shown on the storefront
type Visibility string

const (
	VisibilityDraft     Visibility = "DRAFT"
	VisibilityPublished Visibility = "PUBLISHED"
	VisibilityHidden    Visibility = "HIDDEN"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityDraft, VisibilityPublished, VisibilityHidden:
		return true
	}
	return false
}

// Pricing holds a price pair. A zero SalePrice means the product is not on sale.
type Pricing struct {
	BasePrice          float64 `json:"basePrice" firestore:"basePrice"`
	SalePrice          float64 `json:"salePrice" firestore:"salePrice"`
	DiscountPercentage float64 `json:"discountPercentage" firestore:"discountPercentage"`
}

// Effective returns the price a customer pays
func (p Pricing) Effective() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.BasePrice {
		return p.SalePrice
	}
	return p.BasePrice
}

type Images struct {
	Main    string   `json:"main" firestore:"main"`
	Gallery []string `json:"gallery" firestore:"gallery"`
}

type ColorOption struct {
	Name  string `json:"name" firestore:"name"`
	Image string `json:"image" firestore:"image"`
}

type SizeChart struct {
	Inches      map[string]string `json:"inches,omitempty" firestore:"inches,omitempty"`
	Centimeters map[string]string `json:"centimeters,omitempty" firestore:"centimeters,omitempty"`
}

type Options struct {
	Colors []ColorOption `json:"colors" firestore:"colors"`
	Sizes  []string      `json:"sizes" firestore:"sizes"`
	Chart  *SizeChart    `json:"chart,omitempty" firestore:"chart,omitempty"`
}

// HasColor reports whether color is selectable. Products without colors accept an empty color.
func (o Options) HasColor(color string) bool {
	if len(o.Colors) == 0 {
		return color == ""
	}
	for _, c := range o.Colors {
		if c.Name == color {
			return true
		}
	}
	return false
}

// HasSize reports whether size is selectable. Products without sizes accept an empty size.
func (o Options) HasSize(size string) bool {
	if len(o.Sizes) == 0 {
		return size == ""
	}
	for _, s := range o.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// Product represents a product in the catalog
type Product struct {
	ID          string     `json:"id" firestore:"-"`
	Name        string     `json:"name" firestore:"name"`
	Slug        string     `json:"slug" firestore:"slug"`
	Description string     `json:"description" firestore:"description"`
	Category    string     `json:"category" firestore:"category"`
	Pricing     Pricing    `json:"pricing" firestore:"pricing"`
	Images      Images     `json:"images" firestore:"images"`
	Options     Options    `json:"options" firestore:"options"`
	Upsell      string     `json:"upsell,omitempty" firestore:"upsell"`
	Visibility  Visibility `json:"visibility" firestore:"visibility"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// Category represents a product category
type Category struct {
	Index      int        `json:"index" firestore:"index"`
	Name       string     `json:"name" firestore:"name"`
	Image      string     `json:"image" firestore:"image"`
	Visibility Visibility `json:"visibility" firestore:"visibility"`
}

// DefaultCategories is the fixed category set the storefront ships with
var DefaultCategories = []Category{
	{Index: 1, Name: "Dresses", Image: "dresses.png", Visibility: VisibilityHidden},
	{Index: 2, Name: "Tops", Image: "tops.png", Visibility: VisibilityHidden},
	{Index: 3, Name: "Bottoms", Image: "bottoms.png", Visibility: VisibilityHidden},
	{Index: 4, Name: "Outerwear", Image: "outerwear.png", Visibility: VisibilityHidden},
	{Index: 5, Name: "Shoes", Image: "shoes.png", Visibility: VisibilityHidden},
	{Index: 6, Name: "Accessories", Image: "accessories.png", Visibility: VisibilityHidden},
	{Index: 7, Name: "Men", Image: "men.png", Visibility: VisibilityHidden},
	{Index: 8, Name: "Catch-All", Image: "catch-all.png", Visibility: VisibilityHidden},
}
