package domain

import "time"

// Upsell is a bundle of catalog products sold together at one price
type Upsell struct {
	ID         string          `json:"id" firestore:"-"`
	Pricing    Pricing         `json:"pricing" firestore:"pricing"`
	MainImage  string          `json:"mainImage" firestore:"mainImage"`
	Visibility Visibility      `json:"visibility" firestore:"visibility"`
	Products   []UpsellProduct `json:"products" firestore:"products"`
	CreatedAt  time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

type UpsellProduct struct {
	ID    string `json:"id" firestore:"id"`
	Index int    `json:"index" firestore:"index"`
	Name  string `json:"name" firestore:"name"`
}

func (p *UpsellProduct) SiblingID() string       { return p.ID }
func (p *UpsellProduct) SiblingIndex() int       { return p.Index }
func (p *UpsellProduct) SetSiblingIndex(idx int) { p.Index = idx }

func (u *Upsell) ProductPointers() []*UpsellProduct {
	out := make([]*UpsellProduct, len(u.Products))
	for k := range u.Products {
		out[k] = &u.Products[k]
	}
	return out
}

func (u *Upsell) SetProducts(products []*UpsellProduct) {
	u.Products = make([]UpsellProduct, 0, len(products))
	for _, p := range products {
		u.Products = append(u.Products, *p)
	}
}

func (u *Upsell) HasProduct(id string) bool {
	for _, p := range u.Products {
		if p.ID == id {
			return true
		}
	}
	return false
}
