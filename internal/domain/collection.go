package domain

import (
	"errors"
	"time"
)

var ErrInvalidCollectionType = errors.New("invalid collection type")

type CollectionType string

const (
	CollectionFeatured   CollectionType = "FEATURED"
	CollectionBanner     CollectionType = "BANNER"
	CollectionScrollable CollectionType = "SCROLLABLE"
)

func (t CollectionType) Valid() bool {
	switch t {
	case CollectionFeatured, CollectionBanner, CollectionScrollable:
		return true
	}
	return false
}

type CampaignDuration struct {
	StartDate time.Time `json:"startDate" firestore:"startDate"`
	EndDate   time.Time `json:"endDate" firestore:"endDate"`
}

// Active reports whether now falls inside the campaign window
func (d CampaignDuration) Active(now time.Time) bool {
	return !now.Before(d.StartDate) && now.Before(d.EndDate)
}

type BannerImages struct {
	DesktopImage string `json:"desktopImage" firestore:"desktopImage"`
	MobileImage  string `json:"mobileImage" firestore:"mobileImage"`
}

// Collection is a merchandised, ordered group of products. Sibling
// collections share one contiguous 1..N index space.
type Collection struct {
	ID               string              `json:"id" firestore:"-"`
	Index            int                 `json:"index" firestore:"index"`
	Title            string              `json:"title" firestore:"title"`
	Slug             string              `json:"slug" firestore:"slug"`
	CollectionType   CollectionType      `json:"collectionType" firestore:"collectionType"`
	CampaignDuration CampaignDuration    `json:"campaignDuration" firestore:"campaignDuration"`
	Products         []CollectionProduct `json:"products" firestore:"products"`
	Visibility       Visibility          `json:"visibility" firestore:"visibility"`
	BannerImages     *BannerImages       `json:"bannerImages,omitempty" firestore:"bannerImages,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" firestore:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt" firestore:"updatedAt"`
}

// CollectionProduct references a catalog product from inside a collection
type CollectionProduct struct {
	ID    string `json:"id" firestore:"id"`
	Index int    `json:"index" firestore:"index"`
}

func (c *Collection) SiblingID() string       { return c.ID }
func (c *Collection) SiblingIndex() int       { return c.Index }
func (c *Collection) SetSiblingIndex(idx int) { c.Index = idx }

func (p *CollectionProduct) SiblingID() string       { return p.ID }
func (p *CollectionProduct) SiblingIndex() int       { return p.Index }
func (p *CollectionProduct) SetSiblingIndex(idx int) { p.Index = idx }

func (c *Collection) ProductPointers() []*CollectionProduct {
	out := make([]*CollectionProduct, len(c.Products))
	for k := range c.Products {
		out[k] = &c.Products[k]
	}
	return out
}

func (c *Collection) SetProducts(products []*CollectionProduct) {
	c.Products = make([]CollectionProduct, 0, len(products))
	for _, p := range products {
		c.Products = append(c.Products, *p)
	}
}

func (c *Collection) HasProduct(id string) bool {
	for _, p := range c.Products {
		if p.ID == id {
			return true
		}
	}
	return false
}
