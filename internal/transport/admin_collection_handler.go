package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

type collectionRequest struct {
	Title            string                  `json:"title" validate:"required"`
	Slug             string                  `json:"slug"`
	CollectionType   domain.CollectionType   `json:"collectionType" validate:"required,oneof=FEATURED BANNER SCROLLABLE"`
	CampaignDuration domain.CampaignDuration `json:"campaignDuration"`
	BannerImages     *domain.BannerImages    `json:"bannerImages" validate:"required_if=CollectionType BANNER"`
}

type collectionPatchRequest struct {
	Title            *string                  `json:"title" validate:"omitempty,min=1"`
	Slug             *string                  `json:"slug"`
	CampaignDuration *domain.CampaignDuration `json:"campaignDuration"`
	BannerImages     *domain.BannerImages     `json:"bannerImages"`
	Visibility       *domain.Visibility       `json:"visibility" validate:"omitempty,oneof=DRAFT PUBLISHED HIDDEN"`
}

type collectionIndexRequest struct {
	ID    string `json:"id" validate:"required"`
	Index int    `json:"index" validate:"required,gte=1"`
}

// collectionProductIndexRequest keeps the {product: {id, index}} shape of the storefront admin
type collectionProductIndexRequest struct {
	Product struct {
		ID    string `json:"id" validate:"required"`
		Index int    `json:"index" validate:"required,gte=1"`
	} `json:"product"`
}

func (h *AdminHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.collections.List(r.Context())
	if err != nil {
		readFailed(w, h.logger, err, "collections")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, collections)
}

func (h *AdminHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if !decodeAction(w, r, &req) {
		return
	}

	collection, err := h.collections.Create(r.Context(), service.CollectionInput{
		Title:            req.Title,
		Slug:             req.Slug,
		CollectionType:   req.CollectionType,
		CampaignDuration: req.CampaignDuration,
		BannerImages:     req.BannerImages,
	})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to create collection")
		return
	}

	middleware.RespondWithAction(w, http.StatusCreated, middleware.ActionSuccess, "Collection created", collection)
}

func (h *AdminHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.collections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		readFailed(w, h.logger, err, "collection")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, collection)
}

func (h *AdminHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionPatchRequest
	if !decodeAction(w, r, &req) {
		return
	}

	collection, err := h.collections.Update(r.Context(), chi.URLParam(r, "id"), service.CollectionUpdate{
		Title:            req.Title,
		Slug:             req.Slug,
		CampaignDuration: req.CampaignDuration,
		BannerImages:     req.BannerImages,
		Visibility:       req.Visibility,
	})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update collection")
		return
	}
	actionOK(w, "Collection updated", collection)
}

// DeleteCollection removes the collection and renumbers the rest
func (h *AdminHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		actionFailed(w, h.logger, err, "Failed to delete collection")
		return
	}
	actionOK(w, "Collection deleted", nil)
}

// ChangeCollectionIndex swaps the collection with the one holding the requested index
func (h *AdminHandler) ChangeCollectionIndex(w http.ResponseWriter, r *http.Request) {
	var req collectionIndexRequest
	if !decodeAction(w, r, &req) {
		return
	}

	if err := h.collections.ChangeIndex(r.Context(), req.ID, req.Index); err != nil {
		actionFailed(w, h.logger, err, "Failed to update collection index")
		return
	}
	actionOK(w, "Collection index updated", nil)
}

func (h *AdminHandler) AddCollectionProduct(w http.ResponseWriter, r *http.Request) {
	var req productRefRequest
	if !decodeAction(w, r, &req) {
		return
	}

	if err := h.collections.AddProduct(r.Context(), chi.URLParam(r, "id"), req.ProductID); err != nil {
		actionFailed(w, h.logger, err, "Failed to update collection")
		return
	}
	actionOK(w, "Product added", nil)
}

func (h *AdminHandler) RemoveCollectionProduct(w http.ResponseWriter, r *http.Request) {
	err := h.collections.RemoveProduct(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update collection")
		return
	}
	actionOK(w, "Product removed", nil)
}

func (h *AdminHandler) ChangeCollectionProductIndex(w http.ResponseWriter, r *http.Request) {
	var req collectionProductIndexRequest
	if !decodeAction(w, r, &req) {
		return
	}

	err := h.collections.ChangeProductIndex(r.Context(), chi.URLParam(r, "id"), req.Product.ID, req.Product.Index)
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update product index")
		return
	}
	actionOK(w, "Product index updated", nil)
}
