package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

// CatalogHandler serves the public storefront reads
type CatalogHandler struct {
	products    service.ProductService
	upsells     service.UpsellService
	collections service.CollectionService
	categories  service.CategoryService
	logger      *zap.Logger
}

func NewCatalogHandler(
	products service.ProductService,
	upsells service.UpsellService,
	collections service.CollectionService,
	categories service.CategoryService,
	logger *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		products:    products,
		upsells:     upsells,
		collections: collections,
		categories:  categories,
		logger:      logger,
	}
}

// RegisterRoutes registers the public catalog routes behind pageCache
func (h *CatalogHandler) RegisterRoutes(r chi.Router, pageCache func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(pageCache)
		r.Get("/api/home", h.Home)
		r.Get("/api/categories", h.ListCategories)
		r.Get("/api/collections/{slug}", h.GetCollection)
		r.Get("/api/products", h.ListProducts)
		r.Get("/api/products/{id}", h.GetProduct)
		r.Get("/api/upsells/{id}", h.GetUpsell)
	})
}

func (h *CatalogHandler) Home(w http.ResponseWriter, r *http.Request) {
	views, err := h.collections.Home(r.Context())
	if err != nil {
		readFailed(w, h.logger, err, "home page")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{"collections": views})
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListPublished(r.Context())
	if err != nil {
		readFailed(w, h.logger, err, "categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *CatalogHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	view, err := h.collections.GetPublished(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		readFailed(w, h.logger, err, "collection")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// ListProducts lists published products, optionally within one category
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), repository.ProductFilter{
		Category:   r.URL.Query().Get("category"),
		Visibility: domain.VisibilityPublished,
	})
	if err != nil {
		readFailed(w, h.logger, err, "products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		readFailed(w, h.logger, err, "product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) GetUpsell(w http.ResponseWriter, r *http.Request) {
	view, err := h.upsells.GetPublished(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		readFailed(w, h.logger, err, "upsell")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, view)
}
