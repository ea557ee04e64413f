package transport

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/khanofemperia/gethsemane-sub001/internal/domain"
	"github.com/khanofemperia/gethsemane-sub001/internal/middleware"
	"github.com/khanofemperia/gethsemane-sub001/internal/repository"
	"github.com/khanofemperia/gethsemane-sub001/internal/service"
)

// maxUploadBytes caps one image upload
const maxUploadBytes = 10 << 20

// ImageUploader stores an uploaded image and returns its public URL
type ImageUploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// AdminHandler serves the back-office. Every route expects the caller to
// have passed the admin guard.
type AdminHandler struct {
	products    service.ProductService
	upsells     service.UpsellService
	collections service.CollectionService
	categories  service.CategoryService
	orders      service.CheckoutService
	uploader    ImageUploader
	logger      *zap.Logger
}

// AdminServices groups the use cases the back-office drives
type AdminServices struct {
	Products    service.ProductService
	Upsells     service.UpsellService
	Collections service.CollectionService
	Categories  service.CategoryService
	Orders      service.CheckoutService
}

// NewAdminHandler creates the back-office handler. uploader may be nil when no
// bucket is configured; uploads then answer 503.
func NewAdminHandler(svc AdminServices, uploader ImageUploader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		products:    svc.Products,
		upsells:     svc.Upsells,
		collections: svc.Collections,
		categories:  svc.Categories,
		orders:      svc.Orders,
		uploader:    uploader,
		logger:      logger,
	}
}

// RegisterRoutes mounts the back-office under /api/admin behind guard
func (h *AdminHandler) RegisterRoutes(r chi.Router, guard func(http.Handler) http.Handler) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Use(guard)

		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Post("/", h.CreateProduct)
			r.Get("/{id}", h.GetProduct)
			r.Patch("/{id}", h.UpdateProduct)
			r.Delete("/{id}", h.DeleteProduct)
			r.Put("/{id}/upsell", h.SetProductUpsell)
		})

		r.Route("/upsells", func(r chi.Router) {
			r.Get("/", h.ListUpsells)
			r.Post("/", h.CreateUpsell)
			r.Get("/{id}", h.GetUpsell)
			r.Patch("/{id}", h.UpdateUpsell)
			r.Delete("/{id}", h.DeleteUpsell)
			r.Post("/{id}/products", h.AddUpsellProduct)
			r.Delete("/{id}/products/{productId}", h.RemoveUpsellProduct)
			r.Put("/{id}/products/index", h.ChangeUpsellProductIndex)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", h.ListCollections)
			r.Post("/", h.CreateCollection)
			r.Put("/index", h.ChangeCollectionIndex)
			r.Get("/{id}", h.GetCollection)
			r.Patch("/{id}", h.UpdateCollection)
			r.Delete("/{id}", h.DeleteCollection)
			r.Post("/{id}/products", h.AddCollectionProduct)
			r.Delete("/{id}/products/{productId}", h.RemoveCollectionProduct)
			r.Put("/{id}/products/index", h.ChangeCollectionProductIndex)
		})

		r.Get("/categories", h.ListCategories)
		r.Patch("/categories/{name}", h.UpdateCategory)

		r.Get("/orders", h.ListOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Put("/orders/{id}/status", h.UpdateOrderStatus)

		r.Post("/uploads", h.Upload)
	})
}

// Products

type productRequest struct {
	Name        string         `json:"name" validate:"required"`
	Slug        string         `json:"slug"`
	Description string         `json:"description"`
	Category    string         `json:"category" validate:"required"`
	Pricing     domain.Pricing `json:"pricing"`
	Images      domain.Images  `json:"images"`
	Options     domain.Options `json:"options"`
}

type productPatchRequest struct {
	Name        *string            `json:"name" validate:"omitempty,min=1"`
	Slug        *string            `json:"slug"`
	Description *string            `json:"description"`
	Category    *string            `json:"category" validate:"omitempty,min=1"`
	Pricing     *domain.Pricing    `json:"pricing"`
	Images      *domain.Images     `json:"images"`
	Options     *domain.Options    `json:"options"`
	Visibility  *domain.Visibility `json:"visibility" validate:"omitempty,oneof=DRAFT PUBLISHED HIDDEN"`
}

type upsellLinkRequest struct {
	UpsellID string `json:"upsellId"`
}

func (h *AdminHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), repository.ProductFilter{
		Category:   r.URL.Query().Get("category"),
		Visibility: domain.Visibility(r.URL.Query().Get("visibility")),
	})
	if err != nil {
		readFailed(w, h.logger, err, "products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeAction(w, r, &req) {
		return
	}

	product, err := h.products.Create(r.Context(), service.ProductInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Pricing:     req.Pricing,
		Images:      req.Images,
		Options:     req.Options,
	})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to create product")
		return
	}

	middleware.RespondWithAction(w, http.StatusCreated, middleware.ActionSuccess, "Product created", product)
}

func (h *AdminHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.products.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		readFailed(w, h.logger, err, "product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productPatchRequest
	if !decodeAction(w, r, &req) {
		return
	}

	product, err := h.products.Update(r.Context(), chi.URLParam(r, "id"), service.ProductUpdate{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Pricing:     req.Pricing,
		Images:      req.Images,
		Options:     req.Options,
		Visibility:  req.Visibility,
	})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update product")
		return
	}

	actionOK(w, "Product updated", product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		actionFailed(w, h.logger, err, "Failed to delete product")
		return
	}
	actionOK(w, "Product deleted", nil)
}

func (h *AdminHandler) SetProductUpsell(w http.ResponseWriter, r *http.Request) {
	var req upsellLinkRequest
	if !decodeAction(w, r, &req) {
		return
	}

	product, err := h.products.SetUpsell(r.Context(), chi.URLParam(r, "id"), req.UpsellID)
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update product")
		return
	}

	message := "Upsell linked"
	if req.UpsellID == "" {
		message = "Upsell removed"
	}
	actionOK(w, message, product)
}

// Upsells

type upsellRequest struct {
	Pricing   domain.Pricing `json:"pricing"`
	MainImage string         `json:"mainImage" validate:"required"`
}

type upsellPatchRequest struct {
	Pricing    *domain.Pricing    `json:"pricing"`
	MainImage  *string            `json:"mainImage" validate:"omitempty,min=1"`
	Visibility *domain.Visibility `json:"visibility" validate:"omitempty,oneof=DRAFT PUBLISHED HIDDEN"`
}

type productRefRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type productIndexRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Index     int    `json:"index" validate:"required,gte=1"`
}

func (h *AdminHandler) ListUpsells(w http.ResponseWriter, r *http.Request) {
	upsells, err := h.upsells.List(r.Context())
	if err != nil {
		readFailed(w, h.logger, err, "upsells")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, upsells)
}

func (h *AdminHandler) CreateUpsell(w http.ResponseWriter, r *http.Request) {
	var req upsellRequest
	if !decodeAction(w, r, &req) {
		return
	}

	upsell, err := h.upsells.Create(r.Context(), service.UpsellInput{Pricing: req.Pricing, MainImage: req.MainImage})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to create upsell")
		return
	}

	middleware.RespondWithAction(w, http.StatusCreated, middleware.ActionSuccess, "Upsell created", upsell)
}

func (h *AdminHandler) GetUpsell(w http.ResponseWriter, r *http.Request) {
	upsell, err := h.upsells.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		readFailed(w, h.logger, err, "upsell")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, upsell)
}

func (h *AdminHandler) UpdateUpsell(w http.ResponseWriter, r *http.Request) {
	var req upsellPatchRequest
	if !decodeAction(w, r, &req) {
		return
	}

	upsell, err := h.upsells.Update(r.Context(), chi.URLParam(r, "id"), service.UpsellUpdate{
		Pricing:    req.Pricing,
		MainImage:  req.MainImage,
		Visibility: req.Visibility,
	})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update upsell")
		return
	}

	actionOK(w, "Upsell updated", upsell)
}

func (h *AdminHandler) DeleteUpsell(w http.ResponseWriter, r *http.Request) {
	if err := h.upsells.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		actionFailed(w, h.logger, err, "Failed to delete upsell")
		return
	}
	actionOK(w, "Upsell deleted", nil)
}

func (h *AdminHandler) AddUpsellProduct(w http.ResponseWriter, r *http.Request) {
	var req productRefRequest
	if !decodeAction(w, r, &req) {
		return
	}

	if err := h.upsells.AddProduct(r.Context(), chi.URLParam(r, "id"), req.ProductID); err != nil {
		actionFailed(w, h.logger, err, "Failed to update upsell")
		return
	}
	actionOK(w, "Product added", nil)
}

func (h *AdminHandler) RemoveUpsellProduct(w http.ResponseWriter, r *http.Request) {
	err := h.upsells.RemoveProduct(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "productId"))
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update upsell")
		return
	}
	actionOK(w, "Product removed", nil)
}

func (h *AdminHandler) ChangeUpsellProductIndex(w http.ResponseWriter, r *http.Request) {
	var req productIndexRequest
	if !decodeAction(w, r, &req) {
		return
	}

	err := h.upsells.ChangeProductIndex(r.Context(), chi.URLParam(r, "id"), req.ProductID, req.Index)
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update product index")
		return
	}
	actionOK(w, "Product index updated", nil)
}

// Categories

type categoryPatchRequest struct {
	Image      *string            `json:"image" validate:"omitempty,min=1"`
	Visibility *domain.Visibility `json:"visibility" validate:"omitempty,oneof=DRAFT PUBLISHED HIDDEN"`
}

func (h *AdminHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		readFailed(w, h.logger, err, "categories")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, categories)
}

func (h *AdminHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryPatchRequest
	if !decodeAction(w, r, &req) {
		return
	}

	category, err := h.categories.Update(r.Context(), chi.URLParam(r, "name"), service.CategoryUpdate{
		Image:      req.Image,
		Visibility: req.Visibility,
	})
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update category")
		return
	}
	actionOK(w, "Category updated", category)
}

// Orders

type orderStatusRequest struct {
	Status domain.OrderStatus `json:"status" validate:"required,oneof=PENDING PROCESSING SHIPPED DELIVERED COMPLETED CANCELED REFUNDED"`
}

func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, err := h.orders.ListOrders(r.Context(), limit)
	if err != nil {
		readFailed(w, h.logger, err, "orders")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, orders)
}

func (h *AdminHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		readFailed(w, h.logger, err, "order")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, order)
}

func (h *AdminHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if !decodeAction(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to update order status")
		return
	}
	actionOK(w, "Order status updated", order)
}

// Uploads

// Upload stores the multipart "file" part and returns its public URL
func (h *AdminHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		middleware.RespondWithAction(w, http.StatusServiceUnavailable, middleware.ActionError, "Uploads are not configured", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.RespondWithAction(w, http.StatusBadRequest, middleware.ActionError, "Attach an image up to 10 MB as \"file\"", nil)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		middleware.RespondWithAction(w, http.StatusBadRequest, middleware.ActionError, "Only images can be uploaded", nil)
		return
	}

	url, err := h.uploader.Upload(r.Context(), header.Filename, contentType, file)
	if err != nil {
		actionFailed(w, h.logger, err, "Failed to upload image")
		return
	}

	h.logger.Info("Image uploaded", zap.String("url", url), zap.Int64("size", header.Size))
	middleware.RespondWithAction(w, http.StatusCreated, middleware.ActionSuccess, "Image uploaded", map[string]string{"url": url})
}
