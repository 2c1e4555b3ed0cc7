package transport

import (
	"errors"
	"net/http"
	"strconv"

	"tienda-api/internal/config"
	"tienda-api/internal/domain"
	"tienda-api/internal/middleware"
	"tienda-api/internal/repository"
	"tienda-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductRequest represents the product create/update payload
type ProductRequest struct {
	Name      string          `json:"name" validate:"required"`
	ShortDesc string          `json:"shortDesc"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Discount  int             `json:"discount" validate:"gte=0,lte=100"`
	Stock     int             `json:"stock" validate:"gte=0"`
	Images    []string        `json:"images"`
}

func (r ProductRequest) fields() domain.ProductFields {
	return domain.ProductFields{
		Name:      r.Name,
		ShortDesc: r.ShortDesc,
		Price:     r.Price,
		Category:  r.Category,
		Discount:  r.Discount,
		Stock:     r.Stock,
		Images:    r.Images,
	}
}

// CategoryRequest represents the category upsert payload
type CategoryRequest struct {
	Name  string `json:"name" validate:"required"`
	Label string `json:"label" validate:"required"`
}

// SaveAllProduct is one desired product in a saveAll batch; ID is optional
type SaveAllProduct struct {
	ID *int64 `json:"id"`
	ProductRequest
}

// SaveAllRequest represents the full desired catalog state
type SaveAllRequest struct {
	Products   []SaveAllProduct        `json:"products"`
	Categories []service.CategoryInput `json:"categories"`
}

// DataResponse is the storefront bootstrap payload
type DataResponse struct {
	Products   []*domain.Product  `json:"products"`
	Categories []*domain.Category `json:"categories"`
	Discounts  []interface{}      `json:"discounts"`
	Config     DataConfig         `json:"config"`
}

// DataConfig carries the client-side storefront configuration
type DataConfig struct {
	WhatsApp WhatsAppInfo `json:"whatsapp"`
}

// WhatsAppInfo is the chat contact the storefront offers per product
type WhatsAppInfo struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// CatalogHandler handles HTTP requests for catalog operations
type CatalogHandler struct {
	catalog  service.CatalogService
	whatsapp config.WhatsAppConfig
	logger   *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalog service.CatalogService, whatsapp config.WhatsAppConfig, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		whatsapp: whatsapp,
		logger:   logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/data", h.GetData)
	r.Route("/api/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})
	r.Route("/api/categories", func(r chi.Router) {
		r.Post("/", h.UpsertCategory)
		r.Delete("/{id}", h.DeleteCategory)
	})
	r.Post("/api/saveAll", h.SaveAll)
}

// GetData returns the full catalog plus storefront configuration
func (h *CatalogHandler) GetData(w http.ResponseWriter, r *http.Request) {
	data, err := h.catalog.Catalog(r.Context())
	if err != nil {
		h.logger.Error("Failed to load catalog", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, DataResponse{
		Products:   data.Products,
		Categories: data.Categories,
		Discounts:  []interface{}{},
		Config: DataConfig{
			WhatsApp: WhatsAppInfo{
				Number:  h.whatsapp.Number,
				Message: h.whatsapp.Template,
			},
		},
	})
}

// GetProduct returns a single product
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "failed to load product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

// CreateProduct creates a new product
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), req.fields())
	if err != nil {
		h.respondServiceError(w, err, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.Int64("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

// UpdateProduct overwrites an existing product
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req ProductRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), id, req.fields())
	if err != nil {
		h.respondServiceError(w, err, "failed to update product")
		return
	}

	h.logger.Info("Product updated", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"product": product,
	})
}

// DeleteProduct removes a product
func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.Int64("product_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "product deleted",
	})
}

// UpsertCategory creates or relabels a category
func (h *CatalogHandler) UpsertCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	category, err := h.catalog.UpsertCategory(r.Context(), req.Name, req.Label)
	if err != nil {
		h.respondServiceError(w, err, "failed to save category")
		return
	}

	h.logger.Info("Category saved", zap.String("name", category.Name))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"category": category,
	})
}

// DeleteCategory removes a category unless products still reference it
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "failed to delete category")
		return
	}

	h.logger.Info("Category deleted", zap.Int64("category_id", id))
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "category deleted",
	})
}

// SaveAll converges the stored catalog to the submitted state
func (h *CatalogHandler) SaveAll(w http.ResponseWriter, r *http.Request) {
	var req SaveAllRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}

	products := make([]service.ProductInput, 0, len(req.Products))
	for _, p := range req.Products {
		products = append(products, service.ProductInput{
			ID:     p.ID,
			Fields: p.fields(),
		})
	}

	result, err := h.catalog.SaveAll(r.Context(), products, req.Categories)
	if err != nil {
		h.logger.Error("SaveAll failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to save catalog")
		return
	}

	h.logger.Info("Catalog reconciled",
		zap.Int("deleted", len(result.Deleted)),
		zap.Int("created", len(result.Created)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("failed", len(result.Errors)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

func (h *CatalogHandler) decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		h.logger.Debug("Request validation failed", zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (h *CatalogHandler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, repository.ErrCategoryInUse):
		middleware.RespondWithError(w, http.StatusConflict, "category is referenced by existing products")
	case errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidStock),
		errors.Is(err, service.ErrInvalidDiscount):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
