package transport

import (
	"net/http"
	"strconv"

	"produce-market/internal/middleware"
	"produce-market/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type FeaturedRequest struct {
	Featured bool `json:"featured"`
}

type StockAdjustRequest struct {
	Delta int `json:"delta" validate:"required"`
}

// CatalogHandler serves products, variants and categories
type CatalogHandler struct {
	catalog service.CatalogService
	audit   auditor
	logger  *zap.Logger
}

func NewCatalogHandler(catalog service.CatalogService, activity service.ActivityService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, audit: auditor{activity: activity}, logger: logger}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/products", h.listProducts(false))
	r.Get("/products/{idOrSlug}", h.getProduct(false))
	r.Get("/categories", h.listCategories(false))
}

func (h *CatalogHandler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts(true))
		r.Post("/", h.CreateProduct)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getProduct(true))
			r.Put("/", h.UpdateProduct)
			r.Delete("/", h.DeleteProduct)
			r.Put("/featured", h.SetFeatured)
			r.Post("/stock", h.AdjustStock)
			r.Get("/variants", h.ListVariants)
			r.Post("/variants", h.AddVariant)
			r.Put("/variants/{variantID}", h.UpdateVariant)
			r.Delete("/variants/{variantID}", h.DeleteVariant)
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", h.listCategories(true))
		r.Post("/", h.CreateCategory)
		r.Put("/{id}", h.UpdateCategory)
		r.Delete("/{id}", h.DeleteCategory)
		r.Post("/{id}/subcategories", h.CreateSubcategory)
	})
	r.Put("/subcategories/{id}", h.UpdateSubcategory)
	r.Delete("/subcategories/{id}", h.DeleteSubcategory)
}

func (h *CatalogHandler) listProducts(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		categoryID, err := queryUUID(r, "category_id")
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		subcategoryID, err := queryUUID(r, "subcategory_id")
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid subcategory_id")
			return
		}
		pageNum, pageSize := page(r)
		featured, _ := strconv.ParseBool(q.Get("featured"))
		inStock, _ := strconv.ParseBool(q.Get("in_stock"))

		result, err := h.catalog.ListProducts(r.Context(), service.ProductQuery{
			CategoryID:    categoryID,
			SubcategoryID: subcategoryID,
			Query:         q.Get("q"),
			FeaturedOnly:  featured,
			InStockOnly:   inStock,
			IncludeHidden: admin,
			Page:          pageNum,
			PageSize:      pageSize,
			SortBy:        q.Get("sort"),
			SortOrder:     q.Get("order"),
		})
		if err != nil {
			respondError(w, h.logger, err, "failed to list products")
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, result)
	}
}

func (h *CatalogHandler) getProduct(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "idOrSlug")
		if admin {
			key = chi.URLParam(r, "id")
		}
		product, err := h.catalog.GetProduct(r.Context(), key, admin)
		if err != nil {
			respondError(w, h.logger, err, "failed to get product")
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, product)
	}
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req service.ProductInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err, "failed to create product")
		return
	}
	h.audit.record(r, "product.create", map[string]any{"product_id": product.ID, "name": product.Name})
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.ProductInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update product")
		return
	}
	h.audit.record(r, "product.update", map[string]any{"product_id": id})
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	deactivated, err := h.catalog.DeleteProduct(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to delete product")
		return
	}
	h.audit.record(r, "product.delete", map[string]any{"product_id": id, "deactivated": deactivated})
	middleware.RespondWithJSON(w, http.StatusOK, map[string]bool{"deactivated": deactivated})
}

func (h *CatalogHandler) SetFeatured(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req FeaturedRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	if err := h.catalog.SetFeatured(r.Context(), id, req.Featured); err != nil {
		respondError(w, h.logger, err, "failed to update product")
		return
	}
	h.audit.record(r, "product.featured", map[string]any{"product_id": id, "featured": req.Featured})
	noContent(w)
}

func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req StockAdjustRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	stock, err := h.catalog.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		respondError(w, h.logger, err, "failed to adjust stock")
		return
	}
	h.audit.record(r, "product.stock", map[string]any{"product_id": id, "delta": req.Delta, "stock": stock})
	middleware.RespondWithJSON(w, http.StatusOK, map[string]int{"stock": stock})
}

func (h *CatalogHandler) ListVariants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	variants, err := h.catalog.ListVariants(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "failed to list variants")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, variants)
}

func (h *CatalogHandler) AddVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.VariantInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	variant, err := h.catalog.AddVariant(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to add variant")
		return
	}
	h.audit.record(r, "variant.create", map[string]any{"product_id": id, "variant_id": variant.ID})
	middleware.RespondWithJSON(w, http.StatusCreated, variant)
}

func (h *CatalogHandler) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	variantID, ok := pathUUID(w, r, "variantID")
	if !ok {
		return
	}
	var req service.VariantInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	variant, err := h.catalog.UpdateVariant(r.Context(), id, variantID, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update variant")
		return
	}
	h.audit.record(r, "variant.update", map[string]any{"product_id": id, "variant_id": variantID})
	middleware.RespondWithJSON(w, http.StatusOK, variant)
}

func (h *CatalogHandler) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	variantID, ok := pathUUID(w, r, "variantID")
	if !ok {
		return
	}
	if err := h.catalog.DeleteVariant(r.Context(), id, variantID); err != nil {
		respondError(w, h.logger, err, "failed to delete variant")
		return
	}
	h.audit.record(r, "variant.delete", map[string]any{"product_id": id, "variant_id": variantID})
	noContent(w)
}

func (h *CatalogHandler) listCategories(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := h.catalog.ListCategories(r.Context(), admin)
		if err != nil {
			respondError(w, h.logger, err, "failed to list categories")
			return
		}
		middleware.RespondWithJSON(w, http.StatusOK, categories)
	}
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req service.CategoryInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, err, "failed to create category")
		return
	}
	h.audit.record(r, "category.create", map[string]any{"category_id": category.ID, "name": category.Name})
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.CategoryInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update category")
		return
	}
	h.audit.record(r, "category.update", map[string]any{"category_id": id})
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete category")
		return
	}
	h.audit.record(r, "category.delete", map[string]any{"category_id": id})
	noContent(w)
}

func (h *CatalogHandler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.SubcategoryInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	sub, err := h.catalog.CreateSubcategory(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to create subcategory")
		return
	}
	h.audit.record(r, "subcategory.create", map[string]any{"category_id": id, "subcategory_id": sub.ID})
	middleware.RespondWithJSON(w, http.StatusCreated, sub)
}

func (h *CatalogHandler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req service.SubcategoryInput
	if !decode(w, r, h.logger, &req) {
		return
	}
	sub, err := h.catalog.UpdateSubcategory(r.Context(), id, req)
	if err != nil {
		respondError(w, h.logger, err, "failed to update subcategory")
		return
	}
	h.audit.record(r, "subcategory.update", map[string]any{"subcategory_id": id})
	middleware.RespondWithJSON(w, http.StatusOK, sub)
}

func (h *CatalogHandler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteSubcategory(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "failed to delete subcategory")
		return
	}
	h.audit.record(r, "subcategory.delete", map[string]any{"subcategory_id": id})
	noContent(w)
}
