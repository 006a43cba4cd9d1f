// ABOUTME: Admin catalog handlers for categories and products
// ABOUTME: Validates input, derives slugs from names and maps store conflicts to 409

package webadmin

import (
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/store"
)

var (
	slugRegex    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStripper = regexp.MustCompile(`[^a-z0-9]+`)
)

// slugify turns a display name into a URL slug
func slugify(name string) string {
	return strings.Trim(slugStripper.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// CategoryRequest is the JSON body for creating or updating a category.
type CategoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CategoryResponse is the admin view of a category.
type CategoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	CreatedAt string `json:"created_at"`
}

func categoryResponse(c *store.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Slug:      c.Slug,
		CreatedAt: c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ProductRequest is the JSON body for creating or replacing a product.
type ProductRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url"`
}

// ProductResponse is the admin view of a product.
type ProductResponse struct {
	ID          string `json:"id"`
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	ImageURL    string `json:"image_url,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func productResponse(p *store.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// normalizeNameAndSlug trims name, derives a missing slug and validates both.
// Returns an error message or empty string if valid.
func normalizeNameAndSlug(name, slug *string) string {
	*name = strings.TrimSpace(*name)
	*slug = strings.TrimSpace(*slug)
	if *name == "" {
		return "name is required"
	}
	if len(*name) > 200 {
		return "name is too long"
	}
	if *slug == "" {
		*slug = slugify(*name)
	}
	if !slugRegex.MatchString(*slug) {
		return "slug must be lowercase letters, digits and single dashes"
	}
	return ""
}

func (req *ProductRequest) validate() string {
	if msg := normalizeNameAndSlug(&req.Name, &req.Slug); msg != "" {
		return msg
	}
	if req.PriceCents < 0 {
		return "price_cents must not be negative"
	}
	if req.Stock < 0 {
		return "stock must not be negative"
	}
	if len(req.Description) > 20000 {
		return "description is too long"
	}
	if req.ImageURL != "" {
		u, err := url.Parse(req.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "image_url must be an http or https URL"
		}
	}
	return ""
}

func (a *Admin) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.store.ListCategories(r.Context())
	if err != nil {
		a.sendInternalError(w, "failed to list categories", err)
		return
	}

	resp := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse(c)
	}
	a.sendJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

func (a *Admin) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := normalizeNameAndSlug(&req.Name, &req.Slug); msg != "" {
		a.sendJSONError(w, http.StatusBadRequest, msg)
		return
	}

	now := a.config.Now().UTC()
	c := &store.Category{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Slug:      req.Slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.CreateCategory(r.Context(), c); err != nil {
		if errors.Is(err, store.ErrCategoryExists) {
			a.sendJSONError(w, http.StatusConflict, store.ErrCategoryExists.Error())
			return
		}
		a.sendInternalError(w, "failed to create category", err)
		return
	}
	a.sendJSON(w, http.StatusCreated, categoryResponse(c))
}

func (a *Admin) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := normalizeNameAndSlug(&req.Name, &req.Slug); msg != "" {
		a.sendJSONError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := a.store.GetCategory(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrCategoryNotFound) {
		a.sendJSONError(w, http.StatusNotFound, "category not found")
		return
	}
	if err != nil {
		a.sendInternalError(w, "failed to get category", err)
		return
	}

	c.Name = req.Name
	c.Slug = req.Slug
	c.UpdatedAt = a.config.Now().UTC()
	if err := a.store.UpdateCategory(r.Context(), c); err != nil {
		switch {
		case errors.Is(err, store.ErrCategoryExists):
			a.sendJSONError(w, http.StatusConflict, store.ErrCategoryExists.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			a.sendJSONError(w, http.StatusNotFound, "category not found")
		default:
			a.sendInternalError(w, "failed to update category", err)
		}
		return
	}
	a.sendJSON(w, http.StatusOK, categoryResponse(c))
}

func (a *Admin) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	err := a.store.DeleteCategory(r.Context(), r.PathValue("id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrCategoryNotFound):
		a.sendJSONError(w, http.StatusNotFound, "category not found")
	case errors.Is(err, store.ErrCategoryInUse):
		a.sendJSONError(w, http.StatusConflict, store.ErrCategoryInUse.Error())
	default:
		a.sendInternalError(w, "failed to delete category", err)
	}
}

func (a *Admin) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{CategoryID: q.Get("category"), Search: q.Get("q")}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			a.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	products, err := a.store.ListProducts(r.Context(), filter)
	if err != nil {
		a.sendInternalError(w, "failed to list products", err)
		return
	}

	resp := make([]ProductResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse(p)
	}
	a.sendJSON(w, http.StatusOK, map[string]any{"products": resp})
}

// sendProductWriteError maps store failures on product writes.
func (a *Admin) sendProductWriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrProductExists):
		a.sendJSONError(w, http.StatusConflict, store.ErrProductExists.Error())
	case errors.Is(err, store.ErrCategoryNotFound):
		a.sendJSONError(w, http.StatusBadRequest, "category_id does not name a category")
	case errors.Is(err, store.ErrProductNotFound):
		a.sendJSONError(w, http.StatusNotFound, "product not found")
	default:
		a.sendInternalError(w, "failed to save product", err)
	}
}

func (a *Admin) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		a.sendJSONError(w, http.StatusBadRequest, msg)
		return
	}

	now := a.config.Now().UTC()
	p := &store.Product{
		ID:          uuid.NewString(),
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateProduct(r.Context(), p); err != nil {
		a.sendProductWriteError(w, err)
		return
	}

	a.logger.Info("product created", "product_id", p.ID, "slug", p.Slug)
	a.sendJSON(w, http.StatusCreated, productResponse(p))
}

func (a *Admin) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.GetProduct(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrProductNotFound) {
		a.sendJSONError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		a.sendInternalError(w, "failed to get product", err)
		return
	}
	a.sendJSON(w, http.StatusOK, productResponse(p))
}

func (a *Admin) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		a.sendJSONError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := a.store.GetProduct(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrProductNotFound) {
		a.sendJSONError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		a.sendInternalError(w, "failed to get product", err)
		return
	}

	p.CategoryID = req.CategoryID
	p.Name = req.Name
	p.Slug = req.Slug
	p.Description = req.Description
	p.PriceCents = req.PriceCents
	p.Stock = req.Stock
	p.ImageURL = req.ImageURL
	p.UpdatedAt = a.config.Now().UTC()

	if err := a.store.UpdateProduct(r.Context(), p); err != nil {
		a.sendProductWriteError(w, err)
		return
	}
	a.sendJSON(w, http.StatusOK, productResponse(p))
}

func (a *Admin) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.DeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			a.sendJSONError(w, http.StatusNotFound, "product not found")
			return
		}
		a.sendInternalError(w, "failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
