// ABOUTME: Catalog endpoints for browsing categories and products
// ABOUTME: Renders product descriptions from markdown to HTML with goldmark

package shop

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/2389/storefront/internal/store"
)

// CategoryResponse is the public view of a category.
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// ProductResponse is the public view of a product.
type ProductResponse struct {
	ID              string `json:"id"`
	CategoryID      string `json:"category_id"`
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html,omitempty"`
	PriceCents      int64  `json:"price_cents"`
	Stock           int    `json:"stock"`
	InStock         bool   `json:"in_stock"`
	ImageURL        string `json:"image_url,omitempty"`
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
		InStock:     p.Stock > 0,
		ImageURL:    p.ImageURL,
	}
}

// renderMarkdown converts a product description to HTML. Raw HTML in the
// source is not passed through.
func (s *Shop) renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		s.logger.Warn("failed to render description", "error", err)
		return ""
	}
	return buf.String()
}

func (s *Shop) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.sendInternalError(w, "failed to list categories", err)
		return
	}

	resp := make([]CategoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = CategoryResponse{ID: c.ID, Name: c.Name, Slug: c.Slug}
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"categories": resp})
}

func (s *Shop) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ProductFilter{
		CategoryID: q.Get("category"),
		Search:     q.Get("q"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	products, err := s.store.ListProducts(r.Context(), filter)
	if err != nil {
		s.sendInternalError(w, "failed to list products", err)
		return
	}

	resp := make([]ProductResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse(p)
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"products": resp})
}

// handleGetProduct accepts either a product ID or its slug.
func (s *Shop) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("id")

	p, err := s.store.GetProduct(r.Context(), key)
	if errors.Is(err, store.ErrProductNotFound) {
		p, err = s.store.GetProductBySlug(r.Context(), key)
	}
	if errors.Is(err, store.ErrProductNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		s.sendInternalError(w, "failed to get product", err)
		return
	}

	resp := productResponse(p)
	resp.DescriptionHTML = s.renderMarkdown(p.Description)
	s.sendJSON(w, http.StatusOK, resp)
}
