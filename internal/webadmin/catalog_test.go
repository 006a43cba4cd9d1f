// ABOUTME: Tests for admin category and product management
// ABOUTME: Covers slug derivation, validation, conflicts and category-in-use protection

package webadmin

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Kitchen":            "kitchen",
		"  Home & Garden  ":  "home-garden",
		"Tables & Chairs":    "tables-chairs",
		"100% Cotton--Shirt": "100-cotton-shirt",
		"!!!":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}

func TestProductRequest_Validate(t *testing.T) {
	valid := func() ProductRequest {
		return ProductRequest{Name: "Mug", PriceCents: 1200, Stock: 3, ImageURL: "https://cdn.example.com/mug.png"}
	}

	req := valid()
	assert.Empty(t, req.validate())
	assert.Equal(t, "mug", req.Slug)

	tests := []struct {
		name   string
		mutate func(*ProductRequest)
		want   string
	}{
		{"missing name", func(p *ProductRequest) { p.Name = "  " }, "name is required"},
		{"bad slug", func(p *ProductRequest) { p.Slug = "Not A Slug" }, "slug"},
		{"negative price", func(p *ProductRequest) { p.PriceCents = -1 }, "price_cents"},
		{"negative stock", func(p *ProductRequest) { p.Stock = -1 }, "stock"},
		{"long description", func(p *ProductRequest) { p.Description = strings.Repeat("x", 20001) }, "description"},
		{"javascript image", func(p *ProductRequest) { p.ImageURL = "javascript:alert(1)" }, "image_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			assert.Contains(t, req.validate(), tt.want)
		})
	}
}

func TestCategories(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodPost, "/admin/categories", CategoryRequest{Name: "Home & Garden"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cat := decodeBody[CategoryResponse](t, rec)
	assert.Equal(t, "home-garden", cat.Slug)

	rec = ta.do(t, c, http.MethodPost, "/admin/categories", CategoryRequest{Name: "Home and Garden", Slug: "home-garden"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, c, http.MethodPost, "/admin/categories", CategoryRequest{Name: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, c, http.MethodPut, "/admin/categories/"+cat.ID, CategoryRequest{Name: "Garden"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "garden", decodeBody[CategoryResponse](t, rec).Slug)

	rec = ta.do(t, c, http.MethodPut, "/admin/categories/missing", CategoryRequest{Name: "Garden"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ta.do(t, c, http.MethodGet, "/admin/categories", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[map[string][]CategoryResponse](t, rec)["categories"], 1)

	// A category with products cannot be deleted.
	rec = ta.do(t, c, http.MethodPost, "/admin/products", ProductRequest{CategoryID: cat.ID, Name: "Spade", PriceCents: 2500, Stock: 1})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	product := decodeBody[ProductResponse](t, rec)

	rec = ta.do(t, c, http.MethodDelete, "/admin/categories/"+cat.ID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, c, http.MethodDelete, "/admin/products/"+product.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ta.do(t, c, http.MethodDelete, "/admin/categories/"+cat.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ta.do(t, c, http.MethodDelete, "/admin/categories/"+cat.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodPost, "/admin/products", ProductRequest{
		Name: "Blue Mug", Description: "A **blue** mug", PriceCents: 1200, Stock: 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mug := decodeBody[ProductResponse](t, rec)
	assert.Equal(t, "blue-mug", mug.Slug)
	assert.Empty(t, mug.CategoryID)

	rec = ta.do(t, c, http.MethodPost, "/admin/products", ProductRequest{Name: "Blue Mug", PriceCents: 100})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.do(t, c, http.MethodPost, "/admin/products", ProductRequest{Name: "Red Mug", CategoryID: "missing"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "category_id")

	rec = ta.do(t, c, http.MethodPost, "/admin/products", ProductRequest{Name: "Red Mug", PriceCents: -5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, c, http.MethodPut, "/admin/products/"+mug.ID, ProductRequest{
		Name: "Blue Mug", Slug: "blue-mug", PriceCents: 1500, Stock: 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ProductResponse](t, rec)
	assert.Equal(t, int64(1500), updated.PriceCents)
	assert.Equal(t, 2, updated.Stock)

	rec = ta.do(t, c, http.MethodGet, "/admin/products/"+mug.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1500), decodeBody[ProductResponse](t, rec).PriceCents)

	rec = ta.do(t, c, http.MethodGet, "/admin/products?q=blue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[map[string][]ProductResponse](t, rec)["products"], 1)

	rec = ta.do(t, c, http.MethodGet, "/admin/products?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.do(t, c, http.MethodPut, "/admin/products/missing", ProductRequest{Name: "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ta.do(t, c, http.MethodGet, "/admin/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ta.do(t, c, http.MethodDelete, "/admin/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProducts_RejectsUnknownFields(t *testing.T) {
	ta := newTestAdmin(t)
	c := ta.setup(t)

	rec := ta.do(t, c, http.MethodPost, "/admin/products", map[string]any{"name": "Mug", "is_admin": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
