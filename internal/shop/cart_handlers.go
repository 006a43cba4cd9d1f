// ABOUTME: Cart endpoints backed by the cart cookie
// ABOUTME: Prices lines from the current catalog and enforces stock and size limits

package shop

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/storefront/internal/store"
)

// AddCartItemRequest is the JSON body for POST /api/cart/items.
type AddCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartLineResponse is a priced cart line.
type CartLineResponse struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	PriceCents     int64  `json:"price_cents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"line_total_cents"`
	Available      bool   `json:"available"`
}

// CartResponse is the priced cart.
type CartResponse struct {
	Items      []CartLineResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
	Currency   string             `json:"currency"`
}

type pricedLine struct {
	product  *store.Product
	quantity int
}

// priceCart looks up every line's product. Lines whose product no longer
// exists are dropped from the cart; changed reports whether that happened.
func (s *Shop) priceCart(ctx context.Context, cart *Cart) ([]pricedLine, bool, error) {
	var lines []pricedLine
	changed := false
	for _, item := range append([]CartItem(nil), cart.Items...) {
		p, err := s.store.GetProduct(ctx, item.ProductID)
		if errors.Is(err, store.ErrProductNotFound) {
			cart.Remove(item.ProductID)
			changed = true
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("pricing cart: %w", err)
		}
		lines = append(lines, pricedLine{product: p, quantity: item.Quantity})
	}
	return lines, changed, nil
}

func (s *Shop) cartResponse(lines []pricedLine) CartResponse {
	resp := CartResponse{Items: make([]CartLineResponse, len(lines)), Currency: s.cfg.Currency}
	for i, l := range lines {
		lineTotal := l.product.PriceCents * int64(l.quantity)
		resp.Items[i] = CartLineResponse{
			ProductID:      l.product.ID,
			Name:           l.product.Name,
			PriceCents:     l.product.PriceCents,
			Quantity:       l.quantity,
			LineTotalCents: lineTotal,
			Available:      l.product.Stock >= l.quantity,
		}
		resp.TotalCents += lineTotal
	}
	return resp
}

// writeCart prices the cart, persists it when pricing changed it or when
// force is set, and writes the response.
func (s *Shop) writeCart(w http.ResponseWriter, r *http.Request, cart *Cart, force bool) {
	lines, changed, err := s.priceCart(r.Context(), cart)
	if err != nil {
		s.sendInternalError(w, "failed to load cart", err)
		return
	}
	if changed || force {
		if err := s.carts.Save(w, cart); err != nil {
			s.sendInternalError(w, "failed to save cart", err)
			return
		}
	}
	s.sendJSON(w, http.StatusOK, s.cartResponse(lines))
}

func (s *Shop) handleGetCart(w http.ResponseWriter, r *http.Request) {
	s.writeCart(w, r, s.carts.Load(r), false)
}

func (s *Shop) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ProductID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		s.sendJSONError(w, http.StatusBadRequest, "quantity must be positive")
		return
	}

	cart := s.carts.Load(r)
	current := cart.Quantity(req.ProductID)
	if current == 0 && len(cart.Items) >= MaxCartLines {
		s.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("cart cannot hold more than %d products", MaxCartLines))
		return
	}

	want := current + req.Quantity
	if want > MaxLineQuantity {
		s.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("at most %d of one product per order", MaxLineQuantity))
		return
	}

	p, err := s.store.GetProduct(r.Context(), req.ProductID)
	if errors.Is(err, store.ErrProductNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		s.sendInternalError(w, "failed to get product", err)
		return
	}
	if want > p.Stock {
		s.sendJSONError(w, http.StatusConflict, "not enough stock")
		return
	}

	cart.Set(req.ProductID, want)
	s.writeCart(w, r, cart, true)
}

func (s *Shop) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart := s.carts.Load(r)
	removed := cart.Remove(r.PathValue("productId"))
	s.writeCart(w, r, cart, removed)
}

func (s *Shop) handleClearCart(w http.ResponseWriter, r *http.Request) {
	s.carts.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}
