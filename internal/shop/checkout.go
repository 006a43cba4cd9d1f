// ABOUTME: Checkout and order history endpoints for signed-in customers
// ABOUTME: Turns the cart into a pending order, hands payment to the gateway and confirms it afterwards

package shop

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/storefront/internal/payment"
	"github.com/2389/storefront/internal/store"
)

// CheckoutRequest is the optional JSON body for POST /api/checkout.
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

// CheckoutResponse tells the client where to pay.
type CheckoutResponse struct {
	OrderID     string `json:"order_id"`
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// OrderResponse is the customer view of an order.
type OrderResponse struct {
	ID              string              `json:"id"`
	Items           []OrderItemResponse `json:"items"`
	TotalCents      int64               `json:"total_cents"`
	Currency        string              `json:"currency"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	PaidAt          string              `json:"paid_at,omitempty"`
	DeliveredAt     string              `json:"delivered_at,omitempty"`
	CreatedAt       string              `json:"created_at"`
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func orderResponse(o *store.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse(item)
	}
	return OrderResponse{
		ID:              o.ID,
		Items:           items,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		PaidAt:          formatOptionalTime(o.PaidAt),
		DeliveredAt:     formatOptionalTime(o.DeliveredAt),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleCheckout creates a pending order from the cart at current prices and
// opens a payment session for it.
func (s *Shop) handleCheckout(w http.ResponseWriter, r *http.Request) {
	claims, _ := currentClaims(r)

	var req CheckoutRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			s.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	if len(req.ShippingAddress) > 1000 {
		s.sendJSONError(w, http.StatusBadRequest, "shipping_address is too long")
		return
	}

	cart := s.carts.Load(r)
	lines, _, err := s.priceCart(r.Context(), cart)
	if err != nil {
		s.sendInternalError(w, "failed to price cart", err)
		return
	}
	if len(lines) == 0 {
		s.sendJSONError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	now := s.cfg.Now().UTC()
	order := &store.Order{
		ID:              uuid.NewString(),
		UserID:          claims.ID,
		Currency:        s.cfg.Currency,
		Status:          store.OrderStatusPending,
		ShippingAddress: req.ShippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	checkout := payment.CheckoutRequest{
		OrderID:       order.ID,
		CustomerEmail: claims.Email,
		Currency:      s.cfg.Currency,
		SuccessURL:    s.cfg.SuccessURL,
		CancelURL:     s.cfg.CancelURL,
	}
	for _, l := range lines {
		if l.product.Stock < l.quantity {
			s.sendJSONError(w, http.StatusConflict, fmt.Sprintf("not enough stock for %s", l.product.Name))
			return
		}
		order.Items = append(order.Items, store.OrderItem{
			ProductID:  l.product.ID,
			Name:       l.product.Name,
			PriceCents: l.product.PriceCents,
			Quantity:   l.quantity,
		})
		order.TotalCents += l.product.PriceCents * int64(l.quantity)
		checkout.Items = append(checkout.Items, payment.LineItem{
			Name:            l.product.Name,
			UnitAmountCents: l.product.PriceCents,
			Quantity:        l.quantity,
		})
	}

	if err := s.store.CreateOrder(r.Context(), order); err != nil {
		s.sendInternalError(w, "failed to create order", err)
		return
	}

	sess, err := s.payments.CreateCheckout(r.Context(), checkout)
	if err != nil {
		s.logger.Error("failed to create checkout session", "order_id", order.ID, "error", err)
		cancel := store.StatusChange{From: store.OrderStatusPending, Status: store.OrderStatusCancelled, At: s.cfg.Now().UTC()}
		if _, err := s.store.UpdateOrderStatus(r.Context(), order.ID, cancel); err != nil {
			s.logger.Error("failed to cancel order", "order_id", order.ID, "error", err)
		}
		s.sendJSONError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}

	if err := s.store.SetOrderPaymentRef(r.Context(), order.ID, sess.ID); err != nil {
		s.sendInternalError(w, "failed to record payment session", err)
		return
	}

	s.logger.Info("checkout started", "order_id", order.ID, "user_id", claims.ID, "total_cents", order.TotalCents)
	s.sendJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:     order.ID,
		SessionID:   sess.ID,
		CheckoutURL: sess.URL,
	})
}

// handleConfirmCheckout marks the order paid once the gateway reports the
// session paid, takes the stock and clears the cart. Confirming an order
// that is already paid returns it unchanged.
func (s *Shop) handleConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	claims, _ := currentClaims(r)
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	order, err := s.store.GetOrderByPaymentRef(r.Context(), sessionID)
	if errors.Is(err, store.ErrOrderNotFound) || (err == nil && order.UserID != claims.ID) {
		s.sendJSONError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.sendInternalError(w, "failed to get order", err)
		return
	}

	if order.Status != store.OrderStatusPending {
		s.respondSettled(w, order)
		return
	}

	sess, err := s.payments.GetCheckout(r.Context(), sessionID)
	if errors.Is(err, payment.ErrSessionNotFound) {
		s.sendJSONError(w, http.StatusNotFound, "checkout session not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to fetch checkout session", "session_id", sessionID, "error", err)
		s.sendJSONError(w, http.StatusBadGateway, "payment provider unavailable")
		return
	}
	if !sess.Paid {
		s.sendJSONError(w, http.StatusPaymentRequired, "payment not completed")
		return
	}

	change := store.StatusChange{
		From:       store.OrderStatusPending,
		Status:     store.OrderStatusPaid,
		PaymentRef: sess.ID,
		At:         s.cfg.Now().UTC(),
	}
	for _, item := range order.Items {
		change.Stock = append(change.Stock, store.StockAdjustment{ProductID: item.ProductID, Delta: -item.Quantity})
	}
	shortfalls, err := s.store.UpdateOrderStatus(r.Context(), order.ID, change)
	if errors.Is(err, store.ErrStatusConflict) {
		// Another confirm or an admin cancel got there first.
		current, err := s.store.GetOrder(r.Context(), order.ID)
		if err != nil {
			s.sendInternalError(w, "failed to reload order", err)
			return
		}
		s.respondSettled(w, current)
		return
	}
	if err != nil {
		s.sendInternalError(w, "failed to mark order paid", err)
		return
	}
	for _, sf := range shortfalls {
		s.logger.Warn("order paid beyond available stock",
			"order_id", order.ID, "product_id", sf.ProductID, "missing", sf.Missing)
	}

	paid, err := s.store.GetOrder(r.Context(), order.ID)
	if err != nil {
		s.sendInternalError(w, "failed to reload order", err)
		return
	}

	s.logger.Info("order paid", "order_id", order.ID, "user_id", claims.ID)
	s.carts.Clear(w)
	s.sendJSON(w, http.StatusOK, orderResponse(paid))
}

// respondSettled answers a confirm for an order that is no longer pending:
// paid and delivered orders are returned as they are, cancelled ones conflict.
func (s *Shop) respondSettled(w http.ResponseWriter, order *store.Order) {
	if order.Status == store.OrderStatusCancelled {
		s.sendJSONError(w, http.StatusConflict, "order was cancelled")
		return
	}
	s.carts.Clear(w)
	s.sendJSON(w, http.StatusOK, orderResponse(order))
}

func (s *Shop) handleListOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := currentClaims(r)

	filter := store.OrderFilter{UserID: claims.ID}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := store.OrderStatus(raw)
		if !status.Valid() {
			s.sendJSONError(w, http.StatusBadRequest, "unknown order status")
			return
		}
		filter.Status = &status
	}

	orders, err := s.store.ListOrders(r.Context(), filter)
	if err != nil {
		s.sendInternalError(w, "failed to list orders", err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = orderResponse(o)
	}
	s.sendJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// handleGetOrder returns one of the caller's orders. Other users' orders
// read as not found.
func (s *Shop) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := currentClaims(r)

	order, err := s.store.GetOrder(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrOrderNotFound) || (err == nil && order.UserID != claims.ID) {
		s.sendJSONError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.sendInternalError(w, "failed to get order", err)
		return
	}
	s.sendJSON(w, http.StatusOK, orderResponse(order))
}
