// ABOUTME: Admin order management handlers
// ABOUTME: Lists and inspects orders and moves them through delivery or cancellation

package webadmin

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/storefront/internal/store"
)

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// OrderResponse is the admin view of an order.
type OrderResponse struct {
	ID              string              `json:"id"`
	UserID          string              `json:"user_id"`
	Items           []OrderItemResponse `json:"items"`
	TotalCents      int64               `json:"total_cents"`
	Currency        string              `json:"currency"`
	Status          string              `json:"status"`
	PaymentRef      string              `json:"payment_ref,omitempty"`
	ShippingAddress string              `json:"shipping_address,omitempty"`
	PaidAt          string              `json:"paid_at,omitempty"`
	DeliveredAt     string              `json:"delivered_at,omitempty"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
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
		UserID:          o.UserID,
		Items:           items,
		TotalCents:      o.TotalCents,
		Currency:        o.Currency,
		Status:          string(o.Status),
		PaymentRef:      o.PaymentRef,
		ShippingAddress: o.ShippingAddress,
		PaidAt:          formatOptionalTime(o.PaidAt),
		DeliveredAt:     formatOptionalTime(o.DeliveredAt),
		CreatedAt:       o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *Admin) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.OrderFilter{UserID: q.Get("user")}
	if raw := q.Get("status"); raw != "" {
		status := store.OrderStatus(raw)
		if !status.Valid() {
			a.sendJSONError(w, http.StatusBadRequest, "unknown order status")
			return
		}
		filter.Status = &status
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			a.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	orders, err := a.store.ListOrders(r.Context(), filter)
	if err != nil {
		a.sendInternalError(w, "failed to list orders", err)
		return
	}

	resp := make([]OrderResponse, len(orders))
	for i, o := range orders {
		resp[i] = orderResponse(o)
	}
	a.sendJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// loadOrder fetches the order named in the path, writing the error response
// itself when it returns nil.
func (a *Admin) loadOrder(w http.ResponseWriter, r *http.Request) *store.Order {
	order, err := a.store.GetOrder(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrOrderNotFound) {
		a.sendJSONError(w, http.StatusNotFound, "order not found")
		return nil
	}
	if err != nil {
		a.sendInternalError(w, "failed to get order", err)
		return nil
	}
	return order
}

func (a *Admin) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if order := a.loadOrder(w, r); order != nil {
		a.sendJSON(w, http.StatusOK, orderResponse(order))
	}
}

// handleDeliverOrder marks a paid order delivered.
func (a *Admin) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	order := a.loadOrder(w, r)
	if order == nil {
		return
	}
	if order.Status != store.OrderStatusPaid {
		a.sendJSONError(w, http.StatusConflict, "only paid orders can be delivered")
		return
	}
	a.changeStatus(w, r, order, store.OrderStatusDelivered, nil)
}

// handleCancelOrder cancels a pending or paid order. Stock taken by a paid
// order is put back.
func (a *Admin) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	order := a.loadOrder(w, r)
	if order == nil {
		return
	}

	var restock []store.StockAdjustment
	switch order.Status {
	case store.OrderStatusPending:
	case store.OrderStatusPaid:
		for _, item := range order.Items {
			restock = append(restock, store.StockAdjustment{ProductID: item.ProductID, Delta: item.Quantity})
		}
	default:
		a.sendJSONError(w, http.StatusConflict, "order can no longer be cancelled")
		return
	}
	a.changeStatus(w, r, order, store.OrderStatusCancelled, restock)
}

// changeStatus moves order from the status it was loaded with. A concurrent
// change in between answers 409 and leaves stock alone.
func (a *Admin) changeStatus(w http.ResponseWriter, r *http.Request, order *store.Order, status store.OrderStatus, stock []store.StockAdjustment) {
	change := store.StatusChange{
		From:   order.Status,
		Status: status,
		At:     a.config.Now().UTC(),
		Stock:  stock,
	}
	if _, err := a.store.UpdateOrderStatus(r.Context(), order.ID, change); err != nil {
		switch {
		case errors.Is(err, store.ErrStatusConflict):
			a.sendJSONError(w, http.StatusConflict, "order status changed, reload and retry")
		case errors.Is(err, store.ErrOrderNotFound):
			a.sendJSONError(w, http.StatusNotFound, "order not found")
		default:
			a.sendInternalError(w, "failed to update order", err)
		}
		return
	}

	updated, err := a.store.GetOrder(r.Context(), order.ID)
	if err != nil {
		a.sendInternalError(w, "failed to reload order", err)
		return
	}

	me, _ := currentAdmin(r)
	a.logger.Info("order status changed", "order_id", order.ID, "from", order.Status, "to", status, "by", me.ID)
	a.sendJSON(w, http.StatusOK, orderResponse(updated))
}

func (a *Admin) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.DeleteOrder(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			a.sendJSONError(w, http.StatusNotFound, "order not found")
			return
		}
		a.sendInternalError(w, "failed to delete order", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
