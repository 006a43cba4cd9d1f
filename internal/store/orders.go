// ABOUTME: Order store methods for the SQLite backend
// ABOUTME: Line items are persisted as a JSON document, status changes stamp paid/delivered times

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const orderColumns = `id, user_id, items_json, total_cents, currency, status, payment_ref,
	shipping_address, paid_at, delivered_at, created_at, updated_at`

// CreateOrder inserts a new order.
func (s *SQLiteStore) CreateOrder(ctx context.Context, o *Order) error {
	if !o.Status.Valid() {
		return fmt.Errorf("invalid order status %q", o.Status)
	}

	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("encoding order items: %w", err)
	}

	var paidAt, deliveredAt any
	if o.PaidAt != nil {
		paidAt = formatTime(*o.PaidAt)
	}
	if o.DeliveredAt != nil {
		deliveredAt = formatTime(*o.DeliveredAt)
	}

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		o.ID,
		o.UserID,
		string(itemsJSON),
		o.TotalCents,
		o.Currency,
		string(o.Status),
		nullString(o.PaymentRef),
		o.ShippingAddress,
		paidAt,
		deliveredAt,
		formatTime(o.CreatedAt),
		formatTime(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting order: %w", err)
	}

	s.logger.Info("created order", "id", o.ID, "user_id", o.UserID, "total_cents", o.TotalCents)
	return nil
}

func scanOrder(row rowScanner) (*Order, error) {
	var o Order
	var itemsJSON, status, createdAtStr, updatedAtStr string
	var paymentRef, paidAt, deliveredAt sql.NullString

	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&itemsJSON,
		&o.TotalCents,
		&o.Currency,
		&status,
		&paymentRef,
		&o.ShippingAddress,
		&paidAt,
		&deliveredAt,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return nil, err
	}

	o.Status = OrderStatus(status)
	o.PaymentRef = paymentRef.String

	if err := json.Unmarshal([]byte(itemsJSON), &o.Items); err != nil {
		return nil, fmt.Errorf("decoding order items: %w", err)
	}

	var err error
	if o.PaidAt, err = parseNullTime("paid_at", paidAt); err != nil {
		return nil, err
	}
	if o.DeliveredAt, err = parseNullTime("delivered_at", deliveredAt); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrder retrieves an order by ID.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying order: %w", err)
	}
	return o, nil
}

// GetOrderByPaymentRef retrieves the order attached to a payment session.
func (s *SQLiteStore) GetOrderByPaymentRef(ctx context.Context, ref string) (*Order, error) {
	if ref == "" {
		return nil, ErrOrderNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_ref = ?`, ref)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by payment ref: %w", err)
	}
	return o, nil
}

// ListOrders returns orders matching the filter, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	var conditions []string
	var args []any

	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating orders: %w", err)
	}
	return orders, nil
}

// UpdateOrderStatus moves an order from change.From to change.Status and
// applies change.Stock in one transaction. Moving to paid records the
// payment ref (when given) and PaidAt; moving to delivered records DeliveredAt.
func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, change StatusChange) ([]StockShortfall, error) {
	if !change.Status.Valid() {
		return nil, fmt.Errorf("invalid order status %q", change.Status)
	}
	if !change.From.Valid() {
		return nil, fmt.Errorf("invalid current order status %q", change.From)
	}

	at := formatTime(change.At)
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(change.Status), at}

	switch change.Status {
	case OrderStatusPaid:
		sets = append(sets, "paid_at = ?")
		args = append(args, at)
		if change.PaymentRef != "" {
			sets = append(sets, "payment_ref = ?")
			args = append(args, change.PaymentRef)
		}
	case OrderStatusDelivered:
		sets = append(sets, "delivered_at = ?")
		args = append(args, at)
	}
	args = append(args, id, string(change.From))

	var shortfalls []StockShortfall
	err := s.withTx(ctx, func(tx dbtx) error {
		// The UPDATE comes first so the transaction holds the write lock
		// before anything is read.
		result, err := tx.ExecContext(ctx,
			`UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = ? AND status = ?`, args...)
		if err != nil {
			return fmt.Errorf("updating order status: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		}
		if rowsAffected == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE id = ?`, id).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrOrderNotFound
			}
			if err != nil {
				return fmt.Errorf("checking order: %w", err)
			}
			return ErrStatusConflict
		}

		for _, adj := range change.Stock {
			missing, err := adjustStock(ctx, tx, adj)
			if err != nil {
				return err
			}
			if missing > 0 {
				shortfalls = append(shortfalls, StockShortfall{ProductID: adj.ProductID, Missing: missing})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order status changed", "id", id, "from", change.From, "status", change.Status)
	return shortfalls, nil
}

// adjustStock applies one stock change, clamping at zero. It returns how
// many units could not be taken. A deleted product counts entirely as missing
// when taking stock and is skipped when returning it.
func adjustStock(ctx context.Context, tx dbtx, adj StockAdjustment) (int, error) {
	var stock int
	err := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = ?`, adj.ProductID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		if adj.Delta < 0 {
			return -adj.Delta, nil
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading stock: %w", err)
	}

	next := stock + adj.Delta
	missing := 0
	if next < 0 {
		missing = -next
		next = 0
	}
	if _, err := tx.ExecContext(ctx, `UPDATE products SET stock = ? WHERE id = ?`, next, adj.ProductID); err != nil {
		return 0, fmt.Errorf("adjusting stock: %w", err)
	}
	return missing, nil
}

// SetOrderPaymentRef attaches a payment session ID to a pending order.
func (s *SQLiteStore) SetOrderPaymentRef(ctx context.Context, id, ref string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE orders SET payment_ref = ? WHERE id = ?`, nullString(ref), id)
	if err != nil {
		return fmt.Errorf("setting payment ref: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// DeleteOrder removes an order.
func (s *SQLiteStore) DeleteOrder(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	s.logger.Info("deleted order", "id", id)
	return nil
}
