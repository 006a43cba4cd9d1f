// ABOUTME: Dashboard aggregate queries for the SQLite backend
// ABOUTME: Revenue counts paid and delivered orders, daily sales are bucketed by UTC paid date

package store

import (
	"context"
	"fmt"
	"time"
)

// GetDashboardStats returns shop-wide counts plus per-day sales for orders
// paid at or after since.
func (s *SQLiteStore) GetDashboardStats(ctx context.Context, since time.Time) (*DashboardStats, error) {
	var stats DashboardStats

	countsQuery := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM orders),
			(SELECT COUNT(*) FROM orders WHERE status IN ('paid', 'delivered')),
			(SELECT COALESCE(SUM(total_cents), 0) FROM orders WHERE status IN ('paid', 'delivered'))
	`
	if err := s.db.QueryRowContext(ctx, countsQuery).Scan(
		&stats.Users,
		&stats.Products,
		&stats.Categories,
		&stats.Orders,
		&stats.PaidOrders,
		&stats.RevenueCents,
	); err != nil {
		return nil, fmt.Errorf("querying dashboard counts: %w", err)
	}

	dailyQuery := `
		SELECT substr(paid_at, 1, 10) AS day, COUNT(*), COALESCE(SUM(total_cents), 0)
		FROM orders
		WHERE status IN ('paid', 'delivered') AND paid_at IS NOT NULL AND paid_at >= ?
		GROUP BY day
		ORDER BY day ASC
	`
	rows, err := s.db.QueryContext(ctx, dailyQuery, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("querying daily sales: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.Date, &d.Orders, &d.RevenueCents); err != nil {
			return nil, fmt.Errorf("scanning daily sales: %w", err)
		}
		stats.DailySales = append(stats.DailySales, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating daily sales: %w", err)
	}

	return &stats, nil
}
