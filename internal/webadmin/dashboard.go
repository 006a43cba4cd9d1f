// ABOUTME: Admin dashboard handler
// ABOUTME: Reports shop totals and daily paid sales for the last thirty days

package webadmin

import (
	"net/http"
)

// DailySalesResponse is one day of paid sales.
type DailySalesResponse struct {
	Date         string `json:"date"`
	Orders       int    `json:"orders"`
	RevenueCents int64  `json:"revenue_cents"`
}

// DashboardResponse is returned by GET /admin.
type DashboardResponse struct {
	User         UserResponse         `json:"user"`
	Users        int                  `json:"users"`
	Products     int                  `json:"products"`
	Categories   int                  `json:"categories"`
	Orders       int                  `json:"orders"`
	PaidOrders   int                  `json:"paid_orders"`
	RevenueCents int64                `json:"revenue_cents"`
	DailySales   []DailySalesResponse `json:"daily_sales"`
}

func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	since := a.config.Now().UTC().Add(-StatsWindow)
	stats, err := a.store.GetDashboardStats(r.Context(), since)
	if err != nil {
		a.sendInternalError(w, "failed to load dashboard stats", err)
		return
	}

	me, _ := currentAdmin(r)
	resp := DashboardResponse{
		User:         claimsResponse(me),
		Users:        stats.Users,
		Products:     stats.Products,
		Categories:   stats.Categories,
		Orders:       stats.Orders,
		PaidOrders:   stats.PaidOrders,
		RevenueCents: stats.RevenueCents,
		DailySales:   make([]DailySalesResponse, len(stats.DailySales)),
	}
	for i, d := range stats.DailySales {
		resp.DailySales[i] = DailySalesResponse(d)
	}
	a.sendJSON(w, http.StatusOK, resp)
}
