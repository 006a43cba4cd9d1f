// ABOUTME: Unit tests for MockStore to ensure behavior matches SQLiteStore
// ABOUTME: Focuses on duplicate detection, first-user promotion and error injection

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStore_RegisterUser_FirstIsAdmin(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	first := newTestUser("u1", "first@example.com")
	require.NoError(t, store.RegisterUser(ctx, first))
	assert.True(t, first.IsAdmin)

	second := newTestUser("u2", "second@example.com")
	require.NoError(t, store.RegisterUser(ctx, second))
	assert.False(t, second.IsAdmin)

	err := store.RegisterUser(ctx, newTestUser("u3", "FIRST@example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestMockStore_CreateInitialAdmin(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUser("c", "c@example.com")))
	require.NoError(t, store.CreateInitialAdmin(ctx, newTestUser("a", "a@example.com")))
	assert.ErrorIs(t, store.CreateInitialAdmin(ctx, newTestUser("b", "b@example.com")), ErrAdminExists)
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	u := newTestUser("u1", "u1@example.com")
	require.NoError(t, store.CreateUser(ctx, u))
	u.Name = "mutated"

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User u1", got.Name)

	got.Name = "mutated again"
	again, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User u1", again.Name)
}

func TestMockStore_SetError(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	boom := errors.New("database is locked")

	store.SetError(boom)
	_, err := store.CountAdmins(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, store.Ping(ctx), boom)
	_, err = store.GetUserByEmail(ctx, "x@example.com")
	assert.ErrorIs(t, err, boom)

	store.SetError(nil)
	n, err := store.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMockStore_CategoryInUse(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	seedCategory(t, store, "shoes", "Shoes")
	seedProduct(t, store, "boot", "shoes", "Boot", 5000, 1)

	assert.ErrorIs(t, store.DeleteCategory(ctx, "shoes"), ErrCategoryInUse)
}

func TestMockStore_StatusChangeStock(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	seedProduct(t, store, "boot", "", "Boot", 5000, 1)
	require.NoError(t, store.CreateOrder(ctx, newTestOrder("o1", "u1", testNow)))

	take := StatusChange{
		From:   OrderStatusPending,
		Status: OrderStatusPaid,
		At:     testNow,
		Stock:  []StockAdjustment{{ProductID: "boot", Delta: -3}, {ProductID: "nope", Delta: -1}},
	}
	shortfalls, err := store.UpdateOrderStatus(ctx, "o1", take)
	require.NoError(t, err)
	assert.Equal(t, []StockShortfall{{ProductID: "boot", Missing: 2}, {ProductID: "nope", Missing: 1}}, shortfalls)
	assert.Equal(t, 0, productStock(t, store, "boot"))

	_, err = store.UpdateOrderStatus(ctx, "o1", take)
	assert.ErrorIs(t, err, ErrStatusConflict)
	assert.Equal(t, 0, productStock(t, store, "boot"))
}

func TestMockStore_DashboardStats(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateOrder(ctx, newTestOrder("o1", "u1", day)))
	require.NoError(t, store.CreateOrder(ctx, newTestOrder("o2", "u1", day)))
	_, err := store.UpdateOrderStatus(ctx, "o1", StatusChange{From: OrderStatusPending, Status: OrderStatusPaid, PaymentRef: "ref", At: day})
	require.NoError(t, err)

	stats, err := store.GetDashboardStats(ctx, day.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Orders)
	assert.Equal(t, 1, stats.PaidOrders)
	assert.Equal(t, int64(8000), stats.RevenueCents)
	assert.Equal(t, []DailySales{{Date: "2025-03-01", Orders: 1, RevenueCents: 8000}}, stats.DailySales)

	o, err := store.GetOrderByPaymentRef(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, "o1", o.ID)
}
