// ABOUTME: Store interfaces and data types for storefront persistence
// ABOUTME: Defines users, catalog, orders and dashboard stats plus their sentinel errors

package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by every Store implementation.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already registered")
	ErrAdminExists      = errors.New("an admin user already exists")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category slug already exists")
	ErrCategoryInUse    = errors.New("category still has products")
	ErrProductNotFound  = errors.New("product not found")
	ErrProductExists    = errors.New("product slug already exists")
	ErrOrderNotFound    = errors.New("order not found")
	ErrStatusConflict   = errors.New("order status has changed")
)

// User is a registered customer or administrator.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string // bcrypt hash, never serialized to clients
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category groups products in the catalog.
type Category struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a sellable catalog item. Prices are integer cents.
type Product struct {
	ID          string
	CategoryID  string
	Name        string
	Slug        string
	Description string // markdown
	PriceCents  int64
	Stock       int
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductFilter narrows ListProducts.
type ProductFilter struct {
	CategoryID string // empty matches all
	Search     string // case-insensitive substring of name or description
	Limit      int    // default 100, max 1000
}

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is a snapshot of a product line at checkout time.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// Order is a customer purchase. Items are stored as a JSON document.
type Order struct {
	ID              string
	UserID          string
	Items           []OrderItem
	TotalCents      int64
	Currency        string
	Status          OrderStatus
	PaymentRef      string // payment gateway session ID
	ShippingAddress string
	PaidAt          *time.Time
	DeliveredAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderFilter narrows ListOrders.
type OrderFilter struct {
	UserID string
	Status *OrderStatus
	Limit  int // default 100, max 1000
}

// StatusChange describes an order status transition. The order must still
// be in From; Stock is applied in the same transaction as the move.
type StatusChange struct {
	From       OrderStatus
	Status     OrderStatus
	PaymentRef string    // recorded when moving to paid
	At         time.Time // sets PaidAt or DeliveredAt depending on Status
	Stock      []StockAdjustment
}

// StockAdjustment adds Delta to a product's stock.
type StockAdjustment struct {
	ProductID string
	Delta     int
}

// StockShortfall records stock a status change could not take because the
// product ran out or no longer exists. Stock never goes below zero.
type StockShortfall struct {
	ProductID string
	Missing   int
}

// DailySales aggregates paid orders for one calendar day (UTC).
type DailySales struct {
	Date         string // YYYY-MM-DD
	Orders       int
	RevenueCents int64
}

// DashboardStats summarizes the shop for the admin dashboard.
type DashboardStats struct {
	Users        int
	Products     int
	Categories   int
	Orders       int
	PaidOrders   int
	RevenueCents int64
	DailySales   []DailySales
}

// UserStore persists users. Email comparisons are case-insensitive.
type UserStore interface {
	// CreateUser inserts a user with the IsAdmin flag as given.
	CreateUser(ctx context.Context, user *User) error
	// RegisterUser inserts a user and grants admin iff no user existed before.
	// The decision is made atomically by the store and written back to user.IsAdmin.
	RegisterUser(ctx context.Context, user *User) error
	// CreateInitialAdmin inserts user as admin only if no admin exists yet.
	CreateInitialAdmin(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int, error)
	CountAdmins(ctx context.Context) (int, error)
}

// CatalogStore persists categories and products.
type CatalogStore interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error

	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id string) error
}

// OrderStore persists orders.
type OrderStore interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	GetOrderByPaymentRef(ctx context.Context, ref string) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error)
	// UpdateOrderStatus returns ErrStatusConflict when the order is no
	// longer in change.From.
	UpdateOrderStatus(ctx context.Context, id string, change StatusChange) ([]StockShortfall, error)
	SetOrderPaymentRef(ctx context.Context, id, ref string) error
	DeleteOrder(ctx context.Context, id string) error
}

// StatsStore computes dashboard aggregates.
type StatsStore interface {
	GetDashboardStats(ctx context.Context, since time.Time) (*DashboardStats, error)
}

// Store is the full persistence surface used by the server.
type Store interface {
	UserStore
	CatalogStore
	OrderStore
	StatsStore

	// Ping checks that the backing database is reachable.
	Ping(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}
