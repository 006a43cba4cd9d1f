// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject store failures

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	users      map[string]*User     // keyed by user ID
	categories map[string]*Category // keyed by category ID
	products   map[string]*Product  // keyed by product ID
	orders     map[string]*Order    // keyed by order ID
	failWith   error
}

// Ensure MockStore implements Store.
var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:      make(map[string]*User),
		categories: make(map[string]*Category),
		products:   make(map[string]*Product),
		orders:     make(map[string]*Order),
	}
}

// SetError makes every subsequent call fail with err. Pass nil to recover.
func (m *MockStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockStore) findUserByEmail(email string) *User {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if m.findUserByEmail(user.Email) != nil {
		return ErrEmailExists
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

// RegisterUser stores a user, making it admin if it is the first.
func (m *MockStore) RegisterUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if m.findUserByEmail(user.Email) != nil {
		return ErrEmailExists
	}
	user.IsAdmin = len(m.users) == 0
	m.users[user.ID] = copyUser(user)
	return nil
}

// CreateInitialAdmin stores user as admin if there is no admin yet.
func (m *MockStore) CreateInitialAdmin(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	for _, u := range m.users {
		if u.IsAdmin {
			return ErrAdminExists
		}
	}
	if m.findUserByEmail(user.Email) != nil {
		return ErrEmailExists
	}
	user.IsAdmin = true
	m.users[user.ID] = copyUser(user)
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// GetUserByEmail retrieves a user by email, ignoring case.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	u := m.findUserByEmail(email)
	if u == nil {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

// ListUsers returns all users, oldest first.
func (m *MockStore) ListUsers(ctx context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// UpdateUser replaces a stored user.
func (m *MockStore) UpdateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	if other := m.findUserByEmail(user.Email); other != nil && other.ID != user.ID {
		return ErrEmailExists
	}
	m.users[user.ID] = copyUser(user)
	return nil
}

// DeleteUser removes a user.
func (m *MockStore) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// CountUsers returns the number of users.
func (m *MockStore) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	return len(m.users), nil
}

// CountAdmins returns the number of admins.
func (m *MockStore) CountAdmins(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return 0, m.failWith
	}

	n := 0
	for _, u := range m.users {
		if u.IsAdmin {
			n++
		}
	}
	return n, nil
}

// CreateCategory stores a new category.
func (m *MockStore) CreateCategory(ctx context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	for _, existing := range m.categories {
		if existing.Slug == c.Slug {
			return ErrCategoryExists
		}
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

// GetCategory retrieves a category by ID.
func (m *MockStore) GetCategory(ctx context.Context, id string) (*Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	c, ok := m.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

// ListCategories returns all categories ordered by name.
func (m *MockStore) ListCategories(ctx context.Context) ([]*Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	out := make([]*Category, 0, len(m.categories))
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// UpdateCategory replaces a stored category.
func (m *MockStore) UpdateCategory(ctx context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	existing, ok := m.categories[c.ID]
	if !ok {
		return ErrCategoryNotFound
	}
	for _, other := range m.categories {
		if other.ID != c.ID && other.Slug == c.Slug {
			return ErrCategoryExists
		}
	}
	existing.Name = c.Name
	existing.Slug = c.Slug
	existing.UpdatedAt = c.UpdatedAt
	return nil
}

// DeleteCategory removes a category that has no products.
func (m *MockStore) DeleteCategory(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	for _, p := range m.products {
		if p.CategoryID == id {
			return ErrCategoryInUse
		}
	}
	if _, ok := m.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *MockStore) checkProduct(p *Product) error {
	for _, other := range m.products {
		if other.ID != p.ID && other.Slug == p.Slug {
			return ErrProductExists
		}
	}
	if p.CategoryID != "" {
		if _, ok := m.categories[p.CategoryID]; !ok {
			return ErrCategoryNotFound
		}
	}
	return nil
}

// CreateProduct stores a new product.
func (m *MockStore) CreateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if err := m.checkProduct(p); err != nil {
		return err
	}
	cp := *p
	m.products[p.ID] = &cp
	return nil
}

// GetProduct retrieves a product by ID.
func (m *MockStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	p, ok := m.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// GetProductBySlug retrieves a product by slug.
func (m *MockStore) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	for _, p := range m.products {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrProductNotFound
}

// ListProducts returns products matching the filter, ordered by name.
func (m *MockStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	q := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []*Product
	for _, p := range m.products {
		if filter.CategoryID != "" && p.CategoryID != filter.CategoryID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})

	if limit := clampLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateProduct replaces a stored product.
func (m *MockStore) UpdateProduct(ctx context.Context, p *Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	existing, ok := m.products[p.ID]
	if !ok {
		return ErrProductNotFound
	}
	if err := m.checkProduct(p); err != nil {
		return err
	}
	cp := *p
	cp.CreatedAt = existing.CreatedAt
	m.products[p.ID] = &cp
	return nil
}

// DeleteProduct removes a product.
func (m *MockStore) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if _, ok := m.products[id]; !ok {
		return ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func copyOrder(o *Order) *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return &c
}

// CreateOrder stores a new order.
func (m *MockStore) CreateOrder(ctx context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if !o.Status.Valid() {
		return errors.New("invalid order status")
	}
	m.orders[o.ID] = copyOrder(o)
	return nil
}

// GetOrder retrieves an order by ID.
func (m *MockStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return copyOrder(o), nil
}

// GetOrderByPaymentRef retrieves an order by payment session ID.
func (m *MockStore) GetOrderByPaymentRef(ctx context.Context, ref string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	if ref != "" {
		for _, o := range m.orders {
			if o.PaymentRef == ref {
				return copyOrder(o), nil
			}
		}
	}
	return nil, ErrOrderNotFound
}

// ListOrders returns orders matching the filter, newest first.
func (m *MockStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	var out []*Order
	for _, o := range m.orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit := clampLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpdateOrderStatus moves an order from change.From to change.Status and
// applies change.Stock.
func (m *MockStore) UpdateOrderStatus(ctx context.Context, id string, change StatusChange) ([]StockShortfall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	if !change.Status.Valid() || !change.From.Valid() {
		return nil, errors.New("invalid order status")
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if o.Status != change.From {
		return nil, ErrStatusConflict
	}

	at := change.At.UTC().Truncate(time.Second)
	o.Status = change.Status
	o.UpdatedAt = at
	switch change.Status {
	case OrderStatusPaid:
		o.PaidAt = &at
		if change.PaymentRef != "" {
			o.PaymentRef = change.PaymentRef
		}
	case OrderStatusDelivered:
		o.DeliveredAt = &at
	}

	var shortfalls []StockShortfall
	for _, adj := range change.Stock {
		p, ok := m.products[adj.ProductID]
		if !ok {
			if adj.Delta < 0 {
				shortfalls = append(shortfalls, StockShortfall{ProductID: adj.ProductID, Missing: -adj.Delta})
			}
			continue
		}
		next := p.Stock + adj.Delta
		if next < 0 {
			shortfalls = append(shortfalls, StockShortfall{ProductID: adj.ProductID, Missing: -next})
			next = 0
		}
		p.Stock = next
	}
	return shortfalls, nil
}

// SetOrderPaymentRef attaches a payment session ID to an order.
func (m *MockStore) SetOrderPaymentRef(ctx context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	o, ok := m.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.PaymentRef = ref
	return nil
}

// DeleteOrder removes an order.
func (m *MockStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}

	if _, ok := m.orders[id]; !ok {
		return ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

// GetDashboardStats computes the same aggregates as the SQLite store.
func (m *MockStore) GetDashboardStats(ctx context.Context, since time.Time) (*DashboardStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failWith != nil {
		return nil, m.failWith
	}

	stats := &DashboardStats{
		Users:      len(m.users),
		Products:   len(m.products),
		Categories: len(m.categories),
		Orders:     len(m.orders),
	}

	daily := make(map[string]*DailySales)
	for _, o := range m.orders {
		if o.Status != OrderStatusPaid && o.Status != OrderStatusDelivered {
			continue
		}
		stats.PaidOrders++
		stats.RevenueCents += o.TotalCents

		if o.PaidAt == nil || o.PaidAt.Before(since.Truncate(time.Second)) {
			continue
		}
		day := o.PaidAt.UTC().Format("2006-01-02")
		d, ok := daily[day]
		if !ok {
			d = &DailySales{Date: day}
			daily[day] = d
		}
		d.Orders++
		d.RevenueCents += o.TotalCents
	}

	for _, d := range daily {
		stats.DailySales = append(stats.DailySales, *d)
	}
	sort.Slice(stats.DailySales, func(i, j int) bool {
		return stats.DailySales[i].Date < stats.DailySales[j].Date
	})
	return stats, nil
}

// Ping reports the injected error, if any.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failWith
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
