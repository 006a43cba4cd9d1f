// ABOUTME: Category and product store methods for the SQLite backend
// ABOUTME: Slugs are unique and categories that still hold products cannot be deleted

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateCategory inserts a new category.
func (s *SQLiteStore) CreateCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (id, name, slug, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Slug, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrCategoryExists
		}
		return fmt.Errorf("inserting category: %w", err)
	}

	s.logger.Debug("created category", "id", c.ID, "slug", c.Slug)
	return nil
}

func scanCategory(row rowScanner) (*Category, error) {
	var c Category
	var createdAtStr, updatedAtStr string
	if err := row.Scan(&c.ID, &c.Name, &c.Slug, &createdAtStr, &updatedAtStr); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetCategory retrieves a category by ID.
func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories ordered by name.
func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, created_at, updated_at FROM categories ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}
	return categories, nil
}

// UpdateCategory updates a category's name and slug.
func (s *SQLiteStore) UpdateCategory(ctx context.Context, c *Category) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Slug, formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrCategoryExists
		}
		return fmt.Errorf("updating category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory removes a category. Returns ErrCategoryInUse if any
// product still references it.
func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	var inUse int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = ?`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("counting category products: %w", err)
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrCategoryInUse
		}
		return fmt.Errorf("deleting category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}

	s.logger.Debug("deleted category", "id", id)
	return nil
}

const productColumns = `id, category_id, name, slug, description, price_cents, stock, image_url, created_at, updated_at`

// CreateProduct inserts a new product.
func (s *SQLiteStore) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		nullString(p.CategoryID),
		p.Name,
		p.Slug,
		p.Description,
		p.PriceCents,
		p.Stock,
		p.ImageURL,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrProductExists
		}
		if isForeignKeyError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("inserting product: %w", err)
	}

	s.logger.Debug("created product", "id", p.ID, "slug", p.Slug)
	return nil
}

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	var categoryID sql.NullString
	var createdAtStr, updatedAtStr string

	if err := row.Scan(
		&p.ID,
		&categoryID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.PriceCents,
		&p.Stock,
		&p.ImageURL,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return nil, err
	}
	p.CategoryID = categoryID.String

	var err error
	if p.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduct retrieves a product by ID.
func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying product: %w", err)
	}
	return p, nil
}

// GetProductBySlug retrieves a product by its slug.
func (s *SQLiteStore) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE slug = ?`, slug)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying product by slug: %w", err)
	}
	return p, nil
}

// ListProducts returns products matching the filter, ordered by name.
func (s *SQLiteStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	var conditions []string
	var args []any

	if filter.CategoryID != "" {
		conditions = append(conditions, "category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		conditions = append(conditions, "(name LIKE ? ESCAPE '\\' OR description LIKE ? ESCAPE '\\')")
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern, pattern)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}
	return products, nil
}

// UpdateProduct updates all mutable product fields.
func (s *SQLiteStore) UpdateProduct(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET category_id = ?, name = ?, slug = ?, description = ?, price_cents = ?,
		    stock = ?, image_url = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		nullString(p.CategoryID),
		p.Name,
		p.Slug,
		p.Description,
		p.PriceCents,
		p.Stock,
		p.ImageURL,
		formatTime(p.UpdatedAt),
		p.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrProductExists
		}
		if isForeignKeyError(err) {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("updating product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct removes a product. Existing orders keep their item snapshots.
func (s *SQLiteStore) DeleteProduct(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	s.logger.Debug("deleted product", "id", id)
	return nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
