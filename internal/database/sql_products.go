package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

const productColumns = `id, name, description, price, cost, category, brand, sku, stock,
	minStock, tags, isActive, createdAt, updatedAt`

func productWhere(filter store.ProductFilter) (string, []any) {
	clauses := []string{"1=1"}
	var args []any

	if category := strings.TrimSpace(filter.Category); category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, "(name LIKE ? OR description LIKE ? OR sku LIKE ?)")
		pattern := likePattern(search)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.IsActive != nil {
		clauses = append(clauses, "isActive = ?")
		args = append(args, boolInt(*filter.IsActive))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *SQLStore) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	where, args := productWhere(filter)

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM products"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products" + where + " ORDER BY createdAt DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, store.Offset(filter.Page, filter.Limit))
	}

	products := make([]models.Product, 0)
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	for i := range products {
		products[i].InStock = products[i].Stock > 0
	}
	return products, total, nil
}

func getProduct(ctx context.Context, q sqlx.QueryerContext, id int64) (models.Product, error) {
	var p models.Product
	err := sqlx.GetContext(ctx, q, &p, "SELECT "+productColumns+" FROM products WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, apperr.NotFoundError{Resource: "product", ID: id}
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	p.InStock = p.Stock > 0
	return p, nil
}

func (s *SQLStore) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	return getProduct(ctx, s.db, id)
}

func (s *SQLStore) CreateProduct(ctx context.Context, p *models.Product) error {
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, description, price, cost, category, brand, sku, stock,
			minStock, tags, isActive, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Price, p.Cost, p.Category, p.Brand, p.SKU, p.Stock,
		p.MinStock, p.Tags, boolInt(p.IsActive), p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.ConflictError{Message: fmt.Sprintf("sku %q already exists", p.SKU)}
	}
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	p.ID = id
	p.InStock = p.Stock > 0
	return nil
}

func (s *SQLStore) UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch, now time.Time) (models.Product, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.Cost != nil {
		set("cost", *patch.Cost)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.Brand != nil {
		set("brand", *patch.Brand)
	}
	if patch.Stock != nil {
		set("stock", *patch.Stock)
	}
	if patch.MinStock != nil {
		set("minStock", *patch.MinStock)
	}
	if patch.Tags != nil {
		set("tags", *patch.Tags)
	}
	if patch.IsActive != nil {
		set("isActive", boolInt(*patch.IsActive))
	}
	set("updatedAt", now.UTC())
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, "UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return models.Product{}, fmt.Errorf("update product %d: %w", id, err)
	}
	return getProduct(ctx, s.db, id)
}

func (s *SQLStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundError{Resource: "product", ID: id}
	}
	return nil
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]string, error) {
	categories := make([]string, 0)
	err := s.db.SelectContext(ctx, &categories,
		"SELECT DISTINCT category FROM products WHERE category IS NOT NULL AND category <> '' ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *SQLStore) ListLowStock(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0)
	err := s.db.SelectContext(ctx, &products,
		"SELECT "+productColumns+" FROM products WHERE stock <= minStock AND isActive = 1 ORDER BY stock, id")
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	for i := range products {
		products[i].InStock = products[i].Stock > 0
	}
	return products, nil
}

func (s *SQLStore) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products WHERE stock <= minStock AND isActive = 1"); err != nil {
		return 0, fmt.Errorf("count low stock: %w", err)
	}
	return n, nil
}
