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

const customerColumns = `id, name, email, phone, address, totalOrders, totalSpent, lastOrderDate,
	notes, isActive, createdAt, updatedAt`

func (s *SQLStore) ListCustomers(ctx context.Context, filter store.CustomerFilter) ([]models.Customer, int64, error) {
	clauses := []string{"1=1"}
	var args []any
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses, "(name LIKE ? OR email LIKE ? OR phone LIKE ?)")
		pattern := likePattern(search)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.IsActive != nil {
		clauses = append(clauses, "isActive = ?")
		args = append(args, boolInt(*filter.IsActive))
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM customers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	query := "SELECT " + customerColumns + " FROM customers" + where + " ORDER BY createdAt DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, store.Offset(filter.Page, filter.Limit))
	}
	customers := make([]models.Customer, 0)
	if err := s.db.SelectContext(ctx, &customers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

func getCustomer(ctx context.Context, q sqlx.QueryerContext, id int64) (models.Customer, error) {
	var c models.Customer
	err := sqlx.GetContext(ctx, q, &c, "SELECT "+customerColumns+" FROM customers WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Customer{}, apperr.NotFoundError{Resource: "customer", ID: id}
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return c, nil
}

func (s *SQLStore) GetCustomer(ctx context.Context, id int64) (models.Customer, error) {
	return getCustomer(ctx, s.db, id)
}

func insertCustomer(ctx context.Context, e sqlx.ExecerContext, c *models.Customer) error {
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	res, err := e.ExecContext(ctx, `
		INSERT INTO customers (name, email, phone, address, totalOrders, totalSpent, lastOrderDate,
			notes, isActive, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Phone, c.Address, c.TotalOrders, c.TotalSpent, c.LastOrderDate,
		c.Notes, boolInt(c.IsActive), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("customer id: %w", err)
	}
	c.ID = id
	return nil
}

func (s *SQLStore) CreateCustomer(ctx context.Context, c *models.Customer) error {
	return insertCustomer(ctx, s.db, c)
}

func (s *SQLStore) UpdateCustomer(ctx context.Context, id int64, patch models.CustomerPatch, now time.Time) (models.Customer, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Email != nil {
		set("email", *patch.Email)
	}
	if patch.Phone != nil {
		set("phone", *patch.Phone)
	}
	if patch.Address != nil {
		set("address", *patch.Address)
	}
	if patch.Notes != nil {
		set("notes", *patch.Notes)
	}
	if patch.IsActive != nil {
		set("isActive", boolInt(*patch.IsActive))
	}
	set("updatedAt", now.UTC())
	args = append(args, id)

	if _, err := s.db.ExecContext(ctx, "UPDATE customers SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
		return models.Customer{}, fmt.Errorf("update customer %d: %w", id, err)
	}
	return getCustomer(ctx, s.db, id)
}

// DeleteCustomer refuses to orphan orders. SQLite does not enforce the
// foreign key unless the connection enables it, so the check is explicit.
func (s *SQLStore) DeleteCustomer(ctx context.Context, id int64) error {
	var orders int
	if err := s.db.GetContext(ctx, &orders, "SELECT COUNT(*) FROM orders WHERE customerId = ?", id); err != nil {
		return fmt.Errorf("count customer orders: %w", err)
	}
	if orders > 0 {
		return apperr.ConflictError{Message: "customer has orders"}
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM customers WHERE id = ?", id)
	if isForeignKeyViolation(err) {
		return apperr.ConflictError{Message: "customer has orders"}
	}
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFoundError{Resource: "customer", ID: id}
	}
	return nil
}

func (s *SQLStore) CountActiveCustomers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM customers WHERE isActive = 1"); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}
