package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

const orderColumns = `id, orderNumber, customerId, customerName, items, subtotal, tax, discount,
	shippingFee, total, status, paymentStatus, paymentMethod, deliveryMethod, shippingAddress,
	notes, createdBy, createdAt, updatedAt`

func (s *SQLStore) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	clauses := []string{"1=1"}
	var args []any
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.PaymentStatus != "" {
		clauses = append(clauses, "paymentStatus = ?")
		args = append(args, filter.PaymentStatus)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		clauses = append(clauses,
			"(orderNumber LIKE ? OR customerName LIKE ? OR customerId IN (SELECT id FROM customers WHERE name LIKE ?))")
		pattern := likePattern(search)
		args = append(args, pattern, pattern, pattern)
	}
	where := " WHERE " + strings.Join(clauses, " AND ")

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY createdAt DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, store.Offset(filter.Page, filter.Limit))
	}
	orders := make([]models.Order, 0)
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (s *SQLStore) GetOrder(ctx context.Context, id int64) (models.Order, error) {
	var o models.Order
	err := s.db.GetContext(ctx, &o, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, apperr.NotFoundError{Resource: "order", ID: id}
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %d: %w", id, err)
	}
	return o, nil
}

// PlaceOrder runs stock checks, customer resolution, the order insert and the
// customer counter update in one transaction.
func (s *SQLStore) PlaceOrder(ctx context.Context, p store.Placement) error {
	attempt := newPlacementAttempt(p)
	order := &attempt.order
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if p.DecrementStock {
		for _, item := range order.Items {
			if err := decrementStock(ctx, tx, item, order.CreatedAt); err != nil {
				return err
			}
		}
	}

	if err := resolveCustomer(ctx, tx, order, attempt.customer); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (orderNumber, customerId, customerName, items, subtotal, tax, discount,
			shippingFee, total, status, paymentStatus, paymentMethod, deliveryMethod, shippingAddress,
			notes, createdBy, createdAt, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderNumber, order.CustomerID, order.CustomerName, order.Items, order.Subtotal,
		order.Tax, order.Discount, order.ShippingFee, order.Total, order.Status, order.PaymentStatus,
		order.PaymentMethod, order.DeliveryMethod, order.ShippingAddress, order.Notes,
		order.CreatedBy, order.CreatedAt, order.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.ConflictError{Message: fmt.Sprintf("order number %q already exists", order.OrderNumber)}
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("order id: %w", err)
	}
	order.ID = id

	if err := s.addCustomerSpend(ctx, tx, order.CustomerID, order.Total, order.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	attempt.commit(p)
	return nil
}

// addCustomerSpend bumps the customer counters. totalSpent is summed as a
// decimal because SQLite keeps money as text.
func (s *SQLStore) addCustomerSpend(ctx context.Context, tx *sqlx.Tx, customerID int64, amount decimal.Decimal, at time.Time) error {
	query := "SELECT totalSpent FROM customers WHERE id = ?"
	if s.driver == "mysql" {
		query += " FOR UPDATE"
	}
	var spent decimal.Decimal
	if err := tx.GetContext(ctx, &spent, query, customerID); err != nil {
		return fmt.Errorf("read customer stats: %w", err)
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE customers SET totalOrders = totalOrders + 1, totalSpent = ?,
			lastOrderDate = ?, updatedAt = ?
		WHERE id = ?`,
		spent.Add(amount), at, at, customerID,
	)
	if err != nil {
		return fmt.Errorf("update customer stats: %w", err)
	}
	return nil
}

func decrementStock(ctx context.Context, tx *sqlx.Tx, item models.OrderItem, now time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ?, updatedAt = ? WHERE id = ? AND stock >= ?",
		item.Quantity, now, item.ProductID, item.Quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	product, err := getProduct(ctx, tx, item.ProductID)
	if err != nil {
		return err
	}
	return apperr.InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Available:   product.Stock,
		Requested:   item.Quantity,
	}
}

func resolveCustomer(ctx context.Context, tx *sqlx.Tx, order *models.Order, c *models.Customer) error {
	if order.CustomerID != 0 {
		customer, err := getCustomer(ctx, tx, order.CustomerID)
		if err != nil {
			return err
		}
		if order.CustomerName == "" {
			order.CustomerName = customer.Name
		}
		return nil
	}
	if c == nil {
		return apperr.MissingCustomerInfoError{Fields: []string{"customerId"}}
	}

	var existing models.Customer
	var err error
	switch {
	case c.Phone != "":
		err = tx.GetContext(ctx, &existing,
			"SELECT "+customerColumns+" FROM customers WHERE phone = ? ORDER BY id LIMIT 1", c.Phone)
	case c.Email != "":
		err = tx.GetContext(ctx, &existing,
			"SELECT "+customerColumns+" FROM customers WHERE email = ? ORDER BY id LIMIT 1", c.Email)
	default:
		err = sql.ErrNoRows
	}
	switch {
	case err == nil:
		*c = existing
	case errors.Is(err, sql.ErrNoRows):
		if err := insertCustomer(ctx, tx, c); err != nil {
			return err
		}
	default:
		return fmt.Errorf("find customer: %w", err)
	}

	order.CustomerID = c.ID
	if order.CustomerName == "" {
		order.CustomerName = c.Name
	}
	return nil
}

func (s *SQLStore) SetOrderStatus(ctx context.Context, id int64, from, to store.StatusPair, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = ?, paymentStatus = ?, updatedAt = ?
		WHERE id = ? AND status = ? AND paymentStatus = ?`,
		to.Status, to.PaymentStatus, at.UTC(), id, from.Status, from.PaymentStatus,
	)
	if err != nil {
		return fmt.Errorf("update order status %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders WHERE id = ?", id); err != nil {
		return fmt.Errorf("check order %d: %w", id, err)
	}
	if count == 0 {
		return apperr.NotFoundError{Resource: "order", ID: id}
	}
	return apperr.ConflictError{Message: "order status changed concurrently"}
}

func (s *SQLStore) OrdersCreatedSince(ctx context.Context, since time.Time) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []any
	if !since.IsZero() {
		query += " WHERE createdAt >= ?"
		args = append(args, since.UTC())
	}
	orders := make([]models.Order, 0)
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("orders since %s: %w", since, err)
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *SQLStore) RecentOrders(ctx context.Context, limit int64) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := s.db.SelectContext(ctx, &orders,
		"SELECT "+orderColumns+" FROM orders ORDER BY createdAt DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("recent orders: %w", err)
	}
	return orders, nil
}
