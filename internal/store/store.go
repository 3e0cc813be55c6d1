// Package store declares the persistence ports implemented by the SQL and
// MongoDB backends in internal/database.
package store

import (
	"context"
	"time"

	"storefront/internal/models"
)

type ProductFilter struct {
	Search   string
	Category string
	IsActive *bool
	Page     int64
	Limit    int64
}

type CustomerFilter struct {
	Search   string
	IsActive *bool
	Page     int64
	Limit    int64
}

type OrderFilter struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
	Search        string
	Page          int64
	Limit         int64
}

// Offset returns the number of rows to skip for page/limit.
func Offset(page, limit int64) int64 {
	if page < 1 {
		return 0
	}
	return (page - 1) * limit
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, id int64) (models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, id int64, patch models.ProductPatch, now time.Time) (models.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]string, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
	CountLowStock(ctx context.Context) (int64, error)
}

type CustomerRepository interface {
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]models.Customer, int64, error)
	GetCustomer(ctx context.Context, id int64) (models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, id int64, patch models.CustomerPatch, now time.Time) (models.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	CountActiveCustomers(ctx context.Context) (int64, error)
}

// Placement is everything PlaceOrder writes in one unit of work.
type Placement struct {
	// Order is inserted with its ID assigned by the store. CustomerID may be
	// zero when NewCustomer is set.
	Order *models.Order
	// NewCustomer is matched by phone (then email) or created when
	// Order.CustomerID is zero.
	NewCustomer *models.Customer
	// DecrementStock enables the compare-and-swap stock decrement for every
	// line.
	DecrementStock bool
}

// StatusPair is the (status, paymentStatus) tuple guarded by SetOrderStatus.
type StatusPair struct {
	Status        models.OrderStatus
	PaymentStatus models.PaymentStatus
}

type OrderRepository interface {
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	GetOrder(ctx context.Context, id int64) (models.Order, error)
	// PlaceOrder atomically checks and decrements stock, resolves the
	// customer, inserts the order and bumps the customer's counters.
	PlaceOrder(ctx context.Context, p Placement) error
	// SetOrderStatus moves an order from one status pair to another. It fails
	// with a NotFoundError for unknown ids and a ConflictError when the stored
	// pair no longer equals from.
	SetOrderStatus(ctx context.Context, id int64, from, to StatusPair, at time.Time) error
	// OrdersCreatedSince returns orders with createdAt >= since, oldest first.
	// A zero since returns every order.
	OrdersCreatedSince(ctx context.Context, since time.Time) ([]models.Order, error)
	RecentOrders(ctx context.Context, limit int64) ([]models.Order, error)
}

type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	CountUsers(ctx context.Context) (int64, error)
}

// Store bundles every repository of one backend.
type Store interface {
	ProductRepository
	CustomerRepository
	OrderRepository
	UserRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
