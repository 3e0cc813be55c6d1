// Package checkout turns a cart plus checkout inputs into a persisted order.
package checkout

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/cart"
	"storefront/internal/models"
	"storefront/internal/store"
)

// Contact identifies a walk-in customer when no customer id is given.
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Address models.Address
}

type Input struct {
	CustomerID     int64
	Contact        Contact
	PaymentMethod  string
	DeliveryMethod models.DeliveryMethod
	Tax            decimal.Decimal
	Discount       decimal.Decimal
	Notes          string
	CreatedBy      int64
	IdempotencyKey string
}

// OrderPlacer is the store call that writes an order atomically.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, p store.Placement) error
}

type Options struct {
	// StockAware checks stock before placement and decrements it inside the
	// placement transaction.
	StockAware     bool
	RequireEmail   bool
	RequireAddress bool
}

type Composer struct {
	orders   OrderPlacer
	products cart.ProductReader
	notifier Notifier
	guard    IdempotencyGuard
	opts     Options

	now         func() time.Time
	orderNumber func(time.Time) string
}

// NewComposer wires a composer. notifier and guard may be nil.
func NewComposer(orders OrderPlacer, products cart.ProductReader, notifier Notifier, guard IdempotencyGuard, opts Options) *Composer {
	return &Composer{
		orders:      orders,
		products:    products,
		notifier:    notifier,
		guard:       guard,
		opts:        opts,
		now:         time.Now,
		orderNumber: NewOrderNumber,
	}
}

// NewOrderNumber returns ORD-<unix ms>-<6 upper-case hex chars>.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:6]
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix)
}

// Compose validates everything before writing, places the order, clears the
// cart and sends a best-effort confirmation.
func (c *Composer) Compose(ctx context.Context, crt *cart.Cart, in Input) (models.Order, error) {
	if crt.IsEmpty() {
		return models.Order{}, apperr.ErrEmptyCart
	}

	contact := normalizeContact(in.Contact)
	if in.CustomerID == 0 {
		if missing := c.missingContactFields(contact); len(missing) > 0 {
			return models.Order{}, apperr.MissingCustomerInfoError{Fields: missing}
		}
	}

	payment := models.PaymentMethodCOD
	if raw := strings.TrimSpace(in.PaymentMethod); raw != "" {
		parsed, ok := models.ParsePaymentMethod(raw)
		if !ok {
			return models.Order{}, apperr.Invalid("paymentMethod", "unknown payment method %q", raw)
		}
		payment = parsed
	}

	delivery := in.DeliveryMethod
	if delivery == "" {
		delivery = crt.DeliveryMethod()
	}
	if !delivery.Valid() {
		return models.Order{}, apperr.Invalid("deliveryMethod", "unknown delivery method %q", delivery)
	}

	if in.Tax.IsNegative() {
		return models.Order{}, apperr.Invalid("tax", "tax must be zero or greater")
	}
	if in.Discount.IsNegative() {
		return models.Order{}, apperr.Invalid("discount", "discount must be zero or greater")
	}

	lines := crt.Lines()
	items := make(models.OrderItems, 0, len(lines))
	subtotal := decimal.Zero
	for _, l := range lines {
		lineTotal := l.Total()
		items = append(items, models.OrderItem{
			ProductID:   l.Product.ID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			Price:       l.Product.Price,
			Total:       lineTotal,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	shipping := crt.ShippingFeeFor(delivery)
	if in.Discount.GreaterThan(subtotal.Add(in.Tax).Add(shipping)) {
		return models.Order{}, apperr.Invalid("discount", "discount exceeds order amount")
	}

	if c.opts.StockAware {
		if err := c.checkStock(ctx, items); err != nil {
			return models.Order{}, err
		}
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" && c.guard != nil {
		ok, err := c.guard.Claim(ctx, key)
		if err != nil {
			return models.Order{}, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return models.Order{}, apperr.ConflictError{Message: "duplicate checkout request"}
		}
	}

	now := c.now()
	order := &models.Order{
		OrderNumber:     c.orderNumber(now),
		CustomerID:      in.CustomerID,
		CustomerName:    contact.Name,
		Items:           items,
		Subtotal:        subtotal,
		Tax:             in.Tax,
		Discount:        in.Discount,
		ShippingFee:     shipping,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
		PaymentMethod:   payment,
		DeliveryMethod:  delivery,
		ShippingAddress: contact.Address,
		Notes:           strings.TrimSpace(in.Notes),
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	order.Total = order.ComputedTotal()

	placement := store.Placement{Order: order, DecrementStock: c.opts.StockAware}
	if in.CustomerID == 0 {
		placement.NewCustomer = &models.Customer{
			Name:      contact.Name,
			Email:     contact.Email,
			Phone:     contact.Phone,
			Address:   contact.Address,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	if err := c.orders.PlaceOrder(ctx, placement); err != nil {
		c.release(ctx, in.IdempotencyKey)
		return models.Order{}, err
	}
	log.Printf("[ORDER] [INFO] order %s placed: customer=%d items=%d total=%s",
		order.OrderNumber, order.CustomerID, len(order.Items), order.Total)

	if err := crt.Clear(ctx); err != nil {
		log.Printf("[ORDER] [WARN] order %s: clear cart %s: %v", order.OrderNumber, crt.ID(), err)
	}

	if c.notifier != nil {
		recipient := contact.Email
		if placement.NewCustomer != nil && recipient == "" {
			recipient = placement.NewCustomer.Email
		}
		if err := c.notifier.OrderPlaced(ctx, *order, recipient); err != nil {
			log.Printf("[ORDER] [WARN] order %s: notification failed: %v", order.OrderNumber, err)
		}
	}
	return *order, nil
}

func (c *Composer) missingContactFields(contact Contact) []string {
	var missing []string
	if contact.Name == "" {
		missing = append(missing, "name")
	}
	if contact.Phone == "" {
		missing = append(missing, "phone")
	}
	if c.opts.RequireEmail && contact.Email == "" {
		missing = append(missing, "email")
	}
	if c.opts.RequireAddress && contact.Address.IsZero() {
		missing = append(missing, "address")
	}
	return missing
}

// checkStock re-reads every product so the error names current stock. The
// placement transaction repeats the check atomically.
func (c *Composer) checkStock(ctx context.Context, items models.OrderItems) error {
	for _, item := range items {
		product, err := c.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if item.Quantity > product.Stock {
			return apperr.InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   item.Quantity,
			}
		}
	}
	return nil
}

func (c *Composer) release(ctx context.Context, key string) {
	key = strings.TrimSpace(key)
	if key == "" || c.guard == nil {
		return
	}
	if err := c.guard.Release(ctx, key); err != nil {
		log.Printf("[ORDER] [WARN] release idempotency key %s: %v", key, err)
	}
}

func normalizeContact(in Contact) Contact {
	return Contact{
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Address: models.Address{
			Street:  strings.TrimSpace(in.Address.Street),
			City:    strings.TrimSpace(in.Address.City),
			State:   strings.TrimSpace(in.Address.State),
			Zip:     strings.TrimSpace(in.Address.Zip),
			Country: strings.TrimSpace(in.Address.Country),
		},
	}
}
