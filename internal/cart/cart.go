// Package cart keeps a shopper's product selection and derives its totals.
// Carts are persisted as product id / quantity pairs and rehydrated from the
// catalog, so prices are always current.
package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

type Line struct {
	Product  models.Product
	Quantity int
}

// Total is the line price at the product's current price.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Cart struct {
	id       string
	lines    []Line
	delivery models.DeliveryMethod
	policy   ShippingPolicy
	repo     Repository
}

// New returns an empty cart. A nil repo disables persistence.
func New(id string, policy ShippingPolicy, repo Repository) *Cart {
	return &Cart{id: id, policy: policy, repo: repo, delivery: models.DeliveryStandard}
}

// FromLines builds an unpersisted cart from explicit lines without clamping
// to stock, for back-office order entry. Lines with a non-positive quantity
// are skipped.
func FromLines(policy ShippingPolicy, lines []Line) *Cart {
	c := New("", policy, nil)
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := c.index(l.Product.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c
}

func (c *Cart) ID() string                            { return c.id }
func (c *Cart) DeliveryMethod() models.DeliveryMethod { return c.delivery }
func (c *Cart) IsEmpty() bool                         { return len(c.lines) == 0 }

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	return append([]Line(nil), c.lines...)
}

// Quantity returns the quantity held for productID, zero when absent.
func (c *Cart) Quantity(productID int64) int {
	if i := c.index(productID); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.lines {
		sum = sum.Add(l.Total())
	}
	return sum
}

// ShippingFee prices the selected delivery method.
func (c *Cart) ShippingFee() decimal.Decimal {
	return c.ShippingFeeFor(c.delivery)
}

// ShippingFeeFor prices method against the current subtotal. An empty cart
// ships for free.
func (c *Cart) ShippingFeeFor(method models.DeliveryMethod) decimal.Decimal {
	if c.IsEmpty() || c.policy == nil {
		return decimal.Zero
	}
	return c.policy.Fee(c.Subtotal(), method)
}

func (c *Cart) Total() decimal.Decimal {
	return c.Subtotal().Add(c.ShippingFee())
}

// DeliveryOptions lists the methods priced for this cart.
func (c *Cart) DeliveryOptions() []DeliveryOption {
	if c.policy == nil {
		return nil
	}
	options := c.policy.Options(c.Subtotal())
	if c.IsEmpty() {
		for i := range options {
			options[i].Fee = decimal.Zero
		}
	}
	return options
}

// AddItem increments the product's quantity, inserting it when absent. The
// result is clamped to the product's stock. Non-positive quantities and
// inactive or sold-out products are ignored.
func (c *Cart) AddItem(ctx context.Context, product models.Product, qty int) error {
	if qty <= 0 || !product.IsActive || product.Stock <= 0 {
		return nil
	}
	if i := c.index(product.ID); i >= 0 {
		c.lines[i].Product = product
		c.lines[i].Quantity = min(c.lines[i].Quantity+qty, product.Stock)
	} else {
		c.lines = append(c.lines, Line{Product: product, Quantity: min(qty, product.Stock)})
	}
	return c.save(ctx)
}

// SetQuantity removes the line when qty <= 0 and otherwise clamps qty to
// [1, stock]. Unknown products are a no-op.
func (c *Cart) SetQuantity(ctx context.Context, productID int64, qty int) error {
	i := c.index(productID)
	if i < 0 {
		return nil
	}
	if qty <= 0 {
		return c.RemoveItem(ctx, productID)
	}
	c.lines[i].Quantity = max(1, min(qty, c.lines[i].Product.Stock))
	return c.save(ctx)
}

func (c *Cart) RemoveItem(ctx context.Context, productID int64) error {
	if i := c.index(productID); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	return c.save(ctx)
}

func (c *Cart) SetDeliveryMethod(ctx context.Context, method models.DeliveryMethod) error {
	if !method.Valid() {
		return apperr.Invalid("deliveryMethod", "unknown delivery method %q", method)
	}
	c.delivery = method
	return c.save(ctx)
}

// Clear empties the cart and drops its stored snapshot.
func (c *Cart) Clear(ctx context.Context) error {
	c.lines = nil
	if c.repo == nil {
		return nil
	}
	return c.repo.Delete(ctx, c.id)
}

// Snapshot is the persisted form of the cart.
func (c *Cart) Snapshot() Snapshot {
	snap := Snapshot{
		ID:             c.id,
		Items:          make([]SnapshotItem, 0, len(c.lines)),
		DeliveryMethod: c.delivery,
		UpdatedAt:      time.Now().UTC(),
	}
	for _, l := range c.lines {
		snap.Items = append(snap.Items, SnapshotItem{ProductID: l.Product.ID, Quantity: l.Quantity})
	}
	return snap
}

func (c *Cart) index(productID int64) int {
	for i, l := range c.lines {
		if l.Product.ID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) save(ctx context.Context) error {
	if c.repo == nil {
		return nil
	}
	return c.repo.Save(ctx, c.Snapshot())
}
