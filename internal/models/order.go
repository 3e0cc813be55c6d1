package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status change is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCard         PaymentMethod = "card"
)

// ParsePaymentMethod accepts the canonical names plus the short forms the
// storefront forms send ("cash", "bank").
func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch raw {
	case "cod", "cash":
		return PaymentMethodCOD, true
	case "bank_transfer", "bank":
		return PaymentMethodBankTransfer, true
	case "card":
		return PaymentMethodCard, true
	}
	return "", false
}

type DeliveryMethod string

const (
	DeliveryStandard DeliveryMethod = "standard"
	DeliveryExpress  DeliveryMethod = "express"
	DeliveryPickup   DeliveryMethod = "pickup"
)

func (m DeliveryMethod) Valid() bool {
	switch m {
	case DeliveryStandard, DeliveryExpress, DeliveryPickup:
		return true
	}
	return false
}

// OrderItem is a line snapshot. Price is the unit price at order time.
type OrderItem struct {
	ProductID   int64           `bson:"productId" json:"productId"`
	ProductName string          `bson:"productName" json:"productName"`
	Quantity    int             `bson:"quantity" json:"quantity"`
	Price       decimal.Decimal `bson:"price" json:"price"`
	Total       decimal.Decimal `bson:"total" json:"total"`
}

// OrderItems is stored as a JSON blob in SQL rows.
type OrderItems []OrderItem

// Scan implements sql.Scanner.
func (items *OrderItems) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*items = OrderItems{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into OrderItems", src)
	}
	var out OrderItems
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("decode order items: %w", err)
	}
	*items = out
	return nil
}

// Value implements driver.Valuer.
func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Order is the persisted order. Line items are immutable once created; only
// Status, PaymentStatus and UpdatedAt change afterwards.
type Order struct {
	ID              int64           `bson:"_id" json:"id" db:"id"`
	OrderNumber     string          `bson:"orderNumber" json:"orderNumber" db:"orderNumber"`
	CustomerID      int64           `bson:"customerId" json:"customerId" db:"customerId"`
	CustomerName    string          `bson:"customerName" json:"customerName" db:"customerName"`
	Items           OrderItems      `bson:"items" json:"items" db:"items"`
	Subtotal        decimal.Decimal `bson:"subtotal" json:"subtotal" db:"subtotal"`
	Tax             decimal.Decimal `bson:"tax" json:"tax" db:"tax"`
	Discount        decimal.Decimal `bson:"discount" json:"discount" db:"discount"`
	ShippingFee     decimal.Decimal `bson:"shippingFee" json:"shippingFee" db:"shippingFee"`
	Total           decimal.Decimal `bson:"total" json:"total" db:"total"`
	Status          OrderStatus     `bson:"status" json:"status" db:"status"`
	PaymentStatus   PaymentStatus   `bson:"paymentStatus" json:"paymentStatus" db:"paymentStatus"`
	PaymentMethod   PaymentMethod   `bson:"paymentMethod" json:"paymentMethod" db:"paymentMethod"`
	DeliveryMethod  DeliveryMethod  `bson:"deliveryMethod" json:"deliveryMethod" db:"deliveryMethod"`
	ShippingAddress Address         `bson:"shippingAddress" json:"shippingAddress" db:"shippingAddress"`
	Notes           string          `bson:"notes,omitempty" json:"notes,omitempty" db:"notes"`
	CreatedBy       int64           `bson:"createdBy" json:"createdBy" db:"createdBy"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt" db:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt" db:"updatedAt"`
}

// ComputedSubtotal sums the stored line totals.
func (o Order) ComputedSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Total)
	}
	return sum
}

// ComputedTotal recomputes subtotal + tax - discount + shipping from the
// stored components.
func (o Order) ComputedTotal() decimal.Decimal {
	return o.Subtotal.Add(o.Tax).Sub(o.Discount).Add(o.ShippingFee)
}

// CheckTotals verifies every stored money field against its formula.
func (o Order) CheckTotals() error {
	for i, item := range o.Items {
		want := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if !item.Total.Equal(want) {
			return fmt.Errorf("item %d total %s != %s", i, item.Total, want)
		}
	}
	if sub := o.ComputedSubtotal(); !o.Subtotal.Equal(sub) {
		return fmt.Errorf("subtotal %s != %s", o.Subtotal, sub)
	}
	if total := o.ComputedTotal(); !o.Total.Equal(total) {
		return fmt.Errorf("total %s != %s", o.Total, total)
	}
	return nil
}

// TotalQuantity is the number of units across all lines.
func (o Order) TotalQuantity() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
