package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Address is a structured postal address. SQL rows keep it as JSON text.
type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Zip     string `bson:"zip,omitempty" json:"zip,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
}

// IsZero reports whether every field is blank.
func (a Address) IsZero() bool {
	return strings.TrimSpace(a.Street+a.City+a.State+a.Zip+a.Country) == ""
}

// Scan implements sql.Scanner.
func (a *Address) Scan(src any) error {
	*a = Address{}
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		return a.decode([]byte(v))
	case []byte:
		return a.decode(v)
	default:
		return fmt.Errorf("cannot scan %T into Address", src)
	}
}

func (a *Address) decode(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(trimmed), a); err != nil {
		return fmt.Errorf("decode address: %w", err)
	}
	return nil
}

// Value implements driver.Valuer.
func (a Address) Value() (driver.Value, error) {
	if a.IsZero() {
		return nil, nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Customer is a shopper record. TotalOrders, TotalSpent and LastOrderDate are
// only written by order placement.
type Customer struct {
	ID            int64           `bson:"_id" json:"id" db:"id"`
	Name          string          `bson:"name" json:"name" db:"name"`
	Email         string          `bson:"email,omitempty" json:"email,omitempty" db:"email"`
	Phone         string          `bson:"phone,omitempty" json:"phone,omitempty" db:"phone"`
	Address       Address         `bson:"address" json:"address" db:"address"`
	TotalOrders   int             `bson:"totalOrders" json:"totalOrders" db:"totalOrders"`
	TotalSpent    decimal.Decimal `bson:"totalSpent" json:"totalSpent" db:"totalSpent"`
	LastOrderDate *time.Time      `bson:"lastOrderDate,omitempty" json:"lastOrderDate,omitempty" db:"lastOrderDate"`
	Notes         string          `bson:"notes,omitempty" json:"notes,omitempty" db:"notes"`
	IsActive      bool            `bson:"isActive" json:"isActive" db:"isActive"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt" db:"createdAt"`
	UpdatedAt     time.Time       `bson:"updatedAt" json:"updatedAt" db:"updatedAt"`
}

// CustomerStats is the per-customer summary served by the stats endpoint.
type CustomerStats struct {
	TotalOrders       int             `json:"totalOrders"`
	TotalSpent        decimal.Decimal `json:"totalSpent"`
	LastOrderDate     *time.Time      `json:"lastOrderDate"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
}

// Stats derives the summary from the stored counters.
func (c Customer) Stats() CustomerStats {
	avg := decimal.Zero
	if c.TotalOrders > 0 {
		avg = c.TotalSpent.Div(decimal.NewFromInt(int64(c.TotalOrders))).Round(2)
	}
	return CustomerStats{
		TotalOrders:       c.TotalOrders,
		TotalSpent:        c.TotalSpent,
		LastOrderDate:     c.LastOrderDate,
		AverageOrderValue: avg,
	}
}

// CustomerPatch carries a partial customer update.
type CustomerPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Address  *Address
	Notes    *string
	IsActive *bool
}

// Empty reports whether the patch changes nothing.
func (p CustomerPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Address == nil &&
		p.Notes == nil && p.IsActive == nil
}

// Apply writes the non-nil fields of the patch onto customer.
func (p CustomerPatch) Apply(customer *Customer) {
	if p.Name != nil {
		customer.Name = *p.Name
	}
	if p.Email != nil {
		customer.Email = *p.Email
	}
	if p.Phone != nil {
		customer.Phone = *p.Phone
	}
	if p.Address != nil {
		customer.Address = *p.Address
	}
	if p.Notes != nil {
		customer.Notes = *p.Notes
	}
	if p.IsActive != nil {
		customer.IsActive = *p.IsActive
	}
}
