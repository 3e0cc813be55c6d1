package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinStock is the low-stock threshold applied when a product is created
// without one.
const DefaultMinStock = 5

// Product is a catalog entry. Stock is decremented by checkout when the store
// runs in stock-aware mode.
type Product struct {
	ID          int64               `bson:"_id" json:"id" db:"id"`
	Name        string              `bson:"name" json:"name" db:"name"`
	Description string              `bson:"description,omitempty" json:"description,omitempty" db:"description"`
	Price       decimal.Decimal     `bson:"price" json:"price" db:"price"`
	Cost        decimal.NullDecimal `bson:"cost" json:"cost" db:"cost"`
	Category    string              `bson:"category" json:"category" db:"category"`
	Brand       string              `bson:"brand,omitempty" json:"brand,omitempty" db:"brand"`
	SKU         string              `bson:"sku" json:"sku" db:"sku"`
	Stock       int                 `bson:"stock" json:"stock" db:"stock"`
	MinStock    int                 `bson:"minStock" json:"minStock" db:"minStock"`
	Tags        StringList          `bson:"tags" json:"tags" db:"tags"`
	IsActive    bool                `bson:"isActive" json:"isActive" db:"isActive"`
	InStock     bool                `bson:"-" json:"inStock" db:"-"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt" db:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt" db:"updatedAt"`
}

// LowStock reports whether the product sits at or below its alert threshold.
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

// ProductPatch carries the fields of a partial product update. Nil fields keep
// their stored value.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Cost        *decimal.Decimal
	Category    *string
	Brand       *string
	Stock       *int
	MinStock    *int
	Tags        *StringList
	IsActive    *bool
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Cost == nil &&
		p.Category == nil && p.Brand == nil && p.Stock == nil && p.MinStock == nil &&
		p.Tags == nil && p.IsActive == nil
}

// Apply writes the non-nil fields of the patch onto product.
func (p ProductPatch) Apply(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Cost != nil {
		product.Cost = decimal.NewNullDecimal(*p.Cost)
	}
	if p.Category != nil {
		product.Category = *p.Category
	}
	if p.Brand != nil {
		product.Brand = *p.Brand
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.MinStock != nil {
		product.MinStock = *p.MinStock
	}
	if p.Tags != nil {
		product.Tags = *p.Tags
	}
	if p.IsActive != nil {
		product.IsActive = *p.IsActive
	}
}
