// Package catalog validates product writes before they reach the store.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

type Service struct {
	products store.ProductRepository
	now      func() time.Time
}

func NewService(products store.ProductRepository) *Service {
	return &Service{products: products, now: time.Now}
}

// NewProduct is the input of Create. Nil pointers take their defaults.
type NewProduct struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Cost        *decimal.Decimal
	Category    string
	Brand       string
	SKU         string
	Stock       int
	MinStock    *int
	Tags        models.StringList
	IsActive    *bool
}

// GenerateSKU returns SKU-<unix ms>-<9 upper-case alphanumerics>.
func GenerateSKU(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:9]
	return fmt.Sprintf("SKU-%d-%s", now.UnixMilli(), suffix)
}

func (s *Service) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	return s.products.ListProducts(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (models.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.products.ListCategories(ctx)
}

func (s *Service) LowStock(ctx context.Context) ([]models.Product, error) {
	return s.products.ListLowStock(ctx)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.products.DeleteProduct(ctx, id)
}

func (s *Service) Create(ctx context.Context, in NewProduct) (models.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Product{}, apperr.Invalid("name", "name required")
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return models.Product{}, apperr.Invalid("category", "category required")
	}
	if in.Price.IsNegative() {
		return models.Product{}, apperr.Invalid("price", "price must be zero or greater")
	}
	if in.Cost != nil && in.Cost.IsNegative() {
		return models.Product{}, apperr.Invalid("cost", "cost must be zero or greater")
	}
	if in.Stock < 0 {
		return models.Product{}, apperr.Invalid("stock", "stock must be zero or greater")
	}
	minStock := models.DefaultMinStock
	if in.MinStock != nil {
		if *in.MinStock < 0 {
			return models.Product{}, apperr.Invalid("minStock", "minStock must be zero or greater")
		}
		minStock = *in.MinStock
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	now := s.now()
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		sku = GenerateSKU(now)
	}

	product := models.Product{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    category,
		Brand:       strings.TrimSpace(in.Brand),
		SKU:         sku,
		Stock:       in.Stock,
		MinStock:    minStock,
		Tags:        in.Tags.Normalize(),
		IsActive:    isActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.Cost != nil {
		product.Cost = decimal.NewNullDecimal(*in.Cost)
	}

	if err := s.products.CreateProduct(ctx, &product); err != nil {
		return models.Product{}, err
	}
	return product, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch models.ProductPatch) (models.Product, error) {
	if patch.Empty() {
		return models.Product{}, apperr.Invalid("", "no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return models.Product{}, apperr.Invalid("name", "name required")
		}
		patch.Name = &name
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return models.Product{}, apperr.Invalid("category", "category required")
		}
		patch.Category = &category
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return models.Product{}, apperr.Invalid("price", "price must be zero or greater")
	}
	if patch.Cost != nil && patch.Cost.IsNegative() {
		return models.Product{}, apperr.Invalid("cost", "cost must be zero or greater")
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return models.Product{}, apperr.Invalid("stock", "stock must be zero or greater")
	}
	if patch.MinStock != nil && *patch.MinStock < 0 {
		return models.Product{}, apperr.Invalid("minStock", "minStock must be zero or greater")
	}
	if patch.Tags != nil {
		tags := patch.Tags.Normalize()
		patch.Tags = &tags
	}
	return s.products.UpdateProduct(ctx, id, patch, s.now())
}
