package cart

import (
	"context"
	"log"
	"regexp"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

// ProductReader is the slice of the catalog a cart needs.
type ProductReader interface {
	GetProduct(ctx context.Context, id int64) (models.Product, error)
}

var cartIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id can name a stored cart.
func ValidID(id string) bool {
	return cartIDPattern.MatchString(id)
}

type Service struct {
	products ProductReader
	repo     Repository
	policy   ShippingPolicy
}

func NewService(products ProductReader, repo Repository, policy ShippingPolicy) *Service {
	return &Service{products: products, repo: repo, policy: policy}
}

func (s *Service) Policy() ShippingPolicy {
	return s.policy
}

// Open loads cart id and rehydrates it with current catalog data. Lines whose
// product was deleted, deactivated or sold out are dropped and quantities are
// clamped to current stock.
func (s *Service) Open(ctx context.Context, id string) (*Cart, error) {
	if !ValidID(id) {
		return nil, apperr.Invalid("cartId", "cart id must be 1-64 letters, digits, '-' or '_'")
	}
	snap, err := s.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	c := New(id, s.policy, s.repo)
	if snap.DeliveryMethod.Valid() {
		c.delivery = snap.DeliveryMethod
	}
	for _, item := range snap.Items {
		if item.Quantity <= 0 {
			continue
		}
		product, err := s.products.GetProduct(ctx, item.ProductID)
		if apperr.IsNotFound(err) {
			log.Printf("[CART] [INFO] cart %s: dropping missing product %d", id, item.ProductID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !product.IsActive || product.Stock <= 0 {
			continue
		}
		if c.index(product.ID) >= 0 {
			continue
		}
		c.lines = append(c.lines, Line{Product: product, Quantity: min(item.Quantity, product.Stock)})
	}
	return c, nil
}

// AddProduct looks up productID and adds qty of it to cart.
func (s *Service) AddProduct(ctx context.Context, c *Cart, productID int64, qty int) error {
	if qty <= 0 {
		return apperr.Invalid("quantity", "quantity must be at least 1")
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return apperr.Invalid("productId", "product %d is not available", productID)
	}
	if product.Stock <= 0 {
		return apperr.InsufficientStockError{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   product.Stock,
			Requested:   qty,
		}
	}
	return c.AddItem(ctx, product, qty)
}
