package catalog

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

type fakeProducts struct {
	store.ProductRepository
	mu       sync.Mutex
	products map[int64]models.Product
	nextID   int64
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{products: map[int64]models.Product{}}
}

func (f *fakeProducts) CreateProduct(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p.ID = f.nextID
	f.products[p.ID] = *p
	return nil
}

func (f *fakeProducts) UpdateProduct(_ context.Context, id int64, patch models.ProductPatch, now time.Time) (models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return models.Product{}, apperr.NotFoundError{Resource: "product", ID: id}
	}
	patch.Apply(&p)
	p.UpdatedAt = now
	f.products[id] = p
	return p, nil
}

var skuPattern = regexp.MustCompile(`^SKU-\d+-[0-9A-F]{9}$`)

func TestGenerateSKU(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	sku := GenerateSKU(now)
	assert.Regexp(t, skuPattern, sku)
	assert.Contains(t, sku, "SKU-1700000000123-")
	assert.NotEqual(t, sku, GenerateSKU(now))
}

func TestCreateDefaults(t *testing.T) {
	svc := NewService(newFakeProducts())

	p, err := svc.Create(context.Background(), NewProduct{
		Name:     "  Iced tea ",
		Price:    decimal.NewFromInt(65000),
		Category: "drinks",
		Stock:    10,
		Tags:     models.StringList{" cold", "", "cold", "tea"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Iced tea", p.Name)
	assert.Regexp(t, skuPattern, p.SKU)
	assert.Equal(t, models.DefaultMinStock, p.MinStock)
	assert.True(t, p.IsActive)
	assert.False(t, p.Cost.Valid)
	assert.Equal(t, models.StringList{"cold", "tea"}, p.Tags)
}

func TestCreateKeepsExplicitSKU(t *testing.T) {
	svc := NewService(newFakeProducts())
	inactive := false
	p, err := svc.Create(context.Background(), NewProduct{
		Name: "Coffee", Price: decimal.Zero, Category: "drinks", SKU: "COF-1", IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "COF-1", p.SKU)
	assert.False(t, p.IsActive)
}

func TestCreateValidation(t *testing.T) {
	negative := -1
	cost := decimal.NewFromInt(-5)
	cases := map[string]struct {
		in    NewProduct
		field string
	}{
		"blank name":        {NewProduct{Name: " ", Category: "x"}, "name"},
		"blank category":    {NewProduct{Name: "x"}, "category"},
		"negative price":    {NewProduct{Name: "x", Category: "x", Price: decimal.NewFromInt(-1)}, "price"},
		"negative cost":     {NewProduct{Name: "x", Category: "x", Cost: &cost}, "cost"},
		"negative stock":    {NewProduct{Name: "x", Category: "x", Stock: -1}, "stock"},
		"negative minStock": {NewProduct{Name: "x", Category: "x", MinStock: &negative}, "minStock"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newFakeProducts()
			_, err := NewService(repo).Create(context.Background(), tc.in)
			var verr apperr.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
			assert.Empty(t, repo.products)
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeProducts())
	p, err := svc.Create(ctx, NewProduct{Name: "Tea", Price: decimal.NewFromInt(10), Category: "drinks", Stock: 3})
	require.NoError(t, err)

	_, err = svc.Update(ctx, p.ID, models.ProductPatch{})
	assert.ErrorAs(t, err, &apperr.ValidationError{})

	stock := -2
	_, err = svc.Update(ctx, p.ID, models.ProductPatch{Stock: &stock})
	assert.ErrorAs(t, err, &apperr.ValidationError{})

	name := " Green tea "
	updated, err := svc.Update(ctx, p.ID, models.ProductPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Green tea", updated.Name)
	assert.Equal(t, 3, updated.Stock)

	_, err = svc.Update(ctx, 404, models.ProductPatch{Name: &name})
	assert.True(t, apperr.IsNotFound(err))
}
