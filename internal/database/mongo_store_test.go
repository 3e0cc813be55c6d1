package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

func TestDecimalCodecRoundTrip(t *testing.T) {
	reg := newRegistry()
	in := struct {
		Price decimal.Decimal     `bson:"price"`
		Cost  decimal.NullDecimal `bson:"cost"`
		None  decimal.NullDecimal `bson:"none"`
	}{
		Price: decimal.RequireFromString("65000.50"),
		Cost:  decimal.NewNullDecimal(decimal.NewFromInt(42)),
	}

	data, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	raw := bson.Raw(data)
	assert.Equal(t, bson.TypeDecimal128, raw.Lookup("price").Type)
	assert.Equal(t, bson.TypeNull, raw.Lookup("none").Type)

	out := in
	out.Price = decimal.Zero
	out.Cost = decimal.NullDecimal{}
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.True(t, out.Price.Equal(in.Price))
	assert.True(t, out.Cost.Valid)
	assert.True(t, out.Cost.Decimal.Equal(decimal.NewFromInt(42)))
	assert.False(t, out.None.Valid)
}

func TestDecimalCodecReadsLegacyNumbers(t *testing.T) {
	reg := newRegistry()
	data, err := bson.Marshal(bson.M{"a": 12.5, "b": int32(7), "c": "3.25"})
	require.NoError(t, err)

	var out struct {
		A decimal.Decimal `bson:"a"`
		B decimal.Decimal `bson:"b"`
		C decimal.Decimal `bson:"c"`
	}
	require.NoError(t, bson.UnmarshalWithRegistry(reg, data, &out))
	assert.Equal(t, "12.5", out.A.String())
	assert.Equal(t, "7", out.B.String())
	assert.Equal(t, "3.25", out.C.String())
}

// openTestMongo needs a replica set, e.g.
// MONGO_URI=mongodb://localhost:27017/?replicaSet=rs0.
func openTestMongo(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("storefront_test_%d", time.Now().UnixNano())
	s, err := OpenMongo(ctx, uri, dbName)
	if err != nil {
		t.Skipf("mongo unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = s.db.Drop(context.Background())
		_ = s.Close(context.Background())
	})
	return s
}

func TestMongoStorePlaceOrder(t *testing.T) {
	s := openTestMongo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tea := seedProduct(t, s, "Iced tea", "SKU-TEA", 65000, 5)
	p := newPlacement("ORD-1", line(tea, 2))
	require.NoError(t, s.PlaceOrder(ctx, p))

	product, err := s.GetProduct(ctx, tea.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, product.Stock)

	customer, err := s.GetCustomer(ctx, p.Order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, 1, customer.TotalOrders)
	assert.True(t, customer.TotalSpent.Equal(decimal.NewFromInt(130000)))

	over := newPlacement("ORD-2", line(tea, 10))
	var stockErr apperr.InsufficientStockError
	require.ErrorAs(t, s.PlaceOrder(ctx, over), &stockErr)
	assert.Equal(t, 3, stockErr.Available)

	pending := store.StatusPair{Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}
	paid := store.StatusPair{Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPaid}
	require.NoError(t, s.SetOrderStatus(ctx, p.Order.ID, pending, paid, time.Now()))
	assert.True(t, apperr.IsConflict(s.SetOrderStatus(ctx, p.Order.ID, pending, paid, time.Now())))
	assert.True(t, apperr.IsNotFound(s.SetOrderStatus(ctx, 999999, pending, paid, time.Now())))
}

func TestMongoStoreConcurrentWalkInCheckouts(t *testing.T) {
	s := openTestMongo(t)
	ctx := context.Background()
	tea := seedProduct(t, s, "Iced tea", "SKU-TEA", 65000, 5)

	placed, short, other := placeConcurrently(t, s, tea, 12)
	assert.Empty(t, other, "transaction retries must not leak rolled-back ids")
	assert.Equal(t, 5, placed)
	assert.Equal(t, 7, short)

	product, err := s.GetProduct(ctx, tea.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Stock)

	orders, total, err := s.ListOrders(ctx, store.OrderFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	for _, o := range orders {
		customer, err := s.GetCustomer(ctx, o.CustomerID)
		require.NoError(t, err, "order %s", o.OrderNumber)
		assert.Equal(t, 1, customer.TotalOrders)
	}
}
