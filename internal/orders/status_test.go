package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

type fakeOrders struct {
	mu     sync.Mutex
	orders map[int64]models.Order
	writes int
}

func newFakeOrders(orders ...models.Order) *fakeOrders {
	f := &fakeOrders{orders: map[int64]models.Order{}}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrders) GetOrder(_ context.Context, id int64) (models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return models.Order{}, apperr.NotFoundError{Resource: "order", ID: id}
	}
	return o, nil
}

func (f *fakeOrders) SetOrderStatus(_ context.Context, id int64, from, to store.StatusPair, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return apperr.NotFoundError{Resource: "order", ID: id}
	}
	if o.Status != from.Status || o.PaymentStatus != from.PaymentStatus {
		return apperr.ConflictError{Message: "order status changed concurrently"}
	}
	o.Status, o.PaymentStatus, o.UpdatedAt = to.Status, to.PaymentStatus, at
	f.orders[id] = o
	f.writes++
	return nil
}

func pendingOrder(id int64) models.Order {
	return models.Order{ID: id, Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}
}

func statusPtr(s models.OrderStatus) *models.OrderStatus       { return &s }
func paymentPtr(s models.PaymentStatus) *models.PaymentStatus { return &s }

func TestUpdateStatusKeepsPayment(t *testing.T) {
	repo := newFakeOrders(pendingOrder(1), pendingOrder(2))
	svc := NewStatusService(repo, true)

	order, err := svc.UpdateStatus(context.Background(), 1, StatusUpdate{Status: statusPtr(models.OrderStatusProcessing)})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.False(t, order.UpdatedAt.IsZero())

	other, _ := repo.GetOrder(context.Background(), 2)
	assert.Equal(t, models.OrderStatusPending, other.Status)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	repo := newFakeOrders(pendingOrder(1))
	svc := NewStatusService(repo, true)

	_, err := svc.UpdateStatus(context.Background(), 999999, StatusUpdate{Status: statusPtr(models.OrderStatusProcessing)})
	assert.True(t, apperr.IsNotFound(err))
	assert.Zero(t, repo.writes)
}

func TestUpdateStatusValidation(t *testing.T) {
	svc := NewStatusService(newFakeOrders(pendingOrder(1)), true)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, 1, StatusUpdate{})
	assert.ErrorAs(t, err, &apperr.ValidationError{})
	_, err = svc.UpdateStatus(ctx, 1, StatusUpdate{Status: statusPtr("lost")})
	assert.ErrorAs(t, err, &apperr.ValidationError{})
	_, err = svc.UpdateStatus(ctx, 1, StatusUpdate{PaymentStatus: paymentPtr("maybe")})
	assert.ErrorAs(t, err, &apperr.ValidationError{})
}

func TestUpdateStatusEnforcesGraph(t *testing.T) {
	ctx := context.Background()
	repo := newFakeOrders(pendingOrder(1))
	svc := NewStatusService(repo, true)

	_, err := svc.UpdateStatus(ctx, 1, StatusUpdate{Status: statusPtr(models.OrderStatusDelivered)})
	var terr apperr.TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "status", terr.Field)

	_, err = svc.UpdateStatus(ctx, 1, StatusUpdate{PaymentStatus: paymentPtr(models.PaymentStatusRefunded)})
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "paymentStatus", terr.Field)

	for _, next := range []models.OrderStatus{models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered} {
		_, err := svc.UpdateStatus(ctx, 1, StatusUpdate{Status: statusPtr(next)})
		require.NoError(t, err, "to %s", next)
	}
	_, err = svc.UpdateStatus(ctx, 1, StatusUpdate{Status: statusPtr(models.OrderStatusCancelled)})
	assert.ErrorAs(t, err, &terr, "delivered is terminal")
}

func TestUpdateStatusSameValueIsNoop(t *testing.T) {
	repo := newFakeOrders(pendingOrder(1))
	svc := NewStatusService(repo, true)

	order, err := svc.UpdateStatus(context.Background(), 1, StatusUpdate{
		Status:        statusPtr(models.OrderStatusPending),
		PaymentStatus: paymentPtr(models.PaymentStatusPending),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Zero(t, repo.writes)
}

func TestUpdateStatusPermissive(t *testing.T) {
	delivered := pendingOrder(1)
	delivered.Status = models.OrderStatusDelivered
	svc := NewStatusService(newFakeOrders(delivered), false)

	order, err := svc.UpdateStatus(context.Background(), 1, StatusUpdate{
		Status:        statusPtr(models.OrderStatusPending),
		PaymentStatus: paymentPtr(models.PaymentStatusRefunded),
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusRefunded, order.PaymentStatus)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.OrderStatusShipped, models.OrderStatusCancelled))
	assert.False(t, CanTransition(models.OrderStatusCancelled, models.OrderStatusPending))
	assert.False(t, CanTransition(models.OrderStatusProcessing, models.OrderStatusPending))
	assert.True(t, CanTransitionPayment(models.PaymentStatusFailed, models.PaymentStatusPending))
	assert.False(t, CanTransitionPayment(models.PaymentStatusRefunded, models.PaymentStatusPaid))
}
