// Package orders applies status and payment-status changes to stored orders.
package orders

import (
	"context"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/store"
)

var orderEdges = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
}

var paymentEdges = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending: {models.PaymentStatusPaid, models.PaymentStatusFailed},
	models.PaymentStatusPaid:    {models.PaymentStatusRefunded},
	models.PaymentStatusFailed:  {models.PaymentStatusPending},
}

// CanTransition reports whether an order may move from one status to another.
// Staying put is always allowed.
func CanTransition(from, to models.OrderStatus) bool {
	if from == to {
		return true
	}
	for _, next := range orderEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment is CanTransition for payment statuses.
func CanTransitionPayment(from, to models.PaymentStatus) bool {
	if from == to {
		return true
	}
	for _, next := range paymentEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Repository interface {
	GetOrder(ctx context.Context, id int64) (models.Order, error)
	SetOrderStatus(ctx context.Context, id int64, from, to store.StatusPair, at time.Time) error
}

// StatusUpdate carries the fields to change; nil fields are left alone.
type StatusUpdate struct {
	Status        *models.OrderStatus
	PaymentStatus *models.PaymentStatus
}

type StatusService struct {
	orders  Repository
	enforce bool
	now     func() time.Time
}

// NewStatusService returns a service that rejects edges outside the
// transition graph when enforce is set and accepts any known value otherwise.
func NewStatusService(orders Repository, enforce bool) *StatusService {
	return &StatusService{orders: orders, enforce: enforce, now: time.Now}
}

func (s *StatusService) UpdateStatus(ctx context.Context, id int64, upd StatusUpdate) (models.Order, error) {
	if upd.Status == nil && upd.PaymentStatus == nil {
		return models.Order{}, apperr.Invalid("", "status or paymentStatus required")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return models.Order{}, apperr.Invalid("status", "unknown status %q", *upd.Status)
	}
	if upd.PaymentStatus != nil && !upd.PaymentStatus.Valid() {
		return models.Order{}, apperr.Invalid("paymentStatus", "unknown payment status %q", *upd.PaymentStatus)
	}

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}

	from := store.StatusPair{Status: order.Status, PaymentStatus: order.PaymentStatus}
	to := from
	if upd.Status != nil {
		to.Status = *upd.Status
	}
	if upd.PaymentStatus != nil {
		to.PaymentStatus = *upd.PaymentStatus
	}
	if to == from {
		return order, nil
	}

	if s.enforce {
		if !CanTransition(from.Status, to.Status) {
			return models.Order{}, apperr.TransitionError{Field: "status", From: string(from.Status), To: string(to.Status)}
		}
		if !CanTransitionPayment(from.PaymentStatus, to.PaymentStatus) {
			return models.Order{}, apperr.TransitionError{
				Field: "paymentStatus", From: string(from.PaymentStatus), To: string(to.PaymentStatus),
			}
		}
	}

	now := s.now()
	if err := s.orders.SetOrderStatus(ctx, id, from, to, now); err != nil {
		return models.Order{}, err
	}
	order.Status = to.Status
	order.PaymentStatus = to.PaymentStatus
	order.UpdatedAt = now
	return order, nil
}
