package database

import (
	"storefront/internal/models"
	"storefront/internal/store"
)

// placementAttempt is one run of a checkout transaction. Mongo's
// WithTransaction reruns its callback on transient errors, so every run
// starts from a fresh copy and the caller's placement is only written after
// the transaction commits.
type placementAttempt struct {
	order    models.Order
	customer *models.Customer
}

func newPlacementAttempt(p store.Placement) *placementAttempt {
	a := &placementAttempt{order: *p.Order}
	if p.NewCustomer != nil {
		c := *p.NewCustomer
		a.customer = &c
	}
	return a
}

// commit copies the assigned ids and resolved customer back to the caller.
func (a *placementAttempt) commit(p store.Placement) {
	*p.Order = a.order
	if p.NewCustomer != nil && a.customer != nil {
		*p.NewCustomer = *a.customer
	}
}
