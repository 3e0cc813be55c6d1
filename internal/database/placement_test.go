package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlacementAttemptStartsFresh(t *testing.T) {
	p := newPlacement("ORD-1")

	aborted := newPlacementAttempt(p)
	aborted.order.ID = 7
	aborted.order.CustomerID = 41
	aborted.order.CustomerName = "Lan"
	aborted.customer.ID = 41

	retry := newPlacementAttempt(p)
	assert.Zero(t, retry.order.ID)
	assert.Zero(t, retry.order.CustomerID)
	assert.Empty(t, retry.order.CustomerName)
	assert.Zero(t, retry.customer.ID)
	assert.Zero(t, p.Order.CustomerID)
	assert.Zero(t, p.NewCustomer.ID)

	retry.order.ID = 8
	retry.order.CustomerID = 42
	retry.customer.ID = 42
	retry.commit(p)
	assert.EqualValues(t, 8, p.Order.ID)
	assert.EqualValues(t, 42, p.Order.CustomerID)
	assert.EqualValues(t, 42, p.NewCustomer.ID)
}

func TestPlacementAttemptWithoutNewCustomer(t *testing.T) {
	p := newPlacement("ORD-1")
	p.NewCustomer = nil
	p.Order.CustomerID = 3

	a := newPlacementAttempt(p)
	assert.Nil(t, a.customer)
	a.order.ID = 9
	a.commit(p)
	assert.EqualValues(t, 9, p.Order.ID)
	assert.EqualValues(t, 3, p.Order.CustomerID)
}
