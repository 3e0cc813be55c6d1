package cart

import (
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

type LineView struct {
	Product   models.Product  `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// View is the JSON shape of a cart with its derived totals.
type View struct {
	ID             string                `json:"id"`
	Items          []LineView            `json:"items"`
	ItemCount      int                   `json:"itemCount"`
	DeliveryMethod models.DeliveryMethod `json:"deliveryMethod"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	ShippingFee    decimal.Decimal       `json:"shippingFee"`
	Total          decimal.Decimal       `json:"total"`
}

func (c *Cart) View() View {
	items := make([]LineView, 0, len(c.lines))
	for _, l := range c.lines {
		items = append(items, LineView{Product: l.Product, Quantity: l.Quantity, LineTotal: l.Total()})
	}
	return View{
		ID:             c.id,
		Items:          items,
		ItemCount:      c.ItemCount(),
		DeliveryMethod: c.delivery,
		Subtotal:       c.Subtotal(),
		ShippingFee:    c.ShippingFee(),
		Total:          c.Total(),
	}
}
