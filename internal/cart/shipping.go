package cart

import (
	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

const (
	PolicyThreshold = "threshold"
	PolicyTiered    = "tiered"
)

// DeliveryOption is one row of the delivery method table.
type DeliveryOption struct {
	Method   models.DeliveryMethod `json:"method"`
	Fee      decimal.Decimal       `json:"fee"`
	LeadTime string                `json:"leadTime"`
}

// DefaultRates are the standard / express / pickup fees offered at checkout.
func DefaultRates() []DeliveryOption {
	return []DeliveryOption{
		{Method: models.DeliveryStandard, Fee: decimal.NewFromInt(30000), LeadTime: "3-5 days"},
		{Method: models.DeliveryExpress, Fee: decimal.NewFromInt(50000), LeadTime: "1-2 days"},
		{Method: models.DeliveryPickup, Fee: decimal.Zero, LeadTime: "same day"},
	}
}

// ShippingPolicy prices delivery for a non-empty cart.
type ShippingPolicy interface {
	Fee(subtotal decimal.Decimal, method models.DeliveryMethod) decimal.Decimal
	Options(subtotal decimal.Decimal) []DeliveryOption
}

// ThresholdShipping charges FlatFee regardless of method, waived once the
// subtotal reaches FreeThreshold.
type ThresholdShipping struct {
	FlatFee       decimal.Decimal
	FreeThreshold decimal.Decimal
}

func (p ThresholdShipping) Fee(subtotal decimal.Decimal, _ models.DeliveryMethod) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}

func (p ThresholdShipping) Options(subtotal decimal.Decimal) []DeliveryOption {
	options := DefaultRates()
	for i := range options {
		options[i].Fee = p.Fee(subtotal, options[i].Method)
	}
	return options
}

// TieredShipping charges the fixed fee of the selected method. Unknown or
// empty methods are priced as standard delivery.
type TieredShipping struct {
	Rates []DeliveryOption
}

func (p TieredShipping) Fee(_ decimal.Decimal, method models.DeliveryMethod) decimal.Decimal {
	var fallback decimal.Decimal
	for _, rate := range p.Rates {
		if rate.Method == method {
			return rate.Fee
		}
		if rate.Method == models.DeliveryStandard {
			fallback = rate.Fee
		}
	}
	return fallback
}

func (p TieredShipping) Options(decimal.Decimal) []DeliveryOption {
	return append([]DeliveryOption(nil), p.Rates...)
}

// NewPolicy builds the policy named by SHIPPING_POLICY.
func NewPolicy(name string, flatFee, freeThreshold decimal.Decimal) ShippingPolicy {
	if name == PolicyTiered {
		return TieredShipping{Rates: DefaultRates()}
	}
	return ThresholdShipping{FlatFee: flatFee, FreeThreshold: freeThreshold}
}
