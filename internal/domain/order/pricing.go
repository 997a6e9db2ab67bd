package order

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// PricingPolicy computes shipping and tax for a cart subtotal
type PricingPolicy struct {
	FlatShipping decimal.Decimal
	TaxRate      decimal.Decimal // fraction, e.g. 0.08
	// FreeShippingThreshold waives shipping when the subtotal reaches it. Zero disables it.
	FreeShippingThreshold decimal.Decimal
}

// DefaultPricingPolicy returns flat 10.00 shipping and 8% tax
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FlatShipping: decimal.NewFromInt(10),
		TaxRate:      decimal.RequireFromString("0.08"),
	}
}

// Price computes the order pricing for the given subtotal. Tax applies to the subtotal only.
func (p PricingPolicy) Price(subtotal decimal.Decimal) Pricing {
	shipping := p.FlatShipping
	if p.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := valueobject.RoundMoney(subtotal.Mul(p.TaxRate))
	return NewPricing(subtotal, shipping, tax)
}

// SubtotalOf sums line item subtotals
func SubtotalOf(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal)
	}
	return total
}
