package service

import (
	"github.com/anime-alley/storefront/internal/models"

	"github.com/shopspring/decimal"
)

// PriceCalculator derives the checkout summary from lines and coupon state.
type PriceCalculator struct {
	shipping models.Money
}

// NewPriceCalculator uses shipping as the flat shipping fee.
func NewPriceCalculator(shipping models.Money) PriceCalculator {
	return PriceCalculator{shipping: shipping}
}

// Subtotal is the sum of unit price times quantity.
func Subtotal(lines []models.CartLine) models.Money {
	total := models.NewMoneyFromInt(0)
	for _, line := range lines {
		total = total.Plus(line.LineTotal())
	}
	return total
}

// Summarize recomputes the summary. With a coupon applied the discounted subtotal is
// rounded to a whole amount: round(subtotal * (1 - percent/100)).
func (p PriceCalculator) Summarize(lines []models.CartLine, coupon models.CouponState) models.PriceSummary {
	subtotal := Subtotal(lines)
	percent := coupon.EffectivePercent()

	discounted := subtotal
	if coupon.Applied {
		factor := decimal.NewFromInt(1).Sub(percent.Div(decimal.NewFromInt(100)))
		discounted = models.NewMoneyFromDecimal(subtotal.Decimal.Mul(factor).Round(0))
	}

	return models.PriceSummary{
		Subtotal:           subtotal,
		Shipping:           p.shipping,
		DiscountedSubtotal: discounted,
		DiscountAmount:     subtotal.Minus(discounted),
		FinalTotal:         discounted.Plus(p.shipping),
		DiscountPercent:    percent.String(),
	}
}
