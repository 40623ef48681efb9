package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CouponState is the coupon currently applied to the checkout, if any.
type CouponState struct {
	Applied         bool            `json:"applied"`
	Code            string          `json:"code"`
	DiscountPercent decimal.Decimal `json:"discount_percent"` // 0-100, meaningless unless Applied
}

// ApplyCoupon records a verified code. Percentages are clamped to 0-100.
func (c *CouponState) ApplyCoupon(code string, percent decimal.Decimal) {
	if percent.LessThan(decimal.Zero) {
		percent = decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}
	c.Applied = true
	c.Code = strings.TrimSpace(code)
	c.DiscountPercent = percent
}

// Reset returns to the unset state.
func (c *CouponState) Reset() {
	c.Applied = false
	c.Code = ""
	c.DiscountPercent = decimal.Zero
}

// EffectivePercent is the percent to price with; zero unless applied.
func (c CouponState) EffectivePercent() decimal.Decimal {
	if !c.Applied {
		return decimal.Zero
	}
	return c.DiscountPercent
}
