package service

import (
	"testing"

	"github.com/anime-alley/storefront/internal/models"

	"github.com/shopspring/decimal"
)

func TestSummarizeWithoutCoupon(t *testing.T) {
	calc := NewPriceCalculator(money(5))
	lines := []models.CartLine{
		{ProductID: "P1", UnitPrice: models.NewMoneyFromDecimal(decimal.RequireFromString("19.99")), Quantity: 2},
		{ProductID: "P2", UnitPrice: money(3), Quantity: 1},
	}
	summary := calc.Summarize(lines, models.CouponState{})
	if summary.Subtotal.StringFixed(2) != "42.98" || summary.FinalTotal.StringFixed(2) != "47.98" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !summary.DiscountedSubtotal.Equal(summary.Subtotal) || !summary.DiscountAmount.Equal(money(0)) {
		t.Fatalf("no coupon means no discount: %+v", summary)
	}
}

func TestSummarizeRoundsDiscountedSubtotal(t *testing.T) {
	calc := NewPriceCalculator(money(5))
	coupon := models.CouponState{}
	coupon.ApplyCoupon("SAVE15", decimal.NewFromInt(15))
	lines := []models.CartLine{{ProductID: "P1", UnitPrice: money(13), Quantity: 1}}

	summary := calc.Summarize(lines, coupon)
	if !summary.DiscountedSubtotal.Equal(money(11)) || !summary.DiscountAmount.Equal(money(2)) || !summary.FinalTotal.Equal(money(16)) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.DiscountPercent != "15" {
		t.Fatalf("unexpected percent: %s", summary.DiscountPercent)
	}
}

func TestSummarizeEmptyCart(t *testing.T) {
	summary := NewPriceCalculator(money(5)).Summarize(nil, models.CouponState{})
	if !summary.Subtotal.Equal(money(0)) || !summary.FinalTotal.Equal(money(5)) {
		t.Fatalf("unexpected empty summary: %+v", summary)
	}
}
