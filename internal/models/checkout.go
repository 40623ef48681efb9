package models

import "strings"

// PaymentMethod values accepted at checkout.
const (
	PaymentMethodNone   = ""
	PaymentMethodCOD    = "cod"
	PaymentMethodStripe = "stripe"
)

// NormalizePaymentMethod lowercases and trims; unknown values come back as "".
func NormalizePaymentMethod(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case PaymentMethodCOD:
		return PaymentMethodCOD
	case PaymentMethodStripe:
		return PaymentMethodStripe
	default:
		return PaymentMethodNone
	}
}

// PriceSummary is derived from cart lines and coupon state; it is never stored.
type PriceSummary struct {
	Subtotal           Money  `json:"subtotal"`
	Shipping           Money  `json:"shipping"`
	DiscountedSubtotal Money  `json:"discounted_subtotal"`
	DiscountAmount     Money  `json:"discount_amount"`
	FinalTotal         Money  `json:"final_total"`
	DiscountPercent    string `json:"discount_percent"`
}

// CheckoutIntent is what the shopper committed to when the coupon step finished.
type CheckoutIntent struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
	CouponCode      string `json:"coupon_code"`
	OriginalTotal   Money  `json:"original_total"`
	DiscountAmount  Money  `json:"discount_amount"`
	FinalTotal      Money  `json:"final_total"`
}
