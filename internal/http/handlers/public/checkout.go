package public

import (
	"github.com/anime-alley/storefront/internal/http/handlers/shared"
	"github.com/anime-alley/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// OpenCheckoutRequest starts the coupon step.
type OpenCheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
}

// ApplyCouponRequest carries the coupon code.
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// GetCheckout returns the orchestrator state.
func (h *Handler) GetCheckout(c *gin.Context) {
	response.Success(c, h.CheckoutService.Snapshot())
}

// OpenCheckout validates the address, payment method and cart, then opens the coupon modal.
func (h *Handler) OpenCheckout(c *gin.Context) {
	var req OpenCheckoutRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	if err := h.CheckoutService.OpenModal(c.Request.Context(), req.DeliveryAddress, req.PaymentMethod); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CheckoutService.Snapshot())
}

// ApplyCoupon verifies the code. On success the checkout proceeds after a short pause.
func (h *Handler) ApplyCoupon(c *gin.Context) {
	var req ApplyCouponRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	if _, err := h.CheckoutService.ApplyCoupon(c.Request.Context(), req.Code); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CheckoutService.Snapshot())
}

// RemoveCoupon drops the applied coupon and cancels a pending auto-proceed.
func (h *Handler) RemoveCoupon(c *gin.Context) {
	if _, err := h.CheckoutService.RemoveCoupon(); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CheckoutService.Snapshot())
}

// SkipCoupon proceeds without a coupon.
func (h *Handler) SkipCoupon(c *gin.Context) {
	if _, err := h.CheckoutService.SkipCoupon(); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CheckoutService.Snapshot())
}

// CloseCheckout dismisses the modal.
func (h *Handler) CloseCheckout(c *gin.Context) {
	h.CheckoutService.CloseModal()
	response.Success(c, h.CheckoutService.Snapshot())
}

// GetCheckoutResult returns the last order placement outcome, or null.
func (h *Handler) GetCheckoutResult(c *gin.Context) {
	response.Success(c, h.OrderService.LastResult())
}
