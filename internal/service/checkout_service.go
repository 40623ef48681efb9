package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/metrics"
	"github.com/anime-alley/storefront/internal/models"

	"github.com/google/uuid"
)

// CheckoutState is a state of the coupon/checkout modal.
type CheckoutState string

const (
	StateIdle       CheckoutState = "idle"
	StateModalOpen  CheckoutState = "modal_open"
	StateValidating CheckoutState = "validating"
	StateApplied    CheckoutState = "applied"
	StateRejected   CheckoutState = "rejected"
	StateProceeding CheckoutState = "proceeding"
	StateClosed     CheckoutState = "closed"
)

// CouponGateway verifies coupon codes.
type CouponGateway interface {
	VerifyCouponCode(ctx context.Context, code string) (*gateway.CouponResult, error)
}

// CartReader is the read side of the cart the orchestrator prices from.
type CartReader interface {
	Lines() []models.CartLine
	OnEmpty(fn func())
}

// AddressStore caches the delivery address between sessions.
type AddressStore interface {
	SetDeliveryAddress(ctx context.Context, address string) error
}

// ProceedEvent asks the order placement service to place exactly one order.
type ProceedEvent struct {
	ID     string                `json:"id"`
	Intent models.CheckoutIntent `json:"intent"`
	At     time.Time             `json:"at"`
}

// CheckoutSnapshot is the orchestrator state for rendering.
type CheckoutSnapshot struct {
	State           CheckoutState         `json:"state"`
	DeliveryAddress string                `json:"delivery_address"`
	PaymentMethod   string                `json:"payment_method"`
	Coupon          models.CouponState    `json:"coupon"`
	Summary         models.PriceSummary   `json:"summary"`
	Intent          models.CheckoutIntent `json:"intent"`
	Error           string                `json:"error,omitempty"`
	ErrorKind       ErrorKind             `json:"error_kind,omitempty"`
}

// CheckoutOptions configures the orchestrator.
type CheckoutOptions struct {
	Prices       PriceCalculator
	ProceedDelay time.Duration
	EventBuffer  int
}

// CheckoutService gates the move from a filled cart to order placement through an optional coupon step.
// Delivery address and payment method are captured by OpenModal and never changed afterwards.
type CheckoutService struct {
	cart    CartReader
	coupons CouponGateway
	address AddressStore
	prices  PriceCalculator
	delay   time.Duration
	events  chan ProceedEvent

	mu           sync.Mutex
	state        CheckoutState
	coupon       models.CouponState
	deliveryAddr string
	method       string
	intent       models.CheckoutIntent
	lastErr      error
	proceedTimer *time.Timer
	generation   uint64
}

// NewCheckoutService creates the orchestrator and subscribes it to the cart becoming empty.
func NewCheckoutService(cart CartReader, coupons CouponGateway, address AddressStore, opts CheckoutOptions) *CheckoutService {
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = 1
	}
	s := &CheckoutService{
		cart:    cart,
		coupons: coupons,
		address: address,
		prices:  opts.Prices,
		delay:   opts.ProceedDelay,
		events:  make(chan ProceedEvent, buffer),
		state:   StateIdle,
	}
	cart.OnEmpty(s.onCartEmpty)
	return s
}

// Events delivers one ProceedEvent per completed checkout.
func (s *CheckoutService) Events() <-chan ProceedEvent {
	return s.events
}

// OpenModal validates the delivery address, payment method and cart, then opens the coupon step.
func (s *CheckoutService) OpenModal(ctx context.Context, deliveryAddress, paymentMethod string) error {
	address := strings.TrimSpace(deliveryAddress)
	if address == "" {
		return validationError("delivery address is required")
	}
	method := models.NormalizePaymentMethod(paymentMethod)
	if method == models.PaymentMethodNone {
		return validationError("payment method is required")
	}
	if len(s.cart.Lines()) == 0 {
		return validationError("cart is empty")
	}

	s.mu.Lock()
	switch s.state {
	case StateValidating, StateProceeding:
		s.mu.Unlock()
		return validationError("checkout is already in progress")
	}
	s.stopTimerLocked()
	s.generation++
	s.deliveryAddr = address
	s.method = method
	s.lastErr = nil
	s.intent = models.CheckoutIntent{}
	s.transitionLocked(StateModalOpen)
	s.mu.Unlock()

	if s.address != nil {
		if err := s.address.SetDeliveryAddress(ctx, address); err != nil {
			logger.Warnw("delivery_address_cache_failed", "error", err)
		}
	}
	return nil
}

// ApplyCoupon verifies code. On success the summary is recomputed and checkout proceeds
// automatically after the confirmation delay unless the coupon is removed or the modal closed.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, code string) (models.PriceSummary, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return models.PriceSummary{}, validationError("coupon code is required")
	}

	s.mu.Lock()
	switch s.state {
	case StateModalOpen, StateRejected:
	case StateApplied:
		s.mu.Unlock()
		return models.PriceSummary{}, validationError("remove the applied coupon first")
	default:
		s.mu.Unlock()
		return models.PriceSummary{}, validationError("checkout is not open")
	}
	generation := s.generation
	s.lastErr = nil
	s.transitionLocked(StateValidating)
	s.mu.Unlock()

	result, err := s.coupons.VerifyCouponCode(ctx, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation || s.state != StateValidating {
		if len(s.cart.Lines()) == 0 {
			return models.PriceSummary{}, validationError("cart is empty")
		}
		return models.PriceSummary{}, generalError("checkout was closed", nil)
	}
	if err != nil {
		opErr := gatewayError(err)
		s.rejectLocked(opErr)
		logger.Warnw("coupon_verify_failed", "code", code, "error", err)
		return models.PriceSummary{}, opErr
	}
	percent, ok := result.DiscountPercent()
	if !ok {
		message := result.Message
		if strings.TrimSpace(message) == "" {
			message = "invalid coupon code"
		}
		opErr := generalError(message, nil)
		s.rejectLocked(opErr)
		logger.Infow("coupon_rejected", "code", code, "message", message)
		return models.PriceSummary{}, opErr
	}

	if len(s.cart.Lines()) == 0 {
		s.coupon.Reset()
		s.transitionLocked(StateModalOpen)
		return models.PriceSummary{}, validationError("cart is empty")
	}

	s.coupon.ApplyCoupon(code, percent)
	s.transitionLocked(StateApplied)
	s.proceedTimer = time.AfterFunc(s.delay, func() {
		s.autoProceed(generation)
	})
	logger.Infow("coupon_applied", "code", code, "discount_percent", percent.String())
	return s.prices.Summarize(s.cart.Lines(), s.coupon), nil
}

func (s *CheckoutService) rejectLocked(err error) {
	s.lastErr = err
	s.transitionLocked(StateRejected)
}

func (s *CheckoutService) autoProceed(generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation || s.state != StateApplied {
		return
	}
	s.proceedTimer = nil
	if err := s.proceedLocked(); err != nil {
		logger.Warnw("checkout_auto_proceed_failed", "error", err)
	}
}

// SkipCoupon drops any applied coupon and proceeds at full price.
func (s *CheckoutService) SkipCoupon() (models.CheckoutIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateModalOpen, StateRejected, StateApplied:
	default:
		return models.CheckoutIntent{}, validationError("checkout is not open")
	}
	s.stopTimerLocked()
	s.generation++
	s.coupon.Reset()
	if err := s.proceedLocked(); err != nil {
		return models.CheckoutIntent{}, err
	}
	return s.intent, nil
}

// RemoveCoupon resets the coupon and returns to the open modal without proceeding.
func (s *CheckoutService) RemoveCoupon() (models.PriceSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coupon.Applied {
		return models.PriceSummary{}, validationError("no coupon is applied")
	}
	s.stopTimerLocked()
	s.generation++
	s.coupon.Reset()
	if s.state == StateApplied {
		s.transitionLocked(StateModalOpen)
	}
	return s.prices.Summarize(s.cart.Lines(), s.coupon), nil
}

// CloseModal dismisses the modal and cancels any pending auto-proceed.
func (s *CheckoutService) CloseModal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.generation++
	s.lastErr = nil
	switch s.state {
	case StateModalOpen, StateValidating, StateApplied, StateRejected:
		s.transitionLocked(StateIdle)
	}
}

// proceedLocked commits the totals, hands one event to order placement and closes the modal.
func (s *CheckoutService) proceedLocked() error {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		s.coupon.Reset()
		s.transitionLocked(StateIdle)
		return validationError("cart is empty")
	}
	previous := s.state
	s.transitionLocked(StateProceeding)

	summary := s.prices.Summarize(lines, s.coupon)
	intent := models.CheckoutIntent{
		DeliveryAddress: s.deliveryAddr,
		PaymentMethod:   s.method,
		OriginalTotal:   summary.Subtotal.Plus(summary.Shipping),
		DiscountAmount:  summary.DiscountAmount,
		FinalTotal:      summary.FinalTotal,
	}
	if s.coupon.Applied {
		intent.CouponCode = s.coupon.Code
	}
	event := ProceedEvent{ID: uuid.NewString(), Intent: intent, At: time.Now()}

	select {
	case s.events <- event:
	default:
		s.transitionLocked(previous)
		err := generalError("an order is already being placed", nil)
		s.lastErr = err
		return err
	}
	s.intent = intent
	s.lastErr = nil
	logger.Infow("checkout_proceed",
		"event_id", event.ID,
		"payment_method", intent.PaymentMethod,
		"coupon_code", intent.CouponCode,
		"final_total", intent.FinalTotal.String(),
	)
	s.transitionLocked(StateClosed)
	return nil
}

func (s *CheckoutService) onCartEmpty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.coupon.Applied && s.state != StateValidating {
		return
	}
	// A verification still in flight sees the bumped generation and is discarded.
	s.stopTimerLocked()
	s.generation++
	s.coupon.Reset()
	switch s.state {
	case StateApplied, StateValidating:
		s.transitionLocked(StateModalOpen)
	}
	logger.Infow("coupon_reset", "reason", "cart_empty")
}

// ResetCoupon clears the coupon after a completed order.
func (s *CheckoutService) ResetCoupon() {
	s.mu.Lock()
	s.coupon.Reset()
	s.mu.Unlock()
}

// Reset returns to idle and forgets the coupon, address and intent.
func (s *CheckoutService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.generation++
	s.coupon.Reset()
	s.deliveryAddr = ""
	s.method = ""
	s.intent = models.CheckoutIntent{}
	s.lastErr = nil
	s.transitionLocked(StateIdle)
}

// Summary is always recomputed from the current cart and coupon.
func (s *CheckoutService) Summary() models.PriceSummary {
	coupon := s.Coupon()
	return s.prices.Summarize(s.cart.Lines(), coupon)
}

// Coupon returns the coupon state.
func (s *CheckoutService) Coupon() models.CouponState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coupon
}

// State returns the current state.
func (s *CheckoutService) State() CheckoutState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Intent returns the last committed checkout intent.
func (s *CheckoutService) Intent() models.CheckoutIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intent
}

// Snapshot copies the orchestrator state for rendering.
func (s *CheckoutService) Snapshot() CheckoutSnapshot {
	s.mu.Lock()
	snapshot := CheckoutSnapshot{
		State:           s.state,
		DeliveryAddress: s.deliveryAddr,
		PaymentMethod:   s.method,
		Coupon:          s.coupon,
		Intent:          s.intent,
	}
	if s.lastErr != nil {
		snapshot.Error = MessageOf(s.lastErr)
		snapshot.ErrorKind = KindOf(s.lastErr)
	}
	coupon := s.coupon
	s.mu.Unlock()

	snapshot.Summary = s.prices.Summarize(s.cart.Lines(), coupon)
	return snapshot
}

func (s *CheckoutService) stopTimerLocked() {
	if s.proceedTimer != nil {
		s.proceedTimer.Stop()
		s.proceedTimer = nil
	}
}

func (s *CheckoutService) transitionLocked(to CheckoutState) {
	from := s.state
	if from == to {
		return
	}
	s.state = to
	metrics.RecordCheckoutTransition(string(from), string(to))
	logger.Debugw("checkout_transition", "from", from, "to", to)
}
