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
	"github.com/anime-alley/storefront/internal/payment/stripe"
)

// Order placement outcomes.
const (
	OrderStatusPlaced   = "placed"
	OrderStatusRedirect = "redirect"
	OrderStatusFailed   = "failed"
)

// OrderGateway places orders and opens payment sessions.
type OrderGateway interface {
	PlaceOrder(ctx context.Context, req gateway.PlaceOrderRequest) (*gateway.PlaceOrderResult, error)
	CreatePaymentSession(ctx context.Context, req gateway.PaymentSessionRequest) (*gateway.PaymentSessionResult, error)
	ListOrders(ctx context.Context) (*gateway.OrdersResult, error)
}

// IdentityProvider exposes the signed-in shopper.
type IdentityProvider interface {
	Current() (Identity, bool)
}

// OrderResult is the outcome of one ProceedEvent.
type OrderResult struct {
	EventID       string       `json:"event_id"`
	Status        string       `json:"status"`
	PaymentMethod string       `json:"payment_method"`
	OrderID       string       `json:"order_id,omitempty"`
	RedirectURL   string       `json:"redirect_url,omitempty"`
	SessionID     string       `json:"session_id,omitempty"`
	FinalTotal    models.Money `json:"final_total"`
	ErrorKind     ErrorKind    `json:"error_kind,omitempty"`
	Message       string       `json:"message,omitempty"`
	FinishedAt    time.Time    `json:"finished_at"`
}

// OrderOptions configures payment handoff.
type OrderOptions struct {
	Stripe   *stripe.Config
	Currency string
}

// OrderService places the order described by a ProceedEvent. Nothing is retried automatically.
type OrderService struct {
	gateway  OrderGateway
	identity IdentityProvider
	cart     interface{ Reset() }
	checkout interface{ ResetCoupon() }
	stripe   *stripe.Config
	currency string

	mu   sync.RWMutex
	last *OrderResult
}

// NewOrderService creates the order placement service.
func NewOrderService(gw OrderGateway, identity IdentityProvider, cart interface{ Reset() }, checkout interface{ ResetCoupon() }, opts OrderOptions) *OrderService {
	currency := strings.ToUpper(strings.TrimSpace(opts.Currency))
	if currency == "" {
		currency = "USD"
	}
	return &OrderService{
		gateway:  gw,
		identity: identity,
		cart:     cart,
		checkout: checkout,
		stripe:   opts.Stripe,
		currency: currency,
	}
}

// Place consumes one event. The returned result is also kept as LastResult.
func (s *OrderService) Place(ctx context.Context, event ProceedEvent) OrderResult {
	intent := event.Intent
	result := OrderResult{
		EventID:       event.ID,
		PaymentMethod: intent.PaymentMethod,
		FinalTotal:    intent.FinalTotal,
	}
	defer func() {
		result.FinishedAt = time.Now()
		s.mu.Lock()
		stored := result
		s.last = &stored
		s.mu.Unlock()
		metrics.RecordOrderPlaced(intent.PaymentMethod, result.Status)
	}()

	shopper, ok := s.identity.Current()
	if !ok {
		s.fail(&result, generalError("please sign in to place an order", nil))
		return result
	}

	placed, err := s.gateway.PlaceOrder(ctx, gateway.PlaceOrderRequest{
		CouponCode: intent.CouponCode,
		UserInfo: gateway.UserInfo{
			Name:  shopper.Name,
			Email: shopper.Email,
		},
		DeliveryAddress: intent.DeliveryAddress,
		PaymentMethod:   intent.PaymentMethod,
		UserID:          shopper.UserID,
		IdempotencyKey:  event.ID,
	})
	if err != nil {
		logger.Warnw("order_place_failed", "event_id", event.ID, "error", err)
		s.fail(&result, gatewayError(err))
		return result
	}
	if !placed.Success {
		logger.Infow("order_place_rejected", "event_id", event.ID, "message", placed.Message)
		s.fail(&result, generalError(placed.Message, nil))
		return result
	}

	result.OrderID = placed.OrderID
	s.cart.Reset()
	s.checkout.ResetCoupon()
	logger.Infow("order_placed",
		"event_id", event.ID,
		"order_id", placed.OrderID,
		"payment_method", intent.PaymentMethod,
	)

	if intent.PaymentMethod != models.PaymentMethodStripe {
		result.Status = OrderStatusPlaced
		result.Message = placed.Message
		return result
	}

	redirect, err := s.startHostedPayment(ctx, placed.OrderID, intent.FinalTotal)
	if err != nil {
		logger.Warnw("payment_session_failed", "order_id", placed.OrderID, "error", err)
		s.fail(&result, err)
		return result
	}
	result.Status = OrderStatusRedirect
	result.RedirectURL = redirect.URL
	result.SessionID = redirect.SessionID
	return result
}

func (s *OrderService) startHostedPayment(ctx context.Context, orderID string, total models.Money) (*stripe.Redirect, error) {
	input, err := stripe.PrepareSession(s.stripe, orderID, total.Decimal, s.currency)
	if err != nil {
		return nil, generalError("card payment is not available", err)
	}
	amount, err := models.ParseMoney(input.Amount)
	if err != nil {
		return nil, generalError("card payment is not available", err)
	}
	session, err := s.gateway.CreatePaymentSession(ctx, gateway.PaymentSessionRequest{
		OrderID:     input.OrderID,
		Amount:      amount,
		AmountMinor: input.AmountMinor,
		Currency:    input.Currency,
		SuccessURL:  input.SuccessURL,
		CancelURL:   input.CancelURL,
	})
	if err != nil {
		return nil, gatewayError(err)
	}
	if !session.Success {
		return nil, generalError(session.Message, nil)
	}
	redirect, err := stripe.BuildRedirect(s.stripe, session.SessionID, session.URL)
	if err != nil {
		return nil, generalError("the payment page could not be opened", err)
	}
	return redirect, nil
}

func (s *OrderService) fail(result *OrderResult, err error) {
	result.Status = OrderStatusFailed
	result.ErrorKind = KindOf(err)
	result.Message = MessageOf(err)
}

// LastResult returns the most recent outcome, or nil before the first order.
func (s *OrderService) LastResult() *OrderResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	out := *s.last
	return &out
}

// ListOrders returns the shopper's order history.
func (s *OrderService) ListOrders(ctx context.Context) ([]gateway.Order, error) {
	if _, ok := s.identity.Current(); !ok {
		return nil, validationError("please sign in to view orders")
	}
	result, err := s.gateway.ListOrders(ctx)
	if err != nil {
		logger.Warnw("order_list_failed", "error", err)
		return nil, gatewayError(err)
	}
	if !result.Success {
		return nil, generalError(result.Message, nil)
	}
	if result.Orders == nil {
		return []gateway.Order{}, nil
	}
	return result.Orders, nil
}
