package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/metrics"
	"github.com/anime-alley/storefront/internal/models"
)

// CartGateway is the part of the gateway that manages reservations and the server cart.
type CartGateway interface {
	ReserveStock(ctx context.Context, req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error)
	UpdateCartItem(ctx context.Context, req gateway.UpdateCartItemRequest) (*gateway.Result, error)
	RemoveFromCart(ctx context.Context, req gateway.RemoveCartItemRequest) (*gateway.Result, error)
	ClearCart(ctx context.Context) (*gateway.Result, error)
	GetCart(ctx context.Context) (*gateway.CartResult, error)
}

// PendingRequestSet holds the line keys with a quantity change in flight.
type PendingRequestSet struct {
	mu   sync.Mutex
	keys map[string]models.LineKey
}

// NewPendingRequestSet creates an empty set.
func NewPendingRequestSet() *PendingRequestSet {
	return &PendingRequestSet{keys: make(map[string]models.LineKey)}
}

// TryAcquire inserts key and reports whether it was absent.
func (s *PendingRequestSet) TryAcquire(key models.LineKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := key.String()
	if _, busy := s.keys[id]; busy {
		return false
	}
	s.keys[id] = key
	return true
}

// Release removes key; releasing an absent key is a no-op.
func (s *PendingRequestSet) Release(key models.LineKey) {
	s.mu.Lock()
	delete(s.keys, key.String())
	s.mu.Unlock()
}

// Contains reports whether key is in flight.
func (s *PendingRequestSet) Contains(key models.LineKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key.String()]
	return ok
}

// Keys lists the busy keys in string order.
func (s *PendingRequestSet) Keys() []models.LineKey {
	s.mu.Lock()
	out := make([]models.LineKey, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// StockReservationClient issues reservation changes with at most one request in flight per line.
// A second request for a busy line is dropped, never queued.
type StockReservationClient struct {
	gateway CartGateway
	pending *PendingRequestSet
}

// NewStockReservationClient creates the client. A nil set gets a fresh one.
func NewStockReservationClient(gw CartGateway, pending *PendingRequestSet) *StockReservationClient {
	if pending == nil {
		pending = NewPendingRequestSet()
	}
	return &StockReservationClient{gateway: gw, pending: pending}
}

// Busy reports whether key has a request in flight.
func (c *StockReservationClient) Busy(key models.LineKey) bool {
	return c.pending.Contains(key)
}

// Pending lists busy keys.
func (c *StockReservationClient) Pending() []models.LineKey {
	return c.pending.Keys()
}

func (c *StockReservationClient) acquire(key models.LineKey) error {
	if c.pending.TryAcquire(key) {
		return nil
	}
	metrics.RecordReservationDropped()
	logger.Debugw("reservation_request_dropped", "line", key.String())
	return ErrRequestInFlight
}

// Reserve asks for quantity more units and returns how many the server actually reserved.
func (c *StockReservationClient) Reserve(ctx context.Context, key models.LineKey, quantity int) (int, error) {
	if key.ProductID == "" {
		return 0, validationError("product is required")
	}
	if quantity <= 0 {
		return 0, validationError("quantity must be greater than zero")
	}
	if err := c.acquire(key); err != nil {
		return 0, err
	}
	defer c.pending.Release(key)

	result, err := c.gateway.ReserveStock(ctx, gateway.ReserveStockRequest{
		ProductID:       key.ProductID,
		SelectedVariant: key.Variant,
		Quantity:        quantity,
	})
	if err != nil {
		logger.Warnw("cart_reserve_failed", "line", key.String(), "quantity", quantity, "error", err)
		return 0, gatewayError(err)
	}
	if !result.Success {
		logger.Infow("cart_reserve_rejected",
			"line", key.String(),
			"quantity", quantity,
			"stock", stockField(result.Stock),
			"message", result.Message,
		)
		return 0, classifyReservation(result)
	}
	if result.ReservedQuantity <= 0 {
		return 0, newOpError(ErrOutOfStock, result.Message, nil)
	}
	return result.ReservedQuantity, nil
}

// Adjust sets the reserved quantity of a line. Zero releases the whole reservation.
func (c *StockReservationClient) Adjust(ctx context.Context, key models.LineKey, quantity int) error {
	if key.ProductID == "" {
		return validationError("product is required")
	}
	if quantity < 0 {
		return validationError("quantity must not be negative")
	}
	if err := c.acquire(key); err != nil {
		return err
	}
	defer c.pending.Release(key)

	result, err := c.gateway.UpdateCartItem(ctx, gateway.UpdateCartItemRequest{
		ProductID:       key.ProductID,
		SelectedVariant: key.Variant,
		Quantity:        quantity,
	})
	if err != nil {
		logger.Warnw("cart_update_failed", "line", key.String(), "quantity", quantity, "error", err)
		return gatewayError(err)
	}
	if !result.Success {
		return generalError(result.Message, nil)
	}
	return nil
}

// Remove drops the line's reservation.
func (c *StockReservationClient) Remove(ctx context.Context, key models.LineKey) error {
	if key.ProductID == "" {
		return validationError("product is required")
	}
	if err := c.acquire(key); err != nil {
		return err
	}
	defer c.pending.Release(key)

	result, err := c.gateway.RemoveFromCart(ctx, gateway.RemoveCartItemRequest{
		ProductID:       key.ProductID,
		SelectedVariant: key.Variant,
	})
	if err != nil {
		logger.Warnw("cart_remove_failed", "line", key.String(), "error", err)
		return gatewayError(err)
	}
	if !result.Success {
		return generalError(result.Message, nil)
	}
	return nil
}

func classifyReservation(result *gateway.ReserveStockResult) error {
	if result.Stock == nil {
		return generalError(result.Message, nil)
	}
	switch *result.Stock {
	case gateway.StockOutOfStock:
		return newOpError(ErrOutOfStock, result.Message, nil)
	case gateway.StockConflict:
		return newOpError(ErrConcurrentModification, result.Message, nil)
	default:
		return generalError(result.Message, nil)
	}
}

func stockField(stock *int) any {
	if stock == nil {
		return nil
	}
	return *stock
}

// gatewayError turns transport failures into GENERAL_ERROR with a readable message.
func gatewayError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		return generalError("please sign in again", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return generalError("the request was cancelled", err)
	case errors.Is(err, gateway.ErrResponseInvalid):
		return generalError("the store returned an unexpected response", err)
	default:
		return generalError("could not reach the store, please try again", err)
	}
}
