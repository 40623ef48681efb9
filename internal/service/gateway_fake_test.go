package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/models"
	"github.com/anime-alley/storefront/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeGateway records calls; each hook falls back to a success response when nil.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int
	token string

	reserve  func(req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error)
	update   func(req gateway.UpdateCartItemRequest) (*gateway.Result, error)
	remove   func(req gateway.RemoveCartItemRequest) (*gateway.Result, error)
	clear    func() (*gateway.Result, error)
	getCart  func() (*gateway.CartResult, error)
	coupon   func(code string) (*gateway.CouponResult, error)
	place    func(req gateway.PlaceOrderRequest) (*gateway.PlaceOrderResult, error)
	payment  func(req gateway.PaymentSessionRequest) (*gateway.PaymentSessionResult, error)
	orders   func() (*gateway.OrdersResult, error)
	products func(filter gateway.ProductFilter) (*gateway.ProductsResult, error)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: map[string]int{}}
}

func (f *fakeGateway) record(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeGateway) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGateway) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeGateway) currentToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeGateway) ReserveStock(ctx context.Context, req gateway.ReserveStockRequest) (*gateway.ReserveStockResult, error) {
	f.record("reserveStock")
	if f.reserve != nil {
		return f.reserve(req)
	}
	return &gateway.ReserveStockResult{Success: true, ReservedQuantity: req.Quantity, Stock: intPtr(100)}, nil
}

func (f *fakeGateway) UpdateCartItem(ctx context.Context, req gateway.UpdateCartItemRequest) (*gateway.Result, error) {
	f.record("updateCartItem")
	if f.update != nil {
		return f.update(req)
	}
	return &gateway.Result{Success: true}, nil
}

func (f *fakeGateway) RemoveFromCart(ctx context.Context, req gateway.RemoveCartItemRequest) (*gateway.Result, error) {
	f.record("removeFromCart")
	if f.remove != nil {
		return f.remove(req)
	}
	return &gateway.Result{Success: true}, nil
}

func (f *fakeGateway) ClearCart(ctx context.Context) (*gateway.Result, error) {
	f.record("clearCart")
	if f.clear != nil {
		return f.clear()
	}
	return &gateway.Result{Success: true}, nil
}

func (f *fakeGateway) GetCart(ctx context.Context) (*gateway.CartResult, error) {
	f.record("getCart")
	if f.getCart != nil {
		return f.getCart()
	}
	return &gateway.CartResult{Success: true}, nil
}

func (f *fakeGateway) VerifyCouponCode(ctx context.Context, code string) (*gateway.CouponResult, error) {
	f.record("verifyCouponCode")
	if f.coupon != nil {
		return f.coupon(code)
	}
	return couponResult(10), nil
}

func (f *fakeGateway) PlaceOrder(ctx context.Context, req gateway.PlaceOrderRequest) (*gateway.PlaceOrderResult, error) {
	f.record("placeOrder")
	if f.place != nil {
		return f.place(req)
	}
	return &gateway.PlaceOrderResult{Success: true, OrderID: "ord-1"}, nil
}

func (f *fakeGateway) CreatePaymentSession(ctx context.Context, req gateway.PaymentSessionRequest) (*gateway.PaymentSessionResult, error) {
	f.record("createPaymentSession")
	if f.payment != nil {
		return f.payment(req)
	}
	return &gateway.PaymentSessionResult{Success: true, SessionID: "cs_test_1"}, nil
}

func (f *fakeGateway) ListOrders(ctx context.Context) (*gateway.OrdersResult, error) {
	f.record("listOrders")
	if f.orders != nil {
		return f.orders()
	}
	return &gateway.OrdersResult{Success: true}, nil
}

func (f *fakeGateway) ListProducts(ctx context.Context, filter gateway.ProductFilter) (*gateway.ProductsResult, error) {
	f.record("listProducts")
	if f.products != nil {
		return f.products(filter)
	}
	return &gateway.ProductsResult{Success: true}, nil
}

func couponResult(percent int64) *gateway.CouponResult {
	result := &gateway.CouponResult{Success: true}
	result.Data.Coupondata.Coupon = &struct {
		DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	}{DiscountPercentage: decimal.NewFromInt(percent)}
	return result
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func money(v int64) models.Money { return models.NewMoneyFromInt(v) }

func newTestCart(gw *fakeGateway) *CartService {
	return NewCartService(gw, NewStockReservationClient(gw, nil), time.Hour)
}

func setupSessionRepo(t *testing.T) repository.SessionRepository {
	t.Helper()
	dsn := fmt.Sprintf("file:service_session_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return repository.NewSessionRepository(db)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
