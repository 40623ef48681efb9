package gateway

import (
	"time"

	"github.com/anime-alley/storefront/internal/models"

	"github.com/shopspring/decimal"
)

// ReserveStockRequest asks the gateway to reserve units of one line.
type ReserveStockRequest struct {
	ProductID       string  `json:"productId"`
	SelectedVariant *string `json:"selectedVariant"`
	Quantity        int     `json:"quantity"`
}

// ReserveStockResult is the gateway's reservation verdict.
// Stock 0 means out of stock; Stock -1 means a concurrent modification was detected.
// Stock is nil when the reply carries no stock field.
type ReserveStockResult struct {
	Success          bool   `json:"success"`
	ReservedQuantity int    `json:"reservedQuantity"`
	Stock            *int   `json:"stock"`
	Message          string `json:"message"`
}

const (
	StockOutOfStock = 0
	StockConflict   = -1
)

// UpdateCartItemRequest sets the reserved quantity of a line.
type UpdateCartItemRequest struct {
	ProductID       string  `json:"productId"`
	SelectedVariant *string `json:"selectedVariant"`
	Quantity        int     `json:"quantity"`
}

// RemoveCartItemRequest drops a line.
type RemoveCartItemRequest struct {
	ProductID       string  `json:"productId"`
	SelectedVariant *string `json:"selectedVariant"`
}

// Result is the plain {success, message} envelope.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CartItem is one line as the gateway stores it.
type CartItem struct {
	ProductID       string                 `json:"productId"`
	SelectedVariant *string                `json:"selectedVariant"`
	Price           models.Money           `json:"price"`
	Quantity        int                    `json:"quantity"`
	Product         models.ProductSnapshot `json:"product"`
}

// CartResult is the getCart response.
type CartResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	CartItems []CartItem `json:"cartItems"`
}

// CouponResult keeps the gateway's nested shape. A missing coupon means the code is invalid.
type CouponResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Coupondata struct {
			Coupon *struct {
				DiscountPercentage decimal.Decimal `json:"discountPercentage"`
			} `json:"coupon"`
		} `json:"coupondata"`
	} `json:"data"`
}

// DiscountPercent returns the discount and whether the coupon is usable.
func (r *CouponResult) DiscountPercent() (decimal.Decimal, bool) {
	if r == nil || !r.Success || r.Data.Coupondata.Coupon == nil {
		return decimal.Zero, false
	}
	percent := r.Data.Coupondata.Coupon.DiscountPercentage
	if !percent.GreaterThan(decimal.Zero) {
		return decimal.Zero, false
	}
	return percent, true
}

// UserInfo is the shopper contact block sent with an order.
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// PlaceOrderRequest submits the cart as an order.
type PlaceOrderRequest struct {
	CouponCode      string   `json:"couponCode"`
	UserInfo        UserInfo `json:"userInfo"`
	DeliveryAddress string   `json:"deliveryAddress"`
	PaymentMethod   string   `json:"paymentMethod"`
	UserID          string   `json:"userId"`
	IdempotencyKey  string   `json:"-"`
}

// PlaceOrderResult carries the created order id on success.
type PlaceOrderResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// PaymentSessionRequest asks for a hosted checkout session.
type PaymentSessionRequest struct {
	OrderID     string       `json:"orderId"`
	Amount      models.Money `json:"amount"`
	AmountMinor int64        `json:"amountMinor"`
	Currency    string       `json:"currency"`
	SuccessURL  string       `json:"successUrl"`
	CancelURL   string       `json:"cancelUrl"`
}

// PaymentSessionResult is the session handle for the redirect.
type PaymentSessionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// OrderLine is one item of a past order.
type OrderLine struct {
	ProductID       string       `json:"productId"`
	Name            string       `json:"name"`
	SelectedVariant *string      `json:"selectedVariant"`
	Quantity        int          `json:"quantity"`
	Price           models.Money `json:"price"`
}

// Order is an entry of the order history.
type Order struct {
	ID              string       `json:"id"`
	Status          string       `json:"status"`
	PaymentMethod   string       `json:"paymentMethod"`
	Paid            bool         `json:"paid"`
	TotalAmount     models.Money `json:"totalAmount"`
	DeliveryAddress string       `json:"deliveryAddress"`
	CreatedAt       time.Time    `json:"createdAt"`
	Items           []OrderLine  `json:"items"`
}

// OrdersResult is the listOrders response.
type OrdersResult struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Orders  []Order `json:"orders"`
}

// ProductFilter narrows the catalog listing.
type ProductFilter struct {
	Category string `json:"category,omitempty"`
	Sort     string `json:"sort,omitempty"`
	MinPrice string `json:"minPrice,omitempty"`
	MaxPrice string `json:"maxPrice,omitempty"`
	Search   string `json:"search,omitempty"`
	Page     int    `json:"page,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Product is a catalog entry.
type Product struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Category    string       `json:"category"`
	Price       models.Money `json:"price"`
	Stock       int          `json:"stock"`
	Variants    []string     `json:"variants"`
	Bestseller  bool         `json:"bestseller"`
}

// ProductsResult is the listProducts response.
type ProductsResult struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}
