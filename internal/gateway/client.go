package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anime-alley/storefront/internal/metrics"
)

var (
	ErrConfigInvalid   = errors.New("gateway config invalid")
	ErrRequestFailed   = errors.New("gateway request failed")
	ErrResponseInvalid = errors.New("gateway response invalid")
	ErrUnauthorized    = errors.New("gateway rejected credentials")
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "anime-alley-storefront"
	maxResponseBytes = 4 << 20
)

// Config configures the gateway client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the remote catalog/order gateway.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// NewClient validates the base URL and builds a client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: base_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("%w: base_url is invalid", ErrConfigInvalid)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    base,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// SetToken sets the bearer token sent with every request; "" clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = strings.TrimSpace(token)
	c.mu.Unlock()
}

// HasToken reports whether a shopper is signed in.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// ReserveStock reserves quantity units for a line.
func (c *Client) ReserveStock(ctx context.Context, req ReserveStockRequest) (*ReserveStockResult, error) {
	var out ReserveStockResult
	if err := c.call(ctx, "reserveStock", http.MethodPost, "/api/cart/reserve", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCartItem sets the quantity of a line.
func (c *Client) UpdateCartItem(ctx context.Context, req UpdateCartItemRequest) (*Result, error) {
	var out Result
	if err := c.call(ctx, "updateCartItem", http.MethodPut, "/api/cart/item", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveFromCart drops a line.
func (c *Client) RemoveFromCart(ctx context.Context, req RemoveCartItemRequest) (*Result, error) {
	var out Result
	if err := c.call(ctx, "removeFromCart", http.MethodDelete, "/api/cart/item", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCart drops every line.
func (c *Client) ClearCart(ctx context.Context) (*Result, error) {
	var out Result
	if err := c.call(ctx, "clearCart", http.MethodDelete, "/api/cart", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCart fetches the authoritative cart.
func (c *Client) GetCart(ctx context.Context) (*CartResult, error) {
	var out CartResult
	if err := c.call(ctx, "getCart", http.MethodGet, "/api/cart", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyCouponCode checks a coupon code.
func (c *Client) VerifyCouponCode(ctx context.Context, code string) (*CouponResult, error) {
	var out CouponResult
	body := map[string]string{"code": code}
	if err := c.call(ctx, "verifyCouponCode", http.MethodPost, "/api/coupons/verify", nil, body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlaceOrder submits the order. IdempotencyKey, when set, is sent as a header.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	var out PlaceOrderResult
	headers := map[string]string{}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		headers["Idempotency-Key"] = key
	}
	if err := c.call(ctx, "placeOrder", http.MethodPost, "/api/orders", nil, req, &out, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentSession asks the gateway for a hosted checkout session.
func (c *Client) CreatePaymentSession(ctx context.Context, req PaymentSessionRequest) (*PaymentSessionResult, error) {
	var out PaymentSessionResult
	if err := c.call(ctx, "createPaymentSession", http.MethodPost, "/api/payments/stripe/session", nil, req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns the signed-in shopper's order history.
func (c *Client) ListOrders(ctx context.Context) (*OrdersResult, error) {
	var out OrdersResult
	if err := c.call(ctx, "listOrders", http.MethodGet, "/api/orders/mine", nil, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProducts browses the catalog.
func (c *Client) ListProducts(ctx context.Context, filter ProductFilter) (*ProductsResult, error) {
	var out ProductsResult
	if err := c.call(ctx, "listProducts", http.MethodGet, "/api/products", filter.query(), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f ProductFilter) query() url.Values {
	q := url.Values{}
	setIfNotEmpty(q, "category", f.Category)
	setIfNotEmpty(q, "sort", f.Sort)
	setIfNotEmpty(q, "minPrice", f.MinPrice)
	setIfNotEmpty(q, "maxPrice", f.MaxPrice)
	setIfNotEmpty(q, "search", f.Search)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

func setIfNotEmpty(q url.Values, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		q.Set(key, v)
	}
}

// call performs one round trip. Business failures usually arrive as 4xx with a
// {success:false,...} body, so a decodable body is returned whatever the status.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, in, out interface{}, headers map[string]string) (err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveGatewayCall(op, err, time.Since(start))
	}()

	body, status, err := c.do(ctx, method, path, query, in, headers)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %s status %d", ErrUnauthorized, op, status)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if status >= 200 && status < 300 {
			return fmt.Errorf("%w: %s empty body", ErrResponseInvalid, op)
		}
		return fmt.Errorf("%w: %s status %d", ErrResponseInvalid, op, status)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s status %d: %v", ErrResponseInvalid, op, status, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in interface{}, headers map[string]string) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: encode request failed", ErrRequestFailed)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	return respBody, resp.StatusCode, nil
}
