package stripe

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrConfigInvalid  = errors.New("stripe config invalid")
	ErrAmountInvalid  = errors.New("stripe amount invalid")
	ErrSessionInvalid = errors.New("stripe session invalid")
)

const (
	defaultCheckoutBaseURL = "https://checkout.stripe.com/c/pay"
	sessionPlaceholder     = "{CHECKOUT_SESSION_ID}"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {},
	"CLP": {},
	"DJF": {},
	"GNF": {},
	"JPY": {},
	"KMF": {},
	"KRW": {},
	"MGA": {},
	"PYG": {},
	"RWF": {},
	"UGX": {},
	"VND": {},
	"VUV": {},
	"XAF": {},
	"XOF": {},
	"XPF": {},
}

// Config is the client-side half of a hosted checkout: where to send the shopper
// and where Stripe sends them back.
type Config struct {
	PublishableKey  string
	CheckoutBaseURL string
	SuccessURL      string
	CancelURL       string
}

// SessionInput is what the gateway needs to open a checkout session for an order.
type SessionInput struct {
	OrderID     string
	Amount      string
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Redirect is the hosted page the shopper is sent to.
type Redirect struct {
	SessionID string
	URL       string
}

// Normalize trims fields and fills defaults.
func (c *Config) Normalize() {
	c.PublishableKey = strings.TrimSpace(c.PublishableKey)
	c.SuccessURL = strings.TrimSpace(c.SuccessURL)
	c.CancelURL = strings.TrimSpace(c.CancelURL)
	c.CheckoutBaseURL = strings.TrimRight(strings.TrimSpace(c.CheckoutBaseURL), "/")
	if c.CheckoutBaseURL == "" {
		c.CheckoutBaseURL = defaultCheckoutBaseURL
	}
}

// ValidateConfig checks the return URLs and checkout base.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.SuccessURL) == "" {
		return fmt.Errorf("%w: success_url is required", ErrConfigInvalid)
	}
	if strings.TrimSpace(cfg.CancelURL) == "" {
		return fmt.Errorf("%w: cancel_url is required", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(sanitizeURLForValidation(cfg.SuccessURL)); err != nil {
		return fmt.Errorf("%w: success_url is invalid", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(sanitizeURLForValidation(cfg.CancelURL)); err != nil {
		return fmt.Errorf("%w: cancel_url is invalid", ErrConfigInvalid)
	}
	if _, err := url.ParseRequestURI(strings.TrimSpace(cfg.CheckoutBaseURL)); err != nil {
		return fmt.Errorf("%w: checkout_base_url is invalid", ErrConfigInvalid)
	}
	return nil
}

// PrepareSession builds the session request for an order total.
func PrepareSession(cfg *Config, orderID string, amount decimal.Decimal, currency string) (*SessionInput, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrSessionInvalid)
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return nil, fmt.Errorf("%w: currency is required", ErrAmountInvalid)
	}
	minor, err := toMinorAmount(amount, currency)
	if err != nil {
		return nil, err
	}
	return &SessionInput{
		OrderID:     orderID,
		Amount:      fromMinorAmount(minor, currency),
		AmountMinor: minor,
		Currency:    currency,
		SuccessURL:  cfg.SuccessURL,
		CancelURL:   cfg.CancelURL,
	}, nil
}

// BuildRedirect prefers the gateway's hosted URL and otherwise derives it from the session id.
func BuildRedirect(cfg *Config, sessionID, hostedURL string) (*Redirect, error) {
	sessionID = strings.TrimSpace(sessionID)
	hostedURL = strings.TrimSpace(hostedURL)
	if hostedURL != "" {
		if _, err := url.ParseRequestURI(hostedURL); err != nil {
			return nil, fmt.Errorf("%w: hosted url is invalid", ErrSessionInvalid)
		}
		return &Redirect{SessionID: sessionID, URL: hostedURL}, nil
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is empty", ErrSessionInvalid)
	}
	base := defaultCheckoutBaseURL
	if cfg != nil && strings.TrimSpace(cfg.CheckoutBaseURL) != "" {
		base = strings.TrimRight(strings.TrimSpace(cfg.CheckoutBaseURL), "/")
	}
	return &Redirect{SessionID: sessionID, URL: base + "/" + url.PathEscape(sessionID)}, nil
}

func sanitizeURLForValidation(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return trimmed
	}
	return strings.ReplaceAll(trimmed, sessionPlaceholder, "cs_test_placeholder")
}

func toMinorAmount(amount decimal.Decimal, currency string) (int64, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("%w: amount must be greater than zero", ErrAmountInvalid)
	}
	scale := currencyScale(currency)
	minor := amount.Shift(int32(scale))
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount precision is invalid", ErrAmountInvalid)
	}
	return minor.IntPart(), nil
}

func fromMinorAmount(minor int64, currency string) string {
	scale := currencyScale(currency)
	return decimal.NewFromInt(minor).Shift(int32(-scale)).StringFixed(int32(scale))
}

func currencyScale(currency string) int {
	upper := strings.ToUpper(strings.TrimSpace(currency))
	if _, ok := zeroDecimalCurrencies[upper]; ok {
		return 0
	}
	return 2
}
