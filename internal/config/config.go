package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/anime-alley/storefront/internal/logger"

	"github.com/spf13/viper"
)

// Config is the storefront client configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig is the local API listener used by the presentational layer.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig controls log file rotation in release mode.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// GatewayConfig points at the remote catalog/order backend.
type GatewayConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// Timeout returns the per-request timeout; zero means the HTTP client default.
func (c GatewayConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionPoolConfig is the SQL connection pool for the session store.
type SessionPoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// SessionConfig selects the persisted key-value backend.
type SessionConfig struct {
	Driver        string            `mapstructure:"driver"` // sqlite / postgres / redis
	DSN           string            `mapstructure:"dsn"`
	Pool          SessionPoolConfig `mapstructure:"pool"`
	PreserveKeys  []string          `mapstructure:"preserve_keys"`
	RedisHashName string            `mapstructure:"redis_hash_name"`
}

// UsesRedis reports whether preferences live in Redis instead of SQL.
func (c SessionConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(c.Driver), "redis")
}

// RedisConfig is the Redis connection.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// CheckoutConfig holds pricing constants and presentation timers.
type CheckoutConfig struct {
	ShippingFee              string `mapstructure:"shipping_fee"`
	Currency                 string `mapstructure:"currency"`
	CouponProceedDelayMS     int    `mapstructure:"coupon_proceed_delay_ms"`
	LoadingIndicatorDelayMS  int    `mapstructure:"loading_indicator_delay_ms"`
	ProceedEventBufferLength int    `mapstructure:"proceed_event_buffer"`
}

// CouponProceedDelay is the pause between a successful coupon and auto-proceeding.
func (c CheckoutConfig) CouponProceedDelay() time.Duration {
	if c.CouponProceedDelayMS < 0 {
		return 0
	}
	return time.Duration(c.CouponProceedDelayMS) * time.Millisecond
}

// LoadingIndicatorDelay is how long a request may run before the spinner shows.
func (c CheckoutConfig) LoadingIndicatorDelay() time.Duration {
	if c.LoadingIndicatorDelayMS < 0 {
		return 0
	}
	return time.Duration(c.LoadingIndicatorDelayMS) * time.Millisecond
}

// PaymentConfig groups hosted payment providers.
type PaymentConfig struct {
	Stripe StripeConfig `mapstructure:"stripe"`
}

// StripeConfig is the client-side part of the hosted checkout redirect.
type StripeConfig struct {
	PublishableKey  string `mapstructure:"publishable_key"`
	CheckoutBaseURL string `mapstructure:"checkout_base_url"`
	SuccessURL      string `mapstructure:"success_url"`
	CancelURL       string `mapstructure:"cancel_url"`
}

// CORSConfig is the cross-origin policy for the local API.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitRuleConfig is a fixed window limit.
type RateLimitRuleConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// RateLimitConfig throttles endpoints that can be brute-forced. It needs Redis.
type RateLimitConfig struct {
	Coupon RateLimitRuleConfig `mapstructure:"coupon"`
}

// Load reads config.yml, environment overrides and defaults.
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")
	v.AddConfigPath("./etc")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // gateway.base_url -> GATEWAY_BASE_URL

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	cfg, err := decode(v)
	if err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(err)
	}
	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", "5173")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "storefront.log")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.compress", true)
	v.SetDefault("gateway.base_url", "http://127.0.0.1:4000")
	v.SetDefault("gateway.timeout_seconds", 15)
	v.SetDefault("gateway.user_agent", "anime-alley-storefront")
	v.SetDefault("session.driver", "sqlite")
	v.SetDefault("session.dsn", "./data/session.db")
	v.SetDefault("session.pool.max_open_conns", 1)
	v.SetDefault("session.pool.max_idle_conns", 1)
	v.SetDefault("session.preserve_keys", []string{"ui.theme", "ui.locale"})
	v.SetDefault("session.redis_hash_name", "session")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "alley")
	v.SetDefault("checkout.shipping_fee", "5")
	v.SetDefault("checkout.currency", "USD")
	v.SetDefault("checkout.coupon_proceed_delay_ms", 1500)
	v.SetDefault("checkout.loading_indicator_delay_ms", 300)
	v.SetDefault("checkout.proceed_event_buffer", 1)
	v.SetDefault("payment.stripe.publishable_key", "")
	v.SetDefault("payment.stripe.checkout_base_url", "https://checkout.stripe.com/c/pay")
	v.SetDefault("payment.stripe.success_url", "http://127.0.0.1:5173/orders?payment=success")
	v.SetDefault("payment.stripe.cancel_url", "http://127.0.0.1:5173/cart?payment=cancelled")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Authorization",
		"X-Request-ID",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("rate_limit.coupon.window_seconds", 300)
	v.SetDefault("rate_limit.coupon.max_requests", 10)
}
