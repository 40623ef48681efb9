package provider

import (
	"errors"
	"fmt"

	"github.com/anime-alley/storefront/internal/cache"
	"github.com/anime-alley/storefront/internal/config"
	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/models"
	"github.com/anime-alley/storefront/internal/payment/stripe"
	"github.com/anime-alley/storefront/internal/repository"
	"github.com/anime-alley/storefront/internal/service"
)

// Container holds the wired dependencies of one storefront session.
type Container struct {
	Config  *config.Config
	Gateway *gateway.Client

	// Repositories
	SessionRepo repository.SessionRepository

	// Services
	Reservations    *service.StockReservationClient
	CartService     *service.CartService
	CheckoutService *service.CheckoutService
	OrderService    *service.OrderService
	SessionService  *service.SessionService
	ProductService  *service.ProductService
}

// NewContainer builds the container from configuration.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		Timeout:   cfg.Gateway.Timeout(),
		UserAgent: cfg.Gateway.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	c := &Container{Config: cfg, Gateway: gw}
	if err := c.initRepositories(); err != nil {
		return nil, err
	}
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewContainerWith wires services around an existing gateway client and repository.
func NewContainerWith(cfg *config.Config, gw *gateway.Client, repo repository.SessionRepository) (*Container, error) {
	if cfg == nil || gw == nil || repo == nil {
		return nil, errors.New("config, gateway and session repository are required")
	}
	c := &Container{Config: cfg, Gateway: gw, SessionRepo: repo}
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() error {
	session := c.Config.Session
	if session.UsesRedis() {
		if !cache.Enabled() {
			return errors.New("session driver redis requires redis.enabled")
		}
		c.SessionRepo = repository.NewRedisSessionRepository(cache.Client(), cache.Key(session.RedisHashName))
		logger.Infow("provider_session_store", "driver", "redis")
		return nil
	}

	if err := models.InitDB(session.Driver, session.DSN, models.DBPoolConfig{
		MaxOpenConns:           session.Pool.MaxOpenConns,
		MaxIdleConns:           session.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: session.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: session.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		return fmt.Errorf("session db init failed: %w", err)
	}
	if err := models.AutoMigrate(models.DB); err != nil {
		return fmt.Errorf("session db migrate failed: %w", err)
	}
	c.SessionRepo = repository.NewSessionRepository(models.DB)
	logger.Infow("provider_session_store", "driver", session.Driver)
	return nil
}

func (c *Container) initServices() error {
	checkoutCfg := c.Config.Checkout
	shipping, err := models.ParseMoney(checkoutCfg.ShippingFee)
	if err != nil {
		return fmt.Errorf("invalid checkout.shipping_fee: %w", err)
	}

	stripeCfg := &stripe.Config{
		PublishableKey:  c.Config.Payment.Stripe.PublishableKey,
		CheckoutBaseURL: c.Config.Payment.Stripe.CheckoutBaseURL,
		SuccessURL:      c.Config.Payment.Stripe.SuccessURL,
		CancelURL:       c.Config.Payment.Stripe.CancelURL,
	}
	stripeCfg.Normalize()
	if err := stripe.ValidateConfig(stripeCfg); err != nil {
		logger.Warnw("provider_stripe_config_invalid", "error", err)
	}

	c.Reservations = service.NewStockReservationClient(c.Gateway, service.NewPendingRequestSet())
	c.CartService = service.NewCartService(c.Gateway, c.Reservations, checkoutCfg.LoadingIndicatorDelay())
	c.SessionService = service.NewSessionService(c.SessionRepo, c.Gateway, service.SessionOptions{
		PreserveKeys: c.Config.Session.PreserveKeys,
	})
	c.CheckoutService = service.NewCheckoutService(c.CartService, c.Gateway, c.SessionService, service.CheckoutOptions{
		Prices:       service.NewPriceCalculator(shipping),
		ProceedDelay: checkoutCfg.CouponProceedDelay(),
		EventBuffer:  checkoutCfg.ProceedEventBufferLength,
	})
	c.OrderService = service.NewOrderService(c.Gateway, c.SessionService, c.CartService, c.CheckoutService, service.OrderOptions{
		Stripe:   stripeCfg,
		Currency: checkoutCfg.Currency,
	})
	c.ProductService = service.NewProductService(c.Gateway, c.SessionService)

	c.SessionService.OnReset(c.CartService.Reset)
	c.SessionService.OnReset(c.CheckoutService.Reset)
	return nil
}
