package router

import (
	"fmt"
	"strings"

	"github.com/anime-alley/storefront/internal/cache"
	"github.com/anime-alley/storefront/internal/config"
	publichandlers "github.com/anime-alley/storefront/internal/http/handlers/public"
	"github.com/anime-alley/storefront/internal/http/response"
	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/metrics"
	"github.com/anime-alley/storefront/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the local API engine.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	r := gin.New()
	h := publichandlers.New(c)

	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "alley"
	}
	couponRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:coupon", redisPrefix),
		WindowSeconds: cfg.RateLimit.Coupon.WindowSeconds,
		MaxRequests:   cfg.RateLimit.Coupon.MaxRequests,
		Message:       "too many coupon attempts, please wait",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(logger.Z()))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(metrics.Middleware())

	r.GET("/healthz", func(ctx *gin.Context) {
		response.Success(ctx, gin.H{"status": "ok", "gateway_signed_in": c.Gateway.HasToken()})
	})
	r.GET("/metrics", metrics.Handler())

	apiV1 := r.Group("/api/v1")
	{
		cart := apiV1.Group("/cart")
		{
			cart.GET("", h.GetCart)
			cart.POST("", h.LoadCart)
			cart.DELETE("", h.ClearCart)
			cart.POST("/items", h.AddCartItem)
			cart.PUT("/items", h.UpdateCartItem)
			cart.DELETE("/items", h.RemoveCartItem)
			cart.POST("/items/increment", h.IncrementCartItem)
			cart.POST("/items/decrement", h.DecrementCartItem)
		}

		checkout := apiV1.Group("/checkout")
		{
			checkout.GET("", h.GetCheckout)
			checkout.POST("/open", h.OpenCheckout)
			checkout.POST("/coupon", RateLimitMiddleware(cache.Client(), couponRule, KeyByIP), h.ApplyCoupon)
			checkout.DELETE("/coupon", h.RemoveCoupon)
			checkout.POST("/skip", h.SkipCoupon)
			checkout.POST("/close", h.CloseCheckout)
			checkout.GET("/result", h.GetCheckoutResult)
		}

		session := apiV1.Group("/session")
		{
			session.GET("", h.GetSession)
			session.DELETE("", h.Logout)
			session.POST("/identity", h.SetIdentity)
			session.GET("/preferences", h.ListPreferences)
			session.GET("/preferences/:key", h.GetPreference)
			session.PUT("/preferences/:key", h.SetPreference)
			session.DELETE("/preferences/:key", h.DeletePreference)
			session.GET("/delivery-address", h.GetDeliveryAddress)
			session.PUT("/delivery-address", h.SetDeliveryAddress)
		}

		apiV1.GET("/orders", h.ListOrders)
		apiV1.GET("/products", h.ListProducts)
	}

	return r
}
