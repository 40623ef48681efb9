package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anime-alley/storefront/internal/cache"
	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/logger"

	"github.com/shopspring/decimal"
)

// Filter preference keys.
const (
	KeyFilterCategory = "filter.category"
	KeyFilterSort     = "filter.sort"
	KeyFilterMinPrice = "filter.min_price"
	KeyFilterMaxPrice = "filter.max_price"
)

const (
	productListCacheTTL = 30 * time.Second
	defaultPageLimit    = 20
	maxPageLimit        = 100
)

var allowedSorts = map[string]struct{}{
	"":           {},
	"newest":     {},
	"price_asc":  {},
	"price_desc": {},
	"bestseller": {},
}

// CatalogGateway browses products.
type CatalogGateway interface {
	ListProducts(ctx context.Context, filter gateway.ProductFilter) (*gateway.ProductsResult, error)
}

// PreferenceStore is the part of the session store used for filter preferences.
type PreferenceStore interface {
	Preference(ctx context.Context, key string) (string, bool, error)
	SetPreference(ctx context.Context, key, value string) error
	DeletePreference(ctx context.Context, key string) error
}

// ProductService lists the catalog and remembers the shopper's last filters.
type ProductService struct {
	gateway CatalogGateway
	prefs   PreferenceStore
}

// NewProductService creates the catalog service.
func NewProductService(gw CatalogGateway, prefs PreferenceStore) *ProductService {
	return &ProductService{gateway: gw, prefs: prefs}
}

// ListProducts queries the catalog. When useSaved is set, empty filter fields are filled
// from the saved preferences; the effective filter is saved back afterwards.
func (s *ProductService) ListProducts(ctx context.Context, filter gateway.ProductFilter, useSaved bool) (*gateway.ProductsResult, gateway.ProductFilter, error) {
	if useSaved {
		filter = s.mergeSaved(ctx, filter)
	}
	filter, err := normalizeFilter(filter)
	if err != nil {
		return nil, filter, err
	}

	cacheKey := productCacheKey(filter)
	var cached gateway.ProductsResult
	if hit, err := cache.GetJSON(ctx, cacheKey, &cached); err != nil {
		logger.Warnw("product_cache_get_failed", "key", cacheKey, "error", err)
	} else if hit {
		s.saveFilter(ctx, filter)
		return &cached, filter, nil
	}

	result, err := s.gateway.ListProducts(ctx, filter)
	if err != nil {
		logger.Warnw("product_list_failed", "error", err)
		return nil, filter, gatewayError(err)
	}
	if !result.Success {
		return nil, filter, generalError(result.Message, nil)
	}
	if err := cache.SetJSON(ctx, cacheKey, result, productListCacheTTL); err != nil {
		logger.Warnw("product_cache_set_failed", "key", cacheKey, "error", err)
	}
	s.saveFilter(ctx, filter)
	return result, filter, nil
}

// SavedFilter returns the remembered filter.
func (s *ProductService) SavedFilter(ctx context.Context) gateway.ProductFilter {
	return s.mergeSaved(ctx, gateway.ProductFilter{})
}

func (s *ProductService) mergeSaved(ctx context.Context, filter gateway.ProductFilter) gateway.ProductFilter {
	fill := func(dst *string, key string) {
		if strings.TrimSpace(*dst) != "" {
			return
		}
		value, ok, err := s.prefs.Preference(ctx, key)
		if err != nil {
			logger.Warnw("filter_preference_read_failed", "key", key, "error", err)
			return
		}
		if ok {
			*dst = value
		}
	}
	fill(&filter.Category, KeyFilterCategory)
	fill(&filter.Sort, KeyFilterSort)
	fill(&filter.MinPrice, KeyFilterMinPrice)
	fill(&filter.MaxPrice, KeyFilterMaxPrice)
	return filter
}

func (s *ProductService) saveFilter(ctx context.Context, filter gateway.ProductFilter) {
	save := func(key, value string) {
		var err error
		if value == "" {
			err = s.prefs.DeletePreference(ctx, key)
		} else {
			err = s.prefs.SetPreference(ctx, key, value)
		}
		if err != nil {
			logger.Warnw("filter_preference_write_failed", "key", key, "error", err)
		}
	}
	save(KeyFilterCategory, filter.Category)
	save(KeyFilterSort, filter.Sort)
	save(KeyFilterMinPrice, filter.MinPrice)
	save(KeyFilterMaxPrice, filter.MaxPrice)
}

func normalizeFilter(filter gateway.ProductFilter) (gateway.ProductFilter, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Sort = strings.ToLower(strings.TrimSpace(filter.Sort))
	if _, ok := allowedSorts[filter.Sort]; !ok {
		return filter, validationError("unsupported sort order")
	}

	var minPrice, maxPrice *decimal.Decimal
	for _, bound := range []struct {
		raw *string
		out **decimal.Decimal
	}{{&filter.MinPrice, &minPrice}, {&filter.MaxPrice, &maxPrice}} {
		trimmed := strings.TrimSpace(*bound.raw)
		*bound.raw = trimmed
		if trimmed == "" {
			continue
		}
		parsed, err := decimal.NewFromString(trimmed)
		if err != nil || parsed.IsNegative() {
			return filter, validationError("price range is invalid")
		}
		*bound.out = &parsed
	}
	if minPrice != nil && maxPrice != nil && minPrice.GreaterThan(*maxPrice) {
		return filter, validationError("minimum price is above maximum price")
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultPageLimit
	}
	if filter.Limit > maxPageLimit {
		filter.Limit = maxPageLimit
	}
	return filter, nil
}

func productCacheKey(filter gateway.ProductFilter) string {
	return fmt.Sprintf("products:%s:%s:%s:%s:%s:%d:%d",
		filter.Category, filter.Sort, filter.MinPrice, filter.MaxPrice, filter.Search, filter.Page, filter.Limit)
}
