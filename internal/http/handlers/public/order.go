package public

import (
	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/http/handlers/shared"
	"github.com/anime-alley/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ProductListQuery is the catalog filter.
type ProductListQuery struct {
	Category string `form:"category"`
	Sort     string `form:"sort"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Saved    string `form:"saved"`
}

// ListOrders returns the signed-in shopper's order history.
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.OrderService.ListOrders(c.Request.Context())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, orders)
}

// ListProducts browses the catalog. Empty filter fields fall back to saved preferences unless saved=0.
func (h *Handler) ListProducts(c *gin.Context) {
	var query ProductListQuery
	if !shared.BindQuery(c, &query) {
		return
	}
	page, pageSize := shared.NormalizePagination(query.Page, query.PageSize)
	useSaved := query.Saved != "0" && query.Saved != "false"

	result, applied, err := h.ProductService.ListProducts(c.Request.Context(), gateway.ProductFilter{
		Category: query.Category,
		Sort:     query.Sort,
		MinPrice: query.MinPrice,
		MaxPrice: query.MaxPrice,
		Search:   query.Search,
		Page:     page,
		Limit:    pageSize,
	}, useSaved)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}

	response.SuccessWithPage(c, gin.H{
		"products": result.Products,
		"filter":   applied,
	}, shared.CatalogPage(applied.Page, applied.Limit, result.Total))
}
