package public

import (
	"github.com/anime-alley/storefront/internal/http/handlers/shared"
	"github.com/anime-alley/storefront/internal/http/response"
	"github.com/anime-alley/storefront/internal/models"
	"github.com/anime-alley/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// CartLineRequest identifies a cart line.
type CartLineRequest struct {
	ProductID       string  `json:"product_id" binding:"required"`
	SelectedVariant *string `json:"selected_variant"`
}

// AddCartItemRequest puts a product into the cart.
type AddCartItemRequest struct {
	ProductID       string                 `json:"product_id" binding:"required"`
	SelectedVariant *string                `json:"selected_variant"`
	Quantity        int                    `json:"quantity"`
	UnitPrice       models.Money           `json:"unit_price"`
	Product         models.ProductSnapshot `json:"product"`
}

// UpdateCartItemRequest sets a line's quantity.
type UpdateCartItemRequest struct {
	ProductID       string  `json:"product_id" binding:"required"`
	SelectedVariant *string `json:"selected_variant"`
	Quantity        int     `json:"quantity"`
}

// GetCart returns the cart snapshot.
func (h *Handler) GetCart(c *gin.Context) {
	response.Success(c, h.CartService.Snapshot())
}

// LoadCart populates the cart from the gateway once per session; ?refresh=1 forces a reload.
func (h *Handler) LoadCart(c *gin.Context) {
	var err error
	if c.Query("refresh") == "1" || c.Query("refresh") == "true" {
		err = h.CartService.Refresh(c.Request.Context())
	} else {
		err = h.CartService.LoadFromServer(c.Request.Context())
	}
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CartService.Snapshot())
}

// AddCartItem reserves stock and adds or merges the line.
func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	line, err := h.CartService.AddLine(c.Request.Context(), service.AddLineInput{
		ProductID: req.ProductID,
		Variant:   req.SelectedVariant,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Product:   req.Product,
	})
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"line": line, "cart": h.CartService.Snapshot()})
}

// UpdateCartItem sets a line to an explicit quantity.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	line, err := h.CartService.UpdateLineQuantity(c.Request.Context(), req.ProductID, req.SelectedVariant, req.Quantity)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"line": line, "cart": h.CartService.Snapshot()})
}

// IncrementCartItem adds one unit to a line.
func (h *Handler) IncrementCartItem(c *gin.Context) {
	var req CartLineRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	line, err := h.CartService.Increment(c.Request.Context(), req.ProductID, req.SelectedVariant)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"line": line, "cart": h.CartService.Snapshot()})
}

// DecrementCartItem removes one unit from a line; at one it removes the line.
func (h *Handler) DecrementCartItem(c *gin.Context) {
	var req CartLineRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	line, err := h.CartService.Decrement(c.Request.Context(), req.ProductID, req.SelectedVariant)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"line": line, "cart": h.CartService.Snapshot()})
}

// RemoveCartItem deletes a line.
func (h *Handler) RemoveCartItem(c *gin.Context) {
	var req CartLineRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	if err := h.CartService.RemoveLine(c.Request.Context(), req.ProductID, req.SelectedVariant); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CartService.Snapshot())
}

// ClearCart empties the cart on the gateway and locally.
func (h *Handler) ClearCart(c *gin.Context) {
	if err := h.CartService.Clear(c.Request.Context()); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, h.CartService.Snapshot())
}
