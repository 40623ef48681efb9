package public

import (
	"strings"

	"github.com/anime-alley/storefront/internal/http/handlers/shared"
	"github.com/anime-alley/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// SetIdentityRequest carries the bearer token issued by the gateway.
type SetIdentityRequest struct {
	Token string `json:"token"`
}

// SetPreferenceRequest writes one preference.
type SetPreferenceRequest struct {
	Value string `json:"value"`
}

// DeliveryAddressRequest caches the delivery address.
type DeliveryAddressRequest struct {
	Address string `json:"address"`
}

// SetIdentity signs a shopper in. The Authorization header is used when the body has no token.
func (h *Handler) SetIdentity(c *gin.Context) {
	var req SetIdentityRequest
	if c.Request.ContentLength > 0 && !shared.BindJSON(c, &req) {
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = strings.TrimSpace(c.GetHeader("Authorization"))
	}
	identity, switched, err := h.SessionService.SetIdentity(c.Request.Context(), token)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"identity": identity, "switched": switched})
}

// GetSession returns the signed-in shopper, if any.
func (h *Handler) GetSession(c *gin.Context) {
	identity, ok := h.SessionService.Current()
	if !ok {
		response.Success(c, gin.H{"signed_in": false})
		return
	}
	response.Success(c, gin.H{"signed_in": true, "identity": identity})
}

// Logout drops the token and resets cart and coupon.
func (h *Handler) Logout(c *gin.Context) {
	h.SessionService.Logout(c.Request.Context())
	response.Success(c, gin.H{"signed_in": false})
}

// ListPreferences returns every stored preference.
func (h *Handler) ListPreferences(c *gin.Context) {
	prefs, err := h.SessionService.Preferences(c.Request.Context())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, prefs)
}

// GetPreference returns one preference.
func (h *Handler) GetPreference(c *gin.Context) {
	key := c.Param("key")
	value, ok, err := h.SessionService.Preference(c.Request.Context(), key)
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	if !ok {
		response.NotFound(c, "preference not found")
		return
	}
	response.Success(c, gin.H{"key": key, "value": value})
}

// SetPreference writes one preference.
func (h *Handler) SetPreference(c *gin.Context) {
	var req SetPreferenceRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	key := c.Param("key")
	if err := h.SessionService.SetPreference(c.Request.Context(), key, req.Value); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"key": key, "value": req.Value})
}

// DeletePreference removes one preference.
func (h *Handler) DeletePreference(c *gin.Context) {
	if err := h.SessionService.DeletePreference(c.Request.Context(), c.Param("key")); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetDeliveryAddress returns the cached delivery address.
func (h *Handler) GetDeliveryAddress(c *gin.Context) {
	address, err := h.SessionService.DeliveryAddress(c.Request.Context())
	if err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"address": address})
}

// SetDeliveryAddress caches the delivery address.
func (h *Handler) SetDeliveryAddress(c *gin.Context) {
	var req DeliveryAddressRequest
	if !shared.BindJSON(c, &req) {
		return
	}
	if err := h.SessionService.SetDeliveryAddress(c.Request.Context(), req.Address); err != nil {
		shared.RespondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"address": strings.TrimSpace(req.Address)})
}
