package shared

import (
	"github.com/anime-alley/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// BindJSON decodes the body into dst and replies with CodeBadRequest on failure.
func BindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondErrorWithMsg(c, response.CodeBadRequest, "invalid request body", nil)
		RequestLog(c).Debugw("request_bind_failed", "error", err)
		return false
	}
	return true
}

// BindQuery decodes query parameters into dst and replies with CodeBadRequest on failure.
func BindQuery(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		RespondErrorWithMsg(c, response.CodeBadRequest, "invalid query parameters", nil)
		RequestLog(c).Debugw("request_bind_failed", "error", err)
		return false
	}
	return true
}
