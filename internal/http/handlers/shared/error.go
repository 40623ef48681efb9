package shared

import (
	"errors"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/http/response"
	"github.com/anime-alley/storefront/internal/logger"
	"github.com/anime-alley/storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog returns a logger carrying the request id.
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondErrorWithMsg replies with msg and logs err when present.
func RespondErrorWithMsg(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Fail(c, appErr, nil)
}

// RespondServiceError maps a core error to its response code and tells the
// presentational layer the error kind.
func RespondServiceError(c *gin.Context, err error) {
	appErr := response.KindError(CodeForServiceError(err), string(service.KindOf(err)), service.MessageOf(err), err)
	var extra gin.H
	if errors.Is(err, service.ErrRequestInFlight) {
		extra = gin.H{"busy": true}
	}
	if appErr.Code >= response.CodeInternal {
		RequestLog(c).Errorw("handler_error", "code", appErr.Code, "message", appErr.Message, "error", err)
	} else {
		RequestLog(c).Infow("handler_rejected", "code", appErr.Code, "message", appErr.Message, "kind", appErr.Kind)
	}
	response.Fail(c, appErr, extra)
}

// CodeForServiceError picks the response code for err.
func CodeForServiceError(err error) int {
	switch {
	case errors.Is(err, service.ErrRequestInFlight):
		return response.CodeConflict
	case errors.Is(err, service.ErrValidation):
		return response.CodeBadRequest
	case errors.Is(err, service.ErrOutOfStock):
		return response.CodeOutOfStock
	case errors.Is(err, service.ErrConcurrentModification):
		return response.CodeConflict
	case errors.Is(err, gateway.ErrUnauthorized):
		return response.CodeUnauthorized
	case errors.Is(err, gateway.ErrRequestFailed), errors.Is(err, gateway.ErrResponseInvalid):
		return response.CodeBadGateway
	default:
		return response.CodeInternal
	}
}
