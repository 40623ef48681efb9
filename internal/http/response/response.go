package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every local API reply.
type Response struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
}

// PageResponse adds pagination to Response.
type PageResponse struct {
	StatusCode int         `json:"status_code"`
	Msg        string      `json:"msg"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination describes a page of results.
type Pagination struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int64 `json:"total_page"`
}

// Success replies with code 0.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: 0,
		Msg:        "success",
		Data:       data,
	})
}

// SuccessWithPage replies with a page of results.
func SuccessWithPage(c *gin.Context, data interface{}, pagination Pagination) {
	c.JSON(http.StatusOK, PageResponse{
		StatusCode: 0,
		Msg:        "success",
		Data:       data,
		Pagination: pagination,
	})
}

// Error replies with a business error code. The HTTP status stays 200.
func Error(c *gin.Context, statusCode int, msg string) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       attachRequestID(c, nil),
	})
}

// ErrorWithData is Error with a payload.
func ErrorWithData(c *gin.Context, statusCode int, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		StatusCode: statusCode,
		Msg:        msg,
		Data:       attachRequestID(c, data),
	})
}

// NotFound replies with CodeNotFound.
func NotFound(c *gin.Context, msg string) {
	Error(c, CodeNotFound, msg)
}

// Fail replies with appErr. A non-empty Kind is surfaced as data.kind so the
// storefront can pick its treatment; extra keys are merged alongside it.
func Fail(c *gin.Context, appErr *AppError, extra gin.H) {
	if appErr == nil {
		appErr = WrapError(CodeInternal, "internal error", nil)
	}
	var data interface{}
	if appErr.Kind != "" || len(extra) > 0 {
		payload := gin.H{}
		for k, v := range extra {
			payload[k] = v
		}
		if appErr.Kind != "" {
			payload["kind"] = appErr.Kind
		}
		data = payload
	}
	c.JSON(http.StatusOK, Response{
		StatusCode: appErr.Code,
		Msg:        appErr.Message,
		Data:       attachRequestID(c, data),
	})
}

func attachRequestID(c *gin.Context, data interface{}) interface{} {
	requestID := ""
	if c != nil {
		if value, ok := c.Get("request_id"); ok {
			if id, ok := value.(string); ok {
				requestID = id
			}
		}
	}
	if requestID == "" {
		return data
	}
	if data == nil {
		return gin.H{"request_id": requestID}
	}
	switch v := data.(type) {
	case gin.H:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = requestID
		}
		return v
	case map[string]interface{}:
		if _, ok := v["request_id"]; !ok {
			v["request_id"] = requestID
		}
		return v
	default:
		return gin.H{
			"request_id": requestID,
			"data":       data,
		}
	}
}
