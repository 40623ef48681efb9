package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (int, string, map[string]interface{}) {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("business replies keep HTTP 200, got %d", w.Code)
	}
	var body struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	return body.StatusCode, body.Msg, body.Data
}

func newContext(requestID string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/cart/items", nil)
	if requestID != "" {
		c.Set("request_id", requestID)
	}
	return c, w
}

func TestFailCarriesKindAndExtra(t *testing.T) {
	c, w := newContext("req-7")

	Fail(c, KindError(CodeConflict, "CONCURRENT_MODIFICATION", "request in flight", nil), gin.H{"busy": true})

	code, msg, data := decodeEnvelope(t, w)
	if code != CodeConflict || msg != "request in flight" {
		t.Fatalf("unexpected envelope: %d %q", code, msg)
	}
	if data["kind"] != "CONCURRENT_MODIFICATION" || data["busy"] != true || data["request_id"] != "req-7" {
		t.Fatalf("unexpected data: %+v", data)
	}
}

func TestFailWithoutKindHasNoKindKey(t *testing.T) {
	c, w := newContext("")

	Fail(c, WrapError(CodeBadRequest, "invalid body", errors.New("eof")), nil)

	code, msg, data := decodeEnvelope(t, w)
	if code != CodeBadRequest || msg != "invalid body" {
		t.Fatalf("unexpected envelope: %d %q", code, msg)
	}
	if data != nil {
		t.Fatalf("expected null data, got %+v", data)
	}
}

func TestKindErrorText(t *testing.T) {
	cause := errors.New("gateway said no")
	err := KindError(CodeOutOfStock, "OUT_OF_STOCK", "out of stock", cause)
	if err.Error() != "OUT_OF_STOCK: out of stock: gateway said no" {
		t.Fatalf("unexpected text: %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause should unwrap")
	}
}
