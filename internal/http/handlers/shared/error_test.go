package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anime-alley/storefront/internal/gateway"
	"github.com/anime-alley/storefront/internal/http/response"
	"github.com/anime-alley/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

func TestCodeForServiceError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrRequestInFlight, response.CodeConflict},
		{fmt.Errorf("x: %w", service.ErrValidation), response.CodeBadRequest},
		{service.ErrOutOfStock, response.CodeOutOfStock},
		{service.ErrConcurrentModification, response.CodeConflict},
		{fmt.Errorf("%w: %w", service.ErrGeneral, gateway.ErrUnauthorized), response.CodeUnauthorized},
		{fmt.Errorf("%w: %w", service.ErrGeneral, gateway.ErrRequestFailed), response.CodeBadGateway},
		{errors.New("boom"), response.CodeInternal},
	}
	for _, tc := range cases {
		if got := CodeForServiceError(tc.err); got != tc.want {
			t.Fatalf("CodeForServiceError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestRespondServiceErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set("request_id", "req-1")

	RespondServiceError(c, service.ErrOutOfStock)

	if w.Code != http.StatusOK {
		t.Fatalf("business errors keep HTTP 200, got %d", w.Code)
	}
	var body struct {
		StatusCode int                    `json:"status_code"`
		Msg        string                 `json:"msg"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != response.CodeOutOfStock || body.Msg != "out of stock" {
		t.Fatalf("unexpected envelope: %+v", body)
	}
	if body.Data["kind"] != "OUT_OF_STOCK" || body.Data["request_id"] != "req-1" {
		t.Fatalf("unexpected data: %+v", body.Data)
	}
}

func TestNormalizePagination(t *testing.T) {
	page, size := NormalizePagination(0, 500)
	if page != 1 || size != 100 {
		t.Fatalf("unexpected pagination: %d %d", page, size)
	}
}

func TestCatalogPage(t *testing.T) {
	cases := []struct {
		page, size, total int
		wantPages        int64
	}{
		{1, 20, 41, 3},
		{2, 20, 40, 2},
		{1, 20, 0, 0},
		{1, 0, 7, 0},
		{1, 10, -3, 0},
	}
	for _, tc := range cases {
		p := CatalogPage(tc.page, tc.size, tc.total)
		if p.TotalPage != tc.wantPages || p.Page != tc.page || p.PageSize != tc.size {
			t.Fatalf("CatalogPage(%d, %d, %d) = %+v, want %d pages", tc.page, tc.size, tc.total, p, tc.wantPages)
		}
	}
}

func TestRespondServiceErrorMarksBusy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	RespondServiceError(c, service.ErrRequestInFlight)

	var body struct {
		StatusCode int                    `json:"status_code"`
		Data       map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if body.StatusCode != response.CodeConflict || body.Data["busy"] != true || body.Data["kind"] == nil {
		t.Fatalf("unexpected envelope: %+v", body)
	}
}
