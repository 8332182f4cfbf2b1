package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRecoveryReturnsErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID(), Recovery())
	router.GET("/boom", func(c *gin.Context) { panic("nil section") })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "internal_error" {
		t.Fatalf("unexpected code %q", body.Error.Code)
	}
	if resp.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRecoveryKeepsPartialResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery())
	router.GET("/partial", func(c *gin.Context) {
		c.String(http.StatusOK, "PK")
		panic("writer died")
	})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/partial", nil))

	if resp.Code != http.StatusOK || resp.Body.String() != "PK" {
		t.Fatalf("expected untouched partial body, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestRequestIDReusesOrReplacesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		c.String(http.StatusOK, RequestIDFromContext(c))
	})

	cases := []struct {
		in   string
		kept bool
	}{
		{"abc-123", true},
		{"has space", false},
		{"line\r\nbreak", false},
		{strings.Repeat("a", 200), false},
	}
	for _, tc := range cases {
		in, kept := tc.in, tc.kept
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header["X-Request-Id"] = []string{in}
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)

		got := resp.Body.String()
		if kept && got != in {
			t.Fatalf("expected %q to be kept, got %q", in, got)
		}
		if !kept && (got == in || got == "") {
			t.Fatalf("expected %q to be replaced, got %q", in, got)
		}
		if resp.Header().Get("X-Request-Id") != got {
			t.Fatalf("header and context disagree")
		}
	}
}
