package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestNewRouterRecoversWithEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zap.NewNop(), Options{Name: "test"})
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, `"success":false`) || strings.Contains(body, "boom") {
		t.Errorf("body = %s", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"NOT_FOUND"`) {
		t.Errorf("no route: %d %s", w.Code, w.Body.String())
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(zap.NewNop(), Options{CORSOrigins: []string{"https://wylm.example"}})
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://wylm.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://wylm.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign origin status = %d", w.Code)
	}
}

func TestAddr(t *testing.T) {
	if got := Addr("", 8080); got != ":8080" {
		t.Errorf("Addr = %q", got)
	}
	if got := BaseURL("0.0.0.0", 8081); got != "http://127.0.0.1:8081" {
		t.Errorf("BaseURL = %q", got)
	}
}
