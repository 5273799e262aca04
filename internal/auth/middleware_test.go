package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newEngine(apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(apiKey))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r *gin.Engine, header, value string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestOpenWhenNoKeyConfigured(t *testing.T) {
	if code := do(newEngine(""), "", ""); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestBearerAccepted(t *testing.T) {
	if code := do(newEngine("secret"), "Authorization", "Bearer secret"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestAPIKeyHeaderAccepted(t *testing.T) {
	if code := do(newEngine("secret"), "X-Api-Key", "secret"); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestWrongKeyRejected(t *testing.T) {
	if code := do(newEngine("secret"), "X-Api-Key", "nope"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	if code := do(newEngine("secret"), "", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", code)
	}
}
