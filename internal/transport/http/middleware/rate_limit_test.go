package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	redisrepo "github.com/sashasoft90/c3po/internal/repository/redis"
)

func newRateLimitedRouter(t *testing.T, limit int, window time.Duration) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client := red.NewClient(&red.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})

	limiter := NewRateLimiter(redisrepo.NewRateLimitRepository(client), zap.NewNop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(EnrichContext())
	router.POST("/login", limiter.RateLimit(RateLimitRule{
		Name:   "login",
		Limit:  limit,
		Window: window,
		Identifier: func(c *gin.Context) (string, bool) {
			return "203.0.113.7", true
		},
	}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	return router, server
}

func performRequest(router *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitAllowsUpToLimit(t *testing.T) {
	router, _ := newRateLimitedRouter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		w := performRequest(router)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := performRequest(router)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on rejection")
	}
}

func TestRateLimitSetsHeaders(t *testing.T) {
	router, _ := newRateLimitedRouter(t, 5, time.Minute)

	w := performRequest(router)
	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Fatalf("expected limit header 5, got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Fatalf("expected remaining header 4, got %q", got)
	}
	if w.Header().Get("X-RateLimit-Reset") == "" {
		t.Fatalf("expected reset header")
	}
}

func TestRateLimitFailsOpenWhenStoreDown(t *testing.T) {
	router, server := newRateLimitedRouter(t, 1, time.Minute)

	server.Close()

	w := performRequest(router)
	if w.Code != http.StatusOK {
		t.Fatalf("expected request to pass when store is unavailable, got %d", w.Code)
	}
}
