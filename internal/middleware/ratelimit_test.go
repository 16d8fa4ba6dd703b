package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"chimeralens/api/internal/security"
)

func performRateLimited(t *testing.T, cache *redis.Client, limit int, window time.Duration) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.POST("/limited",
		func(c *gin.Context) {
			c.Set(ContextClaims, security.AccessClaims{StylistID: 1})
		},
		RateLimit(cache, limit, window),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/limited", nil)
	router.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitDisabledWithoutCache(t *testing.T) {
	rec := performRateLimited(t, nil, 10, time.Minute)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitDisabledWithZeroLimit(t *testing.T) {
	cache := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	rec := performRateLimited(t, cache, 0, time.Minute)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitSubSecondWindowSkipsLimiter(t *testing.T) {
	// The cache address is unreachable on purpose; the guard must return
	// before any redis call or bucket arithmetic happens.
	cache := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	rec := performRateLimited(t, cache, 10, 500*time.Millisecond)
	assert.Equal(t, http.StatusOK, rec.Code)
}
