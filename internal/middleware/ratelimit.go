package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"chimeralens/api/internal/security"
)

// RateLimit is a fixed-window limiter backed by redis, keyed per stylist.
// Generation requests hold a provider job for up to a minute, so the
// window protects both the provider quota and the worker pool.
func RateLimit(cache *redis.Client, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Window resolution is one second; anything finer would divide by
		// zero when bucketing.
		if cache == nil || limit <= 0 || window < time.Second {
			c.Next()
			return
		}

		claimsVal, exists := c.Get(ContextClaims)
		if !exists {
			c.Next()
			return
		}
		claims, ok := claimsVal.(security.AccessClaims)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:gen:%d:%d", claims.StylistID, time.Now().Unix()/int64(window.Seconds()))

		count, err := cache.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Limiter outage must not take the API down with it.
			c.Next()
			return
		}
		if count == 1 {
			cache.Expire(c.Request.Context(), key, window)
		}

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}

		c.Next()
	}
}
