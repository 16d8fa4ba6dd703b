package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chimeralens/api/internal/config"
	"chimeralens/api/internal/repository"
	"chimeralens/api/internal/security"
)

const (
	ContextStylist = "current_stylist"
	ContextClaims  = "access_claims"
)

// Auth validates the bearer token, checks the backing session and loads the
// stylist. Handlers downstream read the salon scope from the claims, never
// from request parameters.
func Auth(cfg *config.AppConfig, stylists *repository.StylistRepository, sessions *repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTAccessSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_token"})
			return
		}

		session, err := sessions.GetByID(c.Request.Context(), claims.SessionID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_not_found"})
			return
		}

		if session.StylistID != claims.StylistID || session.DeviceID != claims.DeviceID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session_mismatch"})
			return
		}

		stylist, err := stylists.GetByID(c.Request.Context(), claims.StylistID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "stylist_not_found"})
			return
		}

		if stylist.SalonID != claims.SalonID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "salon_mismatch"})
			return
		}

		_ = sessions.Touch(c.Request.Context(), session.ID, c.ClientIP(), c.GetHeader("User-Agent"))

		c.Set(ContextClaims, *claims)
		c.Set(ContextStylist, stylist)

		c.Next()
	}
}
