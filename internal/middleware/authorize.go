package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chimeralens/api/internal/models"
)

// RequireRoles gates a route on the stylist's role. Which operations need
// which role is routing policy, kept out of the services themselves.
func RequireRoles(roles ...models.StylistRole) gin.HandlerFunc {
	roleSet := make(map[models.StylistRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		stylistVal, exists := c.Get(ContextStylist)
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		stylist, ok := stylistVal.(models.Stylist)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid_stylist"})
			return
		}

		if _, ok := roleSet[stylist.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}
