package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/quoting_backend/config"
	"github.com/mmdatafocus/quoting_backend/utils"
)

// SessionMiddleware resolves the opaque session token header against redis.
// It coexists with the JWT path: either header authenticates a request.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		businessId, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		ctx = utils.SetBusinessIdInContext(ctx, businessId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
