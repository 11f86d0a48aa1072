package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/craftfolio/mailroom/pkg/helpers"
	"github.com/craftfolio/mailroom/pkg/response"
)

// ServiceAuth validates the Bearer token internal callers present. On
// success it sets the calling service's name in the Gin context.
func ServiceAuth(tokens *helpers.ServiceTokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			resp := response.Error[any](c, http.StatusUnauthorized, "missing service token", nil)
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		claims, err := tokens.Parse(token)
		if err != nil {
			resp := response.Error[any](c, http.StatusUnauthorized, "invalid service token", err.Error())
			c.AbortWithStatusJSON(resp.Status, resp)
			return
		}
		c.Set("service", claims.Service)
		c.Next()
	}
}
