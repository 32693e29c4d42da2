package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// AllowPaths bypasses the limiter for requests whose path starts with one of prefixes.
func AllowPaths(prefixes ...string) AllowFunc {
	return func(c *gin.Context) bool {
		p := c.Request.URL.Path
		for _, pre := range prefixes {
			if strings.HasPrefix(p, pre) {
				return true
			}
		}
		return false
	}
}
