package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const CtxRealIPKey = "real_ip"

// clientIPHeaders are consulted in order; the first parseable address wins.
var clientIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"}

// RealIP stores the client address under CtxRealIPKey for rate limiting and
// logging. For X-Forwarded-For the left-most entry is the client.
func RealIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ""
		for _, h := range clientIPHeaders {
			if ip = headerIP(c.GetHeader(h)); ip != "" {
				break
			}
		}
		if ip == "" {
			ip = c.ClientIP()
		}
		c.Set(CtxRealIPKey, ip)
		c.Next()
	}
}

func headerIP(v string) string {
	first, _, _ := strings.Cut(v, ",")
	if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
		return ip.String()
	}
	return ""
}

// ClientIP returns the address RealIP resolved, or "unknown".
func ClientIP(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}
