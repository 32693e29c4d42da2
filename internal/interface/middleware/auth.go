package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
)

const (
	CtxUserIDKey = "userID"
	CtxRoleKey   = "role"
	ctxTokenKey  = "access_token"
)

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*entity.User, error)
}

// BearerToken returns the token from the Authorization header, or "".
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Auth validates the bearer token and sets userID and role in the Gin context.
// Failures are pushed to ErrorHandler.
func Auth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			_ = c.Error(apperror.Auth("authentication required"))
			c.Abort()
			return
		}
		u, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Set(CtxUserIDKey, u.ID)
		c.Set(CtxRoleKey, string(u.Role))
		c.Set(ctxTokenKey, token)
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if entity.Role(c.GetString(CtxRoleKey)) != role {
			_ = c.Error(apperror.Authorization("insufficient permissions"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func UserID(c *gin.Context) string { return c.GetString(CtxUserIDKey) }

// AccessToken is the raw token accepted by Auth.
func AccessToken(c *gin.Context) string { return c.GetString(ctxTokenKey) }

func Actor(c *gin.Context) application.Actor {
	return application.Actor{UserID: UserID(c), Role: entity.Role(c.GetString(CtxRoleKey))}
}
