package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-ecommerce/internal/interface/http"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
)

const loginWindow = 15 * time.Minute

// AuthModule wires the account endpoints.
// Public: POST /api/auth/register, /api/auth/login, /api/auth/refresh-token
// Protected: POST /api/auth/logout
type AuthModule struct {
	Handler  *handlers.AuthHandler
	Auth     gin.HandlerFunc
	RDB      redis.UniversalClient
	LoginMax int
}

func NewAuthModule(h *handlers.AuthHandler, auth gin.HandlerFunc, rdb redis.UniversalClient, loginMax int) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, RDB: rdb, LoginMax: loginMax}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	loginLimiter := middleware.RateLimit(m.RDB, m.LoginMax, loginWindow, middleware.KeyByIPAndPath(), nil)

	g := rg.Group("/auth")
	g.POST("/register", m.Handler.Register)
	g.POST("/login", loginLimiter, m.Handler.Login)
	g.POST("/refresh-token", m.Handler.Refresh)
	g.POST("/logout", m.Auth, m.Handler.Logout)
}
