package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/oksasatya/go-ddd-ecommerce/internal/interface/http"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
)

type MFAModule struct {
	Handler *handlers.MFAHandler
	Auth    gin.HandlerFunc
	RDB     redis.UniversalClient
}

func NewMFAModule(h *handlers.MFAHandler, auth gin.HandlerFunc, rdb redis.UniversalClient) *MFAModule {
	return &MFAModule{Handler: h, Auth: auth, RDB: rdb}
}

func (m *MFAModule) Register(rg *gin.RouterGroup) {
	// token guessing is bounded per user
	verifyLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByUserID(), nil)

	g := rg.Group("/mfa", m.Auth)
	g.POST("/enable", m.Handler.Enable)
	g.POST("/verify-and-enable", verifyLimiter, m.Handler.VerifyAndEnable)
	g.POST("/disable", verifyLimiter, m.Handler.Disable)
	g.POST("/verify", verifyLimiter, m.Handler.Verify)
}
