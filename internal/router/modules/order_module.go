package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	handlers "github.com/oksasatya/go-ddd-ecommerce/internal/interface/http"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
)

type OrderModule struct {
	Handler *handlers.OrderHandler
	Auth    gin.HandlerFunc
}

func NewOrderModule(h *handlers.OrderHandler, auth gin.HandlerFunc) *OrderModule {
	return &OrderModule{Handler: h, Auth: auth}
}

func (m *OrderModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/orders", m.Auth)
	g.POST("", m.Handler.Create)
	g.GET("", m.Handler.List)
	g.GET("/:id", m.Handler.Get)
	g.POST("/:id/cancel", m.Handler.Cancel)
	g.PUT("/:id/status", middleware.RequireRole(entity.RoleAdmin), m.Handler.UpdateStatus)
}
