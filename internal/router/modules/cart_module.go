package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-ddd-ecommerce/internal/interface/http"
)

type CartModule struct {
	Handler *handlers.CartHandler
	Auth    gin.HandlerFunc
}

func NewCartModule(h *handlers.CartHandler, auth gin.HandlerFunc) *CartModule {
	return &CartModule{Handler: h, Auth: auth}
}

func (m *CartModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/cart", m.Auth)
	g.GET("", m.Handler.Get)
	g.POST("/add", m.Handler.Add)
	g.PUT("/update", m.Handler.Update)
	g.DELETE("/remove/:productId", m.Handler.Remove)
	g.DELETE("/clear", m.Handler.Clear)
}
