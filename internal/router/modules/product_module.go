package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	handlers "github.com/oksasatya/go-ddd-ecommerce/internal/interface/http"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
)

// ProductModule serves the public catalog and the admin product endpoints.
type ProductModule struct {
	Handler *handlers.ProductHandler
	Auth    gin.HandlerFunc
}

func NewProductModule(h *handlers.ProductHandler, auth gin.HandlerFunc) *ProductModule {
	return &ProductModule{Handler: h, Auth: auth}
}

func (m *ProductModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/products")
	g.GET("", m.Handler.List)
	g.GET("/categories", m.Handler.Categories)
	g.GET("/featured", m.Handler.Featured)
	g.GET("/search", m.Handler.Search)
	g.POST("/info", m.Handler.Info)
	g.GET("/:id", m.Handler.Get)

	admin := g.Group("", m.Auth, middleware.RequireRole(entity.RoleAdmin))
	{
		admin.POST("", m.Handler.Create)
		admin.POST("/bulk", m.Handler.BulkCreate)
		admin.PUT("/:id", m.Handler.Update)
		admin.DELETE("/:id", m.Handler.Delete)
		admin.POST("/:id/images", m.Handler.UploadImage)
	}
}
