package router

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/config"
	"github.com/oksasatya/go-ddd-ecommerce/internal/application"
	"github.com/oksasatya/go-ddd-ecommerce/internal/container"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/internal/infrastructure/messaging"
	"github.com/oksasatya/go-ddd-ecommerce/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-ecommerce/internal/infrastructure/storage"
	handlers "github.com/oksasatya/go-ddd-ecommerce/internal/interface/http"
	"github.com/oksasatya/go-ddd-ecommerce/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-ecommerce/internal/router/modules"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/debounce"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/helpers"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/response"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/validation"
)

// Deps is everything the HTTP layer is built from. Redis, Indexer, Images and
// Notifier are optional and must be left nil when the integration is off.
type Deps struct {
	Cfg       *config.Config
	Logger    *logrus.Logger
	Redis     redis.UniversalClient
	Store     repo.Store
	Cache     repo.Cache
	JWT       *helpers.JWTManager
	Scheduler *debounce.Scheduler
	Indexer   application.ProductIndexer
	Images    application.ImageStorage
	Notifier  application.Notifier
}

// BuildDeps assembles Deps from the container singletons.
func BuildDeps() Deps {
	cfg := container.GetConfig()
	d := Deps{
		Cfg:       cfg,
		Logger:    container.GetLogger(),
		Redis:     container.GetRedis(),
		Store:     container.GetStore(),
		Cache:     container.GetCache(),
		JWT:       container.GetJWT(),
		Scheduler: container.GetScheduler(),
	}
	if es := container.GetES(); es != nil {
		d.Indexer = search.NewProductIndex(es, cfg.ESProductsIndex)
	}
	if gcs := container.GetGCS(); gcs != nil && cfg.GCSBucket != "" {
		d.Images = storage.NewGCSImages(gcs, cfg.GCSBucket)
	}
	if pub := container.GetRabbitPub(); pub != nil && cfg.MailSendEnabled {
		d.Notifier = messaging.NewEmailNotifier(pub)
	}
	return d
}

// Services are the application services behind the handlers.
type Services struct {
	Auth     *application.AuthService
	MFA      *application.MFAService
	Products *application.ProductService
	Carts    *application.CartService
	Orders   *application.OrderService
}

func NewServices(d Deps) *Services {
	cfg := d.Cfg
	mfa := application.NewMFAService(d.Store, d.Cache, cfg.MFAIssuer, d.Logger)
	carts := application.NewCartService(d.Store, d.Cache, application.CartConfig{
		CacheTTL:   cfg.CartCacheTTL,
		WriteMode:  cfg.CartWriteMode,
		FlushGrace: cfg.CartFlushGrace,
	}, d.Scheduler, d.Logger)
	products := application.NewProductService(d.Store, d.Cache, d.Indexer, d.Images, application.ProductConfig{
		CacheTTL:    cfg.ProductCacheTTL,
		CategoryTTL: cfg.CategoryCacheTTL,
		ChunkSize:   cfg.ProductChunkSize,
	}, d.Logger)
	return &Services{
		Auth:     application.NewAuthService(d.Store, d.Cache, d.JWT, mfa, d.Notifier, cfg.BlacklistTTL, d.Logger),
		MFA:      mfa,
		Products: products,
		Carts:    carts,
		Orders:   application.NewOrderService(d.Store, d.Cache, carts, d.Notifier, cfg.OrderCacheTTL, d.Logger),
	}
}

// InitModules initializes all application modules and registers them with the router registry
func InitModules(r *Registry, d Deps, s *Services) {
	auth := middleware.Auth(s.Auth)

	var debug Module
	if d.Cfg.DebugMetricsEnabled {
		debug = modules.NewDebugModule(d.Redis)
	}
	r.Add(
		modules.NewHealthModule(handlers.NewHealthHandler(d.Store, d.Cache)),
		modules.NewAuthModule(handlers.NewAuthHandler(s.Auth, d.Logger), auth, d.Redis, d.Cfg.LoginRateLimitMax),
		modules.NewMFAModule(handlers.NewMFAHandler(s.MFA), auth, d.Redis),
		modules.NewProductModule(handlers.NewProductHandler(s.Products), auth),
		modules.NewCartModule(handlers.NewCartHandler(s.Carts), auth),
		modules.NewOrderModule(handlers.NewOrderHandler(s.Orders), auth),
		debug,
	)
}

var validationOnce sync.Once

// NewEngine builds the gin engine with global middleware and every module.
func NewEngine(d Deps, s *Services) *gin.Engine {
	validationOnce.Do(validation.Init)
	cfg := d.Cfg

	r := gin.New()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(cors.New(corsConfig(cfg)))
	if cfg.HTTPLogEnabled || cfg.Env == config.EnvDevelopment {
		r.Use(gin.Logger())
	}
	r.Use(middleware.ErrorHandler(d.Logger, cfg.IsProduction()))

	r.NoRoute(func(c *gin.Context) {
		response.Abort(c, http.StatusNotFound, "route not found", nil, nil)
	})

	reg := NewRegistry(r)
	if cfg.RateLimitEnabled {
		reg.Use(middleware.RateLimit(d.Redis, cfg.RateLimitMax, cfg.RateLimitWindow, middleware.KeyByIP(), middleware.AllowPaths(APIPrefix+"/health")))
	}
	InitModules(reg, d, s)
	reg.RegisterAll()
	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader, "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}
	if origins := cfg.CORSOrigins(); len(origins) > 0 {
		c.AllowOrigins = origins
	} else {
		c.AllowAllOrigins = true
	}
	return c
}
