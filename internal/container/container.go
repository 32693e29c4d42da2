package container

import (
	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/config"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/debounce"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/helpers"
)

// app-level container to share constructed components across packages.
// The router builds its dependencies from these singletons.
// Optional integrations stay nil when not configured.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	pgPool      *pgxpool.Pool
	redisClient redis.UniversalClient
	gcsClient   *storage.Client

	store     repo.Store
	cache     repo.Cache
	scheduler *debounce.Scheduler

	jwtManager *helpers.JWTManager

	rabbitPub *helpers.RabbitPublisher
	esClient  *elasticsearch.Client
)

func SetConfig(c *config.Config)       { cfg = c }
func GetConfig() *config.Config        { return cfg }
func SetLogger(l *logrus.Logger)       { logger = l }
func GetLogger() *logrus.Logger        { return logger }
func SetPGPool(p *pgxpool.Pool)        { pgPool = p }
func GetPGPool() *pgxpool.Pool         { return pgPool }
func SetRedis(r redis.UniversalClient) { redisClient = r }
func GetRedis() redis.UniversalClient  { return redisClient }
func SetGCS(s *storage.Client)         { gcsClient = s }
func GetGCS() *storage.Client          { return gcsClient }
func SetStore(s repo.Store)            { store = s }
func GetStore() repo.Store             { return store }
func SetCache(c repo.Cache)            { cache = c }
func GetCache() repo.Cache             { return cache }
func SetJWT(m *helpers.JWTManager)     { jwtManager = m }
func GetJWT() *helpers.JWTManager      { return jwtManager }

func SetES(c *elasticsearch.Client)           { esClient = c }
func GetES() *elasticsearch.Client            { return esClient }
func SetRabbitPub(p *helpers.RabbitPublisher) { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher  { return rabbitPub }

// GetScheduler returns the shared write-back scheduler, creating it on first use.
func GetScheduler() *debounce.Scheduler {
	if scheduler == nil {
		scheduler = debounce.New()
	}
	return scheduler
}
