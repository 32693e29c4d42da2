package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-ecommerce/config"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	pginfra "github.com/oksasatya/go-ddd-ecommerce/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-ecommerce/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/helpers"
)

type sample struct {
	sku, name, desc, price, category string
	stock                            int
}

var samples = []sample{
	{"BK-001", "The Go Programming Language", "Donovan and Kernighan", "39.99", "books", 120},
	{"BK-002", "Designing Data-Intensive Applications", "Martin Kleppmann", "44.50", "books", 80},
	{"EL-001", "Mechanical Keyboard", "Tenkeyless, brown switches", "89.00", "electronics", 35},
	{"EL-002", "USB-C Hub", "7-in-1 with HDMI", "29.90", "electronics", 200},
	{"HM-001", "Pour-over Coffee Set", "Dripper, filters and carafe", "34.00", "home", 15},
	{"HM-002", "Desk Lamp", "Dimmable LED", "24.75", "home", 8},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:     cfg.DBMaxConns,
		MinConns:     cfg.DBMinConns,
		MaxConnLife:  cfg.DBMaxConnLife,
		PingAttempts: cfg.DBPingAttempts,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := pginfra.NewStore(pool)

	email := getenv("SEED_ADMIN_EMAIL", "admin@example.com")
	password := getenv("SEED_ADMIN_PASSWORD", "password123")

	admin, err := store.Users().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		hash, herr := helpers.HashPassword(password)
		if herr != nil {
			log.Fatalf("failed to hash password: %v", herr)
		}
		admin = &entity.User{
			Email:        email,
			PasswordHash: hash,
			FirstName:    "Store",
			LastName:     "Admin",
			Role:         entity.RoleAdmin,
			IsActive:     true,
			LastActive:   time.Now().UTC(),
		}
		if err := store.Users().Create(ctx, admin); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
		logger.WithField("email", email).Info("seeded admin user")
	case err != nil:
		log.Fatalf("failed to look up admin: %v", err)
	default:
		logger.WithField("email", email).Info("admin user already present")
	}

	products := make([]*entity.Product, 0, len(samples))
	for _, s := range samples {
		sku := s.sku
		products = append(products, &entity.Product{
			SKU:         &sku,
			Name:        s.name,
			Description: s.desc,
			Price:       decimal.RequireFromString(s.price),
			Stock:       s.stock,
			Images:      []string{},
			Category:    s.category,
			CreatedBy:   admin.ID,
			IsActive:    true,
		})
	}
	outcomes, err := store.Products().InsertMany(ctx, products)
	if err != nil {
		log.Fatalf("failed to seed products: %v", err)
	}
	var inserted []*entity.Product
	for i, o := range outcomes {
		if o == repository.Inserted {
			inserted = append(inserted, products[i])
		}
	}
	logger.WithField("inserted", len(inserted)).WithField("skipped", len(products)-len(inserted)).Info("seeded products")

	if cfg.ElasticsearchAddrs != "" && len(inserted) > 0 {
		es, err := helpers.NewESClient(cfg.ElasticsearchAddrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init elasticsearch client: %v", err)
		}
		idx := search.NewProductIndex(es, cfg.ESProductsIndex)
		if err := idx.EnsureIndex(ctx); err != nil {
			logger.WithError(err).Warn("ensure products index failed")
		} else if err := idx.IndexMany(ctx, inserted); err != nil {
			logger.WithError(err).Warn("index seeded products failed")
		}
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
