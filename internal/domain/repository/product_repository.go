package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
)

// ProductFilter narrows a listing of active products.
type ProductFilter struct {
	Search   string
	Category string
	SortBy   string // one of the ProductSortFields keys
	Desc     bool
	Offset   int
	Limit    int
}

// ProductSortFields maps the public sort names to their column names.
var ProductSortFields = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"price":     "price",
	"stock":     "stock",
	"category":  "category",
}

// InsertOutcome is the per-item result of an unordered bulk insert.
type InsertOutcome int

const (
	InsertFailed InsertOutcome = iota
	Inserted
	InsertDuplicate
)

type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	// GetByID returns inactive products too; callers decide visibility.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	Update(ctx context.Context, p *entity.Product) error
	List(ctx context.Context, f ProductFilter) ([]*entity.Product, int, error)
	Categories(ctx context.Context) ([]entity.CategoryCount, error)
	Featured(ctx context.Context, minStock, limit int) ([]*entity.Product, error)
	// AdjustStock adds delta to stock and returns ErrInsufficientStock instead of going below zero.
	AdjustStock(ctx context.Context, id string, delta int) error
	// InsertMany inserts unordered. The outcome slice is aligned with ps.
	InsertMany(ctx context.Context, ps []*entity.Product) ([]InsertOutcome, error)
}
