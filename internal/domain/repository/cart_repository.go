package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
)

type CartRepository interface {
	// GetByUser returns the cart with product fields populated, or ErrNotFound.
	GetByUser(ctx context.Context, userID string) (*entity.Cart, error)
	// GetByUserForUpdate is GetByUser holding the cart row lock until the
	// surrounding transaction ends, so a cart is consumed at most once.
	GetByUserForUpdate(ctx context.Context, userID string) (*entity.Cart, error)
	// Save upserts on user id and replaces the item set.
	Save(ctx context.Context, c *entity.Cart) error
}
