package repository

import (
	"context"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
)

type OrderFilter struct {
	UserID string
	Status entity.OrderStatus
	Offset int
	Limit  int
}

type OrderRepository interface {
	Create(ctx context.Context, o *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	List(ctx context.Context, f OrderFilter) ([]*entity.Order, int, error)
	// UpdateStatus moves the order to `to` only while its status is one of `from`.
	// It returns ErrStatusConflict when the precondition no longer holds.
	UpdateStatus(ctx context.Context, id string, from []entity.OrderStatus, to entity.OrderStatus) (*entity.Order, error)
}
