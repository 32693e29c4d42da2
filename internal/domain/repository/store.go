package repository

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStatusConflict    = errors.New("status precondition failed")
)

// Store is the durable system of record. Repositories obtained from the Store
// passed to WithinTx's callback share its transaction.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
