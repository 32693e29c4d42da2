package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

type CartRepository struct {
	s *Store
}

const selectCartSQL = `SELECT id, total_amount, updated_at FROM carts WHERE user_id = $1`

func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*entity.Cart, error) {
	return r.get(ctx, userID, selectCartSQL)
}

// GetByUserForUpdate must run inside WithinTx; outside a transaction the lock
// is released as soon as the statement completes.
func (r *CartRepository) GetByUserForUpdate(ctx context.Context, userID string) (*entity.Cart, error) {
	return r.get(ctx, userID, selectCartSQL+` FOR UPDATE`)
}

func (r *CartRepository) get(ctx context.Context, userID, query string) (*entity.Cart, error) {
	if !validID(userID) {
		return nil, repository.ErrNotFound
	}
	c := &entity.Cart{UserID: userID, Items: []entity.CartItem{}}
	err := r.s.db.QueryRow(ctx, query, userID).Scan(&c.ID, &c.TotalAmount, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.s.db.Query(ctx, `
		SELECT ci.product_id, ci.quantity, p.name, p.price, p.images, p.stock, p.is_active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.position
	`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it entity.CartItem
		if err := rows.Scan(&it.ProductID, &it.Quantity, &it.Name, &it.Price, &it.Images, &it.Stock, &it.IsActive); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return c, rows.Err()
}

// Save upserts the cart row on user_id and rewrites its items in one transaction.
func (r *CartRepository) Save(ctx context.Context, c *entity.Cart) error {
	return r.s.WithinTx(ctx, func(tx repository.Store) error {
		db := tx.(*Store).db
		if err := db.QueryRow(ctx, `
			INSERT INTO carts (user_id, total_amount)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET total_amount = EXCLUDED.total_amount, updated_at = now()
			RETURNING id, updated_at
		`, c.UserID, c.TotalAmount).Scan(&c.ID, &c.UpdatedAt); err != nil {
			return err
		}
		if _, err := db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, c.ID); err != nil {
			return err
		}
		if len(c.Items) == 0 {
			return nil
		}
		b := &pgx.Batch{}
		for i, it := range c.Items {
			b.Queue(`INSERT INTO cart_items (cart_id, product_id, quantity, position) VALUES ($1, $2, $3, $4)`,
				c.ID, it.ProductID, it.Quantity, i)
		}
		return db.SendBatch(ctx, b).Close()
	})
}

var _ repository.CartRepository = (*CartRepository)(nil)
