package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

const orderColumns = `id, user_id, total_amount, status, payment_status, shipping_address, created_at, updated_at`

type OrderRepository struct {
	s *Store
}

func scanOrder(row pgx.Row) (*entity.Order, error) {
	o := &entity.Order{Items: []entity.OrderItem{}}
	var status, payment string
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &status, &payment, &o.ShippingAddress,
		&o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	o.Status = entity.OrderStatus(status)
	o.PaymentStatus = entity.PaymentStatus(payment)
	return o, nil
}

func (r *OrderRepository) Create(ctx context.Context, o *entity.Order) error {
	return r.s.WithinTx(ctx, func(tx repository.Store) error {
		db := tx.(*Store).db
		if err := db.QueryRow(ctx, `
			INSERT INTO orders (user_id, total_amount, status, payment_status, shipping_address)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`, o.UserID, o.TotalAmount, string(o.Status), string(o.PaymentStatus), o.ShippingAddress).
			Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		b := &pgx.Batch{}
		for i, it := range o.Items {
			b.Queue(`
				INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, o.ID, i, it.ProductID, it.Name, it.Quantity, it.UnitPrice)
		}
		return db.SendBatch(ctx, b).Close()
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	o, err := scanOrder(r.s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*entity.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) List(ctx context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	var total int
	if err := r.s.db.QueryRow(ctx, `
		SELECT count(*) FROM orders WHERE user_id = $1 AND ($2 = '' OR status = $2)
	`, f.UserID, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.s.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, f.UserID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	orders := []*entity.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orders []*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}
	byID := make(map[string]*entity.Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID)
	}
	rows, err := r.s.db.Query(ctx, `
		SELECT order_id, product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, parseIDs(ids))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var orderID string
		var it entity.OrderItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return err
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from []entity.OrderStatus, to entity.OrderStatus) (*entity.Order, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	allowed := make([]string, 0, len(from))
	for _, s := range from {
		allowed = append(allowed, string(s))
	}
	o, err := scanOrder(r.s.db.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+orderColumns, id, string(to), allowed))
	if errors.Is(err, repository.ErrNotFound) {
		// distinguish a missing order from a failed precondition
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, repository.ErrStatusConflict
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*entity.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

var _ repository.OrderRepository = (*OrderRepository)(nil)
