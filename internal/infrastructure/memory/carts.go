package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

type cartRepo struct{ s *Store }

func (r *cartRepo) GetByUser(_ context.Context, userID string) (*entity.Cart, error) {
	defer r.s.lock()()
	st := r.s.data()
	row, ok := st.carts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := &entity.Cart{
		ID:          row.id,
		UserID:      row.userID,
		Items:       make([]entity.CartItem, 0, len(row.items)),
		TotalAmount: row.total,
		UpdatedAt:   row.updatedAt,
	}
	for _, it := range row.items {
		ci := entity.CartItem{ProductID: it.productID, Quantity: it.quantity}
		if p, ok := st.products[it.productID]; ok {
			ci.Name = p.Name
			ci.Price = p.Price
			ci.Images = append([]string{}, p.Images...)
			ci.Stock = p.Stock
			ci.IsActive = p.IsActive
		}
		c.Items = append(c.Items, ci)
	}
	return c, nil
}

// GetByUserForUpdate needs no row lock: WithinTx already serializes transactions.
func (r *cartRepo) GetByUserForUpdate(ctx context.Context, userID string) (*entity.Cart, error) {
	return r.GetByUser(ctx, userID)
}

func (r *cartRepo) Save(_ context.Context, c *entity.Cart) error {
	defer r.s.lock()()
	st := r.s.data()
	row, ok := st.carts[c.UserID]
	if !ok {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		row = &cartRow{id: id, userID: c.UserID}
		st.carts[c.UserID] = row
	}
	row.items = make([]cartItemRow, 0, len(c.Items))
	for _, it := range c.Items {
		row.items = append(row.items, cartItemRow{productID: it.ProductID, quantity: it.Quantity})
	}
	row.total = c.TotalAmount
	row.updatedAt = time.Now().UTC()
	c.ID = row.id
	c.UpdatedAt = row.updatedAt
	return nil
}
