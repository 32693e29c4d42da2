package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(_ context.Context, o *entity.Order) error {
	defer r.s.lock()()
	st := r.s.data()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	st.seq++
	st.orders[o.ID] = copyOrder(o)
	st.orderSeq[o.ID] = st.seq
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.data().orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyOrder(o), nil
}

func (r *orderRepo) List(_ context.Context, f repository.OrderFilter) ([]*entity.Order, int, error) {
	defer r.s.lock()()
	st := r.s.data()
	var matched []*entity.Order
	for _, o := range st.orders {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		matched = append(matched, o)
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool {
		return st.orderSeq[matched[i].ID] > st.orderSeq[matched[j].ID]
	})
	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	out := make([]*entity.Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, copyOrder(o))
	}
	return out, total, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id string, from []entity.OrderStatus, to entity.OrderStatus) (*entity.Order, error) {
	defer r.s.lock()()
	o, ok := r.s.data().orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range from {
		if o.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, repository.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return copyOrder(o), nil
}
