package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

type productRepo struct{ s *Store }

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	defer r.s.lock()()
	return r.insert(p)
}

// insert mirrors the table constraints: unique sku, non-negative price and stock.
func (r *productRepo) insert(p *entity.Product) error {
	st := r.s.data()
	if p.Price.IsNegative() || p.Stock < 0 {
		return errCheckViolation
	}
	if p.SKU != nil {
		for _, existing := range st.products {
			if existing.SKU != nil && *existing.SKU == *p.SKU {
				return repository.ErrDuplicateKey
			}
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	st.seq++
	st.products[p.ID] = copyProduct(p)
	st.productSeq[p.ID] = st.seq
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	defer r.s.lock()()
	p, ok := r.s.data().products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copyProduct(p), nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *productRepo) GetByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	defer r.s.lock()()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.data().products[id]; ok {
			out[id] = copyProduct(p)
		}
	}
	return out, nil
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	defer r.s.lock()()
	st := r.s.data()
	if _, ok := st.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if p.Price.IsNegative() || p.Stock < 0 {
		return errCheckViolation
	}
	if p.SKU != nil {
		for id, existing := range st.products {
			if id != p.ID && existing.SKU != nil && *existing.SKU == *p.SKU {
				return repository.ErrDuplicateKey
			}
		}
	}
	p.UpdatedAt = time.Now().UTC()
	st.products[p.ID] = copyProduct(p)
	return nil
}

func (r *productRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, int, error) {
	defer r.s.lock()()
	st := r.s.data()
	search := strings.ToLower(f.Search)

	matched := make([]*entity.Product, 0)
	for _, p := range st.products {
		if !p.IsActive {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		c := compareProducts(matched[i], matched[j], f.SortBy, st.productSeq)
		if f.Desc {
			return c > 0
		}
		return c < 0
	})

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	out := make([]*entity.Product, 0, end-start)
	for _, p := range matched[start:end] {
		out = append(out, copyProduct(p))
	}
	return out, total, nil
}

func compareProducts(a, b *entity.Product, field string, seq map[string]int) int {
	var c int
	switch field {
	case "name":
		c = strings.Compare(a.Name, b.Name)
	case "price":
		c = a.Price.Cmp(b.Price)
	case "stock":
		c = a.Stock - b.Stock
	case "category":
		c = strings.Compare(a.Category, b.Category)
	case "updatedAt":
		c = a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = seq[a.ID] - seq[b.ID]
	}
	return c
}

func (r *productRepo) Categories(_ context.Context) ([]entity.CategoryCount, error) {
	defer r.s.lock()()
	counts := map[string]int{}
	for _, p := range r.s.data().products {
		if p.IsActive {
			counts[p.Category]++
		}
	}
	out := make([]entity.CategoryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, entity.CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *productRepo) Featured(_ context.Context, minStock, limit int) ([]*entity.Product, error) {
	defer r.s.lock()()
	st := r.s.data()
	var out []*entity.Product
	for _, p := range st.products {
		if p.IsActive && p.Stock > minStock {
			out = append(out, copyProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return compareProducts(out[i], out[j], "createdAt", st.productSeq) > 0
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *productRepo) AdjustStock(_ context.Context, id string, delta int) error {
	defer r.s.lock()()
	p, ok := r.s.data().products[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Stock+delta < 0 {
		return repository.ErrInsufficientStock
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *productRepo) InsertMany(ctx context.Context, ps []*entity.Product) ([]repository.InsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()
	out := make([]repository.InsertOutcome, len(ps))
	for i, p := range ps {
		switch err := r.insert(p); {
		case err == nil:
			out[i] = repository.Inserted
		case err == repository.ErrDuplicateKey:
			out[i] = repository.InsertDuplicate
		default:
			out[i] = repository.InsertFailed
		}
	}
	return out, nil
}
