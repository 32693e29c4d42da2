package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

var errCheckViolation = errors.New("check constraint violation")

type cartItemRow struct {
	productID string
	quantity  int
}

type cartRow struct {
	id        string
	userID    string
	items     []cartItemRow
	total     decimal.Decimal
	updatedAt time.Time
}

type state struct {
	users    map[string]*entity.User
	products map[string]*entity.Product
	// insertion order, used as the createdAt tie-breaker
	productSeq map[string]int
	seq        int
	carts      map[string]*cartRow // by user id
	orders     map[string]*entity.Order
	orderSeq   map[string]int
}

func newState() *state {
	return &state{
		users:      make(map[string]*entity.User),
		products:   make(map[string]*entity.Product),
		productSeq: make(map[string]int),
		carts:      make(map[string]*cartRow),
		orders:     make(map[string]*entity.Order),
		orderSeq:   make(map[string]int),
	}
}

func (s *state) clone() *state {
	c := newState()
	c.seq = s.seq
	for k, u := range s.users {
		c.users[k] = copyUser(u)
	}
	for k, p := range s.products {
		c.products[k] = copyProduct(p)
	}
	for k, v := range s.productSeq {
		c.productSeq[k] = v
	}
	for k, r := range s.carts {
		cr := *r
		cr.items = append([]cartItemRow(nil), r.items...)
		c.carts[k] = &cr
	}
	for k, o := range s.orders {
		c.orders[k] = copyOrder(o)
	}
	for k, v := range s.orderSeq {
		c.orderSeq[k] = v
	}
	return c
}

// Store is an in-process repository.Store. A single mutex serializes every
// operation; WithinTx holds it for the whole callback and restores a snapshot on error.
type Store struct {
	mu   *sync.Mutex
	st   **state
	inTx bool
}

func NewStore() *Store {
	st := newState()
	return &Store{mu: &sync.Mutex{}, st: &st}
}

func (s *Store) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) data() *state { return *s.st }

func (s *Store) Users() repository.UserRepository       { return &userRepo{s} }
func (s *Store) Products() repository.ProductRepository { return &productRepo{s} }
func (s *Store) Carts() repository.CartRepository       { return &cartRepo{s} }
func (s *Store) Orders() repository.OrderRepository     { return &orderRepo{s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data().clone()
	tx := &Store{mu: s.mu, st: s.st, inTx: true}
	if err := fn(tx); err != nil {
		*s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func copyUser(u *entity.User) *entity.User {
	c := *u
	c.MFABackupCodes = append([]string(nil), u.MFABackupCodes...)
	return &c
}

func copyProduct(p *entity.Product) *entity.Product {
	c := *p
	c.Images = append([]string{}, p.Images...)
	if p.SKU != nil {
		sku := *p.SKU
		c.SKU = &sku
	}
	return &c
}

func copyOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Items = append([]entity.OrderItem(nil), o.Items...)
	return &c
}

var _ repository.Store = (*Store)(nil)
