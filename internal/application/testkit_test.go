package application

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type env struct {
	store *memory.Store
	cache *memory.Cache
	log   *logrus.Logger
}

func newEnv() *env {
	return &env{store: memory.NewStore(), cache: memory.NewCache(), log: quietLogger()}
}

func (e *env) products(cfg ProductConfig) *ProductService {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
		cfg.CategoryTTL = 2 * time.Hour
	}
	return NewProductService(e.store, e.cache, nil, nil, cfg, e.log)
}

func (e *env) carts(mode string) *CartService {
	return NewCartService(e.store, e.cache, CartConfig{CacheTTL: 30 * time.Minute, WriteMode: mode, FlushGrace: time.Minute}, nil, e.log)
}

func (e *env) user(t *testing.T, email string, role entity.Role) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Role: role, IsActive: true}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u
}

func (e *env) product(t *testing.T, name string, price string, stock int, owner string) *entity.Product {
	t.Helper()
	p := &entity.Product{
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Category:  "general",
		CreatedBy: owner,
		IsActive:  true,
	}
	require.NoError(t, e.store.Products().Create(context.Background(), p))
	return p
}

func (e *env) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := e.store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func requireKind(t *testing.T, err error, kind apperror.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperror.IsKind(err, kind), "want %s, got %v", kind, err)
}

var errCacheDown = errors.New("cache unavailable")

// downCache fails every operation.
type downCache struct{}

func (downCache) Get(context.Context, string) ([]byte, error)              { return nil, errCacheDown }
func (downCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (downCache) Delete(context.Context, ...string) error                  { return errCacheDown }
func (downCache) DeletePrefix(context.Context, string) error               { return errCacheDown }
func (downCache) Ping(context.Context) error                               { return errCacheDown }

var _ repo.Cache = downCache{}

// recordingNotifier captures notifications.
type recordingNotifier struct {
	mu  sync.Mutex
	got []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return nil
}

func (r *recordingNotifier) templates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Template)
	}
	return out
}
