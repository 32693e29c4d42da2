package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-ecommerce/config"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/debounce"
)

const flushTimeout = 10 * time.Second

type CartConfig struct {
	// CacheTTL is the cache lifetime in sync mode and the debounce window in writeback mode.
	CacheTTL   time.Duration
	WriteMode  string
	FlushGrace time.Duration
}

// CartService owns the cart lifecycle. In sync mode every mutation is written
// through to the store and the cached copy is dropped. In writeback mode the
// cache holds the working copy and a debounced flush persists it later; a crash
// or eviction before the flush loses the edit.
type CartService struct {
	store  repo.Store
	cache  cacheAside
	cfg    CartConfig
	sched  *debounce.Scheduler
	logger *logrus.Logger

	// serializes writeback mutations against their flushes
	wbMu sync.Mutex
}

func NewCartService(store repo.Store, cache repo.Cache, cfg CartConfig, sched *debounce.Scheduler, logger *logrus.Logger) *CartService {
	if cfg.WriteMode != config.CartModeWriteBack {
		cfg.WriteMode = config.CartModeSync
	}
	if sched == nil {
		sched = debounce.New()
	}
	ca := newCacheAside(cache, logger)
	return &CartService{store: store, cache: ca, cfg: cfg, sched: sched, logger: ca.logger}
}

func (s *CartService) writeBack() bool { return s.cfg.WriteMode == config.CartModeWriteBack }

// Get is cache-first. A user without a stored cart gets a synthesized empty
// cart, which is not cached.
func (s *CartService) Get(ctx context.Context, userID string) (*entity.Cart, error) {
	c, _, err := s.load(ctx, userID)
	return c, err
}

// load reports found=false when neither the cache nor the store has a cart.
func (s *CartService) load(ctx context.Context, userID string) (*entity.Cart, bool, error) {
	var cached entity.Cart
	if s.cache.get(ctx, cartKey(userID), &cached) {
		return &cached, true, nil
	}
	c, err := s.store.Carts().GetByUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return entity.EmptyCart(userID), false, nil
	}
	if err != nil {
		return nil, false, storeErr(err, "cart")
	}
	// populated prices are current; the stored total may not be
	c.Reprice(nil)
	s.cache.set(ctx, cartKey(userID), c, s.cfg.CacheTTL)
	return c, true, nil
}

func (s *CartService) AddItem(ctx context.Context, userID, productID string, qty int) (*entity.Cart, error) {
	if qty < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	return s.mutate(ctx, userID, false, func(c *entity.Cart, products repo.ProductRepository) error {
		next := qty
		i := c.Find(productID)
		if i >= 0 {
			next += c.Items[i].Quantity
		}
		if _, err := checkAvailable(ctx, products, productID, next); err != nil {
			return err
		}
		if i >= 0 {
			c.Items[i].Quantity = next
		} else {
			c.Items = append(c.Items, entity.CartItem{ProductID: productID, Quantity: next})
		}
		return nil
	})
}

func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, qty int) (*entity.Cart, error) {
	if qty < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	return s.mutate(ctx, userID, true, func(c *entity.Cart, products repo.ProductRepository) error {
		i := c.Find(productID)
		if i < 0 {
			return apperror.NotFound("item not found in cart")
		}
		if _, err := checkAvailable(ctx, products, productID, qty); err != nil {
			return err
		}
		c.Items[i].Quantity = qty
		return nil
	})
}

// RemoveItem is a no-op for products not in the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*entity.Cart, error) {
	return s.mutate(ctx, userID, true, func(c *entity.Cart, _ repo.ProductRepository) error {
		c.Remove(productID)
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, userID string) (*entity.Cart, error) {
	return s.mutate(ctx, userID, true, func(c *entity.Cart, _ repo.ProductRepository) error {
		c.Clear()
		return nil
	})
}

type cartMutation func(c *entity.Cart, products repo.ProductRepository) error

func (s *CartService) mutate(ctx context.Context, userID string, requireCart bool, fn cartMutation) (*entity.Cart, error) {
	if s.writeBack() {
		return s.mutateWriteBack(ctx, userID, requireCart, fn)
	}

	var out *entity.Cart
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		c, err := tx.Carts().GetByUserForUpdate(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			if requireCart {
				return apperror.NotFound("cart not found")
			}
			c = entity.EmptyCart(userID)
		} else if err != nil {
			return err
		}
		if err := fn(c, tx.Products()); err != nil {
			return err
		}
		if err := reprice(ctx, tx.Products(), c); err != nil {
			return err
		}
		if err := tx.Carts().Save(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "cart")
	}
	s.cache.del(ctx, cartKey(userID))
	return out, nil
}

func (s *CartService) mutateWriteBack(ctx context.Context, userID string, requireCart bool, fn cartMutation) (*entity.Cart, error) {
	s.wbMu.Lock()
	defer s.wbMu.Unlock()

	c, found, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if requireCart && !found {
		return nil, apperror.NotFound("cart not found")
	}
	products := s.store.Products()
	if err := fn(c, products); err != nil {
		return nil, storeErr(err, "cart")
	}
	if err := reprice(ctx, products, c); err != nil {
		return nil, storeErr(err, "cart")
	}
	c.UpdatedAt = time.Now().UTC()

	window := s.cfg.CacheTTL
	if !s.cache.trySet(ctx, cartKey(userID), c, window+s.cfg.FlushGrace) {
		// no working copy to flush later: write through instead
		s.sched.Cancel(userID)
		return s.writeThrough(ctx, c)
	}
	if !s.sched.Arm(userID, window, func() { s.flush(userID) }) {
		// scheduler already stopped
		return s.writeThrough(ctx, c)
	}
	return c, nil
}

// writeThrough saves c immediately and drops any cached working copy.
func (s *CartService) writeThrough(ctx context.Context, c *entity.Cart) (*entity.Cart, error) {
	if err := s.store.Carts().Save(ctx, c); err != nil {
		return nil, storeErr(err, "cart")
	}
	s.cache.del(ctx, cartKey(c.UserID))
	return c, nil
}

// FlushPending forces the pending write-back for userID, if any.
func (s *CartService) FlushPending(userID string) {
	if s.writeBack() {
		s.sched.Flush(userID)
	}
}

// Shutdown flushes every pending write-back and refuses new ones.
func (s *CartService) Shutdown() int {
	return s.sched.Stop()
}

func (s *CartService) flush(userID string) {
	s.wbMu.Lock()
	defer s.wbMu.Unlock()
	s.persist(userID)
}

// persist upserts the cached working copy and drops it. Callers hold wbMu.
func (s *CartService) persist(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	var c entity.Cart
	if !s.cache.get(ctx, cartKey(userID), &c) {
		s.logger.WithField("user_id", userID).Warn("cart working copy missing at flush, edit lost")
		return
	}
	if err := s.store.Carts().Save(ctx, &c); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("cart flush failed")
		return
	}
	s.cache.del(ctx, cartKey(userID))
}

// checkAvailable requires an active product with at least qty in stock.
func checkAvailable(ctx context.Context, products repo.ProductRepository, productID string, qty int) (*entity.Product, error) {
	p, err := products.GetByID(ctx, productID)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if !p.IsActive {
		return nil, apperror.Validation("product is no longer available")
	}
	if p.Stock < qty {
		return nil, apperror.Validation("insufficient stock")
	}
	return p, nil
}

// reprice recomputes the total against current product prices.
func reprice(ctx context.Context, products repo.ProductRepository, c *entity.Cart) error {
	current, err := products.GetByIDs(ctx, c.ProductIDs())
	if err != nil {
		return err
	}
	c.Reprice(current)
	return nil
}
