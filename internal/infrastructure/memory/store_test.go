package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

func sku(s string) *string { return &s }

func newProduct(name string, price int64, stock int) *entity.Product {
	return &entity.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		Category:    "general",
		IsActive:    true,
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("lamp", 10, 5)
	require.NoError(t, s.Products().Create(ctx, p))

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.Products().AdjustStock(ctx, p.ID, -3))
		require.NoError(t, tx.Orders().Create(ctx, &entity.Order{UserID: "u1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)
	_, total, err := s.Orders().List(ctx, repository.OrderFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWithinTxCommits(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("lamp", 10, 5)
	require.NoError(t, s.Products().Create(ctx, p))

	require.NoError(t, s.WithinTx(ctx, func(tx repository.Store) error {
		return tx.Products().AdjustStock(ctx, p.ID, -5)
	}))
	got, _ := s.Products().GetByID(ctx, p.ID)
	assert.Equal(t, 0, got.Stock)
}

func TestAdjustStockNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("lamp", 10, 2)
	require.NoError(t, s.Products().Create(ctx, p))

	assert.ErrorIs(t, s.Products().AdjustStock(ctx, p.ID, -3), repository.ErrInsufficientStock)
	assert.ErrorIs(t, s.Products().AdjustStock(ctx, "missing", 1), repository.ErrNotFound)
}

func TestInsertManyReportsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	existing := newProduct("a", 1, 1)
	existing.SKU = sku("A")
	require.NoError(t, s.Products().Create(ctx, existing))

	batch := []*entity.Product{newProduct("a2", 1, 1), newProduct("b", 1, 1), newProduct("b2", 1, 1), newProduct("bad", -1, 1)}
	batch[0].SKU = sku("A")
	batch[1].SKU = sku("B")
	batch[2].SKU = sku("B")

	out, err := s.Products().InsertMany(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, []repository.InsertOutcome{
		repository.InsertDuplicate, repository.Inserted, repository.InsertDuplicate, repository.InsertFailed,
	}, out)
}

func TestListFiltersSortsAndPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i, name := range []string{"Red Shirt", "Blue Shirt", "Green Hat", "Old Shirt"} {
		p := newProduct(name, int64(10*(i+1)), 5)
		if name == "Green Hat" {
			p.Category = "hats"
		}
		require.NoError(t, s.Products().Create(ctx, p))
		if name == "Old Shirt" {
			p.IsActive = false
			require.NoError(t, s.Products().Update(ctx, p))
		}
	}

	got, total, err := s.Products().List(ctx, repository.ProductFilter{Search: "SHIRT", SortBy: "price", Desc: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Blue Shirt", got[0].Name)

	got, total, err = s.Products().List(ctx, repository.ProductFilter{Category: "hats", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Green Hat", got[0].Name)

	got, _, err = s.Products().List(ctx, repository.ProductFilter{SortBy: "createdAt", Offset: 2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Green Hat", got[0].Name)
}

func TestCartSaveUpsertsOnUser(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newProduct("lamp", 10, 5)
	require.NoError(t, s.Products().Create(ctx, p))

	c := entity.EmptyCart("u1")
	c.Items = append(c.Items, entity.CartItem{ProductID: p.ID, Quantity: 2})
	require.NoError(t, s.Carts().Save(ctx, c))
	firstID := c.ID

	c2 := entity.EmptyCart("u1")
	require.NoError(t, s.Carts().Save(ctx, c2))
	assert.Equal(t, firstID, c2.ID)

	got, err := s.Carts().GetByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got.Items)

	_, err = s.Carts().GetByUser(ctx, "u2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderUpdateStatusAssertsPrecondition(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	o := &entity.Order{UserID: "u1", Status: entity.OrderPending}
	require.NoError(t, s.Orders().Create(ctx, o))

	updated, err := s.Orders().UpdateStatus(ctx, o.ID, entity.CancellableStatuses(), entity.OrderCancelled)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderCancelled, updated.Status)

	_, err = s.Orders().UpdateStatus(ctx, o.ID, entity.CancellableStatuses(), entity.OrderCancelled)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)
}

func TestConsumeBackupCodeOnce(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	u := &entity.User{Email: "A@x.com", MFABackupCodes: []string{"h1", "h2"}}
	require.NoError(t, s.Users().Create(ctx, u))

	ok, err := s.Users().ConsumeBackupCode(ctx, u.ID, "h1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.Users().ConsumeBackupCode(ctx, u.ID, "h1")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.Users().Create(ctx, &entity.User{Email: "a@X.com"}), repository.ErrDuplicateKey)
}

func TestCacheExpiryAndPrefixDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "products:list:1", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "products:info:x", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "product:1", []byte("c"), time.Minute))

	v, err := c.Get(ctx, "products:list:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), v)

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "products:list:1")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.DeletePrefix(ctx, "products:"))
	assert.False(t, c.Has("products:info:x"))
	assert.Empty(t, c.Keys("products:"))
}
