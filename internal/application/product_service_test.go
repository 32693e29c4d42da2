package application

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
)

func input(name, price string, stock int) ProductInput {
	return ProductInput{Name: name, Price: decimal.RequireFromString(price), Stock: stock, Category: "general"}
}

func skuPtr(s string) *string { return &s }

func TestListServedFromCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	admin := Actor{UserID: "admin", Role: entity.RoleAdmin}
	e.product(t, "lamp", "10", 5, "admin")

	first, err := s.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Pagination.Total)
	assert.True(t, e.cache.Has(productListKey(1, 10, "", "", "createdAt", "desc")))

	// written behind the service's back: the cached page must still be served
	e.product(t, "chair", "20", 5, "admin")
	again, err := s.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, again.Pagination.Total)

	_, err = s.Create(ctx, admin, input("desk", "30", 5))
	require.NoError(t, err)
	assert.Empty(t, e.cache.Keys("products:"))

	fresh, err := s.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.Pagination.Total)
	assert.Equal(t, "desk", fresh.Products[0].Name)
}

func TestListValidatesAndPaginates(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	for i := 0; i < 12; i++ {
		e.product(t, fmt.Sprintf("item %02d", i), "1", 1, "admin")
	}

	_, err := s.List(ctx, ListParams{SortBy: "password"})
	requireKind(t, err, apperror.KindValidation)
	_, err = s.List(ctx, ListParams{Order: "sideways"})
	requireKind(t, err, apperror.KindValidation)

	page, err := s.List(ctx, ListParams{Page: 2, Limit: 5, SortBy: "name", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 2, Limit: 5, Total: 12, Pages: 3}, page.Pagination)
	assert.Equal(t, "item 05", page.Products[0].Name)

	capped, err := s.List(ctx, ListParams{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, capped.Pagination.Limit)
}

func TestGetHidesInactiveAndCaches(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	owner := Actor{UserID: "owner", Role: entity.RoleAdmin}
	p := e.product(t, "lamp", "10", 5, "owner")

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "lamp", got.Name)
	assert.True(t, e.cache.Has(productKey(p.ID)))

	require.NoError(t, s.Delete(ctx, owner, p.ID))
	assert.False(t, e.cache.Has(productKey(p.ID)))

	_, err = s.Get(ctx, p.ID)
	requireKind(t, err, apperror.KindNotFound)
	requireKind(t, s.Delete(ctx, owner, p.ID), apperror.KindNotFound)

	_, err = s.Get(ctx, "missing")
	requireKind(t, err, apperror.KindNotFound)
}

func TestUpdateRequiresOwnershipAndInvalidates(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	p := e.product(t, "lamp", "10", 5, "owner")

	_, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	_, err = s.Categories(ctx)
	require.NoError(t, err)

	price := decimal.RequireFromString("12.50")
	_, err = s.Update(ctx, Actor{UserID: "stranger", Role: entity.RoleUser}, p.ID, ProductPatch{Price: &price})
	requireKind(t, err, apperror.KindAuthorization)

	updated, err := s.Update(ctx, Actor{UserID: "owner", Role: entity.RoleUser}, p.ID, ProductPatch{Price: &price})
	require.NoError(t, err)
	assert.True(t, price.Equal(updated.Price))
	assert.False(t, e.cache.Has(productKey(p.ID)))
	assert.False(t, e.cache.Has(categoriesKey))

	got, err := s.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, price.Equal(got.Price))

	negative := -1
	_, err = s.Update(ctx, Actor{Role: entity.RoleAdmin}, p.ID, ProductPatch{Stock: &negative})
	requireKind(t, err, apperror.KindValidation)
}

func TestCreateRejectsDuplicateSKU(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	admin := Actor{UserID: "admin", Role: entity.RoleAdmin}

	in := input("lamp", "10", 5)
	in.SKU = skuPtr("LAMP-1")
	p, err := s.Create(ctx, admin, in)
	require.NoError(t, err)
	assert.Equal(t, "admin", p.CreatedBy)

	_, err = s.Create(ctx, admin, in)
	requireKind(t, err, apperror.KindConflict)

	_, err = s.Create(ctx, admin, input("", "-1", 5))
	requireKind(t, err, apperror.KindValidation)
}

func TestBulkCreateCountsDuplicates(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{ChunkSize: 3})
	admin := Actor{UserID: "admin", Role: entity.RoleAdmin}

	existing := input("old", "1", 1)
	existing.SKU = skuPtr("SKU-0")
	_, err := s.Create(ctx, admin, existing)
	require.NoError(t, err)
	_, err = s.List(ctx, ListParams{})
	require.NoError(t, err)

	const n = 10
	items := make([]ProductInput, 0, n)
	for i := 0; i < n; i++ {
		in := input(fmt.Sprintf("p%d", i), "5", 3)
		in.SKU = skuPtr(fmt.Sprintf("SKU-%d", i))
		items = append(items, in)
	}
	// SKU-0 collides with the stored product, SKU-1 repeats within the batch
	items[5].SKU = skuPtr("SKU-1")

	res, err := s.BulkCreate(ctx, admin, items)
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Uploaded: n - 2, Failed: 2, Duplicates: 2, Total: n}, *res)
	assert.Empty(t, e.cache.Keys("products:"))

	page, err := s.List(ctx, ListParams{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, n-1, page.Pagination.Total)
}

func TestBulkCreateCountsInvalidItemsAsFailed(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})

	res, err := s.BulkCreate(ctx, Actor{UserID: "admin", Role: entity.RoleAdmin},
		[]ProductInput{input("ok", "1", 1), input("", "1", 1), input("neg", "-3", 1)})
	require.NoError(t, err)
	assert.Equal(t, BulkResult{Uploaded: 1, Failed: 2, Total: 3}, *res)

	_, err = s.BulkCreate(ctx, Actor{}, nil)
	requireKind(t, err, apperror.KindValidation)
}

func TestInfoReturnsActiveSummaries(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	a := e.product(t, "lamp", "10", 5, "o")
	a.Images = []string{"https://img/1.png", "https://img/2.png"}
	require.NoError(t, e.store.Products().Update(ctx, a))
	b := e.product(t, "chair", "20", 0, "o")
	b.IsActive = false
	require.NoError(t, e.store.Products().Update(ctx, b))

	info, err := s.Info(ctx, []string{b.ID, a.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, info, 1)
	assert.Equal(t, "https://img/1.png", info[a.ID].Image)
	assert.True(t, e.cache.Has(productInfoKey([]string{a.ID, b.ID, "missing"})))

	_, err = s.Info(ctx, nil)
	requireKind(t, err, apperror.KindValidation)
	_, err = s.Info(ctx, make([]string, 101))
	requireKind(t, err, apperror.KindValidation)
}

func TestCategoriesAndFeatured(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	s := e.products(ProductConfig{})
	e.product(t, "few", "1", 3, "o")
	e.product(t, "many", "1", 50, "o")
	hat := input("hat", "1", 20)
	hat.Category = "hats"
	_, err := s.Create(ctx, Actor{UserID: "o", Role: entity.RoleAdmin}, hat)
	require.NoError(t, err)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entity.CategoryCount{{Name: "general", Count: 2}, {Name: "hats", Count: 1}}, cats)

	featured, err := s.Featured(ctx)
	require.NoError(t, err)
	require.Len(t, featured, 2)
	assert.Equal(t, "hat", featured[0].Name)
	assert.True(t, e.cache.Has(featuredKey))
}

type fakeIndexer struct {
	indexed map[string]bool
	hits    []string
	err     error
}

func (f *fakeIndexer) Index(_ context.Context, p *entity.Product) error {
	f.indexed[p.ID] = true
	return nil
}

func (f *fakeIndexer) IndexMany(_ context.Context, ps []*entity.Product) error {
	for _, p := range ps {
		f.indexed[p.ID] = true
	}
	return nil
}

func (f *fakeIndexer) Remove(_ context.Context, id string) error {
	delete(f.indexed, id)
	return nil
}

func (f *fakeIndexer) Search(context.Context, string, int) ([]string, error) { return f.hits, f.err }

func TestSearchUsesIndexThenFallsBack(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	idx := &fakeIndexer{indexed: map[string]bool{}}
	s := NewProductService(e.store, e.cache, idx, nil, ProductConfig{}, e.log)
	admin := Actor{UserID: "admin", Role: entity.RoleAdmin}

	lamp, err := s.Create(ctx, admin, input("Desk Lamp", "10", 5))
	require.NoError(t, err)
	chair, err := s.Create(ctx, admin, input("Chair", "20", 5))
	require.NoError(t, err)
	assert.True(t, idx.indexed[lamp.ID])

	idx.hits = []string{chair.ID, lamp.ID}
	got, err := s.Search(ctx, "anything", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, chair.ID, got[0].ID)

	idx.err = assert.AnError
	got, err = s.Search(ctx, "lamp", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, lamp.ID, got[0].ID)

	require.NoError(t, s.Delete(ctx, admin, lamp.ID))
	assert.False(t, idx.indexed[lamp.ID])

	_, err = s.Search(ctx, "  ", 5)
	requireKind(t, err, apperror.KindValidation)
}

type fakeImages struct{ paths []string }

func (f *fakeImages) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	f.paths = append(f.paths, objectPath)
	return "https://cdn.example/" + objectPath, nil
}

func TestUploadImage(t *testing.T) {
	ctx := context.Background()
	e := newEnv()
	imgs := &fakeImages{}
	s := NewProductService(e.store, e.cache, nil, imgs, ProductConfig{}, e.log)
	p := e.product(t, "lamp", "10", 5, "owner")

	_, err := s.UploadImage(ctx, Actor{UserID: "owner"}, p.ID, "a.txt", "text/plain", strings.NewReader("x"))
	requireKind(t, err, apperror.KindValidation)
	_, err = s.UploadImage(ctx, Actor{UserID: "other"}, p.ID, "a.png", "image/png", strings.NewReader("x"))
	requireKind(t, err, apperror.KindAuthorization)

	got, err := s.UploadImage(ctx, Actor{UserID: "owner"}, p.ID, "Photo.PNG", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Len(t, imgs.paths, 1)
	assert.True(t, strings.HasPrefix(imgs.paths[0], "products/"+p.ID+"/"))
	assert.True(t, strings.HasSuffix(imgs.paths[0], ".png"))
	assert.Equal(t, []string{"https://cdn.example/" + imgs.paths[0]}, got.Images)

	_, err = e.products(ProductConfig{}).UploadImage(ctx, Actor{UserID: "owner"}, p.ID, "a.png", "image/png", strings.NewReader("x"))
	requireKind(t, err, apperror.KindInternal)
}
