package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
	"github.com/oksasatya/go-ddd-ecommerce/pkg/apperror"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	maxInfoIDs       = 100
	maxSearchSize    = 50
	defaultChunkSize = 2000

	featuredLimit    = 10
	featuredMinStock = 10
)

type ProductConfig struct {
	CacheTTL    time.Duration
	CategoryTTL time.Duration
	ChunkSize   int
}

type ProductService struct {
	store   repo.Store
	cache   cacheAside
	indexer ProductIndexer
	images  ImageStorage
	cfg     ProductConfig
	logger  *logrus.Logger
}

// NewProductService wires the catalog. indexer and images may be nil when those
// integrations are not configured.
func NewProductService(store repo.Store, cache repo.Cache, indexer ProductIndexer, images ImageStorage, cfg ProductConfig, logger *logrus.Logger) *ProductService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	ca := newCacheAside(cache, logger)
	return &ProductService{store: store, cache: ca, indexer: indexer, images: images, cfg: cfg, logger: ca.logger}
}

type ListParams struct {
	Page     int
	Limit    int
	Search   string
	Category string
	SortBy   string
	Order    string
}

func (p *ListParams) normalize() error {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	p.Search = strings.TrimSpace(p.Search)
	if p.SortBy == "" {
		p.SortBy = "createdAt"
	}
	if _, ok := repo.ProductSortFields[p.SortBy]; !ok {
		return apperror.Validation("invalid sortBy").WithDetails(map[string]string{"sortBy": "is not a sortable field"})
	}
	p.Order = strings.ToLower(p.Order)
	if p.Order == "" {
		p.Order = "desc"
	}
	if p.Order != "asc" && p.Order != "desc" {
		return apperror.Validation("invalid order").WithDetails(map[string]string{"order": "must be asc or desc"})
	}
	return nil
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type ProductPage struct {
	Products   []*entity.Product `json:"products"`
	Pagination Pagination        `json:"pagination"`
}

type ProductInput struct {
	SKU         *string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Images      []string
	Category    string
}

func (in ProductInput) validate() error {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "is required"
	}
	if strings.TrimSpace(in.Category) == "" {
		details["category"] = "is required"
	}
	if in.Price.IsNegative() {
		details["price"] = "must be at least 0"
	}
	if in.Stock < 0 {
		details["stock"] = "must be at least 0"
	}
	if in.SKU != nil && strings.TrimSpace(*in.SKU) == "" {
		details["sku"] = "must not be blank"
	}
	if len(details) > 0 {
		return apperror.Validation("invalid product").WithDetails(details)
	}
	return nil
}

func (in ProductInput) toEntity(createdBy string) *entity.Product {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return &entity.Product{
		SKU:         in.SKU,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Images:      images,
		Category:    strings.TrimSpace(in.Category),
		CreatedBy:   createdBy,
		IsActive:    true,
	}
}

// ProductPatch carries only the fields being changed.
type ProductPatch struct {
	SKU         *string
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Images      *[]string
	Category    *string
	IsActive    *bool
}

func (pp ProductPatch) apply(p *entity.Product) {
	if pp.SKU != nil {
		p.SKU = pp.SKU
	}
	if pp.Name != nil {
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.Price != nil {
		p.Price = *pp.Price
	}
	if pp.Stock != nil {
		p.Stock = *pp.Stock
	}
	if pp.Images != nil {
		p.Images = *pp.Images
	}
	if pp.Category != nil {
		p.Category = *pp.Category
	}
	if pp.IsActive != nil {
		p.IsActive = *pp.IsActive
	}
}

type BulkResult struct {
	Uploaded   int `json:"uploaded"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
	Total      int `json:"total"`
}

func (s *ProductService) List(ctx context.Context, params ListParams) (*ProductPage, error) {
	if err := params.normalize(); err != nil {
		return nil, err
	}
	key := productListKey(params.Page, params.Limit, params.Search, params.Category, params.SortBy, params.Order)
	var page ProductPage
	if s.cache.get(ctx, key, &page) {
		return &page, nil
	}

	products, total, err := s.store.Products().List(ctx, repo.ProductFilter{
		Search:   params.Search,
		Category: params.Category,
		SortBy:   params.SortBy,
		Desc:     params.Order == "desc",
		Offset:   pageOffset(params.Page, params.Limit),
		Limit:    params.Limit,
	})
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if products == nil {
		products = []*entity.Product{}
	}
	page = ProductPage{
		Products: products,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: total,
			Pages: pageCount(total, params.Limit),
		},
	}
	s.cache.set(ctx, key, page, s.cfg.CacheTTL)
	return &page, nil
}

// Get returns an active product. Inactive products are reported as missing.
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	var cached entity.Product
	if s.cache.get(ctx, productKey(id), &cached) && cached.IsActive {
		return &cached, nil
	}
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if !p.IsActive {
		return nil, apperror.NotFound("product not found")
	}
	s.cache.set(ctx, productKey(id), p, s.cfg.CacheTTL)
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, actor Actor, in ProductInput) (*entity.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p := in.toEntity(actor.UserID)
	if err := s.store.Products().Create(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			return nil, apperror.Conflict("product sku already exists")
		}
		return nil, storeErr(err, "product")
	}
	s.cache.delPrefix(ctx, productListPrefix)
	s.index(ctx, p)
	return p, nil
}

func (s *ProductService) Update(ctx context.Context, actor Actor, id string, patch ProductPatch) (*entity.Product, error) {
	p, err := s.mutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	patch.apply(p)
	in := ProductInput{SKU: p.SKU, Name: p.Name, Price: p.Price, Stock: p.Stock, Category: p.Category}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := s.store.Products().Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrDuplicateKey) {
			return nil, apperror.Conflict("product sku already exists")
		}
		return nil, storeErr(err, "product")
	}
	s.invalidate(ctx, p.ID)
	s.index(ctx, p)
	return p, nil
}

// Delete is a soft delete; the row stays for order history.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id string) error {
	p, err := s.mutable(ctx, actor, id)
	if err != nil {
		return err
	}
	if !p.IsActive {
		return apperror.NotFound("product not found")
	}
	p.IsActive = false
	if err := s.store.Products().Update(ctx, p); err != nil {
		return storeErr(err, "product")
	}
	s.invalidate(ctx, p.ID)
	s.index(ctx, p)
	return nil
}

// BulkCreate inserts items in concurrent unordered chunks. Duplicate SKUs are
// counted both as duplicates and as failed.
func (s *ProductService) BulkCreate(ctx context.Context, actor Actor, items []ProductInput) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, apperror.Validation("products must be a non-empty array")
	}
	res := &BulkResult{Total: len(items)}

	valid := make([]*entity.Product, 0, len(items))
	for _, in := range items {
		if in.validate() != nil {
			res.Failed++
			continue
		}
		valid = append(valid, in.toEntity(actor.UserID))
	}

	var chunks [][]*entity.Product
	for start := 0; start < len(valid); start += s.cfg.ChunkSize {
		chunks = append(chunks, valid[start:min(start+s.cfg.ChunkSize, len(valid))])
	}

	// each goroutine owns one slot; chunks settle independently
	outcomes := make([][]repo.InsertOutcome, len(chunks))
	var g errgroup.Group
	for i, chunk := range chunks {
		g.Go(func() error {
			out, err := s.store.Products().InsertMany(ctx, chunk)
			if err != nil {
				outcomes[i] = make([]repo.InsertOutcome, len(chunk))
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.WithError(err).WithField("total", len(items)).Error("bulk insert chunk failed")
	}

	inserted := make([]*entity.Product, 0, len(valid))
	for i, chunk := range chunks {
		for j, outcome := range outcomes[i] {
			switch outcome {
			case repo.Inserted:
				res.Uploaded++
				inserted = append(inserted, chunk[j])
			case repo.InsertDuplicate:
				res.Duplicates++
				res.Failed++
			default:
				res.Failed++
			}
		}
	}

	if res.Uploaded > 0 {
		s.cache.delPrefix(ctx, productListPrefix)
		if s.indexer != nil {
			if err := s.indexer.IndexMany(ctx, inserted); err != nil {
				s.logger.WithError(err).WithField("count", len(inserted)).Warn("bulk index failed")
			}
		}
	}
	return res, nil
}

// Info returns summaries of the requested active products keyed by id.
func (s *ProductService) Info(ctx context.Context, ids []string) (map[string]entity.ProductSummary, error) {
	if len(ids) == 0 || len(ids) > maxInfoIDs {
		return nil, apperror.Validation("ids must be a non-empty array of at most 100 entries")
	}
	key := productInfoKey(ids)
	var cached map[string]entity.ProductSummary
	if s.cache.get(ctx, key, &cached) {
		return cached, nil
	}
	out := make(map[string]entity.ProductSummary, len(ids))
	found, err := s.store.Products().GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	for id, p := range found {
		if p.IsActive {
			out[id] = p.Summary()
		}
	}
	s.cache.set(ctx, key, out, s.cfg.CacheTTL)
	return out, nil
}

func (s *ProductService) Categories(ctx context.Context) ([]entity.CategoryCount, error) {
	var out []entity.CategoryCount
	if s.cache.get(ctx, categoriesKey, &out) {
		return out, nil
	}
	out, err := s.store.Products().Categories(ctx)
	if err != nil {
		return nil, storeErr(err, "category")
	}
	s.cache.set(ctx, categoriesKey, out, s.cfg.CategoryTTL)
	return out, nil
}

func (s *ProductService) Featured(ctx context.Context) ([]*entity.Product, error) {
	var out []*entity.Product
	if s.cache.get(ctx, featuredKey, &out) {
		return out, nil
	}
	out, err := s.store.Products().Featured(ctx, featuredMinStock, featuredLimit)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if out == nil {
		out = []*entity.Product{}
	}
	s.cache.set(ctx, featuredKey, out, s.cfg.CategoryTTL)
	return out, nil
}

// Search queries the search index and falls back to the store when the index is
// absent or failing.
func (s *ProductService) Search(ctx context.Context, q string, size int) ([]*entity.Product, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.Validation("q is required")
	}
	if size <= 0 || size > maxSearchSize {
		size = defaultPageLimit
	}
	if s.indexer != nil {
		ids, err := s.indexer.Search(ctx, q, size)
		if err == nil {
			found, err := s.store.Products().GetByIDs(ctx, ids)
			if err != nil {
				return nil, storeErr(err, "product")
			}
			out := make([]*entity.Product, 0, len(ids))
			for _, id := range ids {
				if p, ok := found[id]; ok && p.IsActive {
					out = append(out, p)
				}
			}
			return out, nil
		}
		s.logger.WithError(err).WithField("q", q).Warn("search index query failed, using store")
	}
	out, _, err := s.store.Products().List(ctx, repo.ProductFilter{Search: q, SortBy: "createdAt", Desc: true, Limit: size})
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if out == nil {
		out = []*entity.Product{}
	}
	return out, nil
}

// UploadImage stores the image under products/{id}/ and appends its URL.
func (s *ProductService) UploadImage(ctx context.Context, actor Actor, id, filename, contentType string, r io.Reader) (*entity.Product, error) {
	if s.images == nil {
		return nil, apperror.Internal("image storage not configured", nil)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperror.Validation("file must be an image")
	}
	p, err := s.mutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("products", p.ID, uuid.NewString()+ext))
	url, err := s.images.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return nil, apperror.Internal("image upload failed", err)
	}
	p.Images = append(p.Images, url)
	if err := s.store.Products().Update(ctx, p); err != nil {
		return nil, storeErr(err, "product")
	}
	s.invalidate(ctx, p.ID)
	s.index(ctx, p)
	return p, nil
}

// mutable loads a product the actor is allowed to change.
func (s *ProductService) mutable(ctx context.Context, actor Actor, id string) (*entity.Product, error) {
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	if !CanMutate(actor, p.CreatedBy) {
		return nil, apperror.Authorization("not allowed to modify this product")
	}
	return p, nil
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	s.cache.del(ctx, productKey(id))
	s.cache.delPrefix(ctx, productListPrefix)
}

// index keeps the search index in step; inactive products are removed.
func (s *ProductService) index(ctx context.Context, p *entity.Product) {
	if s.indexer == nil {
		return
	}
	var err error
	if p.IsActive {
		err = s.indexer.Index(ctx, p)
	} else {
		err = s.indexer.Remove(ctx, p.ID)
	}
	if err != nil {
		s.logger.WithError(err).WithField("product_id", p.ID).Warn("search index update failed")
	}
}
