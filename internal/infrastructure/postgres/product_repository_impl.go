package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/entity"
	"github.com/oksasatya/go-ddd-ecommerce/internal/domain/repository"
)

const productColumns = `id, sku, name, description, price, stock, images, category, created_by, is_active, created_at, updated_at`

const insertProductSQL = `
	INSERT INTO products (sku, name, description, price, stock, images, category, created_by, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

type ProductRepository struct {
	s *Store
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Images,
		&p.Category, &p.CreatedBy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]*entity.Product, error) {
	defer rows.Close()
	var out []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func productArgs(p *entity.Product) []any {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return []any{p.SKU, p.Name, p.Description, p.Price, p.Stock, images, p.Category, p.CreatedBy, p.IsActive}
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	err := r.s.db.QueryRow(ctx, insertProductSQL+` RETURNING id, created_at, updated_at`, productArgs(p)...).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create product: %w", repository.ErrDuplicateKey)
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return scanProduct(r.s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

func (r *ProductRepository) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return scanProduct(r.s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	parsed := parseIDs(ids)
	if len(parsed) == 0 {
		return out, nil
	}
	rows, err := r.s.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, parsed)
	if err != nil {
		return nil, err
	}
	ps, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		out[p.ID] = p
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	args := append([]any{p.ID}, productArgs(p)...)
	err := r.s.db.QueryRow(ctx, `
		UPDATE products
		SET sku = $2, name = $3, description = $4, price = $5, stock = $6, images = $7,
		    category = $8, created_by = $9, is_active = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, args...).Scan(&p.UpdatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return repository.ErrNotFound
	case isDuplicateKeyError(err):
		return fmt.Errorf("update product: %w", repository.ErrDuplicateKey)
	}
	return err
}

func (r *ProductRepository) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, int, error) {
	where := []string{"is_active"}
	var args []any
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", n, n))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.s.db.QueryRow(ctx, `SELECT count(*) FROM products WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	col, ok := repository.ProductSortFields[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	args = append(args, f.Limit, f.Offset)
	q := fmt.Sprintf(`SELECT %s FROM products WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		productColumns, cond, col, dir, dir, len(args)-1, len(args))

	rows, err := r.s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	ps, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return ps, total, nil
}

func (r *ProductRepository) Categories(ctx context.Context) ([]entity.CategoryCount, error) {
	rows, err := r.s.db.Query(ctx, `
		SELECT category, count(*) FROM products
		WHERE is_active
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []entity.CategoryCount{}
	for rows.Next() {
		var c entity.CategoryCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ProductRepository) Featured(ctx context.Context, minStock, limit int) ([]*entity.Product, error) {
	rows, err := r.s.db.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE is_active AND stock > $1
		ORDER BY created_at DESC
		LIMIT $2
	`, minStock, limit)
	if err != nil {
		return nil, err
	}
	return collectProducts(rows)
}

func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	tag, err := r.s.db.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
	`, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return repository.ErrInsufficientStock
}

// InsertMany sends the chunk as one batch with ON CONFLICT (sku) DO NOTHING, so a
// duplicate yields no row instead of an error. A batch runs in one implicit
// transaction; any other error rolls the whole batch back and the chunk is
// retried row by row.
func (r *ProductRepository) InsertMany(ctx context.Context, ps []*entity.Product) ([]repository.InsertOutcome, error) {
	out := make([]repository.InsertOutcome, len(ps))
	if len(ps) == 0 {
		return out, nil
	}

	b := &pgx.Batch{}
	for _, p := range ps {
		b.Queue(insertProductSQL+` ON CONFLICT (sku) DO NOTHING RETURNING id, created_at, updated_at`, productArgs(p)...)
	}
	br := r.s.db.SendBatch(ctx, b)

	var batchErr error
	for i, p := range ps {
		err := br.QueryRow().Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			out[i] = repository.InsertDuplicate
			continue
		}
		if err != nil {
			batchErr = err
			break
		}
		out[i] = repository.Inserted
	}
	if err := br.Close(); err != nil && batchErr == nil {
		batchErr = err
	}
	if batchErr == nil {
		return out, nil
	}
	if r.s.inTx || ctx.Err() != nil {
		return nil, batchErr
	}
	return r.insertEach(ctx, ps), nil
}

func (r *ProductRepository) insertEach(ctx context.Context, ps []*entity.Product) []repository.InsertOutcome {
	out := make([]repository.InsertOutcome, len(ps))
	for i, p := range ps {
		p.ID = ""
		err := r.s.db.QueryRow(ctx, insertProductSQL+` RETURNING id, created_at, updated_at`, productArgs(p)...).
			Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		switch {
		case err == nil:
			out[i] = repository.Inserted
		case isDuplicateKeyError(err):
			out[i] = repository.InsertDuplicate
		default:
			out[i] = repository.InsertFailed
		}
	}
	return out
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
