package product

import (
	"context"
	"io"
	"log"

	"tortaskeia-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

// main_image is resolved in the query so callers never need the images
// relation loaded just to render a thumbnail.
const productQuery = `
SELECT p.id, p.slug, p.name, COALESCE(p.description, ''), p.price::text, p.is_active, p.created_at,
       (SELECT i.url FROM product_images i
        WHERE i.product_id = p.id
        ORDER BY i.is_main DESC, i.sort_order ASC, i.id ASC
        LIMIT 1) AS main_image
FROM products p
`

func (r *postgresRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, productQuery+`WHERE p.is_active ORDER BY p.created_at DESC`)
	if err != nil {
		r.logger.Printf("product repo: list error=%v", err)
		return nil, err
	}
	defer rows.Close()

	var result []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	return result, nil
}

// GetBySlug backs the product detail page, so the full image gallery is
// loaded alongside the product.
func (r *postgresRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	rows, err := r.pool.Query(ctx, productQuery+`WHERE p.slug = $1`, slug)
	if err != nil {
		return nil, err
	}
	p, err := r.one(rows, "slug", slug)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if err := r.loadImages(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) loadImages(ctx context.Context, p *domain.Product) error {
	const q = `
SELECT id, product_id, url, is_main, sort_order
FROM product_images
WHERE product_id = $1
ORDER BY is_main DESC, sort_order ASC, id ASC
`
	rows, err := r.pool.Query(ctx, q, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsMain, &img.SortOrder); err != nil {
			return err
		}
		p.Images = append(p.Images, img)
	}
	return rows.Err()
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	rows, err := r.pool.Query(ctx, productQuery+`WHERE p.id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.one(rows, "id", id)
}

func (r *postgresRepo) one(rows pgx.Rows, field string, value interface{}) (*domain.Product, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			r.logger.Printf("product repo: get %s=%v error=%v", field, value, err)
			return nil, err
		}
		return nil, domain.ErrNotFound
	}
	p, err := scanProduct(rows)
	if err != nil {
		r.logger.Printf("product repo: scan %s=%v error=%v", field, value, err)
		return nil, err
	}
	return p, nil
}

func scanProduct(rows pgx.Rows) (*domain.Product, error) {
	var p domain.Product
	var price string
	if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &price, &p.IsActive, &p.CreatedAt, &p.MainImage); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	p.Price = d
	return &p, nil
}
