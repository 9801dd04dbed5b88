package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/product"
)

const productColumns = `id, name, slug, description, price, images, category_id, specifications, stock,
	featured, is_trending, featured_home, is_hero_showcase, meta_title, meta_description, keywords,
	created_at, updated_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC, id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductBySlugSQL = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	createProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	upsertProductSQL = createProductSQL + `
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, slug = EXCLUDED.slug,
		description = EXCLUDED.description, price = EXCLUDED.price, images = EXCLUDED.images,
		category_id = EXCLUDED.category_id, specifications = EXCLUDED.specifications, stock = EXCLUDED.stock,
		featured = EXCLUDED.featured, is_trending = EXCLUDED.is_trending, featured_home = EXCLUDED.featured_home,
		is_hero_showcase = EXCLUDED.is_hero_showcase, meta_title = EXCLUDED.meta_title,
		meta_description = EXCLUDED.meta_description, keywords = EXCLUDED.keywords,
		updated_at = EXCLUDED.updated_at`

	updateProductSQL = `UPDATE products SET name = $2, slug = $3, description = $4, price = $5, images = $6,
		category_id = $7, specifications = $8, stock = $9, featured = $10, is_trending = $11,
		featured_home = $12, is_hero_showcase = $13, meta_title = $14, meta_description = $15,
		keywords = $16, updated_at = $17
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	return r.getOne(ctx, getProductByIDSQL, id)
}

// GetBySlug returns a single product by its URL slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	return r.getOne(ctx, getProductBySlugSQL, slug)
}

func (r *ProductRepository) getOne(ctx context.Context, query, arg string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", arg, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Slug, p.Description, p.Price, images(p.Images), p.CategoryID, specs(p),
		p.Stock, p.Featured, p.Trending, p.FeaturedHome, p.HeroShowcase,
		p.MetaTitle, p.MetaDescription, p.Keywords, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Upsert inserts p or overwrites the product with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Slug, p.Description, p.Price, images(p.Images), p.CategoryID, specs(p),
		p.Stock, p.Featured, p.Trending, p.FeaturedHome, p.HeroShowcase,
		p.MetaTitle, p.MetaDescription, p.Keywords, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites every mutable column of p.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Slug, p.Description, p.Price, images(p.Images), p.CategoryID, specs(p),
		p.Stock, p.Featured, p.Trending, p.FeaturedHome, p.HeroShowcase,
		p.MetaTitle, p.MetaDescription, p.Keywords, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes the product with the given id.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func images(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func specs(p *product.Product) []byte {
	if len(p.Specifications) == 0 {
		return nil
	}
	return p.Specifications
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p    product.Product
		spec []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Images, &p.CategoryID, &spec, &p.Stock,
		&p.Featured, &p.Trending, &p.FeaturedHome, &p.HeroShowcase,
		&p.MetaTitle, &p.MetaDescription, &p.Keywords, &p.CreatedAt, &p.UpdatedAt,
	)
	if len(spec) > 0 {
		p.Specifications = spec
	}
	return p, err
}
