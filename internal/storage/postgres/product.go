package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/product"
)

const (
	productColumns = `id, name, type, description, image, height, weight, price, in_stock`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	countProductsSQL = `SELECT count(*) FROM products`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			image = EXCLUDED.image,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			price = EXCLUDED.price,
			in_stock = EXCLUDED.in_stock`
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

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// Count returns the number of catalog products.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countProductsSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}

// Upsert inserts a product or replaces the one with the same id.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	if err := constraint.Check(p); err != nil {
		return errors.Wrapf(err, "product %d", p.ID)
	}
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, string(p.Category), p.Description, p.Image,
		p.Height, p.Weight, p.Price, p.InStock,
	)
	if err != nil {
		return errors.Wrapf(translate(err), "upsert product %d", p.ID)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := row.Scan(
		&p.ID, &p.Name, &category, &p.Description, &p.Image,
		&p.Height, &p.Weight, &p.Price, &p.InStock,
	)
	p.Category = product.Category(category)
	return p, err
}
