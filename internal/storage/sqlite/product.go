package sqlite

import (
	"context"
	"database/sql"

	"github.com/go-faster/errors"

	"github.com/xenking/checkout-api/internal/constraint"
	"github.com/xenking/checkout-api/internal/domain/product"
)

const (
	productColumns = `id, name, type, description, image, height, weight, price, in_stock`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ?`

	countProductsSQL = `SELECT count(*) FROM products`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			description = excluded.description,
			image = excluded.image,
			height = excluded.height,
			weight = excluded.weight,
			price = excluded.price,
			in_stock = excluded.in_stock`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository on SQLite.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(d *DB) *ProductRepository {
	return &ProductRepository{db: d}
}

func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.db.QueryContext(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	defer func() { _ = rows.Close() }()

	var out []product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return out, nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, err := scanProduct(r.db.db.QueryRowContext(ctx, getProductByIDSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.db.QueryRowContext(ctx, countProductsSQL).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}

func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	if err := constraint.Check(p); err != nil {
		return errors.Wrapf(err, "product %d", p.ID)
	}
	_, err := r.db.db.ExecContext(ctx, upsertProductSQL,
		p.ID, p.Name, string(p.Category), p.Description, p.Image,
		p.Height, p.Weight, p.Price, p.InStock,
	)
	if err != nil {
		return errors.Wrapf(translate(err), "upsert product %d", p.ID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (product.Product, error) {
	var (
		p        product.Product
		category string
	)
	err := s.Scan(
		&p.ID, &p.Name, &category, &p.Description, &p.Image,
		&p.Height, &p.Weight, &p.Price, &p.InStock,
	)
	p.Category = product.Category(category)
	return p, err
}
