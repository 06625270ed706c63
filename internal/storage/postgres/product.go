package postgres

import (
	"context"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/myshop/internal/domain/product"
	"github.com/xenking/myshop/internal/domain/repository"
)

const (
	insertProductSQL = `INSERT INTO products (id, name, price) VALUES ($1, $2, $3)`

	upsertProductSQL = `INSERT INTO products (id, name, price) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price`

	listProductsSQL = `SELECT id, name, price FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price FROM products WHERE id = $1`
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

// Add inserts a new product.
func (r *ProductRepository) Add(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, insertProductSQL, p.ID, p.Name, p.Price)
	return storageErr("add product "+p.ID, err)
}

// Put inserts or replaces a product.
func (r *ProductRepository) Put(ctx context.Context, p product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price)
	return storageErr("put product "+p.ID, err)
}

// PutBatch upserts products in a single round trip.
func (r *ProductRepository) PutBatch(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, p := range products {
		b.Queue(upsertProductSQL, p.ID, p.Name, p.Price)
	}
	return storageErr("put products", r.pool.SendBatch(ctx, b).Close())
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return product.Product{}, storageErr("get product "+id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		return product.Product{}, storageErr("get product "+id, err)
	}
	return p, nil
}

// Query streams the catalog ordered by ID.
func (r *ProductRepository) Query(ctx context.Context, match repository.Predicate[product.Product]) iter.Seq2[product.Product, error] {
	return func(yield func(product.Product, error) bool) {
		rows, err := r.pool.Query(ctx, listProductsSQL)
		if err != nil {
			yield(product.Product{}, storageErr("query products", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				yield(product.Product{}, storageErr("scan product", err))
				return
			}
			if !match.Match(p) {
				continue
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(product.Product{}, storageErr("query products", err))
		}
	}
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price)
	return p, err
}
