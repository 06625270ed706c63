package postgres

import (
	"context"
	"iter"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/myshop/internal/domain/customer"
	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/repository"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_name, customer_shipping_address,
		customer_city, customer_postal_code, customer_country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	insertLineItemSQL = `INSERT INTO order_line_items (order_id, position, product_id,
		product_name, unit_price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)`

	selectOrdersSQL = `SELECT o.id, o.customer_name, o.customer_shipping_address,
		o.customer_city, o.customer_postal_code, o.customer_country, o.created_at,
		li.product_id, li.product_name, li.unit_price, li.quantity
		FROM orders o
		JOIN order_line_items li ON li.order_id = o.id`

	listOrdersSQL = selectOrdersSQL + ` ORDER BY o.created_at, o.id, li.position`

	getOrderByIDSQL = selectOrdersSQL + ` WHERE o.id = $1 ORDER BY li.position`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Add persists the order header and its line items in one transaction.
// A line item referencing a product deleted since validation fails the
// foreign key and nothing is written.
func (r *OrderRepository) Add(ctx context.Context, o order.Order) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		c := o.Customer
		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, c.Name, c.ShippingAddress, c.City, c.PostalCode, c.Country, o.CreatedAt,
		); err != nil {
			return err
		}

		b := &pgx.Batch{}
		for i, li := range o.LineItems {
			b.Queue(insertLineItemSQL, o.ID, i, li.ProductID, li.ProductName, li.UnitPrice, li.Quantity)
		}
		return tx.SendBatch(ctx, b).Close()
	})
	return storageErr("add order "+o.ID, err)
}

// GetByID returns the order with its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	found, err := repository.Collect(r.scan(ctx, "get order "+id, nil, getOrderByIDSQL, id), 1)
	if err != nil {
		return order.Order{}, err
	}
	if len(found) == 0 {
		return order.Order{}, repository.ErrNotFound
	}
	return found[0], nil
}

// Query streams orders by creation time.
func (r *OrderRepository) Query(ctx context.Context, match repository.Predicate[order.Order]) iter.Seq2[order.Order, error] {
	return r.scan(ctx, "query orders", match, listOrdersSQL)
}

// scan folds the joined rows, which arrive grouped by order, back into
// aggregates.
func (r *OrderRepository) scan(ctx context.Context, op string, match repository.Predicate[order.Order], sql string, args ...any) iter.Seq2[order.Order, error] {
	return func(yield func(order.Order, error) bool) {
		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			yield(order.Order{}, storageErr(op, err))
			return
		}
		defer rows.Close()

		var (
			cur  order.Order
			have bool
		)
		for rows.Next() {
			var (
				o  order.Order
				c  customer.Customer
				li order.LineItem
			)
			if err := rows.Scan(
				&o.ID, &c.Name, &c.ShippingAddress, &c.City, &c.PostalCode, &c.Country, &o.CreatedAt,
				&li.ProductID, &li.ProductName, &li.UnitPrice, &li.Quantity,
			); err != nil {
				yield(order.Order{}, storageErr(op, err))
				return
			}

			if have && cur.ID == o.ID {
				cur.LineItems = append(cur.LineItems, li)
				continue
			}
			if have && match.Match(cur) && !yield(cur, nil) {
				return
			}
			o.Customer = c
			o.CreatedAt = o.CreatedAt.UTC()
			o.LineItems = []order.LineItem{li}
			cur, have = o, true
		}
		if err := rows.Err(); err != nil {
			yield(order.Order{}, storageErr(op, err))
			return
		}
		if have && match.Match(cur) {
			yield(cur, nil)
		}
	}
}
