//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/myshop/internal/domain/customer"
	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
	"github.com/xenking/myshop/internal/domain/repository"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "myshop",
				"POSTGRES_PASSWORD": "myshop",
				"POSTGRES_DB":       "myshop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://myshop:myshop@%s:%s/myshop?sslmode=disable", host, port.Port())
	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, RunMigrations(ctx, pool))
	// Migrations are idempotent.
	require.NoError(t, RunMigrations(ctx, pool))
	return pool
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	products := NewProductRepository(pool)
	orders := NewOrderRepository(pool)

	widget := product.Product{ID: "p1", Name: "Widget", Price: decimal.RequireFromString("10.50")}
	gadget := product.Product{ID: "p2", Name: "Gadget", Price: decimal.RequireFromString("1.25")}

	t.Run("products", func(t *testing.T) {
		require.NoError(t, products.Add(ctx, widget))
		require.NoError(t, products.PutBatch(ctx, []product.Product{gadget}))

		err := products.Add(ctx, widget)
		var se *repository.StorageError
		require.ErrorAs(t, err, &se)
		assert.ErrorIs(t, err, repository.ErrConflict)

		got, err := products.GetByID(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Widget", got.Name)
		assert.True(t, widget.Price.Equal(got.Price))

		_, err = products.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		all, err := repository.Collect(products.Query(ctx, nil), 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	newOrder := func(id, name string, at time.Time) order.Order {
		return order.Order{
			ID: id,
			Customer: customer.Customer{
				Name: name, ShippingAddress: "1 Queen St", City: "Auckland",
				PostalCode: "1010", Country: "New Zealand",
			},
			LineItems: []order.LineItem{
				{ProductID: "p1", ProductName: "Widget", UnitPrice: widget.Price, Quantity: 2},
				{ProductID: "p2", ProductName: "Gadget", UnitPrice: gadget.Price, Quantity: 12},
			},
			CreatedAt: at,
		}
	}

	t.Run("orders", func(t *testing.T) {
		now := time.Now().UTC().Round(time.Microsecond)
		require.NoError(t, orders.Add(ctx, newOrder("o1", "Jon Doe", now.Add(-time.Minute))))
		require.NoError(t, orders.Add(ctx, newOrder("o2", "Jane Roe", now)))

		got, err := orders.GetByID(ctx, "o1")
		require.NoError(t, err)
		assert.Equal(t, "Jon Doe", got.Customer.Name)
		assert.True(t, now.Add(-time.Minute).Equal(got.CreatedAt))
		require.Len(t, got.LineItems, 2)
		assert.Equal(t, "p2", got.LineItems[1].ProductID)
		assert.True(t, decimal.RequireFromString("36.00").Equal(got.Total()))

		_, err = orders.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)

		err = orders.Add(ctx, newOrder("o1", "Jon Doe", now))
		assert.ErrorIs(t, err, repository.ErrConflict)

		all, err := repository.Collect(orders.Query(ctx, nil), 0)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "o1", all[0].ID)
		assert.Len(t, all[1].LineItems, 2)

		jane, err := repository.Collect(orders.Query(ctx, func(o order.Order) bool {
			return o.Customer.Name == "Jane Roe"
		}), 0)
		require.NoError(t, err)
		require.Len(t, jane, 1)
		assert.Equal(t, "o2", jane[0].ID)
	})

	t.Run("unknown product is rejected atomically", func(t *testing.T) {
		o := newOrder("o3", "Jon Doe", time.Now().UTC())
		o.LineItems[1].ProductID = "deleted"

		err := orders.Add(ctx, o)
		var se *repository.StorageError
		require.ErrorAs(t, err, &se)

		_, err = orders.GetByID(ctx, "o3")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}
