package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/myshop/internal/app"
	"github.com/xenking/myshop/internal/domain/repository"
)

func TestReadProducts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id":"1","name":"Waffle","price":6.5},
		{"id":"2","name":"Crème Brûlée","price":"7.00"}
	]`), 0o600))

	products, err := readProducts(path)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Crème Brûlée", products[1].Name)
	assert.True(t, decimal.RequireFromString("6.5").Equal(products[0].Price))
}

func TestReadProducts_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"1","name":"","price":1}]`), 0o600))

	_, err := readProducts(path)
	assert.ErrorContains(t, err, "product 0")
}

func TestRun_Pebble(t *testing.T) {
	ctx := context.Background()
	lg := zaptest.NewLogger(t)
	cfg := config{Driver: app.DriverPebble, PebbleDir: t.TempDir()}

	require.NoError(t, run(ctx, lg, cfg))

	store, err := app.OpenStorage(ctx, lg, app.StorageConfig{Driver: cfg.Driver, PebbleDir: cfg.PebbleDir})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	products, err := repository.Collect(store.Products.Query(ctx, nil), 0)
	require.NoError(t, err)
	assert.Len(t, products, 9)
}

func TestRun_MemoryRejected(t *testing.T) {
	err := run(context.Background(), zaptest.NewLogger(t), config{Driver: app.DriverMemory})
	assert.Error(t, err)
}
