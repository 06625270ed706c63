package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
	"github.com/xenking/myshop/internal/domain/repository"
	"github.com/xenking/myshop/internal/storage/memory"
)

type errorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field"`
	ProductID string `json:"productId"`
}

type orderBody struct {
	ID       string `json:"id"`
	Customer struct {
		Name string `json:"name"`
		City string `json:"city"`
	} `json:"customer"`
	LineItems []struct {
		ProductID   string  `json:"productId"`
		ProductName string  `json:"productName"`
		UnitPrice   float64 `json:"unitPrice"`
		Quantity    int     `json:"quantity"`
		Subtotal    float64 `json:"subtotal"`
	} `json:"lineItems"`
	Total     float64 `json:"total"`
	CreatedAt string  `json:"createdAt"`
}

type productBody struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type fixture struct {
	mux    *http.ServeMux
	orders *memory.Store[order.Order]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	products := memory.New(product.Key)
	require.NoError(t, products.Put(ctx, product.Product{ID: "A", Name: "Apple", Price: decimal.RequireFromString("1.50")}))
	require.NoError(t, products.Put(ctx, product.Product{ID: "B", Name: "Bread", Price: decimal.RequireFromString("3.25")}))
	orders := memory.New(order.Key)

	svc, err := order.NewService(products, orders, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(products, svc).Register(mux)
	return &fixture{mux: mux, orders: orders}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

const jonDoe = `{
	"customer": {
		"name": "Jon Doe",
		"shippingAddress": "1 Queen St",
		"city": "Auckland",
		"postalCode": "1990",
		"country": "New Zealand"
	},
	"lineItems": [
		{"productId": "A", "quantity": 2},
		{"productId": "B", "quantity": 12}
	]
}`

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/order", jonDoe)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode[orderBody](t, w)
	assert.NotEmpty(t, body.ID)
	assert.Equal(t, "/api/order/"+body.ID, w.Header().Get("Location"))
	assert.Equal(t, "Jon Doe", body.Customer.Name)
	require.Len(t, body.LineItems, 2)
	assert.Equal(t, "Apple", body.LineItems[0].ProductName)
	assert.Equal(t, 12, body.LineItems[1].Quantity)
	assert.InDelta(t, 39.0, body.LineItems[1].Subtotal, 1e-9)
	assert.InDelta(t, 42.0, body.Total, 1e-9)
	assert.NotEmpty(t, body.CreatedAt)
	assert.Equal(t, 1, f.orders.Len())

	t.Run("get", func(t *testing.T) {
		w := f.do(http.MethodGet, "/api/order/"+body.ID, "")
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[orderBody](t, w)
		assert.Equal(t, body.ID, got.ID)
		assert.InDelta(t, 42.0, got.Total, 1e-9)
	})
}

func TestDecodeCreateOrder(t *testing.T) {
	t.Run("customer and line items", func(t *testing.T) {
		req, err := decodeCreateOrder(jx.DecodeStr(jonDoe + "\n"))
		require.NoError(t, err)
		require.NotNil(t, req.Customer)
		assert.Equal(t, "Jon Doe", req.Customer.Name)
		assert.Equal(t, "New Zealand", req.Customer.Country)
		assert.Equal(t, []order.LineItemRequest{
			{ProductID: "A", Quantity: 2},
			{ProductID: "B", Quantity: 12},
		}, req.LineItems)
	})
	t.Run("repeated key replaces", func(t *testing.T) {
		req, err := decodeCreateOrder(jx.DecodeStr(
			`{"lineItems":[{"productId":"A","quantity":1}],"lineItems":[{"productId":"B","quantity":2}]}`,
		))
		require.NoError(t, err)
		assert.Equal(t, []order.LineItemRequest{{ProductID: "B", Quantity: 2}}, req.LineItems)
	})
	t.Run("null customer after value", func(t *testing.T) {
		req, err := decodeCreateOrder(jx.DecodeStr(
			`{"customer":{"name":"Jon"},"customer":null}`,
		))
		require.NoError(t, err)
		assert.Nil(t, req.Customer)
	})
	t.Run("trailing data", func(t *testing.T) {
		_, err := decodeCreateOrder(jx.DecodeStr(`{} []`))
		assert.Error(t, err)
	})
}

func TestCreateOrder_Errors(t *testing.T) {
	for _, tt := range []struct {
		name      string
		body      string
		code      int
		field     string
		productID string
	}{
		{
			name: "malformed json",
			body: `{"customer":`,
			code: http.StatusBadRequest,
		},
		{
			name: "empty body",
			body: "",
			code: http.StatusBadRequest,
		},
		{
			name: "quantity of wrong type",
			body: `{"lineItems":[{"productId":"A","quantity":"two"}]}`,
			code: http.StatusBadRequest,
		},
		{
			name:  "empty line items",
			body:  strings.Replace(jonDoe, `"lineItems": [`, `"lineItems": [], "ignored": [`, 1),
			code:  http.StatusBadRequest,
			field: "lineItems",
		},
		{
			name:  "missing customer",
			body:  `{"lineItems":[{"productId":"A","quantity":1}]}`,
			code:  http.StatusBadRequest,
			field: "customer",
		},
		{
			name:  "null customer",
			body:  `{"customer":null,"lineItems":[{"productId":"A","quantity":1}]}`,
			code:  http.StatusBadRequest,
			field: "customer",
		},
		{
			name:  "blank city",
			body:  strings.Replace(jonDoe, `"Auckland"`, `"  "`, 1),
			code:  http.StatusBadRequest,
			field: "customer.city",
		},
		{
			name:  "zero quantity",
			body:  strings.Replace(jonDoe, `"quantity": 12`, `"quantity": 0`, 1),
			code:  http.StatusBadRequest,
			field: "lineItems[1].quantity",
		},
		{
			name: "trailing data",
			body: jonDoe + `garbage`,
			code: http.StatusBadRequest,
		},
		{
			name: "second object",
			body: jonDoe + jonDoe,
			code: http.StatusBadRequest,
		},
		{
			name:  "quantity above int32",
			body:  strings.Replace(jonDoe, `"quantity": 12`, `"quantity": 3000000000`, 1),
			code:  http.StatusBadRequest,
			field: "lineItems[1].quantity",
		},
		{
			name:      "unknown product",
			body:      strings.Replace(jonDoe, `"productId": "B"`, `"productId": "Z"`, 1),
			code:      http.StatusUnprocessableEntity,
			productID: "Z",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w := f.do(http.MethodPost, "/api/order", tt.body)
			require.Equal(t, tt.code, w.Code, w.Body.String())

			body := decode[errorBody](t, w)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Message)
			assert.Equal(t, tt.field, body.Field)
			assert.Equal(t, tt.productID, body.ProductID)
			assert.Zero(t, f.orders.Len(), "nothing must be stored")
		})
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/order/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "order not found", decode[errorBody](t, w).Message)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/order", jonDoe).Code)
	}
	other := strings.Replace(jonDoe, "Jon Doe", "Jane Roe", 1)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/order", other).Code)

	w := f.do(http.MethodGet, "/api/order", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]orderBody](t, w), 4)

	w = f.do(http.MethodGet, "/api/order?customer=jane+roe", "")
	require.Equal(t, http.StatusOK, w.Code)
	jane := decode[[]orderBody](t, w)
	require.Len(t, jane, 1)
	assert.Equal(t, "Jane Roe", jane[0].Customer.Name)

	w = f.do(http.MethodGet, "/api/order?limit=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]orderBody](t, w), 2)

	w = f.do(http.MethodGet, "/api/order?limit=-1", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit", decode[errorBody](t, w).Field)
}

func TestListOrders_Empty(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/order", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestProducts(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/product", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]productBody](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.InDelta(t, 1.5, list[0].Price, 1e-9)

	w = f.do(http.MethodGet, "/api/product/B", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bread", decode[productBody](t, w).Name)

	w = f.do(http.MethodGet, "/api/product/nope", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "product not found", decode[errorBody](t, w).Message)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodDelete, "/api/order/123", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

type failingOrders struct{ err error }

func (s failingOrders) Create(context.Context, order.CreateOrderRequest) (*order.Order, error) {
	return nil, s.err
}

func (s failingOrders) Get(context.Context, string) (*order.Order, error) { return nil, s.err }

func (s failingOrders) List(context.Context, order.ListFilter) ([]order.Order, error) {
	return nil, s.err
}

func TestStorageErrorIsInternal(t *testing.T) {
	storageErr := errors.Wrap(&repository.StorageError{Op: "add order", Err: errors.New("disk full")}, "add order")

	mux := http.NewServeMux()
	NewHandler(memory.New(product.Key), failingOrders{err: storageErr}).Register(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(jonDoe)))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "internal server error", body.Message)
	assert.NotContains(t, w.Body.String(), "disk full")
}
