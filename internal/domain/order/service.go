package order

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/myshop/internal/domain/customer"
	"github.com/xenking/myshop/internal/domain/product"
	"github.com/xenking/myshop/internal/domain/repository"
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

// ValidationError reports a malformed create-order request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProductNotFoundError indicates a line item references a product that does
// not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// CreateOrderRequest holds the input for creating an order.
type CreateOrderRequest struct {
	Customer  *customer.Customer
	LineItems []LineItemRequest
}

// MaxQuantity is the largest quantity a single line item may request.
const MaxQuantity = math.MaxInt32

// LineItemRequest is a requested (product, quantity) pair.
type LineItemRequest struct {
	ProductID string
	Quantity  int
}

// Validate checks the request shape. It does not touch any repository.
func (r CreateOrderRequest) Validate() error {
	if len(r.LineItems) == 0 {
		return &ValidationError{Field: "lineItems", Message: "at least one line item is required"}
	}
	if r.Customer == nil {
		return &ValidationError{Field: "customer", Message: "customer is required"}
	}
	if f := r.Customer.MissingField(); f != "" {
		return &ValidationError{Field: "customer." + f, Message: "must not be empty"}
	}
	for i, li := range r.LineItems {
		if strings.TrimSpace(li.ProductID) == "" {
			return &ValidationError{Field: fmt.Sprintf("lineItems[%d].productId", i), Message: "must not be empty"}
		}
		if li.Quantity < 1 {
			return &ValidationError{Field: fmt.Sprintf("lineItems[%d].quantity", i), Message: "must be at least 1"}
		}
		if li.Quantity > MaxQuantity {
			return &ValidationError{Field: fmt.Sprintf("lineItems[%d].quantity", i), Message: fmt.Sprintf("must be at most %d", MaxQuantity)}
		}
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	// Customer matches the customer name case-insensitively when set.
	Customer string
	// Limit caps the number of returned orders; zero means no limit.
	Limit int
}

// Service encapsulates the order workflow.
type Service struct {
	products product.Repository
	orders   Repository

	tracer   trace.Tracer
	created  metric.Int64Counter
	rejected metric.Int64Counter

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service with the required dependencies.
func NewService(
	products product.Repository,
	orders Repository,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter("github.com/xenking/myshop/internal/domain/order")

	created, err := meter.Int64Counter("myshop.orders.created",
		metric.WithDescription("Orders successfully created"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	rejected, err := meter.Int64Counter("myshop.orders.rejected",
		metric.WithDescription("Create-order requests that failed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders.rejected counter")
	}

	return &Service{
		products: products,
		orders:   orders,
		tracer:   tp.Tracer("github.com/xenking/myshop/internal/domain/order"),
		created:  created,
		rejected: rejected,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}, nil
}

// Create validates the request, resolves every referenced product, builds
// the order and stores it with a single Add call. Nothing is written when
// validation or product resolution fails.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(attribute.Int("order.line_items", len(req.LineItems))),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(rerr))))
		}
		span.End()
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	// One lookup per line item; repeated products are looked up again.
	items := make([]LineItem, len(req.LineItems))
	for i, li := range req.LineItems {
		p, err := s.products.GetByID(ctx, li.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: li.ProductID}
			}
			return nil, fmt.Errorf("get product %s: %w", li.ProductID, err)
		}
		items[i] = LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    li.Quantity,
		}
	}

	o := Order{
		ID:        s.newID(),
		Customer:  req.Customer.Normalize(),
		LineItems: items,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.Add(ctx, o); err != nil {
		return nil, fmt.Errorf("add order: %w", err)
	}

	s.created.Add(ctx, 1)
	span.SetAttributes(attribute.String("order.id", o.ID))
	return &o, nil
}

// Get returns a stored order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &o, nil
}

// List returns stored orders matching f in repository order.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	var match repository.Predicate[Order]
	if name := strings.TrimSpace(f.Customer); name != "" {
		match = func(o Order) bool {
			return strings.EqualFold(o.Customer.Name, name)
		}
	}

	orders, err := repository.Collect(s.orders.Query(ctx, match), f.Limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	return orders, nil
}

func rejectReason(err error) string {
	var (
		ve  *ValidationError
		pnf *ProductNotFoundError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &pnf):
		return "product_not_found"
	default:
		return "storage"
	}
}
