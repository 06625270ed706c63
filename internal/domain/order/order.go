package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/myshop/internal/domain/customer"
	"github.com/xenking/myshop/internal/domain/repository"
)

// Order is a customer's purchase: a customer snapshot plus one or more line
// items. Orders are never modified after they are stored.
type Order struct {
	ID        string
	Customer  customer.Customer
	LineItems []LineItem
	CreatedAt time.Time
}

// LineItem is a single product line in an order. Name and unit price are
// copied from the catalog when the order is created.
type LineItem struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
}

// Subtotal returns UnitPrice * Quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Total returns the sum of all line subtotals rounded to 2 decimal places.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, li := range o.LineItems {
		total = total.Add(li.Subtotal())
	}
	return total.Round(2)
}

// Key returns the repository identity of o.
func Key(o Order) string { return o.ID }

// Repository is the order-bound instance of the generic repository.
type Repository = repository.Repository[Order]
