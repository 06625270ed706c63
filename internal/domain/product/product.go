package product

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/myshop/internal/domain/repository"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = repository.ErrNotFound

// Product represents a catalog item available for purchase.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Key returns the repository identity of p.
func Key(p Product) string { return p.ID }

// Repository is the product-bound instance of the generic repository.
type Repository = repository.Repository[Product]
