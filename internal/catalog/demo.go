package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/myshop/internal/domain/product"
)

// Demo returns a small fixed catalog for local development.
func Demo() []product.Product {
	p := func(id, name, price string) product.Product {
		return product.Product{ID: id, Name: name, Price: decimal.RequireFromString(price)}
	}
	return []product.Product{
		p("1", "Waffle with Berries", "6.50"),
		p("2", "Vanilla Bean Crème Brûlée", "7.00"),
		p("3", "Macaron Mix of Five", "8.00"),
		p("4", "Classic Tiramisu", "5.50"),
		p("5", "Pistachio Baklava", "4.00"),
		p("6", "Lemon Meringue Pie", "5.00"),
		p("7", "Red Velvet Cake", "4.50"),
		p("8", "Salted Caramel Brownie", "4.50"),
		p("9", "Vanilla Panna Cotta", "6.50"),
	}
}

// Seed writes products to w.
func Seed(ctx context.Context, w Writer, products []product.Product) error {
	if bw, ok := w.(BatchWriter); ok {
		if err := bw.PutBatch(ctx, products); err != nil {
			return errors.Wrap(err, "put batch")
		}
		return nil
	}
	for _, p := range products {
		if err := w.Put(ctx, p); err != nil {
			return errors.Wrapf(err, "put %s", p.ID)
		}
	}
	return nil
}
