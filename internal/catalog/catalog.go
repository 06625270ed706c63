// Package catalog loads products into a product store from NDJSON files,
// optionally gzip-compressed. Each line is {"id","name","price"}; the price
// may be a JSON number or a decimal string.
//
// Import runs in two passes. The first pass streams all files concurrently
// into a shared bloom filter and records every ID the filter has possibly
// seen before. The second pass streams the files in order and writes the
// first occurrence of each ID, keeping an exact set only for those suspects.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/myshop/internal/domain/product"
)

// Writer stores catalog products, replacing existing ones.
type Writer interface {
	Put(ctx context.Context, p product.Product) error
}

// BatchWriter is implemented by stores that can upsert many products in one
// round trip. Import prefers it over Writer.
type BatchWriter interface {
	PutBatch(ctx context.Context, products []product.Product) error
}

// Stats summarizes an import.
type Stats struct {
	// Read is the number of product lines read in the write pass.
	Read int
	// Duplicates is the number of lines skipped because their ID was already
	// written.
	Duplicates int
	// Written is the number of products stored.
	Written int
	// Suspects is the number of IDs the bloom filter flagged as possibly
	// repeated.
	Suspects int
}

// DecodeProduct parses a single catalog line.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodePrice(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	if err != nil {
		return product.Product{}, err
	}
	return p, validate(p)
}

func decodePrice(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", d.Next())
	}
}

func validate(p product.Product) error {
	switch {
	case p.ID == "":
		return errors.New("id is required")
	case p.Name == "":
		return errors.New("name is required")
	case p.Price.IsNegative():
		return errors.Errorf("negative price %s", p.Price)
	}
	return nil
}
