package pebble

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/myshop/internal/domain/customer"
	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
)

// Namespaces used by NewProductStore and NewOrderStore.
const (
	ProductNamespace = "products"
	OrderNamespace   = "orders"
)

// NewProductStore binds the product repository.
func NewProductStore(db *DB) *Store[product.Product] {
	return NewStore(db, ProductNamespace, product.Key, ProductCodec{})
}

// NewOrderStore binds the order repository.
func NewOrderStore(db *DB) *Store[order.Order] {
	return NewStore(db, OrderNamespace, order.Key, OrderCodec{})
}

// ProductCodec stores products as {"id","name","price"} with the price kept
// as a decimal string.
type ProductCodec struct{}

func (ProductCodec) Encode(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Str(p.Price.String())
	e.ObjEnd()
}

func (ProductCodec) Decode(d *jx.Decoder) (product.Product, error) {
	var p product.Product
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return p, err
}

// OrderCodec stores the full order aggregate in a single value.
type OrderCodec struct{}

func (OrderCodec) Encode(e *jx.Encoder, o order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customer")
	encodeCustomer(e, o.Customer)
	e.FieldStart("lineItems")
	e.ArrStart()
	for _, li := range o.LineItems {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(li.ProductID)
		e.FieldStart("productName")
		e.Str(li.ProductName)
		e.FieldStart("unitPrice")
		e.Str(li.UnitPrice.String())
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
}

func (OrderCodec) Decode(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			o.ID, err = d.Str()
		case "customer":
			o.Customer, err = decodeCustomer(d)
		case "lineItems":
			err = d.Arr(func(d *jx.Decoder) error {
				li, err := decodeLineItem(d)
				if err != nil {
					return err
				}
				o.LineItems = append(o.LineItems, li)
				return nil
			})
		case "createdAt":
			var s string
			if s, err = d.Str(); err == nil {
				o.CreatedAt, err = time.Parse(time.RFC3339Nano, s)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return o, err
}

func encodeCustomer(e *jx.Encoder, c customer.Customer) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(c.Name)
	e.FieldStart("shippingAddress")
	e.Str(c.ShippingAddress)
	e.FieldStart("city")
	e.Str(c.City)
	e.FieldStart("postalCode")
	e.Str(c.PostalCode)
	e.FieldStart("country")
	e.Str(c.Country)
	e.ObjEnd()
}

func decodeCustomer(d *jx.Decoder) (customer.Customer, error) {
	var c customer.Customer
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			c.Name, err = d.Str()
		case "shippingAddress":
			c.ShippingAddress, err = d.Str()
		case "city":
			c.City, err = d.Str()
		case "postalCode":
			c.PostalCode, err = d.Str()
		case "country":
			c.Country, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodeLineItem(d *jx.Decoder) (order.LineItem, error) {
	var li order.LineItem
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			li.ProductID, err = d.Str()
		case "productName":
			li.ProductName, err = d.Str()
		case "unitPrice":
			li.UnitPrice, err = decodeDecimal(d)
		case "quantity":
			li.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	return li, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
