package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/myshop/internal/domain/customer"
	"github.com/xenking/myshop/internal/domain/order"
	"github.com/xenking/myshop/internal/domain/product"
)

// decodeCreateOrder reads
//
//	{"customer":{...},"lineItems":[{"productId","quantity"}]}
//
// Unknown fields are ignored and a repeated key replaces the earlier value.
// A missing or null customer stays nil so the workflow can report it. Only
// whitespace may follow the object.
func decodeCreateOrder(d *jx.Decoder) (order.CreateOrderRequest, error) {
	var req order.CreateOrderRequest
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "customer":
			req.Customer = nil
			if d.Next() == jx.Null {
				return d.Null()
			}
			c, err := decodeCustomer(d)
			if err != nil {
				return errors.Wrap(err, "customer")
			}
			req.Customer = &c
			return nil
		case "lineItems":
			req.LineItems = nil
			if d.Next() == jx.Null {
				return d.Null()
			}
			if err := d.Arr(func(d *jx.Decoder) error {
				li, err := decodeLineItemRequest(d)
				if err != nil {
					return err
				}
				req.LineItems = append(req.LineItems, li)
				return nil
			}); err != nil {
				return errors.Wrap(err, "lineItems")
			}
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return order.CreateOrderRequest{}, err
	}
	if tt := d.Next(); tt != jx.Invalid {
		return order.CreateOrderRequest{}, errors.Errorf("unexpected %s after request object", tt)
	}
	return req, nil
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
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return c, err
}

func decodeLineItemRequest(d *jx.Decoder) (order.LineItemRequest, error) {
	var li order.LineItemRequest
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			li.ProductID, err = d.Str()
		case "quantity":
			li.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		return nil
	})
	return li, err
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)

	e.FieldStart("customer")
	c := o.Customer
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

	e.FieldStart("lineItems")
	e.ArrStart()
	for _, li := range o.LineItems {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(li.ProductID)
		e.FieldStart("productName")
		e.Str(li.ProductName)
		e.FieldStart("unitPrice")
		e.Float64(li.UnitPrice.InexactFloat64())
		e.FieldStart("quantity")
		e.Int(li.Quantity)
		e.FieldStart("subtotal")
		e.Float64(li.Subtotal().Round(2).InexactFloat64())
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("total")
	e.Float64(o.Total().InexactFloat64())
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	e.Float64(p.Price.InexactFloat64())
	e.ObjEnd()
}
