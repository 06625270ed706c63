// Package customer holds the customer details captured with an order.
package customer

import "strings"

// Customer is the shipping identity snapshotted into an order. All fields
// are required.
type Customer struct {
	Name            string
	ShippingAddress string
	City            string
	PostalCode      string
	Country         string
}

// Normalize returns a copy of c with surrounding whitespace removed from
// every field.
func (c Customer) Normalize() Customer {
	return Customer{
		Name:            strings.TrimSpace(c.Name),
		ShippingAddress: strings.TrimSpace(c.ShippingAddress),
		City:            strings.TrimSpace(c.City),
		PostalCode:      strings.TrimSpace(c.PostalCode),
		Country:         strings.TrimSpace(c.Country),
	}
}

// MissingField returns the JSON name of the first blank field, or "" when
// every field is set.
func (c Customer) MissingField() string {
	n := c.Normalize()
	for _, f := range []struct {
		name  string
		value string
	}{
		{"name", n.Name},
		{"shippingAddress", n.ShippingAddress},
		{"city", n.City},
		{"postalCode", n.PostalCode},
		{"country", n.Country},
	} {
		if f.value == "" {
			return f.name
		}
	}
	return ""
}
