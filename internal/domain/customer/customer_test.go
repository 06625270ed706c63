package customer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validCustomer() Customer {
	return Customer{
		Name:            "Jon Doe",
		ShippingAddress: "1 Queen St",
		City:            "Auckland",
		PostalCode:      "1990",
		Country:         "New Zealand",
	}
}

func TestMissingField(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Customer)
		want   string
	}{
		{name: "complete", mutate: func(*Customer) {}, want: ""},
		{name: "blank name", mutate: func(c *Customer) { c.Name = "   " }, want: "name"},
		{name: "no address", mutate: func(c *Customer) { c.ShippingAddress = "" }, want: "shippingAddress"},
		{name: "no city", mutate: func(c *Customer) { c.City = "" }, want: "city"},
		{name: "no postal code", mutate: func(c *Customer) { c.PostalCode = "\t" }, want: "postalCode"},
		{name: "no country", mutate: func(c *Customer) { c.Country = "" }, want: "country"},
		{name: "first blank wins", mutate: func(c *Customer) { c.City, c.Country = "", "" }, want: "city"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCustomer()
			tt.mutate(&c)
			assert.Equal(t, tt.want, c.MissingField())
		})
	}
}

func TestNormalize(t *testing.T) {
	c := Customer{Name: "  Jon Doe ", City: "Auckland\n"}
	n := c.Normalize()
	assert.Equal(t, "Jon Doe", n.Name)
	assert.Equal(t, "Auckland", n.City)
}
